package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/referral-backend/internal/http/middleware"
	"github.com/tbourn/referral-backend/internal/repo"
	"github.com/tbourn/referral-backend/internal/services"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "rid-500")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "kaboom" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_Fail_4xxIsNotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) { c.Set("logger", &logger); c.Next() })
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound || buf.Len() != 0 {
		t.Fatalf("status=%d logs=%q", w.Code, buf.String())
	}
}

func Test_writeError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"not found", &services.Error{Kind: services.ErrNotFound, Entity: "Job"}, http.StatusNotFound, ErrCodeNotFound, "Job not found"},
		{"validation", &services.Error{Kind: services.ErrValidation, Entity: "Job", Detail: "critical must be at most 5"}, http.StatusBadRequest, ErrCodeValidation, "critical must be at most 5"},
		{"constraint", &services.Error{Kind: services.ErrConstraint, Entity: "User", Detail: "User conflicts with an existing record"}, http.StatusConflict, ErrCodeConflict, "User conflicts with an existing record"},
		{"storage", &services.Error{Kind: services.ErrStorage, Entity: "Job", Err: errors.New("disk I/O error")}, http.StatusInternalServerError, ErrCodeInternal, "internal server error"},
		{"wrapped not found", fmt.Errorf("lookup: %w", &services.Error{Kind: services.ErrNotFound, Entity: "Referral"}), http.StatusNotFound, ErrCodeNotFound, "lookup: Referral not found"},
		{"raw", repo.ErrNotFound, http.StatusInternalServerError, ErrCodeInternal, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { writeError(c, tc.err) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if w.Code != tc.status || er.Code != tc.code || er.Message != tc.msg {
				t.Fatalf("got %d %+v, want %d %s %q", w.Code, er, tc.status, tc.code, tc.msg)
			}
		})
	}
}

func Test_ok(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusCreated, MessageResponse{Message: "done"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusCreated || strings.TrimSpace(w.Body.String()) != `{"message":"done"}` {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
