package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct {
	scope, key string
}

func newIdemRouter(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), IdempotencyValidator(opts, lookup))
	handler := func(c *gin.Context) {
		k, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{
			"key":    k,
			"replay": IsReplay(c),
			"bypass": IsRateBypass(c),
		})
	}
	r.POST("/api/referrals/", handler)
	r.GET("/api/referrals/", handler)
	r.POST("/api/companies/:id/verify", handler)
	return r
}

func doIdem(t *testing.T, r http.Handler, method, path, key string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHelpers_DefaultsAndWrongTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}

	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("expected key to be absent for non-string value")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false for non-bool")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
}

func TestIdempotencyValidator_PassThrough(t *testing.T) {
	var calls []lookupCall
	lookup := func(_ context.Context, scope, key string, _ time.Time) (bool, error) {
		calls = append(calls, lookupCall{scope, key})
		return true, nil
	}
	r := newIdemRouter(IdempotencyOptions{}, lookup)

	// no header
	w, body := doIdem(t, r, http.MethodPost, "/api/referrals/", "")
	if w.Code != http.StatusOK || body["key"] != "" || body["replay"] != false {
		t.Fatalf("no header: code=%d body=%v", w.Code, body)
	}
	// header on a read is ignored, even when malformed
	w, body = doIdem(t, r, http.MethodGet, "/api/referrals/", "bad key!")
	if w.Code != http.StatusOK || body["key"] != "" {
		t.Fatalf("GET: code=%d body=%v", w.Code, body)
	}
	if len(calls) != 0 {
		t.Fatalf("lookup should not run, got %v", calls)
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	r := newIdemRouter(IdempotencyOptions{MaxLen: 8}, nil)

	for _, key := range []string{"has space", "semi;colon", "waytoolongkey"} {
		w, body := doIdem(t, r, http.MethodPost, "/api/referrals/", key)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: want 400, got %d", key, w.Code)
		}
		if body["code"] != "bad_idempotency_key" || body["request_id"] == "" {
			t.Fatalf("key %q: unexpected body %v", key, body)
		}
	}
}

func TestIdempotencyValidator_CustomPattern(t *testing.T) {
	r := newIdemRouter(IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, nil)

	if w, _ := doIdem(t, r, http.MethodPost, "/api/referrals/", "abc"); w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for non-digit key, got %d", w.Code)
	}
	w, body := doIdem(t, r, http.MethodPost, "/api/referrals/", "12345")
	if w.Code != http.StatusOK || body["key"] != "12345" {
		t.Fatalf("digit key: code=%d body=%v", w.Code, body)
	}
}

func TestIdempotencyValidator_LookupScopesAndReplay(t *testing.T) {
	var calls []lookupCall
	lookup := func(_ context.Context, scope, key string, now time.Time) (bool, error) {
		if now.Location() != time.UTC {
			t.Errorf("lookup time should be UTC, got %v", now.Location())
		}
		calls = append(calls, lookupCall{scope, key})
		return key == "seen-1", nil
	}
	r := newIdemRouter(IdempotencyOptions{}, lookup)

	_, body := doIdem(t, r, http.MethodPost, "/api/referrals/", "fresh-1")
	if body["key"] != "fresh-1" || body["replay"] != false || body["bypass"] != false {
		t.Fatalf("fresh key: %v", body)
	}
	_, body = doIdem(t, r, http.MethodPost, "/api/referrals/", "seen-1")
	if body["replay"] != true || body["bypass"] != true {
		t.Fatalf("seen key should be a replay: %v", body)
	}
	doIdem(t, r, http.MethodPost, "/api/companies/7/verify", "fresh-2")

	want := []lookupCall{{"referrals", "fresh-1"}, {"referrals", "seen-1"}, {"verify", "fresh-2"}}
	if len(calls) != len(want) {
		t.Fatalf("calls=%v want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestIdempotencyValidator_LookupErrorIsAMiss(t *testing.T) {
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		return true, errors.New("db down")
	}
	r := newIdemRouter(IdempotencyOptions{}, lookup)

	w, body := doIdem(t, r, http.MethodPost, "/api/referrals/", "k1")
	if w.Code != http.StatusOK || body["key"] != "k1" || body["replay"] != false {
		t.Fatalf("code=%d body=%v", w.Code, body)
	}
}

func TestResourceScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	got := map[string]string{}
	for _, route := range []string{"/users", "/api/jobs/", "/api/jobs/:id", "/api/companies/:id/verify", "/"} {
		route := route
		r.GET(route, func(c *gin.Context) { got[route] = ResourceScope(c) })
	}
	for _, path := range []string{"/users", "/api/jobs/", "/api/jobs/3", "/api/companies/3/verify", "/"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	want := map[string]string{
		"/users":                    "users",
		"/api/jobs/":                "jobs",
		"/api/jobs/:id":             "jobs",
		"/api/companies/:id/verify": "verify",
		"/":                         "",
	}
	for route, scope := range want {
		if got[route] != scope {
			t.Fatalf("ResourceScope(%s)=%q want %q", route, got[route], scope)
		}
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if s := ResourceScope(c); s != "" {
		t.Fatalf("unmatched route should have empty scope, got %q", s)
	}
}
