package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/referral-backend/internal/config"
	"github.com/tbourn/referral-backend/internal/http/middleware"
	"github.com/tbourn/referral-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repo.Open(repo.Options{Driver: repo.DriverSQLite, DSN: dsn, Silent: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(db) })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/",
		MaxBodyBytes:   1 << 20,
		LogRedact:      true,
		List:           config.ListConfig{DefaultLimit: 10, MaxLimit: 100},
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, cfg)
	return r, db
}

func serve(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestRegisterRoutes_Health_Banner_Metrics_Fallbacks(t *testing.T) {
	r, _ := newRouter(t, testConfig())

	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || decode(t, w)["status"] != "ok" {
		t.Fatalf("GET /health = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing: %v", w.Header())
	}

	w = serve(r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || decode(t, w)["message"] != bannerMessage {
		t.Fatalf("GET / = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "referral_http_requests_total") {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = serve(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound || decode(t, w)["code"] != "not_found" {
		t.Fatalf("GET /nope = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPost, "/health", "")
	if w.Code != http.StatusMethodNotAllowed || decode(t, w)["code"] != "method_not_allowed" {
		t.Fatalf("POST /health = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_CORS(t *testing.T) {
	const origin = "http://dashboard.local"

	t.Run("allow all", func(t *testing.T) {
		r, _ := newRouter(t, testConfig())
		w := serve(r, http.MethodGet, "/health", "", "Origin", origin)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("AllowAllOrigins expected '*', got %q", got)
		}
	})

	t.Run("allowlist echoes origin", func(t *testing.T) {
		cfg := testConfig()
		cfg.CORS.AllowedOrigins = []string{origin}
		r, _ := newRouter(t, cfg)
		w := serve(r, http.MethodGet, "/health", "", "Origin", origin)
		if w.Code != http.StatusOK {
			t.Fatalf("GET /health = %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("expected ACAO echo, got %q", got)
		}
	})

	t.Run("preflight allows idempotency header", func(t *testing.T) {
		r, _ := newRouter(t, testConfig())
		w := serve(r, http.MethodOptions, "/jobs", "",
			"Origin", origin,
			"Access-Control-Request-Method", http.MethodPost,
			"Access-Control-Request-Headers", middleware.HeaderIdempotencyKey)
		if w.Code != http.StatusNoContent {
			t.Fatalf("preflight = %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, middleware.HeaderIdempotencyKey) {
			t.Fatalf("allow headers = %q", got)
		}
	})
}

func TestRegisterRoutes_MountsResourcesUnderBasePath(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v1"
	r, _ := newRouter(t, cfg)

	w := serve(r, http.MethodPost, "/api/v1/jobs/", `{"job_url":"https://jobs.example.com/1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/v1/jobs/ = %d %s", w.Code, w.Body.String())
	}
	w = serve(r, http.MethodGet, "/api/v1/jobs", "")
	if w.Code != http.StatusOK || decode(t, w)["total"] != float64(1) {
		t.Fatalf("GET /api/v1/jobs = %d %s", w.Code, w.Body.String())
	}
	for _, p := range []string{"/api/v1/users", "/api/v1/companies/", "/api/v1/referrals"} {
		if w := serve(r, http.MethodGet, p, ""); w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", p, w.Code)
		}
	}
	if w := serve(r, http.MethodGet, "/jobs", ""); w.Code != http.StatusNotFound {
		t.Fatalf("GET /jobs outside base path = %d", w.Code)
	}
}

func TestRegisterRoutes_IdempotentCreateReplays(t *testing.T) {
	r, db := newRouter(t, testConfig())
	const body = `{"name":"Acme"}`

	w := serve(r, http.MethodPost, "/companies", body, middleware.HeaderIdempotencyKey, "acme-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("first POST = %d %s", w.Code, w.Body.String())
	}
	first := decode(t, w)["id"]

	w = serve(r, http.MethodPost, "/companies", body, middleware.HeaderIdempotencyKey, "acme-1")
	if w.Code != http.StatusOK {
		t.Fatalf("replay POST = %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["id"]; got != first {
		t.Fatalf("replay id = %v, want %v", got, first)
	}

	var n int64
	if err := db.Table("companies").Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("companies = %d (%v), want 1", n, err)
	}

	// Same key on another collection is independent.
	w = serve(r, http.MethodPost, "/jobs", `{"job_url":"https://jobs.example.com/2"}`, middleware.HeaderIdempotencyKey, "acme-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /jobs with reused key = %d", w.Code)
	}

	w = serve(r, http.MethodPost, "/companies", body, middleware.HeaderIdempotencyKey, "bad key!")
	if w.Code != http.StatusBadRequest || decode(t, w)["code"] != "bad_idempotency_key" {
		t.Fatalf("malformed key = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_RateLimitAndReplayBypass(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 2
	r, _ := newRouter(t, cfg)

	key := []string{middleware.HeaderIdempotencyKey, "k-1"}
	if w := serve(r, http.MethodPost, "/companies", `{"name":"Initech"}`, key...); w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("second request = %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	if w := serve(r, http.MethodPost, "/companies", `{"name":"Initech"}`, key...); w.Code != http.StatusOK {
		t.Fatalf("replay while limited = %d, want 200", w.Code)
	}
}

func TestRegisterRoutes_RateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0
	cfg.RateBurst = 1
	r, _ := newRouter(t, cfg)
	for i := 0; i < 5; i++ {
		if w := serve(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
}

func TestRegisterRoutes_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	r, _ := newRouter(t, cfg)

	w := serve(r, http.MethodPost, "/jobs", `{"job_url":"https://jobs.example.com/long"}`)
	if w.Code != http.StatusRequestEntityTooLarge || decode(t, w)["code"] != "payload_too_large" {
		t.Fatalf("oversized body = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_Gzip(t *testing.T) {
	cfg := testConfig()
	cfg.GzipEnabled = true
	r, _ := newRouter(t, cfg)

	w := serve(r, http.MethodGet, "/health", "", "Accept-Encoding", "gzip")
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q", got)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	if w := serve(r, http.MethodGet, "/swagger/doc.json", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled = %d, want 404", w.Code)
	}

	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ = newRouter(t, cfg)
	w := serve(r, http.MethodGet, "/swagger/doc.json", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"/{entity}/{id}"`) {
		t.Fatalf("GET /swagger/doc.json = %d %s", w.Code, w.Body.String())
	}
}

func Test_idempotencyLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	lookup := idempotencyLookup(db)
	now := time.Now().UTC()

	hit, err := lookup(ctx, "jobs", "k", now)
	if err != nil || hit {
		t.Fatalf("miss = %v, %v", hit, err)
	}
	if _, err := repo.CreateIdempotency(ctx, db, "jobs", "k", 1, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}
	hit, err = lookup(ctx, "jobs", "k", now)
	if err != nil || !hit {
		t.Fatalf("hit = %v, %v", hit, err)
	}
	if hit, _ := lookup(ctx, "jobs", "k", now.Add(2*time.Hour)); hit {
		t.Fatalf("expired record reported as hit")
	}

	_ = repo.Close(db)
	hit, err = lookup(ctx, "jobs", "k", now)
	if err == nil || hit {
		t.Fatalf("closed db = %v, %v", hit, err)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := serve(r, http.MethodGet, path, "")
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}
