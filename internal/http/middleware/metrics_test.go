package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndPathFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/jobs/:id", func(c *gin.Context) { c.String(http.StatusOK, "job") })
	r.DELETE("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/jobs/:id", "200"))
	baseDel := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/jobs/:id", "204"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nope", "404"))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/jobs/1", nil),
		httptest.NewRequest(http.MethodGet, "/jobs/2", nil),
		httptest.NewRequest(http.MethodDelete, "/jobs/2", nil),
		httptest.NewRequest(http.MethodGet, "/nope", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/jobs/:id", "200")); got != baseOK+2 {
		t.Fatalf("route counter = %v; want %v", got, baseOK+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/jobs/:id", "204")); got != baseDel+1 {
		t.Fatalf("delete counter = %v; want %v", got, baseDel+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nope", "404")); got != base404+1 {
		t.Fatalf("404 fallback counter = %v; want %v", got, base404+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestRecordWrite(t *testing.T) {
	base := testutil.ToFloat64(recordWrites.WithLabelValues("Referral", "delete"))
	RecordWrite("Referral", "delete", 3)
	RecordWrite("Referral", "delete", 0)
	if got := testutil.ToFloat64(recordWrites.WithLabelValues("Referral", "delete")); got != base+3 {
		t.Fatalf("record writes = %v; want %v", got, base+3)
	}
}
