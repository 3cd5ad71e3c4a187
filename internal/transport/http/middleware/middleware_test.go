package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/workflow-scheduler/internal/requestid"
	"github.com/ErlanBelekov/workflow-scheduler/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type countingLimiter struct {
	allow int
	keys  []string
}

func (l *countingLimiter) TryAcquire(key string) bool {
	l.keys = append(l.keys, key)
	if l.allow == 0 {
		return false
	}
	l.allow--
	return true
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	limiter := &countingLimiter{allow: 1}
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { c.Set(middleware.UserIDKey, "user-1") }, middleware.RateLimit(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
		if i == 1 && w.Header().Get("Retry-After") == "" {
			t.Error("429 response should carry Retry-After")
		}
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
	if limiter.keys[0] != "user-1" {
		t.Errorf("key = %q, want user-1", limiter.keys[0])
	}
}

func TestRateLimit_AnonymousKeyedByIP(t *testing.T) {
	limiter := &countingLimiter{allow: 5}
	r := gin.New()
	r.GET("/x", middleware.RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if len(limiter.keys) != 1 || limiter.keys[0] != "ip:203.0.113.7" {
		t.Errorf("keys = %v", limiter.keys)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, "%s", requestid.FromContext(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(requestid.Header, "incoming-1")
	r.ServeHTTP(w, req)
	if w.Body.String() != "incoming-1" || w.Header().Get(requestid.Header) != "incoming-1" {
		t.Errorf("incoming id not preserved: body=%q header=%q", w.Body.String(), w.Header().Get(requestid.Header))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if id := w.Header().Get(requestid.Header); id == "" || id != w.Body.String() {
		t.Errorf("generated id mismatch: body=%q header=%q", w.Body.String(), id)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Security())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Strict-Transport-Security"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}
