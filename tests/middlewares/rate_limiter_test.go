// 測試目的：RateLimiter（瞬時限速）
// 設 RPS=1, Burst=1；連打兩次：第 2 次 429，且帶有 Retry-After header
package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"eventmap/middlewares"
)

func TestRateLimiter_429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS: 1, Burst: 1, IdleTTL: time.Minute,
	})

	s := gin.New()
	s.Use(rl.Middleware(func(c *gin.Context) string { return "k" })) // 固定 key
	s.GET("/x", func(c *gin.Context) { c.String(200, "ok") })

	// 第一次：200
	w1 := httptest.NewRecorder()
	s.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w1.Code)
	}

	// 立刻第二次：429 + Retry-After
	w2 := httptest.NewRecorder()
	s.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

// 不同 key 各自一個桶：A 打爆不影響 B
func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS: 1, Burst: 1, IdleTTL: time.Minute,
	})

	s := gin.New()
	s.Use(rl.Middleware(func(c *gin.Context) string { return c.Query("k") }))
	s.GET("/x", func(c *gin.Context) { c.String(200, "ok") })

	do := func(key string) int {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?k="+key, nil))
		return w.Code
	}

	do("a")
	if do("a") != http.StatusTooManyRequests {
		t.Fatalf("key a should be limited")
	}
	if do("b") != http.StatusOK {
		t.Fatalf("key b must not share key a's bucket")
	}
}
