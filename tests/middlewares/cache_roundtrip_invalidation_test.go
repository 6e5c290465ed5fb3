// 測試目的：快取 roundtrip + 失效 — HIT 之後 purge，下一次要重新 MISS
package tests

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventmap/middlewares"
	"eventmap/utils"
)

func TestCache_PurgeListThenMissAgain(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inv := utils.NewCacheInvalidator(rdb)

	s := gin.New()
	s.Use(middlewares.ResponseCache(rdb, time.Minute))
	s.GET("/events", func(c *gin.Context) { c.JSON(200, gin.H{"ok": 1}) })
	s.GET("/events/:id", func(c *gin.Context) { c.JSON(200, gin.H{"id": c.Param("id")}) })

	get := func(path string) string {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		return w.Header().Get("X-Cache")
	}

	// list：MISS → HIT → purge → MISS
	get("/events")
	if got := get("/events"); got != "HIT" {
		t.Fatalf("pre-purge: want HIT, got %q", got)
	}
	inv.PurgeEventsList(context.Background())
	if got := get("/events"); got != "MISS" {
		t.Fatalf("post-purge: want MISS, got %q", got)
	}

	// item：purge 是針對單一 id 的，別的 id 不受影響
	get("/events/abc")
	get("/events/xyz")
	inv.PurgeEventItem(context.Background(), "abc")
	if got := get("/events/abc"); got != "MISS" {
		t.Fatalf("purged item: want MISS, got %q", got)
	}
	if got := get("/events/xyz"); got != "HIT" {
		t.Fatalf("untouched item: want HIT, got %q", got)
	}
}
