package middlewares

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// QuotaRule — 固定視窗配額（給已登入使用者的每日上限用）
type QuotaRule struct {
	Limit  int                       // 視窗內允許的請求數
	Window time.Duration             // 視窗長度，例如 24h
	KeyFn  func(*gin.Context) string // 回空字串就不計費（例如還沒認證）
}

// Quota 用 Redis INCR 當計數器：第一次建 key 時掛 TTL，視窗到了整個 key 自動消失。
// Redis 不可用時降級放行，配額不該是單點故障
func Quota(rdb *redis.Client, rule QuotaRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rule.KeyFn(c)
		if key == "" {
			c.Next()
			return
		}
		ctx := context.Background()

		// key 不存在時 INCR 會從 0 開始建，所以 n==1 就是視窗的第一筆
		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if n == 1 {
			_ = rdb.Expire(ctx, key, rule.Window).Err()
		}
		if int(n) > rule.Limit {
			c.AbortWithStatusJSON(429, gin.H{
				"message": "Usage quota exceeded. Please try again later.",
			})
			return
		}
		c.Header("X-Quota-Used", fmt.Sprintf("%d/%d", n, rule.Limit)) // X-Quota-Used: 5/2000
		c.Next()
	}
}
