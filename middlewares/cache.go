package middlewares

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type cachedBody struct {
	Status int
	Header map[string][]string
	Body   []byte
}

//把 路徑+參數 轉成 SHA1 雜湊字串，避免 Redis key 太長
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// 依路徑命名空間，方便失效：item 跟 list（list 涵蓋 /events、search、nearby）
// 第一個字串：完整 Redis Key 第二個字串：類別標籤
func CacheKeyFrom(c *gin.Context) (string, string) {
	method := c.Request.Method
	path := c.FullPath() // 路由模板，例如 /events/:id，而不是實際的 /events/123
	rawq := c.Request.URL.RawQuery

	// 修改資料的請求不快取；帶 Authorization 的回應是個人化的（mine 等），也不能進共用快取
	if method != "GET" || path == "" || c.Request.Header.Get("Authorization") != "" {
		return "", ""
	}

	switch {
	case path == "/events/:id":
		id := c.Param("id")
		return "cache:events:item:" + sha1Hex("GET|/events/"+id), "item"
	case strings.HasPrefix(path, "/events"):
		return "cache:events:list:" + sha1Hex("GET|"+path+"|"+rawq), "list"
	case strings.HasPrefix(path, "/cities"), strings.HasPrefix(path, "/categories"):
		return "cache:refdata:" + sha1Hex("GET|"+path+"|"+rawq), "refdata"
	default:
		return "", "" // /metrics、/healthz 不進快取
	}
}

func ResponseCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, _ := CacheKeyFrom(c)
		if key == "" {
			c.Next() //不是可快取的請求，跑下個 handler
			return
		}

		// 請求進來，查 Redis 有沒有快取資料(有hit)
		if b, err := rdb.Get(context.Background(), key).Bytes(); err == nil && len(b) > 0 {
			var hit cachedBody
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
				for k, vals := range hit.Header {
					for _, v := range vals {
						c.Writer.Header().Add(k, v)
					}
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Status(hit.Status)
				_, _ = c.Writer.Write(hit.Body)
				return //有快取 不呼叫 c.Next()
			}
		}

		// 攔截回應 (沒hit)
		buf := &bytes.Buffer{}
		bw := &bufferedWriter{ResponseWriter: c.Writer, buf: buf}
		c.Writer = bw

		c.Next()

		// 只快取 2xx
		if bw.Status() >= 200 && bw.Status() < 300 {
			item := cachedBody{
				Status: bw.Status(),
				Header: c.Writer.Header(),
				Body:   buf.Bytes(),
			}

			var o bytes.Buffer
			if err := gob.NewEncoder(&o).Encode(item); err == nil {
				_ = rdb.Set(context.Background(), key, o.Bytes(), ttl).Err()
			}
			c.Writer.Header().Set("X-Cache", "MISS")
		}
	}
}

type bufferedWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)                   // 先寫到記憶體 buffer
	return w.ResponseWriter.Write(b) // 再寫到真正的網路回應
}
