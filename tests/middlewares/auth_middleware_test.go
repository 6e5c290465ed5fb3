// 測試目的：Authenticate（缺少/無效 Token → 401；合法 token 放 userId）與 RequireAdmin
package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"eventmap/middlewares"
	"eventmap/models"
	"eventmap/tests/mocks"
	"eventmap/utils"
)

func protected(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.Authenticate)
	r.GET("/p", func(c *gin.Context) { c.String(200, "uid=%d", c.GetInt64("userId")) })
	return r
}

//沒帶 Authorization → 應回 401
func TestAuthMiddleware_MissingToken_401(t *testing.T) {
	r := protected(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/p", nil) // 沒帶 Authorization
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
}

//無效字串作為 token → 應回 401。涵蓋 utils.VerifyToken 的錯誤分支
func TestAuthMiddleware_InvalidToken_401(t *testing.T) {
	r := protected(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "this-is-not-a-jwt")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
}

// 合法 token（含 Bearer 前綴）→ 放行且 userId 進 context
func TestAuthMiddleware_ValidTokenSetsUserID(t *testing.T) {
	r := protected(t)
	token, err := utils.GenerateToken("x@example.com", 42)
	if err != nil {
		t.Fatalf("gen token: %v", err)
	}

	for _, header := range []string{token, "Bearer " + token} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "uid=42" {
			t.Fatalf("header %q: got %d %q", header, w.Code, w.Body.String())
		}
	}
}

// RequireAdmin：is_admin=false → 403，true → 放行
func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	users := mocks.NewMockUserRepo()
	users.Create(&models.User{Email: "pleb@example.com", Password: "pw"})                 // uid 1
	users.Create(&models.User{Email: "root@example.com", Password: "pw", IsAdmin: true}) // uid 2

	r := gin.New()
	r.Use(middlewares.Authenticate, middlewares.RequireAdmin(users))
	r.GET("/a", func(c *gin.Context) { c.String(200, "ok") })

	for uid, want := range map[int64]int{1: http.StatusForbidden, 2: http.StatusOK} {
		token, _ := utils.GenerateToken("x@example.com", uid)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/a", nil)
		req.Header.Set("Authorization", token)
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("uid %d: want %d, got %d", uid, want, w.Code)
		}
	}
}
