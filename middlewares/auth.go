package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventmap/models"
	"eventmap/utils"
)

// Authenticate 驗 JWT，把 userId 放進 context 給後面的 handler 用
func Authenticate(c *gin.Context) {
	token := c.Request.Header.Get("Authorization")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
		return
	}
	token = strings.TrimPrefix(token, "Bearer ")

	userId, err := utils.VerifyToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
		return
	}

	c.Set("userId", userId)
	c.Next()
}

// RequireAdmin 掛在 Authenticate 後面，查 users.is_admin
func RequireAdmin(users models.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetInt64("userId")
		u, err := users.GetByID(uid)
		if err != nil || !u.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access required."})
			return
		}
		c.Next()
	}
}
