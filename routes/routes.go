// routes/routes.go
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventmap/metrics"
	"eventmap/middlewares"
	"eventmap/models"
	"eventmap/notify"
	"eventmap/scheduler"
	"eventmap/utils"
)

// 依賴注入容器；由 main 組好傳進來，測試用 mocks 替換
type Deps struct {
	Users        models.UserRepository
	Events       models.EventRepository
	Interactions models.InteractionRepository
	History      models.HistoryRepository
	Cities       models.CityRepository
	Categories   models.CategoryRepository
	Tags         models.TagRepository
	Notifier     notify.Notifier
	Views        *scheduler.ViewCounter  // nil 的話就不計 view
	Inv          *utils.CacheInvalidator // 寫入後清快取

	ReportThreshold int // REPORTED 達到就自動下架（configurable，不寫死 5）
}

func RegisterRoutes(server *gin.Engine, d Deps, rdb *redis.Client, dailyQuota int) {
	if d.ReportThreshold <= 0 {
		d.ReportThreshold = 5
	}
	if dailyQuota <= 0 {
		dailyQuota = 2000
	}

	// ===== ① 全域 IP 限速（20 rps / 40 burst）=====
	globalLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     20,
		Burst:   40,
		IdleTTL: 3 * time.Minute,
	})
	server.Use(globalLimiter.Middleware(func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}))

	// ===== ② 敏感端點限速（更嚴）：/signup、/login 以 IP 做 0.5 rps =====
	authLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     0.5, // 每 2 秒 1 次
		Burst:   2,
		IdleTTL: 10 * time.Minute,
	})
	server.POST("/signup",
		authLimiter.Middleware(func(c *gin.Context) string { return "signup:" + c.ClientIP() }),
		d.signup,
	)
	server.POST("/login",
		authLimiter.Middleware(func(c *gin.Context) string { return "login:" + c.ClientIP() }),
		d.login,
	)

	// ===== ③ 受保護群組：先驗證，再以 userId 限速 + 每日配額 =====
	auth := server.Group("/")
	auth.Use(middlewares.Authenticate) // 會把 userId 放入 context

	userLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     5,
		Burst:   10,
		IdleTTL: 10 * time.Minute,
	})
	auth.Use(userLimiter.Middleware(func(c *gin.Context) string {
		return "u:" + strconv.FormatInt(c.GetInt64("userId"), 10)
	}))

	// 每日配額（長期用量控管）
	auth.Use(middlewares.Quota(rdb, middlewares.QuotaRule{
		Limit:  dailyQuota,
		Window: 24 * time.Hour,
		KeyFn: func(c *gin.Context) string {
			uid := c.GetInt64("userId")
			if uid == 0 {
				return ""
			}
			return fmt.Sprintf("quota:user:%d:day", uid)
		},
	}))

	// ===== ④ 管理端群組：Authenticate + is_admin =====
	admin := server.Group("/admin")
	admin.Use(middlewares.Authenticate, middlewares.RequireAdmin(d.Users))

	// 公開 endpoints（未登入）→ 全域 IP 限速與回應快取
	server.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	server.GET("/metrics", metrics.Handler())
	server.GET("/events", d.listEvents)
	server.GET("/events/search", d.searchEvents)
	server.GET("/events/nearby", d.nearbyEvents)
	server.GET("/events/:id", d.getEvent)
	server.GET("/cities", d.listCities)
	server.GET("/cities/:slug", d.getCity)
	server.GET("/categories", d.listCategories)

	// 登入後 endpoints → 全域 IP + 使用者限速 + 每日配額
	auth.GET("/events/mine", d.myEvents)
	auth.POST("/events", d.createEvent)
	auth.PATCH("/events/:id", d.updateEvent)
	auth.DELETE("/events/:id", d.deleteEvent)
	auth.POST("/events/:id/interact", d.interact)

	// 管理端
	admin.POST("/events/publish", d.publishEvents)
	admin.POST("/events/cancel", d.cancelEvents)
	admin.GET("/events/:id/history", d.eventHistory)
	admin.DELETE("/categories/:slug", d.deleteCategory)
}

/* --------------------- Auth --------------------- */

// POST /signup — user 建立時 profile 一起建（repo 的不變量）
func (d Deps) signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	u := models.User{Email: req.Email, Password: req.Password}
	if err := d.Users.Create(&u); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not save user."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user created successfully"})
}

// POST /login
func (d Deps) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	user, err := d.Users.ValidateCredentials(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Could not authenticate user."})
		return
	}

	token, err := utils.GenerateToken(user.Email, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not authenticate user."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful!", "token": token})
}

/* ----------------- Reference data ---------------- */

// GET /cities — 只回 active 的城市（地圖初始畫面用）
func (d Deps) listCities(c *gin.Context) {
	cities, err := d.Cities.ListActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch cities. Try again later."})
		return
	}
	if cities == nil {
		cities = []models.City{}
	}
	c.JSON(http.StatusOK, cities)
}

// GET /cities/:slug
func (d Deps) getCity(c *gin.Context) {
	city, err := d.Cities.GetBySlug(c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "City not found."})
		return
	}
	c.JSON(http.StatusOK, city)
}

// GET /categories
func (d Deps) listCategories(c *gin.Context) {
	cats, err := d.Categories.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch categories. Try again later."})
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	c.JSON(http.StatusOK, cats)
}

// DELETE /admin/categories/:slug — 還有事件掛在分類上就拒絕
func (d Deps) deleteCategory(c *gin.Context) {
	err := d.Categories.Delete(c.Param("slug"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, models.ErrCategoryInUse):
		c.JSON(http.StatusConflict, gin.H{"message": "Category is still referenced by events."})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Category not found."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not delete category."})
	}
}
