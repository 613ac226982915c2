package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteer-hub/config"
	"volunteer-hub/internal/api/handler"
	"volunteer-hub/internal/api/middleware"
	"volunteer-hub/internal/model"
	"volunteer-hub/pkg/jwt"
)

// 登录接口限流：每 IP 每分钟 10 次
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Deps 路由依赖；Blacklist / Limiter 为 nil 时对应功能降级
type Deps struct {
	JWT       *jwt.Manager
	Blacklist middleware.TokenChecker
	Limiter   middleware.RateLimiter
	DB        *gorm.DB
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthHandler(deps.DB))

	jwtAuth := middleware.JWTAuth(deps.JWT, deps.Blacklist)
	optionalAuth := middleware.OptionalJWTAuth(deps.JWT, deps.Blacklist)
	adminOnly := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.GET("/google/login", h.Auth.GoogleLogin)
			auth.GET("/google/callback", h.Auth.GoogleCallback)
			auth.POST("/login", middleware.RateLimit(deps.Limiter, loginRateLimit, loginRateWindow), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 可选认证：匿名可浏览，登录后附带报名状态
		public := v1.Group("")
		public.Use(optionalAuth)
		{
			public.GET("/activities", h.Activity.ListActivities)
			public.GET("/activities/:id", h.Activity.GetActivity)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(jwtAuth)
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 活动与报名模块
			activities := authorized.Group("/activities")
			{
				activities.GET("/me", h.Registration.ListMyActivities)
				activities.POST("", adminOnly, h.Activity.CreateActivity)
				activities.PUT("/:id", adminOnly, h.Activity.UpdateActivity)
				activities.DELETE("/:id", adminOnly, h.Activity.DeleteActivity)
				activities.POST("/:id/join", h.Registration.Join)
				activities.DELETE("/:id/join", h.Registration.Leave)
				activities.GET("/:id/participants", adminOnly, h.Registration.ListParticipants)
				activities.GET("/:id/participants/export", adminOnly, h.Export.ExportParticipants)
				activities.GET("/:id/calendar", h.Export.ExportCalendar)
			}
			authorized.POST("/registrations", h.Registration.JoinByBody)
			authorized.DELETE("/registrations", h.Registration.LeaveByBody)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.PUT("/me", h.User.UpdateProfile)
				users.GET("", adminOnly, h.User.ListUsers)
				users.POST("", adminOnly, h.User.CreateUser)
				users.GET("/:id", adminOnly, h.User.GetUser)
				users.PUT("/:id", adminOnly, h.User.UpdateUser)
				users.PUT("/:id/role", adminOnly, h.User.AssignRole)
				users.DELETE("/:id", adminOnly, h.User.DeleteUser)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.POST("", adminOnly, h.Notification.CreateNotification)
				notifications.DELETE("/:id", adminOnly, h.Notification.DeleteNotification)
			}

			// 捐赠模块
			sections := authorized.Group("/donation-sections")
			{
				sections.GET("", h.Donation.ListSections)
				sections.POST("", adminOnly, h.Donation.CreateSection)
				sections.PUT("/:id", adminOnly, h.Donation.UpdateSection)
				sections.DELETE("/:id", adminOnly, h.Donation.DeleteSection)
			}
			donations := authorized.Group("/donations")
			{
				donations.POST("", h.Donation.Donate)
				donations.GET("/me", h.Donation.ListMyDonations)
				donations.GET("", adminOnly, h.Donation.ListDonations)
			}

			// 统计模块
			authorized.GET("/stats/overview", adminOnly, h.Stats.Overview)
		}
	}

	return r
}

// healthHandler 存活检查；配置了数据库时附带连通性
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
