package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/qaforum/config"
	"github.com/cppla/qaforum/controllers"
	"github.com/cppla/qaforum/middleware"
	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// Paths that stay reachable while maintenance mode is on, so staff can still sign in.
var maintenanceExempt = []string{"/health", "/metrics", "/api/v1/auth/login", "/api/v1/auth/refresh"}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc *services.Services, cfg config.AppConfig) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file, separate from the app log
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Identity is resolved before the gate so allowed roles pass through
	r.Use(middleware.OptionalAuth(db))
	r.Use(middleware.MaintenanceGate(svc.Settings, maintenanceExempt...))
	r.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())

	r.GET("/health", func(ctx *gin.Context) {
		cache := "ok"
		if err := utils.PingRedis(ctx.Request.Context()); err != nil {
			cache = "unavailable"
		}
		utils.Success(ctx, gin.H{"status": "ok", "cache": cache})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController(svc.Auth, svc.Posts)
	postController := controllers.NewPostController(svc.Posts)
	voteController := controllers.NewVoteController(svc.Votes, svc.Answers)
	reportController := controllers.NewReportController(svc.Reports)
	notificationController := controllers.NewNotificationController(svc.Notifications)
	moderatorController := controllers.NewModeratorController(svc.Queue, svc.Reports, svc.Moderation)
	adminController := controllers.NewAdminController(svc.Admin, svc.Settings)
	statsController := controllers.NewStatsController(svc.Admin)

	authRequired := middleware.AuthRequired(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/refresh", authController.Refresh)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)
	authGroup.PATCH("/profile", authRequired, authController.UpdateProfile)

	// Public reads
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/tags", postController.ListTags)
	api.GET("/users/:id", authController.GetUserPublic)

	protected := api.Group("")
	protected.Use(authRequired)

	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/comments", postController.CreateComment)
	protected.POST("/posts/:id/vote", voteController.VotePost)
	protected.DELETE("/posts/:id/vote", voteController.UnvotePost)

	protected.PUT("/comments/:commentId", postController.UpdateComment)
	protected.DELETE("/comments/:commentId", postController.DeleteComment)
	protected.POST("/comments/:commentId/vote", voteController.VoteComment)
	protected.DELETE("/comments/:commentId/vote", voteController.UnvoteComment)
	protected.POST("/comments/:commentId/accept", voteController.AcceptAnswer)
	protected.DELETE("/comments/:commentId/accept", voteController.UnacceptAnswer)

	protected.POST("/reports", reportController.CreateReport)
	protected.GET("/reports/mine", reportController.ListMine)

	protected.GET("/notifications", notificationController.List)
	protected.PATCH("/notifications/:id/read", notificationController.MarkRead)
	protected.POST("/notifications/read-all", notificationController.MarkAllRead)

	mod := api.Group("/moderator")
	mod.Use(authRequired, middleware.RequireRoles(models.RoleModerator, models.RoleAdmin))
	mod.GET("/queue", moderatorController.Queue)
	mod.GET("/reports", moderatorController.ListReports)
	mod.POST("/reports/review", moderatorController.Review)
	mod.PATCH("/reports/:id", moderatorController.ResolveReport)
	mod.GET("/targets/:type/:id/reports", moderatorController.TargetReports)
	mod.POST("/actions", moderatorController.TakeAction)
	mod.GET("/actions", moderatorController.ListActions)

	admin := api.Group("/admin")
	admin.Use(authRequired, middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", adminController.ListUsers)
	admin.PATCH("/users/:id/roles", adminController.SetRoles)
	admin.POST("/users/:id/ban", adminController.Ban)
	admin.POST("/users/:id/unban", adminController.Unban)
	admin.DELETE("/users/:id", adminController.DeleteUser)
	admin.GET("/maintenance", adminController.GetMaintenance)
	admin.PUT("/maintenance", adminController.SetMaintenance)
	admin.GET("/settings", adminController.GetSettings)
	admin.PUT("/settings", adminController.UpdateSettings)
	admin.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "route not found")
	})

	return r
}
