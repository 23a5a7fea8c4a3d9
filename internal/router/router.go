package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/handler"
	"github.com/stemsi/physqgen-backend/internal/middleware"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Session   *handler.SessionHandler
	WS        *handler.WSHandler
	Admin     *handler.AdminHandler
	Dashboard *handler.DashboardHandler
	Media     *handler.MediaHandler
	Monitor   *handler.MonitorHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// An empty AllowedOrigins allows all origins so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		MinLength:    middleware.DefaultBrotliConfig.MinLength,
		Quality:      middleware.DefaultBrotliConfig.Quality,
		SkipPrefixes: []string{service.ImageURLPrefix},
	}))

	// Question images, cached for a day since uploads may replace them.
	images := router.Group(service.ImageURLPrefix)
	images.Use(middleware.CacheControl(86400))
	{
		images.Static("/", cfg.UploadDir)
	}

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(30, time.Minute, middleware.ByClientIP)
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)
	}

	// ─── 2. Student Group (JWT bound to one session) ───────────────────
	submitLimiter := middleware.NewRateLimiter(60, time.Minute, middleware.BySession)
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService), middleware.NoStore())
	{
		studentAPI.GET("/session", handlers.Session.GetSession)
		studentAPI.POST("/session/submit", submitLimiter.Middleware(), handlers.Session.SubmitAnswer)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/session/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService), middleware.NoStore())
	{
		adminAPI.GET("/students", handlers.Admin.ListStudents)
		adminAPI.GET("/sessions/:id", handlers.Admin.GetSession)
		adminAPI.DELETE("/sessions", handlers.Admin.ClearSessions)
		adminAPI.GET("/question-set", handlers.Admin.GetQuestionSet)

		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)

		adminAPI.POST("/media/upload", handlers.Media.UploadMedia)

		adminAPI.GET("/monitor", handlers.Monitor.MonitorSSE)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
