package router

import (
	"net/http"
	"time"

	"github.com/campustrack/campustrack-backend/internal/config"
	"github.com/campustrack/campustrack-backend/internal/handler"
	"github.com/campustrack/campustrack-backend/internal/middleware"
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/response"
	"github.com/campustrack/campustrack-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Session    *handler.SessionHandler
	Attendance *handler.AttendanceHandler
	Analytics  *handler.AnalyticsHandler
	WS         *handler.WSHandler
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
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile route
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Sessions Group (JWT) ───────────────────────────────────────
	sessions := router.Group("/api/v1/sessions")
	sessions.Use(middleware.RequireAuth(authService))
	{
		sessions.POST("", middleware.RequireRole(model.RoleFaculty), handlers.Session.Create)
		sessions.GET("", handlers.Session.List)
		sessions.GET("/:id", handlers.Session.Get)
		sessions.POST("/:id/close", middleware.RequireRole(model.RoleFaculty), handlers.Session.Close)
	}

	// ─── 3. Attendance Group (JWT) ─────────────────────────────────────
	attendance := router.Group("/api/v1/attendance")
	attendance.Use(middleware.RequireAuth(authService))
	{
		attendance.POST("/mark", middleware.RequireRole(model.RoleStudent), handlers.Attendance.Mark)
		attendance.GET("/my-history", middleware.RequireRole(model.RoleStudent), handlers.Attendance.History)
		attendance.GET("/session/:id", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin), handlers.Attendance.ListForSession)
	}

	// ─── 4. Analytics Group (JWT) ──────────────────────────────────────
	analytics := router.Group("/api/v1/analytics")
	analytics.Use(middleware.RequireAuth(authService))
	{
		analytics.GET("/overview", handlers.Analytics.Overview)
		analytics.GET("/trends", handlers.Analytics.Trends)
		analytics.GET("/insights", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin), handlers.Analytics.Insights)
	}

	// ─── 5. WebSocket Group (JWT via ?token=) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAuth(authService))
	{
		ws.GET("/notifications", handlers.WS.Stream)
	}

	return router
}
