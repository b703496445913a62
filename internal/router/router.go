package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/voxquiz/voxquiz-backend/internal/config"
	"github.com/voxquiz/voxquiz-backend/internal/handler"
	"github.com/voxquiz/voxquiz-backend/internal/middleware"
	"github.com/voxquiz/voxquiz-backend/internal/model"
	"github.com/voxquiz/voxquiz-backend/internal/response"
	"github.com/voxquiz/voxquiz-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Session  *handler.SessionHandler
	Question *handler.QuestionHandler
	Voice    *handler.VoiceHandler
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
	// Restrict to the configured origin list when set; otherwise allow all
	// so dev works without extra config.
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

	// Request IDs on every response, compression on everything but the
	// WebSocket upgrade.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	{
		publicAPI.GET("/leaderboard",
			middleware.CacheControl(30),
			handlers.Session.Leaderboard,
		)
	}

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/player/register", handlers.Auth.RegisterPlayer)
		auth.POST("/player/login", handlers.Auth.PlayerLogin)
		auth.POST("/host/login", handlers.Auth.HostLogin)
	}

	// ─── 2. Player Group (JWT + Single Device) ─────────────────────────
	playerAPI := router.Group("/api/v1/player")
	playerAPI.Use(
		middleware.RequirePlayerJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		playerAPI.POST("/logout", handlers.Auth.PlayerLogout)
		playerAPI.GET("/me", handlers.Auth.PlayerMe)
		playerAPI.GET("/sessions/:session_id", handlers.Session.GetSession)
		playerAPI.POST("/sessions/:session_id/resume", handlers.Session.ResumeSession)
	}

	// ─── 3. WebSocket Group (Player WS Auth) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequirePlayerWSAuth(authService))
	{
		ws.GET("/player/sessions/stream", handlers.Voice.VoiceStream)
	}

	// ─── 4. Host Group (JWT + RBAC) ────────────────────────────────────
	hostAPI := router.Group("/api/v1/host")
	hostAPI.Use(middleware.RequireHostJWT(authService))
	{
		hostAPI.GET("/me", handlers.Auth.HostMe)

		hostAPI.GET("/questions",
			middleware.RequirePermission(model.PermissionQuestionsRead),
			handlers.Question.List,
		)
		hostAPI.GET("/questions/:question_id",
			middleware.RequirePermission(model.PermissionQuestionsRead),
			handlers.Question.Get,
		)
		hostAPI.POST("/questions",
			middleware.RequirePermission(model.PermissionQuestionsWrite),
			handlers.Question.Create,
		)
		hostAPI.PUT("/questions/:question_id",
			middleware.RequirePermission(model.PermissionQuestionsWrite),
			handlers.Question.Update,
		)
		hostAPI.DELETE("/questions/:question_id",
			middleware.RequirePermission(model.PermissionQuestionsWrite),
			handlers.Question.Delete,
		)

		hostAPI.GET("/sessions/:session_id",
			middleware.RequirePermission(model.PermissionSessionsRead),
			handlers.Session.HostGetSession,
		)
	}

	return router
}
