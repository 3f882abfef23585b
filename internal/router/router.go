package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/handler"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/middleware"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/response"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Portal *handler.PortalHandler
	Exam   *handler.ExamHandler
	WS     *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	gw gateway.Gateway,
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

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check doubles as the connectivity probe for clients that want
	// an offline indicator.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{
			"status": "ok",
			"remote": gw.CheckConnectivity(c.Request.Context()),
		})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireStudentJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireStudentJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Student Portal (JWT + Single Device) ───────────────────────
	portal := router.Group("/api/v1/portal")
	portal.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Streams and subjects change only by migration.
		portal.GET("/streams", middleware.CacheControl(3600), handlers.Portal.ListStreams)
		portal.GET("/subjects", middleware.CacheControl(3600), handlers.Portal.ListSubjects)
		portal.GET("/exams", handlers.Portal.ListExams)
		portal.GET("/exams/:exam_id", handlers.Portal.GetExam)
		portal.POST("/exams/:exam_id/attempts", handlers.Portal.StartAttempt)
		portal.GET("/exams/:exam_id/results", handlers.Portal.GetExamResults)
		portal.GET("/exams/:exam_id/review", handlers.Portal.GetExamReview)
		portal.GET("/results", handlers.Portal.GetMyResults)

		portal.GET("/attempts/:session_id", handlers.Portal.GetAttempt)
		portal.POST("/attempts/:session_id/answers", handlers.Portal.RecordAnswer)
		portal.POST("/attempts/:session_id/navigate", handlers.Portal.Navigate)
		portal.POST("/attempts/:session_id/events", handlers.Portal.RecordEvent)
		portal.POST("/attempts/:session_id/submit", handlers.Portal.Submit)
		portal.DELETE("/attempts/:session_id", handlers.Portal.Abandon)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/attempts/:session_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.GET("/exams/:exam_id", handlers.Exam.GetExam)
		adminAPI.DELETE("/exams/:exam_id", handlers.Exam.DeleteExam)

		adminAPI.POST("/users/:user_id/reset-session", handlers.Auth.ResetSession)
	}

	return router
}
