package handlers

import (
	"strings"
	"time"

	"github.com/waste3d/gameplatform-api/services/progress-service/internal/infrastructure/security"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(progressHandler *ProgressHandler, limiter *middleware.RateLimiter, tm *security.TokenManager, allowedOrigins string) *gin.Engine {
	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = strings.Split(allowedOrigins, ",")
	config.AllowCredentials = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	r.Use(cors.New(config))

	api := r.Group("/api/v1")
	{
		progress := api.Group("/progress")
		progress.Use(middleware.AuthMiddleware(tm))
		{
			progress.GET("", progressHandler.GetUserProgress)
			progress.GET("/stats", progressHandler.GetStats)
			progress.POST("/bulk", progressHandler.GetBulkProgress)

			progress.GET("/courses/:courseId", progressHandler.GetCourseOverview)
			progress.POST("/courses/:courseId/touch", progressHandler.TouchCourse)
			progress.DELETE("/courses/:courseId", progressHandler.ResetCourse)

			progress.POST("/courses/:courseId/lessons/:lessonId/start", progressHandler.StartLesson)
			// Клиент пингует каждые ~30 секунд, лимитируем
			progress.POST("/courses/:courseId/lessons/:lessonId/time", limiter.Limit("progress_ping", 30, 1*time.Minute), progressHandler.AccrueTime)
			progress.POST("/courses/:courseId/lessons/:lessonId/complete", progressHandler.CompleteLesson)
			progress.DELETE("/courses/:courseId/lessons/:lessonId/complete", progressHandler.UncompleteLesson)
		}
	}

	return r
}
