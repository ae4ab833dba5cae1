package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/waste3d/gameplatform-api/services/progress-service/internal/application/usecase"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/client"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProgressHandler struct {
	uc      *usecase.ProgressUseCase
	catalog client.CourseCatalog
}

func NewProgressHandler(uc *usecase.ProgressUseCase, catalog client.CourseCatalog) *ProgressHandler {
	return &ProgressHandler{uc: uc, catalog: catalog}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	uid, err := uuid.Parse(c.GetString("userId")) // Из AuthMiddleware
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, false
	}
	return uid, true
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lesson progress not found"})
	default:
		// Детали стора наружу не отдаем
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// Сколько всего уроков в курсе — спрашиваем у course-service
func (h *ProgressHandler) lessonCount(c *gin.Context, courseID string) (int, bool) {
	total, err := h.catalog.GetLessonCount(c, courseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve course"})
		return 0, false
	}
	return total, true
}

// POST /api/v1/progress/courses/:courseId/lessons/:lessonId/start
func (h *ProgressHandler) StartLesson(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	lp, outcome, err := h.uc.StartLesson(c, userID, c.Param("courseId"), c.Param("lessonId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress": lp,
		"message":  string(outcome),
	})
}

// POST /api/v1/progress/courses/:courseId/lessons/:lessonId/time
func (h *ProgressHandler) AccrueTime(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Seconds *int `json:"seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Seconds == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seconds is required"})
		return
	}
	if *req.Seconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seconds must be non-negative"})
		return
	}

	lp, err := h.uc.AccrueTime(c, userID, c.Param("courseId"), c.Param("lessonId"), *req.Seconds)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": lp})
}

// POST /api/v1/progress/courses/:courseId/lessons/:lessonId/complete
func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Score *int `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be between 0 and 100"})
		return
	}

	courseID := c.Param("courseId")
	totalLessons, ok := h.lessonCount(c, courseID)
	if !ok {
		return
	}

	lp, outcome, err := h.uc.CompleteLesson(c, userID, courseID, c.Param("lessonId"), totalLessons, req.Score)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress": lp,
		"message":  string(outcome),
	})
}

// DELETE /api/v1/progress/courses/:courseId/lessons/:lessonId/complete
func (h *ProgressHandler) UncompleteLesson(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	courseID := c.Param("courseId")
	totalLessons, ok := h.lessonCount(c, courseID)
	if !ok {
		return
	}

	lp, outcome, err := h.uc.UncompleteLesson(c, userID, courseID, c.Param("lessonId"), totalLessons)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress": lp,
		"message":  string(outcome),
	})
}

// GET /api/v1/progress/courses/:courseId
func (h *ProgressHandler) GetCourseOverview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	courseID := c.Param("courseId")
	totalLessons, ok := h.lessonCount(c, courseID)
	if !ok {
		return
	}

	overview, err := h.uc.GetCourseOverview(c, userID, courseID, totalLessons)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// POST /api/v1/progress/courses/:courseId/touch
func (h *ProgressHandler) TouchCourse(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cp, err := h.uc.TouchLastAccessed(c, userID, c.Param("courseId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": cp})
}

// DELETE /api/v1/progress/courses/:courseId
func (h *ProgressHandler) ResetCourse(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	reset, err := h.uc.ResetCourseProgress(c, userID, c.Param("courseId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reset": reset})
}

// GET /api/v1/progress?include_completed=false
func (h *ProgressHandler) GetUserProgress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	includeCompleted, err := strconv.ParseBool(c.DefaultQuery("include_completed", "true"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "include_completed must be a boolean"})
		return
	}

	records, err := h.uc.GetUserProgress(c, userID, includeCompleted)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": records})
}

// POST /api/v1/progress/bulk
func (h *ProgressHandler) GetBulkProgress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		CourseIDs []string `json:"course_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	for _, id := range req.CourseIDs {
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "course_ids must not contain empty ids"})
			return
		}
	}

	result, err := h.uc.GetBulkCourseProgress(c, userID, req.CourseIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": result})
}

// GET /api/v1/progress/stats
func (h *ProgressHandler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.uc.GetProgressStats(c, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
