package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// LessonIDList хранится как JSON-текст (порядок добавления сохраняем для отображения).
type LessonIDList []string

func (l LessonIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *LessonIDList) Scan(src interface{}) error {
	if src == nil {
		*l = LessonIDList{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(l))
	default:
		return errors.New("unsupported type for LessonIDList")
	}
}

type CourseProgress struct {
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CourseID string    `gorm:"primaryKey" json:"course_id"` // ID из course-service

	CompletedLessons   LessonIDList `gorm:"type:text" json:"completed_lessons"`
	ProgressPercentage int          `gorm:"default:0;check:progress_percentage >= 0 AND progress_percentage <= 100" json:"progress_percentage"`

	LastAccessedAt time.Time  `json:"last_accessed_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"` // не NULL только при 100%
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ProgressStats — агрегат по всем курсам пользователя.
type ProgressStats struct {
	TotalCourses          int     `json:"total_courses"`
	CompletedCourses      int     `json:"completed_courses"`
	InProgressCourses     int     `json:"in_progress_courses"`
	TotalLessonsCompleted int     `json:"total_lessons_completed"`
	AverageProgress       float64 `json:"average_progress"`
}

// CourseOverview — ответ дашборда курса: записи по урокам + статистика.
type CourseOverview struct {
	Lessons          []LessonProgress `json:"lessons"`
	TotalLessons     int              `json:"total_lessons"`
	CompletedLessons int              `json:"completed_lessons"`
	CompletionRate   int              `json:"completion_rate"`
	TotalTimeSeconds int              `json:"total_time_seconds"`
	AverageScore     float64          `json:"average_score"`
	CurrentLessonID  string           `json:"current_lesson_id,omitempty"`
}
