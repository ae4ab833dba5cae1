package domain

import (
	"time"

	"github.com/google/uuid"
)

type LessonProgress struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_lesson_progress_key;index" json:"user_id"`
	CourseID string    `gorm:"uniqueIndex:idx_lesson_progress_key;index" json:"course_id"` // ID из course-service
	LessonID string    `gorm:"uniqueIndex:idx_lesson_progress_key" json:"lesson_id"`

	Completed        bool `gorm:"default:false" json:"completed"`
	TimeSpentSeconds int  `gorm:"default:0;check:time_spent_seconds >= 0" json:"time_spent_seconds"`
	Attempts         int  `gorm:"default:0;check:attempts >= 0" json:"attempts"`
	Score            *int `gorm:"check:score IS NULL OR (score >= 0 AND score <= 100)" json:"score,omitempty"`

	FirstStartedAt time.Time  `json:"first_started_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"` // не NULL только когда Completed = true
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StartOutcome — результат StartLesson: создали запись или вернули существующую.
type StartOutcome string

const (
	StartOutcomeStarted StartOutcome = "started"
	StartOutcomeResumed StartOutcome = "resumed"
)

// CompleteOutcome — повторное завершение не ошибка, но attempts не растёт.
type CompleteOutcome string

const (
	CompleteOutcomeCompleted        CompleteOutcome = "completed"
	CompleteOutcomeAlreadyCompleted CompleteOutcome = "already_completed"
)

type UncompleteOutcome string

const (
	UncompleteOutcomeUpdated  UncompleteOutcome = "updated"
	UncompleteOutcomeNoChange UncompleteOutcome = "no_change"
	UncompleteOutcomeNotFound UncompleteOutcome = "not_found"
)
