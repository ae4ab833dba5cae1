package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waste3d/gameplatform-api/services/progress-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseProgressRepository struct {
	db *gorm.DB
}

func NewCourseProgressRepository(db *gorm.DB) *CourseProgressRepository {
	return &CourseProgressRepository{db: db}
}

func (r *CourseProgressRepository) Get(ctx context.Context, userID uuid.UUID, courseID string) (*domain.CourseProgress, error) {
	var cp domain.CourseProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return &cp, err
}

// Upsert перезаписывает агрегат целиком: он всегда пересчитан из таблицы уроков.
func (r *CourseProgressRepository) Upsert(ctx context.Context, cp *domain.CourseProgress) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"completed_lessons",
				"progress_percentage",
				"last_accessed_at",
				"completed_at",
				"updated_at",
			}),
		}).
		Create(cp).Error
}

func (r *CourseProgressRepository) Create(ctx context.Context, cp *domain.CourseProgress) error {
	return r.db.WithContext(ctx).Create(cp).Error
}

func (r *CourseProgressRepository) UpdateLastAccessed(ctx context.Context, userID uuid.UUID, courseID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.CourseProgress{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Update("last_accessed_at", now)
	return res.RowsAffected, res.Error
}

func (r *CourseProgressRepository) Delete(ctx context.Context, userID uuid.UUID, courseID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&domain.CourseProgress{})
	return res.RowsAffected > 0, res.Error
}

// GetBulk возвращает только курсы, по которым есть запись. Не начатый курс —
// отсутствующий ключ, а не запись с нулями.
func (r *CourseProgressRepository) GetBulk(ctx context.Context, userID uuid.UUID, courseIDs []string) (map[string]domain.CourseProgress, error) {
	result := make(map[string]domain.CourseProgress, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	var records []domain.CourseProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id IN ?", userID, courseIDs).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	for _, cp := range records {
		result[cp.CourseID] = cp
	}
	return result, nil
}

func (r *CourseProgressRepository) ListByUser(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]domain.CourseProgress, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeCompleted {
		q = q.Where("progress_percentage < ?", 100)
	}

	var records []domain.CourseProgress
	err := q.Order("last_accessed_at desc").Find(&records).Error
	return records, err
}
