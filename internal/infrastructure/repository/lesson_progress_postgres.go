package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waste3d/gameplatform-api/services/progress-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LessonProgressRepository struct {
	db *gorm.DB
}

func NewLessonProgressRepository(db *gorm.DB) *LessonProgressRepository {
	return &LessonProgressRepository{db: db}
}

func (r *LessonProgressRepository) Get(ctx context.Context, userID uuid.UUID, courseID, lessonID string) (*domain.LessonProgress, error) {
	var lp domain.LessonProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND lesson_id = ?", userID, courseID, lessonID).
		First(&lp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return &lp, err
}

// StartOrResume создает запись при первом заходе в урок, иначе обновляет
// только last_accessed_at. created=true только для свежесозданной записи.
func (r *LessonProgressRepository) StartOrResume(ctx context.Context, userID uuid.UUID, courseID, lessonID string, now time.Time) (*domain.LessonProgress, bool, error) {
	lp := &domain.LessonProgress{}
	res := r.db.WithContext(ctx).
		Where(domain.LessonProgress{UserID: userID, CourseID: courseID, LessonID: lessonID}).
		Attrs(domain.LessonProgress{
			ID:             uuid.New(),
			FirstStartedAt: now,
			LastAccessedAt: now,
		}).
		FirstOrCreate(lp)

	if res.Error != nil {
		// Гонка двух одновременных стартов: уникальный индекс оставит одну запись
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			existing, err := r.Get(ctx, userID, courseID, lessonID)
			if err != nil {
				return nil, false, err
			}
			return existing, false, r.touch(ctx, userID, courseID, lessonID, now)
		}
		return nil, false, res.Error
	}

	if res.RowsAffected == 1 {
		return lp, true, nil
	}

	if err := r.touch(ctx, userID, courseID, lessonID, now); err != nil {
		return nil, false, err
	}
	lp.LastAccessedAt = now
	return lp, false, nil
}

func (r *LessonProgressRepository) touch(ctx context.Context, userID uuid.UUID, courseID, lessonID string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND lesson_id = ?", userID, courseID, lessonID).
		Update("last_accessed_at", now).Error
}

// AccrueTime — атомарный инкремент, никакого read-modify-write на стороне сервиса.
func (r *LessonProgressRepository) AccrueTime(ctx context.Context, userID uuid.UUID, courseID, lessonID string, deltaSeconds int, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND lesson_id = ?", userID, courseID, lessonID).
		Updates(map[string]interface{}{
			"time_spent_seconds": gorm.Expr("time_spent_seconds + ?", deltaSeconds),
			"last_accessed_at":   now,
		})
	return res.RowsAffected, res.Error
}

// MarkCompleted переводит запись в completed ровно один раз: условие
// completed = false гарантирует единственный инкремент attempts при гонке.
func (r *LessonProgressRepository) MarkCompleted(ctx context.Context, userID uuid.UUID, courseID, lessonID string, score *int, now time.Time) (bool, error) {
	updates := map[string]interface{}{
		"completed":        true,
		"completed_at":     now,
		"attempts":         gorm.Expr("attempts + 1"),
		"last_accessed_at": now,
	}
	if score != nil {
		updates["score"] = *score
	}

	res := r.db.WithContext(ctx).Model(&domain.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND lesson_id = ? AND completed = ?", userID, courseID, lessonID, false).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// Unmark снимает отметку о завершении. Attempts не трогаем.
func (r *LessonProgressRepository) Unmark(ctx context.Context, userID uuid.UUID, courseID, lessonID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND lesson_id = ? AND completed = ?", userID, courseID, lessonID, true).
		Updates(map[string]interface{}{
			"completed":        false,
			"completed_at":     nil,
			"last_accessed_at": now,
		})
	return res.RowsAffected == 1, res.Error
}

// Получить все ID пройденных уроков курса в порядке завершения
func (r *LessonProgressRepository) CompletedLessonIDs(ctx context.Context, userID uuid.UUID, courseID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Order("completed_at asc").
		Pluck("lesson_id", &ids).Error
	return ids, err
}

func (r *LessonProgressRepository) ListByCourse(ctx context.Context, userID uuid.UUID, courseID string) ([]domain.LessonProgress, error) {
	var lessons []domain.LessonProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("first_started_at asc").
		Find(&lessons).Error
	return lessons, err
}

func (r *LessonProgressRepository) DeleteByCourse(ctx context.Context, userID uuid.UUID, courseID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&domain.LessonProgress{})
	return res.RowsAffected, res.Error
}
