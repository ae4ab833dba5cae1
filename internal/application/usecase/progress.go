package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/waste3d/gameplatform-api/services/progress-service/internal/domain"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/infrastructure/cache"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/infrastructure/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressUseCase — единственный писатель агрегатов курса. Процент всегда
// пересчитывается из таблицы уроков, инкрементальных счётчиков нет.
type ProgressUseCase struct {
	db         *gorm.DB
	lessonRepo *repository.LessonProgressRepository
	courseRepo *repository.CourseProgressRepository
	cache      *cache.ProgressCache
}

func NewProgressUseCase(
	db *gorm.DB,
	lr *repository.LessonProgressRepository,
	cr *repository.CourseProgressRepository,
	pc *cache.ProgressCache,
) *ProgressUseCase {
	return &ProgressUseCase{
		db:         db,
		lessonRepo: lr,
		courseRepo: cr,
		cache:      pc,
	}
}

// StartLesson создает запись урока при первом заходе, при повторном — только
// сдвигает last_accessed_at. Агрегат курса здесь не трогаем.
func (uc *ProgressUseCase) StartLesson(ctx context.Context, userID uuid.UUID, courseID, lessonID string) (*domain.LessonProgress, domain.StartOutcome, error) {
	lp, created, err := uc.lessonRepo.StartOrResume(ctx, userID, courseID, lessonID, time.Now())
	if err != nil {
		return nil, "", err
	}
	if created {
		return lp, domain.StartOutcomeStarted, nil
	}
	return lp, domain.StartOutcomeResumed, nil
}

func (uc *ProgressUseCase) AccrueTime(ctx context.Context, userID uuid.UUID, courseID, lessonID string, deltaSeconds int) (*domain.LessonProgress, error) {
	if deltaSeconds < 0 {
		return nil, fmt.Errorf("%w: delta seconds must be non-negative", domain.ErrInvalidInput)
	}

	rows, err := uc.lessonRepo.AccrueTime(ctx, userID, courseID, lessonID, deltaSeconds, time.Now())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrNotFound
	}

	return uc.lessonRepo.Get(ctx, userID, courseID, lessonID)
}

// CompleteLesson завершает урок и пересчитывает агрегат курса в одной
// транзакции: упавший пересчет откатывает и отметку урока, так что ретрай
// всего запроса безопасен.
func (uc *ProgressUseCase) CompleteLesson(ctx context.Context, userID uuid.UUID, courseID, lessonID string, totalLessons int, score *int) (*domain.LessonProgress, domain.CompleteOutcome, error) {
	if score != nil && (*score < 0 || *score > 100) {
		return nil, "", fmt.Errorf("%w: score must be between 0 and 100", domain.ErrInvalidInput)
	}

	lp, err := uc.lessonRepo.Get(ctx, userID, courseID, lessonID)
	if err != nil {
		return nil, "", err
	}
	if lp.Completed {
		// Урок уже завершен — но агрегат мог отстать (например, запись
		// завершения легла до падения сервиса). Ретрай долечивает агрегат.
		cp, err := uc.recomputeCourseAggregate(ctx, uc.lessonRepo, uc.courseRepo, userID, courseID, totalLessons)
		if err != nil {
			return nil, "", err
		}
		uc.cache.SaveCourse(ctx, cp)
		return lp, domain.CompleteOutcomeAlreadyCompleted, nil
	}

	var (
		fresh bool
		cp    *domain.CourseProgress
	)
	err = uc.db.Transaction(func(tx *gorm.DB) error {
		lr := repository.NewLessonProgressRepository(tx)
		cr := repository.NewCourseProgressRepository(tx)

		var txErr error
		fresh, txErr = lr.MarkCompleted(ctx, userID, courseID, lessonID, score, time.Now())
		if txErr != nil {
			return txErr
		}
		if !fresh {
			// Проиграли гонку второму завершению — победитель уже пересчитал
			return nil
		}

		cp, txErr = uc.recomputeCourseAggregate(ctx, lr, cr, userID, courseID, totalLessons)
		return txErr
	})
	if err != nil {
		return nil, "", err
	}

	lp, err = uc.lessonRepo.Get(ctx, userID, courseID, lessonID)
	if err != nil {
		return nil, "", err
	}
	if !fresh {
		return lp, domain.CompleteOutcomeAlreadyCompleted, nil
	}

	uc.cache.SaveCourse(ctx, cp)
	return lp, domain.CompleteOutcomeCompleted, nil
}

func (uc *ProgressUseCase) UncompleteLesson(ctx context.Context, userID uuid.UUID, courseID, lessonID string, totalLessons int) (*domain.LessonProgress, domain.UncompleteOutcome, error) {
	lp, err := uc.lessonRepo.Get(ctx, userID, courseID, lessonID)
	if errors.Is(err, domain.ErrNotFound) {
		// Снять отметку с не начатого урока — легитимный no-op
		return nil, domain.UncompleteOutcomeNotFound, nil
	}
	if err != nil {
		return nil, "", err
	}
	if !lp.Completed {
		return lp, domain.UncompleteOutcomeNoChange, nil
	}

	var (
		changed bool
		cp      *domain.CourseProgress
	)
	err = uc.db.Transaction(func(tx *gorm.DB) error {
		lr := repository.NewLessonProgressRepository(tx)
		cr := repository.NewCourseProgressRepository(tx)

		var txErr error
		changed, txErr = lr.Unmark(ctx, userID, courseID, lessonID, time.Now())
		if txErr != nil {
			return txErr
		}
		if !changed {
			return nil
		}

		cp, txErr = uc.recomputeCourseAggregate(ctx, lr, cr, userID, courseID, totalLessons)
		return txErr
	})
	if err != nil {
		return nil, "", err
	}

	lp, err = uc.lessonRepo.Get(ctx, userID, courseID, lessonID)
	if err != nil {
		return nil, "", err
	}
	if !changed {
		// Кто-то снял отметку параллельно, этот вызов ничего не поменял
		return lp, domain.UncompleteOutcomeNoChange, nil
	}

	uc.cache.SaveCourse(ctx, cp)
	return lp, domain.UncompleteOutcomeUpdated, nil
}

// recomputeCourseAggregate читает завершенные уроки заново из таблицы уроков
// и перезаписывает агрегат. Дрейфа нет: истина всегда в lesson_progresses.
// Кеш не трогаем — публикует вызывающий после коммита.
func (uc *ProgressUseCase) recomputeCourseAggregate(ctx context.Context, lr *repository.LessonProgressRepository, cr *repository.CourseProgressRepository, userID uuid.UUID, courseID string, totalLessons int) (*domain.CourseProgress, error) {
	ids, err := lr.CompletedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	pct := completionPercentage(len(ids), totalLessons)

	var completedAt *time.Time
	if pct == 100 {
		completedAt = &now
		existing, err := cr.Get(ctx, userID, courseID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// Курс уже был завершен — время завершения не сдвигаем
		if existing != nil && existing.CompletedAt != nil {
			completedAt = existing.CompletedAt
		}
	}

	cp := &domain.CourseProgress{
		UserID:             userID,
		CourseID:           courseID,
		CompletedLessons:   ids,
		ProgressPercentage: pct,
		LastAccessedAt:     now,
		CompletedAt:        completedAt,
	}
	if err := cr.Upsert(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Округление half-up от вещественной доли; при totalLessons == 0 процент равен 0.
func completionPercentage(completed, totalLessons int) int {
	if totalLessons <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(completed) / float64(totalLessons)))
	// Курс мог уменьшиться после завершения уроков
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ResetCourseProgress удаляет агрегат и все записи уроков пары (user, course).
// false — сбрасывать было нечего.
func (uc *ProgressUseCase) ResetCourseProgress(ctx context.Context, userID uuid.UUID, courseID string) (bool, error) {
	lessonRows, err := uc.lessonRepo.DeleteByCourse(ctx, userID, courseID)
	if err != nil {
		return false, err
	}

	removed, err := uc.courseRepo.Delete(ctx, userID, courseID)
	if err != nil {
		return false, err
	}

	uc.cache.Invalidate(ctx, userID, courseID)
	return removed || lessonRows > 0, nil
}

// TouchLastAccessed сдвигает last_accessed_at агрегата, создавая пустой
// (0%) агрегат если его еще нет.
func (uc *ProgressUseCase) TouchLastAccessed(ctx context.Context, userID uuid.UUID, courseID string) (*domain.CourseProgress, error) {
	now := time.Now()

	rows, err := uc.courseRepo.UpdateLastAccessed(ctx, userID, courseID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		cp := &domain.CourseProgress{
			UserID:           userID,
			CourseID:         courseID,
			CompletedLessons: domain.LessonIDList{},
			LastAccessedAt:   now,
		}
		err := uc.courseRepo.Create(ctx, cp)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Кто-то успел создать агрегат параллельно
			if _, err := uc.courseRepo.UpdateLastAccessed(ctx, userID, courseID, now); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
	}

	cp, err := uc.courseRepo.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	uc.cache.SaveCourse(ctx, cp)
	return cp, nil
}

// GetCourseProgress: отсутствие записи — не ошибка, возвращаем nil.
// Кеш заполняют только мутации (после коммита), читатель его не пишет —
// иначе запоздавший читатель мог бы закрепить в Redis устаревший агрегат.
func (uc *ProgressUseCase) GetCourseProgress(ctx context.Context, userID uuid.UUID, courseID string) (*domain.CourseProgress, error) {
	if cp, ok := uc.cache.GetCourse(ctx, userID, courseID); ok {
		return cp, nil
	}

	cp, err := uc.courseRepo.Get(ctx, userID, courseID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cp, nil
}

func (uc *ProgressUseCase) GetUserProgress(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]domain.CourseProgress, error) {
	return uc.courseRepo.ListByUser(ctx, userID, includeCompleted)
}

func (uc *ProgressUseCase) GetBulkCourseProgress(ctx context.Context, userID uuid.UUID, courseIDs []string) (map[string]domain.CourseProgress, error) {
	return uc.courseRepo.GetBulk(ctx, userID, courseIDs)
}

// GetProgressStats агрегирует по всем курсам пользователя. Курс с 0%
// (созданный только через touch) считаем начатым, то есть in progress.
func (uc *ProgressUseCase) GetProgressStats(ctx context.Context, userID uuid.UUID) (*domain.ProgressStats, error) {
	records, err := uc.courseRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	stats := &domain.ProgressStats{TotalCourses: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	sumPct := 0
	for _, cp := range records {
		sumPct += cp.ProgressPercentage
		stats.TotalLessonsCompleted += len(cp.CompletedLessons)
		if cp.ProgressPercentage == 100 {
			stats.CompletedCourses++
		} else {
			stats.InProgressCourses++
		}
	}
	stats.AverageProgress = float64(sumPct) / float64(len(records))
	return stats, nil
}

func (uc *ProgressUseCase) IsLessonCompleted(ctx context.Context, userID uuid.UUID, courseID, lessonID string) (bool, error) {
	lp, err := uc.lessonRepo.Get(ctx, userID, courseID, lessonID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return lp.Completed, nil
}

func (uc *ProgressUseCase) GetCompletionPercentage(ctx context.Context, userID uuid.UUID, courseID string) (int, error) {
	cp, err := uc.GetCourseProgress(ctx, userID, courseID)
	if err != nil {
		return 0, err
	}
	if cp == nil {
		return 0, nil
	}
	return cp.ProgressPercentage, nil
}

// GetCourseOverview — данные дашборда курса: записи по урокам плюс статистика.
// Текущий урок — первый незавершенный в порядке первого открытия.
func (uc *ProgressUseCase) GetCourseOverview(ctx context.Context, userID uuid.UUID, courseID string, totalLessons int) (*domain.CourseOverview, error) {
	lessons, err := uc.lessonRepo.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	overview := &domain.CourseOverview{
		Lessons:      lessons,
		TotalLessons: totalLessons,
	}

	scoreSum, scoreCount := 0, 0
	for _, lp := range lessons {
		overview.TotalTimeSeconds += lp.TimeSpentSeconds
		if lp.Completed {
			overview.CompletedLessons++
			if lp.Score != nil {
				scoreSum += *lp.Score
				scoreCount++
			}
		} else if overview.CurrentLessonID == "" {
			overview.CurrentLessonID = lp.LessonID
		}
	}

	overview.CompletionRate = completionPercentage(overview.CompletedLessons, totalLessons)
	if scoreCount > 0 {
		overview.AverageScore = float64(scoreSum) / float64(scoreCount)
	}
	return overview, nil
}
