package repository

import (
	"context"
	"testing"
	"time"

	"github.com/waste3d/gameplatform-api/services/progress-service/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseProgressUpsert(t *testing.T) {
	repo := NewCourseProgressRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	cp := &domain.CourseProgress{
		UserID:             userID,
		CourseID:           "course-1",
		CompletedLessons:   domain.LessonIDList{"a"},
		ProgressPercentage: 33,
		LastAccessedAt:     time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, cp))

	stored, err := repo.Get(ctx, userID, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 33, stored.ProgressPercentage)
	assert.Equal(t, domain.LessonIDList{"a"}, stored.CompletedLessons)

	now := time.Now()
	cp2 := &domain.CourseProgress{
		UserID:             userID,
		CourseID:           "course-1",
		CompletedLessons:   domain.LessonIDList{"a", "b", "c"},
		ProgressPercentage: 100,
		LastAccessedAt:     now,
		CompletedAt:        &now,
	}
	require.NoError(t, repo.Upsert(ctx, cp2))

	stored, err = repo.Get(ctx, userID, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 100, stored.ProgressPercentage)
	assert.Equal(t, domain.LessonIDList{"a", "b", "c"}, stored.CompletedLessons)
	assert.NotNil(t, stored.CompletedAt)
}

func TestCourseProgressDelete(t *testing.T) {
	repo := NewCourseProgressRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	removed, err := repo.Delete(ctx, userID, "course-1")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repo.Upsert(ctx, &domain.CourseProgress{
		UserID:           userID,
		CourseID:         "course-1",
		CompletedLessons: domain.LessonIDList{},
		LastAccessedAt:   time.Now(),
	}))

	removed, err = repo.Delete(ctx, userID, "course-1")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestCourseProgressGetBulk(t *testing.T) {
	repo := NewCourseProgressRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	for _, courseID := range []string{"A", "B"} {
		require.NoError(t, repo.Upsert(ctx, &domain.CourseProgress{
			UserID:           userID,
			CourseID:         courseID,
			CompletedLessons: domain.LessonIDList{},
			LastAccessedAt:   time.Now(),
		}))
	}

	result, err := repo.GetBulk(ctx, userID, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Contains(t, result, "A")
	assert.Contains(t, result, "B")
	assert.NotContains(t, result, "C", "never started course is absent, not zero-valued")

	empty, err := repo.GetBulk(ctx, userID, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCourseProgressListByUser(t *testing.T) {
	repo := NewCourseProgressRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	now := time.Now()
	require.NoError(t, repo.Upsert(ctx, &domain.CourseProgress{
		UserID: userID, CourseID: "done", CompletedLessons: domain.LessonIDList{"a"},
		ProgressPercentage: 100, LastAccessedAt: now.Add(-time.Hour), CompletedAt: &now,
	}))
	require.NoError(t, repo.Upsert(ctx, &domain.CourseProgress{
		UserID: userID, CourseID: "active", CompletedLessons: domain.LessonIDList{"a"},
		ProgressPercentage: 50, LastAccessedAt: now,
	}))

	all, err := repo.ListByUser(ctx, userID, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "active", all[0].CourseID, "ordered by last_accessed_at desc")

	inProgress, err := repo.ListByUser(ctx, userID, false)
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, "active", inProgress[0].CourseID)
}

func TestCourseProgressUpdateLastAccessed(t *testing.T) {
	repo := NewCourseProgressRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	rows, err := repo.UpdateLastAccessed(ctx, userID, "course-1", time.Now())
	require.NoError(t, err)
	assert.Zero(t, rows)

	require.NoError(t, repo.Create(ctx, &domain.CourseProgress{
		UserID:           userID,
		CourseID:         "course-1",
		CompletedLessons: domain.LessonIDList{},
		LastAccessedAt:   time.Now().Add(-time.Hour),
	}))

	later := time.Now()
	rows, err = repo.UpdateLastAccessed(ctx, userID, "course-1", later)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	stored, err := repo.Get(ctx, userID, "course-1")
	require.NoError(t, err)
	assert.Equal(t, later.Unix(), stored.LastAccessedAt.Unix())
}
