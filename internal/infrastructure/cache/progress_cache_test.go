package cache

import (
	"context"
	"testing"
	"time"

	"github.com/waste3d/gameplatform-api/services/progress-service/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func TestProgressCacheRoundTrip(t *testing.T) {
	c := &ProgressCache{client: newFakeRedis()}
	ctx := context.Background()
	userID := uuid.New()

	_, ok := c.GetCourse(ctx, userID, "course-1")
	assert.False(t, ok)

	cp := &domain.CourseProgress{
		UserID:             userID,
		CourseID:           "course-1",
		CompletedLessons:   domain.LessonIDList{"a"},
		ProgressPercentage: 50,
		LastAccessedAt:     time.Now(),
	}
	c.SaveCourse(ctx, cp)

	got, ok := c.GetCourse(ctx, userID, "course-1")
	require.True(t, ok)
	assert.Equal(t, 50, got.ProgressPercentage)
	assert.Equal(t, domain.LessonIDList{"a"}, got.CompletedLessons)
}

func TestProgressCacheSaveOverwritesStaleEntry(t *testing.T) {
	c := &ProgressCache{client: newFakeRedis()}
	ctx := context.Background()
	userID := uuid.New()

	stale := &domain.CourseProgress{
		UserID:             userID,
		CourseID:           "course-1",
		CompletedLessons:   domain.LessonIDList{"a"},
		ProgressPercentage: 50,
	}
	c.SaveCourse(ctx, stale)

	// Публикация после пересчета всегда затирает ключ свежим агрегатом
	now := time.Now()
	fresh := &domain.CourseProgress{
		UserID:             userID,
		CourseID:           "course-1",
		CompletedLessons:   domain.LessonIDList{"a", "b"},
		ProgressPercentage: 100,
		CompletedAt:        &now,
	}
	c.SaveCourse(ctx, fresh)

	got, ok := c.GetCourse(ctx, userID, "course-1")
	require.True(t, ok)
	assert.Equal(t, 100, got.ProgressPercentage)
	assert.Equal(t, domain.LessonIDList{"a", "b"}, got.CompletedLessons)
	assert.NotNil(t, got.CompletedAt)
}

func TestProgressCacheInvalidate(t *testing.T) {
	c := &ProgressCache{client: newFakeRedis()}
	ctx := context.Background()
	userID := uuid.New()

	c.SaveCourse(ctx, &domain.CourseProgress{
		UserID:           userID,
		CourseID:         "course-1",
		CompletedLessons: domain.LessonIDList{},
	})
	c.Invalidate(ctx, userID, "course-1")

	_, ok := c.GetCourse(ctx, userID, "course-1")
	assert.False(t, ok)

	// Ключи разных пользователей не пересекаются
	other := uuid.New()
	c.SaveCourse(ctx, &domain.CourseProgress{UserID: other, CourseID: "course-1", CompletedLessons: domain.LessonIDList{}})
	c.Invalidate(ctx, userID, "course-1")
	_, ok = c.GetCourse(ctx, other, "course-1")
	assert.True(t, ok)
}

func TestProgressCacheDisabled(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	var c *ProgressCache
	_, ok := c.GetCourse(ctx, userID, "course-1")
	assert.False(t, ok)
	c.SaveCourse(ctx, &domain.CourseProgress{UserID: userID, CourseID: "course-1"})
	c.Invalidate(ctx, userID, "course-1")

	disabled := NewProgressCache(nil)
	_, ok = disabled.GetCourse(ctx, userID, "course-1")
	assert.False(t, ok)
	disabled.SaveCourse(ctx, &domain.CourseProgress{UserID: userID, CourseID: "course-1"})
	disabled.Invalidate(ctx, userID, "course-1")
}
