package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/waste3d/gameplatform-api/services/progress-service/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisCmd — то, что кешу нужно от go-redis.
type redisCmd interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ProgressCache — кеш агрегатов курса. Пишут его только мутации прогресса,
// уже пересчитавшие агрегат из Postgres: каждая публикация перезаписывает
// ключ свежей истиной. Читатели кеш не заполняют.
type ProgressCache struct {
	client redisCmd
}

func NewProgressCache(client *redis.Client) *ProgressCache {
	if client == nil {
		return &ProgressCache{}
	}
	return &ProgressCache{client: client}
}

func courseKey(userID uuid.UUID, courseID string) string {
	return "course_progress:" + userID.String() + ":" + courseID
}

func (c *ProgressCache) GetCourse(ctx context.Context, userID uuid.UUID, courseID string) (*domain.CourseProgress, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	val, err := c.client.Get(ctx, courseKey(userID, courseID)).Result()
	if err != nil {
		return nil, false
	}

	var cp domain.CourseProgress
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return nil, false
	}
	return &cp, true
}

func (c *ProgressCache) SaveCourse(ctx context.Context, cp *domain.CourseProgress) {
	if c == nil || c.client == nil || cp == nil {
		return
	}

	b, err := json.Marshal(cp)
	if err != nil {
		return
	}
	// Храним 10 минут
	c.client.Set(ctx, courseKey(cp.UserID, cp.CourseID), b, 10*time.Minute)
}

func (c *ProgressCache) Invalidate(ctx context.Context, userID uuid.UUID, courseID string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, courseKey(userID, courseID))
}
