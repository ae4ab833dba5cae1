package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CourseCatalog — коллаборатор course-service: сколько всего уроков в курсе.
// Сервис прогресса не хранит это число, курс может меняться.
type CourseCatalog interface {
	GetLessonCount(ctx context.Context, courseID string) (int, error)
}

type CatalogClient struct {
	baseURL string
	http    *http.Client
	rdb     *redis.Client
}

func NewCatalogClient(baseURL string, rdb *redis.Client) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		rdb:     rdb,
	}
}

func (c *CatalogClient) GetLessonCount(ctx context.Context, courseID string) (int, error) {
	cacheKey := "lesson_count:" + courseID

	if c.rdb != nil {
		if val, err := c.rdb.Get(ctx, cacheKey).Result(); err == nil {
			if count, err := strconv.Atoi(val); err == nil {
				return count, nil
			}
		}
	}

	url := fmt.Sprintf("%s/internal/courses/%s/lesson-count", c.baseURL, courseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("course service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("course service returned %d for course %s", resp.StatusCode, courseID)
	}

	var body struct {
		LessonCount int `json:"lesson_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}

	if c.rdb != nil {
		// Короткий TTL: админ мог добавить урок
		c.rdb.Set(ctx, cacheKey, strconv.Itoa(body.LessonCount), 5*time.Minute)
	}

	return body.LessonCount, nil
}
