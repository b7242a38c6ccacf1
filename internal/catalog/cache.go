package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-lms/internal/pricing"
)

const courseKeyPrefix = "lms:course-price:"

// Cache keeps course price snapshots in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client or non-positive ttl disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// CourseKey returns the cache key of a course price snapshot.
func CourseKey(courseID uuid.UUID) string {
	return courseKeyPrefix + courseID.String()
}

// GetSnapshot reports whether a snapshot was cached for the course.
func (c *Cache) GetSnapshot(ctx context.Context, courseID uuid.UUID) (pricing.CoursePriceSnapshot, bool, error) {
	var snap pricing.CoursePriceSnapshot
	if !c.enabled() {
		return snap, false, nil
	}
	data, err := c.client.Get(ctx, CourseKey(courseID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return snap, false, nil
		}
		return snap, false, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return pricing.CoursePriceSnapshot{}, false, err
	}
	return snap, true, nil
}

// SetSnapshot stores the snapshot with the configured TTL.
func (c *Cache) SetSnapshot(ctx context.Context, courseID uuid.UUID, snap pricing.CoursePriceSnapshot) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CourseKey(courseID), data, c.ttl).Err()
}

// Invalidate drops the cached snapshot, typically after an instructor edits pricing.
func (c *Cache) Invalidate(ctx context.Context, courseID uuid.UUID) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, CourseKey(courseID)).Err()
}
