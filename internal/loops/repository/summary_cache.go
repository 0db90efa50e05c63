package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

const summaryKeyPrefix = "loops:summary:" // Dashboard summary per user: loops:summary:{user_id}

// SummaryCache keeps dashboard summaries in Redis
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache creates a new SummaryCache
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

// Get returns the cached summary; ok is false on a cache miss.
func (c *SummaryCache) Get(ctx context.Context, userID uuid.UUID) (*domain.Summary, bool, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get summary: %w", err)
	}

	var s domain.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		// treat garbage as a miss, it will be overwritten
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *SummaryCache) Set(ctx context.Context, s *domain.Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, c.key(s.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	return nil
}

// Invalidate drops the cached summaries of the given users
func (c *SummaryCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate summaries: %w", err)
	}
	return nil
}

func (c *SummaryCache) key(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s", summaryKeyPrefix, userID)
}
