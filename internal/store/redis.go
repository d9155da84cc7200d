package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-genie/internal/models"
)

const profileKeyPrefix = "tenant:profile:"

// RedisRepository keeps each profile as one JSON blob. TTL of zero means
// profiles never expire.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func profileKey(sessionID string) string {
	return profileKeyPrefix + sessionID
}

func (r *RedisRepository) Load(ctx context.Context, sessionID string) (*models.TenantProfile, error) {
	raw, err := r.client.Get(ctx, profileKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for session %s: %w", sessionID, err)
	}

	var profile models.TenantProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("corrupt profile blob for session %s: %w", sessionID, err)
	}
	return &profile, nil
}

func (r *RedisRepository) Save(ctx context.Context, sessionID string, profile *models.TenantProfile) error {
	blob, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile for session %s: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, profileKey(sessionID), blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save profile for session %s: %w", sessionID, err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, profileKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete profile for session %s: %w", sessionID, err)
	}
	return nil
}
