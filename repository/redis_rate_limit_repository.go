package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"secureauth/config"
	"secureauth/entity"
	"secureauth/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitRepository implements issuance rate limiting using Redis
type RedisRateLimitRepository struct {
	client *redis.Client
	ctx    context.Context
	config *config.Config
	logger *logger.Logger
}

// NewRedisRateLimitRepository creates a new Redis rate limit repository
func NewRedisRateLimitRepository(client *redis.Client, cfg *config.Config, logger *logger.Logger) RateLimitRepository {
	return &RedisRateLimitRepository{
		client: client,
		ctx:    context.Background(),
		config: cfg,
		logger: logger,
	}
}

func rateLimitKey(subject string) string {
	return fmt.Sprintf("rate_limit:%s", subject)
}

// GetRateLimit retrieves rate limit information for a subject
func (r *RedisRateLimitRepository) GetRateLimit(subject string) (*entity.RateLimitInfo, error) {
	data, err := r.client.Get(r.ctx, rateLimitKey(subject)).Result()
	if err == redis.Nil {
		r.logger.Debugw("No rate limit record found", "subject", subject)
		return &entity.RateLimitInfo{
			Subject:       subject,
			RequestCount:  0,
			LastRequestAt: time.Time{},
			WindowStartAt: time.Time{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit info: %w", err)
	}

	var rateLimitInfo entity.RateLimitInfo
	if err := json.Unmarshal([]byte(data), &rateLimitInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate limit info: %w", err)
	}

	return &rateLimitInfo, nil
}

// UpdateRateLimit updates rate limit information for a subject. The key TTL
// tracks the remaining time in the current window so Redis reaps it naturally.
func (r *RedisRateLimitRepository) UpdateRateLimit(rateLimitInfo *entity.RateLimitInfo) error {
	now := time.Now()
	windowDuration := r.config.RateLimit.WindowDuration

	if rateLimitInfo.WindowStartAt.IsZero() {
		rateLimitInfo.WindowStartAt = now
	}

	windowEnd := rateLimitInfo.WindowStartAt.Add(windowDuration)
	ttl := windowEnd.Sub(now)

	if ttl <= 0 {
		// Current window has expired, start a new one
		rateLimitInfo.WindowStartAt = now
		rateLimitInfo.RequestCount = 1
		ttl = windowDuration
	} else if ttl < time.Minute {
		ttl = time.Minute
	}

	data, err := json.Marshal(rateLimitInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal rate limit info: %w", err)
	}

	err = r.client.Set(r.ctx, rateLimitKey(rateLimitInfo.Subject), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to update rate limit info: %w", err)
	}

	r.logger.Debugw("Rate limit updated",
		"subject", rateLimitInfo.Subject,
		"request_count", rateLimitInfo.RequestCount,
		"ttl_seconds", int(ttl.Seconds()))

	return nil
}

// CleanupRateLimits backfills TTLs on any rate limit keys that lost theirs.
// Redis expires the keys itself, so this is a safety sweep only.
func (r *RedisRateLimitRepository) CleanupRateLimits(olderThan time.Time) error {
	keys, err := r.client.Keys(r.ctx, "rate_limit:*").Result()
	if err != nil {
		return fmt.Errorf("failed to get rate limit keys: %w", err)
	}

	for _, key := range keys {
		ttl, err := r.client.TTL(r.ctx, key).Result()
		if err != nil {
			r.logger.Warnw("Failed to get TTL for key", "key", key, "error", err)
			continue
		}

		if ttl == -1 {
			defaultTTL := r.config.RateLimit.WindowDuration
			if err := r.client.Expire(r.ctx, key, defaultTTL).Err(); err != nil {
				r.logger.Warnw("Failed to set TTL for key", "key", key, "error", err)
			}
		}
	}

	return nil
}
