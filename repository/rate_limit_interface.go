package repository

import (
	"time"

	"secureauth/entity"
)

// RateLimitRepository interface defines issuance rate limiting operations,
// keyed by subject (phone number or email address)
type RateLimitRepository interface {
	GetRateLimit(subject string) (*entity.RateLimitInfo, error)
	UpdateRateLimit(rateLimitInfo *entity.RateLimitInfo) error
	CleanupRateLimits(olderThan time.Time) error
}
