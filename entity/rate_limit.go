package entity

import (
	"time"
)

// RateLimitInfo tracks issuance requests per subject within a fixed window
type RateLimitInfo struct {
	Subject       string    `json:"subject"`
	RequestCount  int       `json:"request_count"`
	LastRequestAt time.Time `json:"last_request_at"`
	WindowStartAt time.Time `json:"window_start_at"`
}
