package services

import "time"

const (
	KeyRateLimit   = "ratelimit:%s:%s"
	KeyLoginRecord = "session:%s"

	TTLLoginRecord = 24 * time.Hour

	DefaultRateLimitPicks  = 10 // per minute
	DefaultRateLimitFaucet = 3  // per hour
)
