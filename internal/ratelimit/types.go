package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides fixed-window rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// windowIndex maps a timestamp onto its fixed window.
func windowIndex(now time.Time, window time.Duration) (int64, time.Time) {
	seconds := int64(window / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	idx := now.Unix() / seconds
	reset := time.Unix((idx+1)*seconds, 0).UTC()
	return idx, reset
}
