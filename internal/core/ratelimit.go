package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// SenderRateLimit is the number of messages a sender may send per window
	SenderRateLimit = 10
	// SenderRateWindow is the absolute window the sender counter lives for
	SenderRateWindow = 24 * time.Hour
)

// RateLimitResult is the outcome of a rate-limit check
type RateLimitResult struct {
	Allowed  bool `json:"allowed"`
	Current  int  `json:"current"`
	Limit    int  `json:"limit"`
	ResetsIn int  `json:"resetsIn"` // seconds
}

// RateLimiter counts messages per sender in a fixed 24h window
type RateLimiter struct {
	kv     KVStore
	logger *zap.Logger
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a new per-sender rate limiter
func NewRateLimiter(kv KVStore, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		kv:     kv,
		logger: logger,
		limit:  SenderRateLimit,
		window: SenderRateWindow,
		now:    time.Now,
	}
}

// CheckRateLimit records one message from sender and reports whether it is within the limit.
// The window starts with the first message and does not slide.
func (r *RateLimiter) CheckRateLimit(ctx context.Context, sender string) (*RateLimitResult, error) {
	key := RateLimitKey(sender)
	now := r.now()

	var counter *RateLimitCounter
	data, err := r.kv.Get(ctx, key)
	switch {
	case err == nil:
		if counter, err = DecodeRateLimitCounter(data); err != nil {
			r.logger.Warn("Discarding unreadable rate limit counter", zap.String("sender", sender), zap.Error(err))
			counter = nil
		}
	case !isNotFound(err):
		return nil, err
	}

	if counter == nil || counter.ExpiresAt.Before(now) {
		fresh := RateLimitCounter{Count: 1, ExpiresAt: now.Add(r.window)}
		if err := putJSON(ctx, r.kv, key, fresh, r.window); err != nil {
			return nil, err
		}
		return &RateLimitResult{
			Allowed:  true,
			Current:  1,
			Limit:    r.limit,
			ResetsIn: int(r.window / time.Second),
		}, nil
	}

	remaining := counter.ExpiresAt.Sub(now)
	counter.Count++

	// Over-limit messages are still counted.
	ttl := remaining
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := putJSON(ctx, r.kv, key, counter, ttl); err != nil {
		return nil, err
	}

	result := &RateLimitResult{
		Allowed:  counter.Count <= r.limit,
		Current:  counter.Count,
		Limit:    r.limit,
		ResetsIn: int(remaining / time.Second),
	}
	if !result.Allowed {
		r.logger.Warn("Sender over rate limit",
			zap.String("sender", sender),
			zap.Int("count", counter.Count),
			zap.Int("limit", r.limit))
	}
	return result, nil
}
