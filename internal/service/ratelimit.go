package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RequestLimiter spaces outgoing generation requests client-side so bursts
// from one pipeline do not trip the provider's quota immediately.
type RequestLimiter struct {
	limiter *rate.Limiter
}

// NewRequestLimiter allows perMinute requests per minute with a burst of one.
// It returns nil when perMinute <= 0; a nil limiter never waits.
func NewRequestLimiter(perMinute int) *RequestLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RequestLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RequestLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Limit returns the configured requests per second, or rate.Inf when disabled.
func (r *RequestLimiter) Limit() rate.Limit {
	if r == nil {
		return rate.Inf
	}
	return r.limiter.Limit()
}
