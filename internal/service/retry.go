package service

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy defines how the call wrapper spaces out retries.
type BackoffPolicy struct {
	MaxRetries   int           // retries after the first attempt
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // ceiling applied before jitter
	Multiplier   float64       // exponential factor
	JitterFactor float64       // jitter upper bound as a fraction of the delay
}

// DefaultBackoffPolicy returns the default policy.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// BackoffOption configures a backoff policy.
type BackoffOption func(*BackoffPolicy)

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) BackoffOption {
	return func(p *BackoffPolicy) {
		p.MaxRetries = n
	}
}

// WithInitialDelay sets the first retry delay.
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(p *BackoffPolicy) {
		p.InitialDelay = d
	}
}

// WithMaxDelay sets the delay ceiling.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(p *BackoffPolicy) {
		p.MaxDelay = d
	}
}

// WithMultiplier sets the exponential multiplier.
func WithMultiplier(m float64) BackoffOption {
	return func(p *BackoffPolicy) {
		p.Multiplier = m
	}
}

// WithJitter sets the jitter factor.
func WithJitter(factor float64) BackoffOption {
	return func(p *BackoffPolicy) {
		p.JitterFactor = factor
	}
}

// NewBackoffPolicy creates a policy from the defaults and options.
func NewBackoffPolicy(opts ...BackoffOption) BackoffPolicy {
	p := DefaultBackoffPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	return p.normalized()
}

func (p BackoffPolicy) normalized() BackoffPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.JitterFactor < 0 {
		p.JitterFactor = 0
	}
	return p
}

// MaxAttempts returns the total number of attempts the policy allows.
func (p BackoffPolicy) MaxAttempts() int {
	return p.MaxRetries + 1
}

// Delay returns the pre-jitter delay before retry n (0-indexed):
// min(InitialDelay * Multiplier^n, MaxDelay).
func (p BackoffPolicy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(n))
	if delay > float64(p.MaxDelay) || math.IsInf(delay, 1) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// Jitter returns a random extra delay in [0, JitterFactor*delay].
// rnd must return values in [0, 1); nil uses math/rand.
func (p BackoffPolicy) Jitter(delay time.Duration, rnd func() float64) time.Duration {
	if p.JitterFactor <= 0 || delay <= 0 {
		return 0
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return time.Duration(rnd() * p.JitterFactor * float64(delay))
}

// DelayWithJitter returns Delay(n) plus its jitter.
func (p BackoffPolicy) DelayWithJitter(n int, rnd func() float64) time.Duration {
	d := p.Delay(n)
	return d + p.Jitter(d, rnd)
}
