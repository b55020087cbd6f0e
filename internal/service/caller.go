package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/logging"
)

// CallRequest is one logical generation request from a stage.
type CallRequest struct {
	Agent        string // label used for events and metrics
	SystemPrompt string // fixed role instruction of the stage
	Prompt       string
}

// FullPrompt joins the system instruction and the prompt into the payload
// sent to the generator.
func (r CallRequest) FullPrompt() string {
	if r.SystemPrompt == "" {
		return r.Prompt
	}
	return r.SystemPrompt + "\n\n" + r.Prompt
}

// Invoker is the contract stages depend on.
type Invoker interface {
	Invoke(ctx context.Context, req CallRequest) (string, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Caller invokes a Generator with retries, exponential backoff and jitter.
// Retryable failures are retried up to the policy's MaxRetries; anything
// else is returned on the spot. All outcomes land in the events sink.
type Caller struct {
	gen     core.Generator
	policy  BackoffPolicy
	sink    *events.Sink
	logger  *logging.Logger
	metrics *Metrics
	limiter *RequestLimiter
	timeout time.Duration
	sleep   Sleeper
	rnd     func() float64
	now     func() time.Time
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithPolicy sets the backoff policy.
func WithPolicy(p BackoffPolicy) CallerOption {
	return func(c *Caller) {
		c.policy = p.normalized()
	}
}

// WithSink records call events into sink.
func WithSink(sink *events.Sink) CallerOption {
	return func(c *Caller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) CallerOption {
	return func(c *Caller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) CallerOption {
	return func(c *Caller) {
		c.metrics = m
	}
}

// WithRequestLimiter spaces attempts through a client-side limiter.
func WithRequestLimiter(l *RequestLimiter) CallerOption {
	return func(c *Caller) {
		c.limiter = l
	}
}

// WithAttemptTimeout bounds each individual attempt. Zero disables it.
func WithAttemptTimeout(d time.Duration) CallerOption {
	return func(c *Caller) {
		c.timeout = d
	}
}

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(s Sleeper) CallerOption {
	return func(c *Caller) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithRand replaces the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) CallerOption {
	return func(c *Caller) {
		if fn != nil {
			c.rnd = fn
		}
	}
}

// NewCaller creates a Caller around gen.
func NewCaller(gen core.Generator, opts ...CallerOption) *Caller {
	c := &Caller{
		gen:    gen,
		policy: DefaultBackoffPolicy(),
		sink:   events.NewSink(),
		logger: logging.NewNop(),
		sleep:  sleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the active backoff policy.
func (c *Caller) Policy() BackoffPolicy {
	return c.policy
}

// Invoke sends req and returns the normalized response text.
// Errors are *core.DomainError: fatal on a non-retryable failure, rate_limit
// or transient once retries are exhausted.
func (c *Caller) Invoke(ctx context.Context, req CallRequest) (string, error) {
	full := req.FullPrompt()
	promptChars := utf8.RuneCountInString(full)
	maxAttempts := c.policy.MaxAttempts()
	logger := c.logger.WithStage(req.Agent)

	c.sink.Log(req.Agent, "LLM Call Started",
		fmt.Sprintf("Prompt length: %d characters", promptChars), events.StatusInfo)

	start := c.now()
	var (
		lastErr     error
		lastKind    ErrorKind
		rateLimited bool
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.policy.DelayWithJitter(attempt-2, c.rnd)
			c.metrics.IncRetry(req.Agent, lastKind)
			logger.Warn("retrying generation call",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"kind", string(lastKind),
				"delay", delay.String())
			if err := c.sleep(ctx, delay); err != nil {
				c.sink.LogTimed(req.Agent, "LLM Call Failed",
					"LLM call failed: retry wait aborted: "+err.Error(), events.StatusError, c.since(start))
				return "", core.ErrFatal(err).WithDetail("attempts", attempt-1)
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			c.sink.LogTimed(req.Agent, "LLM Call Failed",
				"LLM call failed: "+err.Error(), events.StatusError, c.since(start))
			return "", core.ErrFatal(err).WithDetail("attempts", attempt-1)
		}

		attemptStart := c.now()
		resp, err := c.attempt(ctx, full)
		attemptDur := c.since(attemptStart)

		if err == nil {
			text := NormalizeResponse(resp)
			c.metrics.ObserveCall(req.Agent, "success", attemptDur)
			c.sink.LogCall(req.Agent, promptChars, utf8.RuneCountInString(text), c.since(start))
			if attempt > 1 {
				c.sink.LogTimed(req.Agent, "Retry Succeeded",
					fmt.Sprintf("Succeeded on attempt %d/%d", attempt, maxAttempts),
					events.StatusSuccess, c.since(start))
			}
			return text, nil
		}

		lastErr = err
		lastKind = Classify(err)
		rateLimited = rateLimited || lastKind == KindRateLimit
		c.metrics.ObserveCall(req.Agent, string(lastKind), attemptDur)

		if !lastKind.Retryable() || ctx.Err() != nil {
			c.sink.LogTimed(req.Agent, "LLM Call Failed",
				"LLM call failed: "+err.Error(), events.StatusError, c.since(start))
			return "", core.ErrFatal(err).WithDetail("attempts", attempt)
		}

		if attempt < maxAttempts {
			c.sink.LogTimed(req.Agent, "Retrying LLM Call",
				fmt.Sprintf("Attempt %d/%d failed (%s): %s", attempt, maxAttempts, lastKind, err.Error()),
				events.StatusWarning, attemptDur)
		}
	}

	c.sink.LogTimed(req.Agent, "Retries Exhausted",
		fmt.Sprintf("%d attempts failed (%s): %s", maxAttempts, lastKind, lastErr.Error()),
		events.StatusError, c.since(start))

	// Any rate-limited attempt makes the exhaustion a rate limit.
	if rateLimited {
		return "", core.ErrRateLimitExceeded(maxAttempts, lastErr)
	}
	return "", core.ErrTransientService(maxAttempts, lastErr)
}

func (c *Caller) attempt(ctx context.Context, prompt string) (any, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.gen.Generate(ctx, prompt)
}

func (c *Caller) since(t time.Time) time.Duration {
	return c.now().Sub(t)
}

// NormalizeResponse extracts text from the response shapes generators return.
// Empty responses pass through unchanged.
func NormalizeResponse(resp any) string {
	switch v := resp.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	case core.Texter:
		return v.Text()
	case core.ContentGetter:
		return v.GetContent()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
