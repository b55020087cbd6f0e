package service

import (
	"testing"
	"time"
)

func TestBackoffPolicy_Defaults(t *testing.T) {
	p := DefaultBackoffPolicy()
	if p.MaxRetries != 3 || p.MaxAttempts() != 4 {
		t.Errorf("MaxRetries=%d MaxAttempts=%d", p.MaxRetries, p.MaxAttempts())
	}
	if p.InitialDelay != 2*time.Second || p.MaxDelay != 60*time.Second {
		t.Errorf("delays = %v / %v", p.InitialDelay, p.MaxDelay)
	}
	if p.Multiplier != 2.0 || p.JitterFactor != 0.1 {
		t.Errorf("multiplier=%v jitter=%v", p.Multiplier, p.JitterFactor)
	}
}

func TestBackoffPolicy_Delay(t *testing.T) {
	p := NewBackoffPolicy(
		WithInitialDelay(time.Second),
		WithMaxDelay(10*time.Second),
		WithMultiplier(2),
	)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for n, w := range want {
		if got := p.Delay(n); got != w {
			t.Errorf("Delay(%d) = %v, want %v", n, got, w)
		}
	}
}

func TestBackoffPolicy_DelayNonDecreasingAndBounded(t *testing.T) {
	p := NewBackoffPolicy(
		WithInitialDelay(300*time.Millisecond),
		WithMaxDelay(45*time.Second),
		WithMultiplier(1.7),
	)
	prev := time.Duration(0)
	for n := 0; n < 200; n++ {
		d := p.Delay(n)
		if d < prev {
			t.Fatalf("Delay(%d) = %v decreased from %v", n, d, prev)
		}
		if d > p.MaxDelay {
			t.Fatalf("Delay(%d) = %v exceeds max %v", n, d, p.MaxDelay)
		}
		prev = d
	}
}

func TestBackoffPolicy_JitterBounds(t *testing.T) {
	p := NewBackoffPolicy(WithInitialDelay(time.Second), WithMaxDelay(time.Minute))
	delay := 4 * time.Second
	maxJitter := time.Duration(0.1 * float64(delay))

	for _, r := range []float64{0, 0.25, 0.5, 0.999999} {
		j := p.Jitter(delay, func() float64 { return r })
		if j < 0 || j > maxJitter {
			t.Errorf("Jitter(r=%v) = %v, want within [0, %v]", r, j, maxJitter)
		}
	}

	for i := 0; i < 1000; i++ {
		j := p.Jitter(delay, nil)
		if j < 0 || j > maxJitter {
			t.Fatalf("random jitter %v out of bounds", j)
		}
	}
}

func TestBackoffPolicy_DelayWithJitter(t *testing.T) {
	p := NewBackoffPolicy(WithInitialDelay(time.Second), WithMaxDelay(time.Minute))
	got := p.DelayWithJitter(1, func() float64 { return 0.5 })
	if want := 2*time.Second + 100*time.Millisecond; got != want {
		t.Errorf("DelayWithJitter(1) = %v, want %v", got, want)
	}
}

func TestBackoffPolicy_ZeroJitter(t *testing.T) {
	p := NewBackoffPolicy(WithJitter(0))
	if j := p.Jitter(time.Second, func() float64 { return 0.9 }); j != 0 {
		t.Errorf("Jitter() = %v with factor 0", j)
	}
}

func TestNewBackoffPolicy_Normalizes(t *testing.T) {
	p := NewBackoffPolicy(
		WithMaxRetries(-2),
		WithInitialDelay(5*time.Second),
		WithMaxDelay(time.Second),
		WithMultiplier(0.5),
	)
	if p.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", p.MaxRetries)
	}
	if p.MaxDelay != 5*time.Second {
		t.Errorf("MaxDelay = %v, want raised to InitialDelay", p.MaxDelay)
	}
	if p.Multiplier != 1 {
		t.Errorf("Multiplier = %v, want 1", p.Multiplier)
	}
}
