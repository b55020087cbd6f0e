package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned when a ScriptedGenerator runs out of steps
// and has no fallback.
var ErrScriptExhausted = errors.New("scripted generator: no response queued")

// Step is one queued generator outcome.
type Step struct {
	Response any
	Err      error
}

// ScriptedGenerator implements core.Generator by replaying queued steps and
// recording every prompt it receives.
type ScriptedGenerator struct {
	name     string
	steps    []Step
	fallback func(prompt string) (any, error)
	prompts  []string
	mu       sync.Mutex
}

// NewScriptedGenerator creates a generator that replays steps in order.
func NewScriptedGenerator(steps ...Step) *ScriptedGenerator {
	return &ScriptedGenerator{name: "scripted", steps: steps}
}

// Then queues a successful response.
func (g *ScriptedGenerator) Then(resp any) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.steps = append(g.steps, Step{Response: resp})
	return g
}

// ThenError queues a failure.
func (g *ScriptedGenerator) ThenError(err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.steps = append(g.steps, Step{Err: err})
	return g
}

// Repeat queues the same failure n times.
func (g *ScriptedGenerator) Repeat(n int, err error) *ScriptedGenerator {
	for i := 0; i < n; i++ {
		g.ThenError(err)
	}
	return g
}

// WithFallback answers prompts once the queue is empty.
func (g *ScriptedGenerator) WithFallback(fn func(prompt string) (any, error)) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fallback = fn
	return g
}

// Name returns the generator name.
func (g *ScriptedGenerator) Name() string {
	return g.name
}

// Generate pops the next step.
func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string) (any, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	if err := ctx.Err(); err != nil {
		g.mu.Unlock()
		return nil, err
	}
	if len(g.steps) == 0 {
		fallback := g.fallback
		g.mu.Unlock()
		if fallback != nil {
			return fallback(prompt)
		}
		return nil, ErrScriptExhausted
	}
	step := g.steps[0]
	g.steps = g.steps[1:]
	g.mu.Unlock()
	return step.Response, step.Err
}

// Calls returns how many times Generate was called.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns a copy of every prompt received.
func (g *ScriptedGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}

// Pending returns how many queued steps remain.
func (g *ScriptedGenerator) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.steps)
}

// TextResponse is a response object exposing its text through a method.
type TextResponse struct {
	Body string
}

// Text implements core.Texter.
func (r TextResponse) Text() string { return r.Body }

// ContentResponse is a response object exposing a content field.
type ContentResponse struct {
	Content string
}

// GetContent implements core.ContentGetter.
func (r ContentResponse) GetContent() string { return r.Content }
