package core

import (
	"context"
	"testing"
)

func TestGeneratorFunc(t *testing.T) {
	var got string
	var g Generator = GeneratorFunc(func(_ context.Context, prompt string) (any, error) {
		got = prompt
		return "ok", nil
	})

	if g.Name() != "func" {
		t.Errorf("Name() = %q", g.Name())
	}
	resp, err := g.Generate(context.Background(), "plan Lisbon")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp != "ok" || got != "plan Lisbon" {
		t.Errorf("Generate() = %v, prompt %q", resp, got)
	}
}
