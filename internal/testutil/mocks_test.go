package testutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/testutil"
)

var _ core.Generator = (*testutil.ScriptedGenerator)(nil)

func TestScriptedGenerator_ReplaysInOrder(t *testing.T) {
	boom := errors.New("boom")
	gen := testutil.NewScriptedGenerator().Then("first").ThenError(boom).Then(testutil.TextResponse{Body: "third"})
	ctx := context.Background()

	resp, err := gen.Generate(ctx, "p1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.(string), "first")

	_, err = gen.Generate(ctx, "p2")
	testutil.AssertTrue(t, errors.Is(err, boom), "second step should fail")

	resp, err = gen.Generate(ctx, "p3")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.(testutil.TextResponse).Text(), "third")

	testutil.AssertEqual(t, gen.Calls(), 3)
	testutil.AssertEqual(t, gen.Prompts()[1], "p2")
	testutil.AssertEqual(t, gen.Pending(), 0)
}

func TestScriptedGenerator_Exhausted(t *testing.T) {
	gen := testutil.NewScriptedGenerator()
	_, err := gen.Generate(context.Background(), "p")
	testutil.AssertTrue(t, errors.Is(err, testutil.ErrScriptExhausted), "empty script should fail")
}

func TestScriptedGenerator_Fallback(t *testing.T) {
	gen := testutil.NewScriptedGenerator().WithFallback(func(prompt string) (any, error) {
		return "echo: " + prompt, nil
	})
	resp, err := gen.Generate(context.Background(), "hi")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.(string), "echo: hi")
}

func TestScriptedGenerator_Repeat(t *testing.T) {
	gen := testutil.NewScriptedGenerator().Repeat(3, errors.New("503"))
	testutil.AssertEqual(t, gen.Pending(), 3)
}

func TestScriptedGenerator_CanceledContext(t *testing.T) {
	gen := testutil.NewScriptedGenerator().Then("unused")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "p")
	testutil.AssertTrue(t, errors.Is(err, context.Canceled), "canceled context should fail")
	testutil.AssertEqual(t, gen.Pending(), 1)
}

func TestNewTestState(t *testing.T) {
	s := testutil.NewTestState(func(s *core.WorkflowState) {
		s.Plan = "p"
	})
	testutil.AssertEqual(t, s.Plan, "p")
	testutil.AssertEqual(t, s.Status, core.StatusInitialized)
	testutil.AssertContains(t, s.UserQuery, "Lisbon")
}
