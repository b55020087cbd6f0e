package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/config"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/testutil"
)

func noSleep(context.Context, time.Duration) error { return nil }

// setupCLI isolates config, store and working directory and installs a
// scripted generator.
func setupCLI(t *testing.T) (dir string, gen *testutil.ScriptedGenerator) {
	t.Helper()
	dir = t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("TRAVELBUDDY_STORE_PATH", filepath.Join(dir, "chat.db"))

	gen = testutil.NewTravelGenerator()
	oldGen, oldOpts := newGenerator, callerOptions
	newGenerator = func(config.GenerationConfig) (core.Generator, error) { return gen, nil }
	callerOptions = []service.CallerOption{service.WithSleeper(noSleep)}
	t.Cleanup(func() {
		newGenerator, callerOptions = oldGen, oldOpts
	})
	return dir, gen
}

func resetFlags() {
	cfgFile = ""
	conversationFlag = ""
	planOutput = ""
	planEvents = false
	planFormat = formatMarkdown
	initForce = false
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "travelbuddy 1.2.3")
	assert.Contains(t, out, "commit: abc123")
	assert.Equal(t, "1.2.3", GetVersion())
}

func TestInit(t *testing.T) {
	dir, _ := setupCLI(t)

	out, _, err := runCLI(t, "init")
	require.NoError(t, err)
	path := filepath.Join(dir, ".travelbuddy", "config.yaml")
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "provider: gemini")

	_, _, err = runCLI(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = runCLI(t, "init", "--force")
	assert.NoError(t, err)
}

func TestPlan_PrintsAnswerAndRecords(t *testing.T) {
	_, gen := setupCLI(t)

	out, errOut, err := runCLI(t, "plan", "5 days in Lisbon")
	require.NoError(t, err)
	assert.Contains(t, out, "## Travel Plan")
	assert.Contains(t, out, "Five days in Lisbon")
	assert.Contains(t, out, "Next Steps for Improvement")
	assert.Contains(t, errOut, "Conversation: conv_")
	assert.Equal(t, 5, gen.Calls())

	list, _, err := runCLI(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "5 days in Lisbon")
}

func TestPlan_YAMLAndOutputFile(t *testing.T) {
	dir, _ := setupCLI(t)
	doc := filepath.Join(dir, "reports", "lisbon.md")

	out, errOut, err := runCLI(t, "plan", "5 days in Lisbon", "--format", "yaml", "--output", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "user_query: 5 days in Lisbon")
	assert.Contains(t, out, "status: validation_completed")
	assert.Contains(t, errOut, "Saved to "+doc)

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: travel_plan")
	assert.Contains(t, string(data), "# 5 days in Lisbon")
}

func TestPlan_Events(t *testing.T) {
	setupCLI(t)

	out, _, err := runCLI(t, "plan", "weekend in Porto", "--events")
	require.NoError(t, err)
	assert.Contains(t, out, "Workflow Completed")
	assert.Contains(t, out, "Orchestrator")
	assert.Contains(t, out, "Total")
}

func TestPlan_InvalidFormat(t *testing.T) {
	setupCLI(t)

	_, _, err := runCLI(t, "plan", "Rome", "--format", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--format")
}

func TestPlan_EmptyQueryNotRecorded(t *testing.T) {
	_, gen := setupCLI(t)

	_, _, err := runCLI(t, "plan", "   ")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
	assert.Equal(t, 0, gen.Calls())

	list, _, err := runCLI(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "No conversations yet.")
}

func TestPlan_RateLimitRendered(t *testing.T) {
	_, gen := setupCLI(t)
	gen.Repeat(10, &core.ServiceError{Provider: "gemini", StatusCode: 429, Message: "quota exceeded"})

	_, errOut, err := runCLI(t, "plan", "Tokyo")
	require.Error(t, err)
	assert.True(t, core.IsRateLimit(err))
	assert.Contains(t, errOut, "Rate Limit Error")
}

func TestHistory_ShowSearchClear(t *testing.T) {
	setupCLI(t)

	_, _, err := runCLI(t, "plan", "5 days in Lisbon", "--conversation", "conv_test")
	require.NoError(t, err)
	_, _, err = runCLI(t, "plan", "make day 3 lighter", "--conversation", "conv_test")
	require.NoError(t, err)

	out, _, err := runCLI(t, "history", "show", "conv_test")
	require.NoError(t, err)
	assert.Contains(t, out, "conv_test · 5 days in Lisbon · 4 messages")
	assert.Contains(t, out, "── You ──")
	assert.Contains(t, out, "make day 3 lighter")

	out, _, err = runCLI(t, "history", "search", "Lisbon")
	require.NoError(t, err)
	assert.Contains(t, out, "conv_test")

	out, _, err = runCLI(t, "history", "search", "zzqx")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations match")

	out, _, err = runCLI(t, "history", "clear", "conv_test")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted conversation conv_test")

	_, _, err = runCLI(t, "history", "show", "conv_test")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir, _ := setupCLI(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  temperature: 9\n"), 0o600))

	_, _, err := runCLI(t, "history", "list", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}

func TestTables(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil))

	out := renderTable([]string{"A", "B"}, [][]string{{"1"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "1")

	list := []core.ConversationSummary{{ID: "conv_1", Title: "Lisbon", MessageCount: 2, UpdatedAt: time.Now()}}
	assert.Contains(t, conversationsTable(list), "conv_1")
}
