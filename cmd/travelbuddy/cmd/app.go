package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	chatstore "github.com/hugo-lorenzo-mato/travel-buddy/internal/adapters/chat"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/adapters/genai"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/config"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/logging"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/conversation"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/workflow"
)

var conversationFlag string

func addConversationFlag(c *cobra.Command) {
	c.Flags().StringVar(&conversationFlag, "conversation", "",
		"conversation ID to continue (default: start a new one)")
}

// newGenerator builds the text generator. Tests replace it with a scripted one.
var newGenerator = func(cfg config.GenerationConfig) (core.Generator, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(genai.APIKeyEnv(cfg.Provider))
	}
	return genai.New(genai.Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      key,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
}

// callerOptions lets tests skip backoff waits.
var callerOptions []service.CallerOption

// app holds the collaborators shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	sink     *events.Sink
	metrics  *service.Metrics
	store    *chatstore.SQLiteStore
	recorder *conversation.Recorder
}

// newApp loads configuration and opens the chat store. logOut receives
// log output; nil means stderr.
func newApp(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var logger *logging.Logger
	if logOut == io.Discard {
		logger = logging.NewNop()
	} else {
		logger = logging.New(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: logOut,
		})
	}

	store, err := chatstore.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening chat store: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		sink:     events.NewSink(events.WithLogger(logger)),
		metrics:  service.NewMetrics(),
		store:    store,
		recorder: conversation.NewRecorder(store, conversation.DefaultUserID, logger),
	}, nil
}

// newEngine wires generator, resilient caller and workflow engine.
func (a *app) newEngine() (*workflow.Engine, error) {
	gen, err := newGenerator(a.cfg.Generation)
	if err != nil {
		return nil, err
	}

	initial, maxDelay, err := a.cfg.Retry.Delays()
	if err != nil {
		return nil, err
	}
	timeout, err := a.cfg.Generation.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	opts := []service.CallerOption{
		service.WithPolicy(service.NewBackoffPolicy(
			service.WithMaxRetries(a.cfg.Retry.MaxRetries),
			service.WithInitialDelay(initial),
			service.WithMaxDelay(maxDelay),
			service.WithMultiplier(a.cfg.Retry.BackoffMultiplier),
		)),
		service.WithSink(a.sink),
		service.WithLogger(a.logger),
		service.WithMetrics(a.metrics),
		service.WithAttemptTimeout(timeout),
	}
	if rpm := a.cfg.Generation.RequestsPerMinute; rpm > 0 {
		opts = append(opts, service.WithRequestLimiter(service.NewRequestLimiter(rpm)))
	}
	opts = append(opts, callerOptions...)

	a.logger.Debug("generator ready", "provider", gen.Name(), "model", a.cfg.Generation.Model)
	return workflow.NewEngine(workflow.EngineDeps{
		Invoker:       service.NewCaller(gen, opts...),
		Sink:          a.sink,
		Logger:        a.logger,
		Metrics:       a.metrics,
		HistoryWindow: a.cfg.Workflow.HistoryWindow,
	})
}

// history returns the stored turns of id, or nil for a new conversation.
func (a *app) history(ctx context.Context, id string) ([]core.Message, error) {
	if id == "" {
		return nil, nil
	}
	h, err := a.recorder.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", id, err)
	}
	return h, nil
}

func (a *app) close() {
	a.sink.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing chat store", "error", err)
	}
}

// modelLabel is the configured model, or the provider default marker.
func (a *app) modelLabel() string {
	if m := strings.TrimSpace(a.cfg.Generation.Model); m != "" {
		return m
	}
	return "default"
}
