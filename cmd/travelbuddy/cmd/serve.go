package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/api"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/bridge"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  POST   /api/v1/plan            plan synchronously
  POST   /api/v1/tasks           start a background plan
  GET    /api/v1/tasks/current   poll the background plan
  GET    /api/v1/events          agent activity (stage, status, limit)
  GET    /api/v1/events/summary  activity counts
  DELETE /api/v1/events          clear the activity log
  GET    /metrics                Prometheus metrics

Examples:
  travelbuddy serve
  travelbuddy serve --addr 0.0.0.0:3000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr, 127.0.0.1:8080)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()

	engine, err := a.newEngine()
	if err != nil {
		return err
	}

	tasks := bridge.New(engine, bridge.WithSink(a.sink), bridge.WithLogger(a.logger))
	server := api.NewServer(engine, tasks, a.sink,
		api.WithLogger(a.logger.Logger),
		api.WithMetrics(a.metrics),
		api.WithRecorder(a.recorder),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := a.cfg.Server.Addr
	a.logger.Info("starting server", "addr", addr, "provider", a.cfg.Generation.Provider)
	if err := server.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	a.logger.Info("server stopped")
	return nil
}
