package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	chatstore "github.com/hugo-lorenzo-mato/travel-buddy/internal/adapters/chat"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/conversation"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/report"
)

var planCmd = &cobra.Command{
	Use:   "plan <query>",
	Short: "Plan a trip and print the answer",
	Long: `Run the four agents once, synchronously, and print the composed answer.

The query and the answer are saved to the chat history. Pass --conversation
to continue an earlier conversation with its history as context.

Examples:
  travelbuddy plan "5 days in Lisbon in May, budget $1500, food and history"
  travelbuddy plan "make day 3 less busy" --conversation conv_1234
  travelbuddy plan "weekend in Porto" --output porto.md --events`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

var (
	planOutput string
	planEvents bool
	planFormat string
)

const (
	formatMarkdown = "markdown"
	formatYAML     = "yaml"
)

func init() {
	rootCmd.AddCommand(planCmd)
	addConversationFlag(planCmd)
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "also save the answer as a markdown document")
	planCmd.Flags().BoolVar(&planEvents, "events", false, "print the agent activity log after the answer")
	planCmd.Flags().StringVar(&planFormat, "format", formatMarkdown, "output format (markdown, yaml)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(planFormat)
	if format != formatMarkdown && format != formatYAML {
		return fmt.Errorf("invalid --format %q (want markdown or yaml)", planFormat)
	}

	a, err := newApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	engine, err := a.newEngine()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	query := strings.Join(args, " ")
	convID := conversationFlag
	history, err := a.history(ctx, convID)
	if err != nil {
		return err
	}
	if convID == "" {
		convID = chatstore.NewConversationID()
	}

	state, runErr := engine.Process(ctx, query, history)
	reply := conversation.Reply(state, runErr)
	if !core.IsCategory(runErr, core.ErrCatValidation) {
		if err := a.recorder.RecordTurn(ctx, convID, query, reply); err != nil {
			a.logger.Warn("saving conversation failed", "conversation_id", convID, "error", err)
		}
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if runErr != nil {
		writeMarkdown(errOut, reply)
		if planEvents {
			printEvents(errOut, a.sink)
		}
		return runErr
	}

	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(state); err != nil {
			return fmt.Errorf("encoding state: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding state: %w", err)
		}
	default:
		writeMarkdown(out, reply)
	}

	if planOutput != "" {
		meta := report.DocumentMeta{
			Query:          query,
			ConversationID: convID,
			Provider:       a.cfg.Generation.Provider,
			Model:          a.modelLabel(),
			GeneratedAt:    time.Now(),
		}
		if err := report.WriteDocument(planOutput, state.Result(), meta); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Saved to %s\n", planOutput)
	}

	if planEvents {
		printEvents(out, a.sink)
	}
	fmt.Fprintf(errOut, "Conversation: %s\n", convID)
	return nil
}

// writeMarkdown renders md with glamour when w is a terminal and writes it
// unchanged otherwise.
func writeMarkdown(w io.Writer, md string) {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil || width <= 0 || width > 120 {
			width = 100
		}
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
		if err == nil {
			if rendered, err := r.Render(md); err == nil {
				fmt.Fprint(w, rendered)
				return
			}
		}
	}
	fmt.Fprintln(w, md)
}

func printEvents(w io.Writer, sink *events.Sink) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, eventsTable(sink.Events(events.Filter{})))
	fmt.Fprintln(w, summaryTable(sink.Summary()))
}
