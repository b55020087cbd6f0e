package cmd

import (
	"io"

	"github.com/spf13/cobra"

	chatstore "github.com/hugo-lorenzo-mato/travel-buddy/internal/adapters/chat"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/bridge"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/tui/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Long: `Start the interactive terminal chat. Queries run in the background so the
interface stays responsive; only one query runs at a time.

Commands inside the chat:
  /new        start a new conversation
  /logs       toggle the agent activity log
  /clearlogs  clear the agent activity log
  /copy       copy the last answer to the clipboard
  /quit       leave`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addConversationFlag(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// The chat owns the terminal; process logs would corrupt the screen.
	a, err := newApp(cmd, io.Discard)
	if err != nil {
		return err
	}
	defer a.close()

	engine, err := a.newEngine()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	history, err := a.history(ctx, conversationFlag)
	if err != nil {
		return err
	}

	return chat.Run(ctx, chat.Config{
		Runner:            bridge.New(engine, bridge.WithSink(a.sink), bridge.WithLogger(a.logger)),
		Sink:              a.sink,
		Recorder:          a.recorder,
		ConversationID:    conversationFlag,
		History:           history,
		NewConversationID: chatstore.NewConversationID,
		Provider:          a.cfg.Generation.Provider,
		Model:             a.modelLabel(),
	})
}
