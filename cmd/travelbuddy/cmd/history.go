package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved conversations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print the messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Fuzzy-search conversation titles",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

var historyClearCmd = &cobra.Command{
	Use:     "clear <conversation-id>",
	Aliases: []string{"delete", "rm"},
	Short:   "Delete a conversation and its messages",
	Args:    cobra.ExactArgs(1),
	RunE:    runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historySearchCmd, historyClearCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	list, err := a.store.ListConversations(cmd.Context(), a.recorder.UserID())
	if err != nil {
		return err
	}
	printConversations(cmd.OutOrStdout(), list)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, id := cmd.Context(), args[0]
	summary, err := a.store.GetConversation(ctx, a.recorder.UserID(), id)
	if err != nil {
		return err
	}
	msgs, err := a.store.LoadHistory(ctx, a.recorder.UserID(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s · %s · %d messages\n", summary.ID, summary.Title, summary.MessageCount)
	for _, m := range msgs {
		label := "Travel Buddy"
		if m.Role == "user" {
			label = "You"
		}
		fmt.Fprintf(out, "\n── %s ──\n", label)
		writeMarkdown(out, m.Content)
	}
	return nil
}

// conversationTitles adapts summaries to fuzzy.Source. The first message is
// searched along with the title since titles are truncated.
type conversationTitles []core.ConversationSummary

func (c conversationTitles) String(i int) string {
	return c[i].Title + " " + c[i].FirstMessage
}

func (c conversationTitles) Len() int { return len(c) }

func runHistorySearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	list, err := a.store.ListConversations(cmd.Context(), a.recorder.UserID())
	if err != nil {
		return err
	}

	term := strings.Join(args, " ")
	matches := fuzzy.FindFrom(term, conversationTitles(list))
	found := make([]core.ConversationSummary, 0, len(matches))
	for _, m := range matches {
		found = append(found, list[m.Index])
	}
	if len(found) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No conversations match %q.\n", term)
		return nil
	}
	printConversations(cmd.OutOrStdout(), found)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.DeleteConversation(cmd.Context(), a.recorder.UserID(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %s\n", args[0])
	return nil
}

func printConversations(w io.Writer, list []core.ConversationSummary) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return
	}
	fmt.Fprintln(w, conversationsTable(list))
}
