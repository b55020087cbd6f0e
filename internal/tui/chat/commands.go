package chat

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Command names understood by the chat.
const (
	CmdHelp      = "help"
	CmdNew       = "new"
	CmdLogs      = "logs"
	CmdClearLogs = "clearlogs"
	CmdCopy      = "copy"
	CmdQuit      = "quit"
)

// Command represents a slash command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
}

// CommandRegistry resolves slash commands and their aliases.
type CommandRegistry struct {
	commands map[string]*Command
	aliases  map[string]string
	names    []string // For fuzzy matching
}

// NewCommandRegistry creates a registry holding the chat commands.
func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}

	r.Register(&Command{
		Name:        CmdHelp,
		Aliases:     []string{"h", "?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
	})
	r.Register(&Command{
		Name:        CmdNew,
		Aliases:     []string{"reset"},
		Description: "Start a new conversation",
		Usage:       "/new",
	})
	r.Register(&Command{
		Name:        CmdLogs,
		Aliases:     []string{"l"},
		Description: "Toggle the agent activity log",
		Usage:       "/logs",
	})
	r.Register(&Command{
		Name:        CmdClearLogs,
		Aliases:     []string{"cl"},
		Description: "Clear the agent activity log",
		Usage:       "/clearlogs",
	})
	r.Register(&Command{
		Name:        CmdCopy,
		Aliases:     []string{"c", "cp"},
		Description: "Copy the last answer to the clipboard",
		Usage:       "/copy",
	})
	r.Register(&Command{
		Name:        CmdQuit,
		Aliases:     []string{"q", "exit"},
		Description: "Leave the chat",
		Usage:       "/quit",
	})

	return r
}

// Register adds a command to the registry.
func (r *CommandRegistry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	r.names = append(r.names, cmd.Name)

	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd.Name
	}
}

// IsCommand reports whether input is slash-prefixed.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// Parse resolves input to a command and its arguments. ok is false for
// plain text and unknown commands.
func (r *CommandRegistry) Parse(input string) (cmd *Command, args []string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil, nil, false
	}

	parts := strings.Fields(input[1:])
	if len(parts) == 0 {
		return nil, nil, false
	}
	if cmd := r.Get(strings.ToLower(parts[0])); cmd != nil {
		return cmd, parts[1:], true
	}
	return nil, nil, false
}

// Suggest returns command names fuzzy-matching partial.
func (r *CommandRegistry) Suggest(partial string) []string {
	partial = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(partial), "/"))
	if i := strings.IndexByte(partial, ' '); i >= 0 {
		partial = partial[:i]
	}

	if partial == "" {
		result := make([]string, len(r.names))
		copy(result, r.names)
		sort.Strings(result)
		return result
	}

	all := make([]string, 0, len(r.names)+len(r.aliases))
	all = append(all, r.names...)
	for alias := range r.aliases {
		all = append(all, alias)
	}
	sort.Strings(all)

	// Aliases resolve to their command; keep the best-ranked occurrence.
	seen := make(map[string]bool)
	var result []string
	for _, match := range fuzzy.Find(partial, all) {
		name := match.Str
		if real, ok := r.aliases[name]; ok {
			name = real
		}
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	return result
}

// Help returns help text for one command, or for all of them when name is empty.
func (r *CommandRegistry) Help(name string) string {
	if name != "" {
		if cmd := r.Get(strings.TrimPrefix(name, "/")); cmd != nil {
			return formatCommandHelp(cmd)
		}
		return "Unknown command: " + name
	}

	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, n := range names {
		cmd := r.commands[n]
		sb.WriteString("\n  /" + n)
		if len(cmd.Aliases) > 0 {
			sb.WriteString(" (" + strings.Join(cmd.Aliases, ", ") + ")")
		}
		sb.WriteString("  " + cmd.Description)
	}
	return sb.String()
}

// Get returns a command by name or alias.
func (r *CommandRegistry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if real, ok := r.aliases[name]; ok {
		return r.commands[real]
	}
	return nil
}

func formatCommandHelp(cmd *Command) string {
	var sb strings.Builder
	sb.WriteString("/" + cmd.Name)
	if len(cmd.Aliases) > 0 {
		sb.WriteString(" (aliases: " + strings.Join(cmd.Aliases, ", ") + ")")
	}
	sb.WriteString("\n\n" + cmd.Description)
	sb.WriteString("\n\nUsage: " + cmd.Usage)
	return sb.String()
}
