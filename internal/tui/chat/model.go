// Package chat is the interactive terminal chat. Queries run in the
// background task bridge; the model polls it on a tick so typing, scrolling
// and commands stay responsive while the pipeline works.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/bridge"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/clip"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/conversation"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/report"
)

// DefaultPollInterval is how often a pending request is polled.
const DefaultPollInterval = 250 * time.Millisecond

// Runner runs one background request at a time. *bridge.Bridge implements it.
type Runner interface {
	Submit(ctx context.Context, req bridge.Request) (string, error)
	Poll() bridge.PollResult
}

// Config wires the chat to the rest of the application.
type Config struct {
	Runner            Runner
	Sink              *events.Sink
	Recorder          *conversation.Recorder
	ConversationID    string
	History           []core.Message // stored turns of a resumed conversation
	NewConversationID func() string
	Copy              func(text string) (clip.Result, error)
	PollInterval      time.Duration
	Provider          string
	Model             string
}

type (
	pollTickMsg struct{}
	recordedMsg struct{ err error }
)

// Model is the bubbletea model of the chat.
type Model struct {
	cfg Config
	ctx context.Context

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	commands   *CommandRegistry
	transcript *Transcript
	logs       *LogsPanel
	showLogs   bool

	conversationID string
	processing     bool
	taskID         string
	startedAt      time.Time
	status         string

	width, height int
	quitting      bool
}

// NewModel creates the chat model.
func NewModel(ctx context.Context, cfg Config) Model {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Copy == nil {
		cfg.Copy = clip.Copy
	}
	if cfg.NewConversationID == nil {
		cfg.NewConversationID = conversation.NewID
	}
	if cfg.ConversationID == "" {
		cfg.ConversationID = cfg.NewConversationID()
	}

	ta := textarea.New()
	ta.Placeholder = "Where do you want to go? (/help for commands)"
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = core.MaxQueryLength
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		cfg:            cfg,
		ctx:            ctx,
		textarea:       ta,
		viewport:       viewport.New(80, 20),
		spinner:        sp,
		renderer:       newMarkdownRenderer(80),
		commands:       NewCommandRegistry(),
		transcript:     NewTranscript(cfg.History),
		logs:           NewLogsPanel(cfg.Sink, 10),
		conversationID: cfg.ConversationID,
		width:          80,
		height:         30,
	}
	if m.transcript.Len() == 0 {
		m.transcript.Add(NewSystemMessage("Describe your trip: destination, dates, budget and interests."))
	}
	m.refresh()
	return m
}

// ConversationID returns the active conversation.
func (m Model) ConversationID() string { return m.conversationID }

// Processing reports whether a request is in flight.
func (m Model) Processing() bool { return m.processing }

// Transcript returns the chat transcript.
func (m Model) Transcript() []Message { return m.transcript.All() }

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textarea.Value()
			m.textarea.Reset()
			return m.handleInput(input)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case pollTickMsg:
		return m.handlePoll()

	case recordedMsg:
		if msg.err != nil {
			m.addMessage(NewWarningMessage("Could not save the conversation: " + msg.err.Error()))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.showLogs {
			m.layout()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleInput(input string) (tea.Model, tea.Cmd) {
	input = strings.TrimSpace(input)
	if input == "" {
		return m, nil
	}
	if IsCommand(input) {
		return m.handleCommand(input)
	}
	return m.submit(input)
}

func (m Model) submit(query string) (tea.Model, tea.Cmd) {
	history := m.transcript.History()
	id, err := m.cfg.Runner.Submit(m.ctx, bridge.Request{
		Query:          query,
		History:        history,
		ConversationID: m.conversationID,
	})
	if err != nil {
		if core.IsCategory(err, core.ErrCatConflict) {
			m.addMessage(NewWarningMessage("⚠️ " + report.ErrorMessage(err)))
		} else {
			m.addMessage(NewWarningMessage(report.RenderError(err)))
		}
		return m, nil
	}

	m.processing = true
	m.taskID = id
	m.startedAt = time.Now()
	m.status = ""
	m.addMessage(NewUserMessage(query))
	return m, m.pollCmd()
}

func (m Model) pollCmd() tea.Cmd {
	return tea.Tick(m.cfg.PollInterval, func(time.Time) tea.Msg { return pollTickMsg{} })
}

func (m Model) handlePoll() (tea.Model, tea.Cmd) {
	if !m.processing {
		return m, nil
	}

	res := m.cfg.Runner.Poll()
	switch res.Status {
	case bridge.StatusPending:
		return m, m.pollCmd()
	case bridge.StatusIdle:
		m.processing = false
		m.addMessage(NewWarningMessage("The request finished without a result."))
		return m, nil
	}

	out := res.Outcome
	m.processing = false
	m.taskID = ""
	reply := conversation.Reply(out.State, out.Err)
	m.addMessage(NewAssistantMessage(reply))
	if out.Succeeded() {
		m.status = fmt.Sprintf("Planned in %.1fs", out.Duration.Seconds())
	} else {
		m.status = "Request failed"
	}
	return m, m.recordCmd(out.Request.ConversationID, out.Request.Query, reply)
}

func (m Model) recordCmd(conversationID, query, reply string) tea.Cmd {
	if !m.cfg.Recorder.Enabled() {
		return nil
	}
	rec, ctx := m.cfg.Recorder, m.ctx
	return func() tea.Msg {
		return recordedMsg{err: rec.RecordTurn(ctx, conversationID, query, reply)}
	}
}

func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd, args, ok := m.commands.Parse(input)
	if !ok {
		name := strings.Fields(strings.TrimPrefix(input, "/"))
		msg := "Unknown command: " + input
		if len(name) > 0 {
			if s := m.commands.Suggest(name[0]); len(s) > 0 {
				msg += ". Did you mean /" + s[0] + "?"
			}
		}
		m.addMessage(NewWarningMessage(msg))
		return m, nil
	}

	switch cmd.Name {
	case CmdHelp:
		topic := ""
		if len(args) > 0 {
			topic = args[0]
		}
		m.addMessage(NewSystemMessage(m.commands.Help(topic)))

	case CmdNew:
		if m.processing {
			m.addMessage(NewWarningMessage("Wait for the current request to finish before starting a new conversation."))
			return m, nil
		}
		m.transcript.Clear()
		m.conversationID = m.cfg.NewConversationID()
		m.status = ""
		m.addMessage(NewSystemMessage("Started a new conversation."))

	case CmdLogs:
		m.showLogs = !m.showLogs
		m.layout()

	case CmdClearLogs:
		if m.cfg.Sink != nil {
			m.cfg.Sink.Clear()
		}
		m.addMessage(NewSystemMessage("Logs cleared."))
		m.layout()

	case CmdCopy:
		res, err := m.cfg.Copy(m.transcript.LastAnswer())
		switch {
		case errors.Is(err, clip.ErrEmpty):
			m.addMessage(NewWarningMessage("Nothing to copy yet."))
		case err != nil:
			m.addMessage(NewWarningMessage("Copy failed: " + err.Error()))
		default:
			m.addMessage(NewSystemMessage(res.Message()))
		}

	case CmdQuit:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) addMessage(msg Message) {
	m.transcript.Add(msg)
	m.refresh()
}

func (m *Model) resize(width, height int) {
	widthChanged := width > 0 && width != m.width
	if widthChanged {
		m.width = width
		m.textarea.SetWidth(width)
		m.logs.SetWidth(width)
		m.renderer = newMarkdownRenderer(width - 4)
	}
	if height > 0 {
		m.height = height
	}
	m.layout()
	if widthChanged {
		m.refresh()
	}
}

// layout sizes the viewport to what header, logs and input leave free.
func (m *Model) layout() {
	// header + status + footer + input
	reserved := 3 + m.textarea.Height()
	if m.showLogs {
		reserved += strings.Count(m.logs.View(), "\n") + 1
	}
	vh := m.height - reserved
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = vh
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	parts := make([]string, 0, m.transcript.Len())
	for _, msg := range m.transcript.All() {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg Message) string {
	ts := timestampStyle.Render(msg.Timestamp.Format("15:04"))
	switch msg.Role {
	case RoleUser:
		bubble := userBubbleStyle.Width(m.width * 85 / 100).Render(msg.Content)
		return userLabelStyle.Render("You") + " " + ts + "\n" + bubble
	case RoleAssistant:
		body := msg.Content
		if m.renderer != nil {
			if out, err := m.renderer.Render(msg.Content); err == nil {
				body = strings.TrimRight(out, "\n")
			}
		}
		return assistantLabelStyle.Render("Travel Buddy") + " " + ts + "\n" + body
	default:
		if msg.Warning {
			return warningStyle.Render(msg.Content)
		}
		return systemStyle.Render(msg.Content)
	}
}

// View renders the chat.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	meta := m.conversationID
	if m.cfg.Provider != "" {
		meta = m.cfg.Provider
		if m.cfg.Model != "" {
			meta += "/" + m.cfg.Model
		}
		meta += " · " + m.conversationID
	}
	sb.WriteString(headerStyle.Render("✈ Travel Buddy") + " " + headerMetaStyle.Render(meta) + "\n")
	sb.WriteString(m.viewport.View() + "\n")
	if m.showLogs {
		sb.WriteString(m.logs.View() + "\n")
	}

	switch {
	case m.processing:
		elapsed := time.Since(m.startedAt).Round(time.Second)
		sb.WriteString(m.spinner.View() + " Planning your trip… " + helpStyle.Render(elapsed.String()) + "\n")
	case m.status != "":
		sb.WriteString(helpStyle.Render(m.status) + "\n")
	default:
		sb.WriteString("\n")
	}

	sb.WriteString(m.textarea.View() + "\n")
	sb.WriteString(helpStyle.Render("enter send · pgup/pgdn scroll · /help commands · ctrl+c quit"))
	return sb.String()
}

// Run starts the chat and blocks until the user quits or ctx is done.
func Run(ctx context.Context, cfg Config) error {
	p := tea.NewProgram(NewModel(ctx, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}
