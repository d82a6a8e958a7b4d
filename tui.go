package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"

	"github.com/metcalfc/pagepal/internal/explain"
	"github.com/metcalfc/pagepal/internal/selection"
	"github.com/metcalfc/pagepal/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	phraseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

const (
	// Rows outside the page: status, input or notice, controls.
	chromeRows  = 3
	// Rows kept for the explanation panel, borders included.
	panelRows   = 8
	minPageRows = 3
)

type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Select  key.Binding
	Dismiss key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "n", "l"),
			key.WithHelp("→/n", "next page"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "p", "h"),
			key.WithHelp("←/p", "previous page"),
		),
		Select: key.NewBinding(
			key.WithKeys("/", "s"),
			key.WithHelp("/", "explain a phrase"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc", "x"),
			key.WithHelp("esc", "close explanation"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "explain"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// positionSaver remembers the page reached. *state.StateStore satisfies it.
type positionSaver interface {
	SetPage(key string, page int) error
}

// reader is the part of a session the view drives.
type reader interface {
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Select(ctx context.Context, raw string) (selection.Extraction, error)
	Dismiss() error
	State() session.State
}

type stateMsg session.State

type sessionClosedMsg struct{}

type model struct {
	ctx       context.Context
	sess      reader
	updates   <-chan session.State
	positions positionSaver
	posKey    string
	logger    *zap.Logger
	keys      keyMap

	state     session.State
	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	selecting bool
	notice    string
	quitting  bool
	width     int
	height    int
}

func newModel(ctx context.Context, sess reader, updates <-chan session.State, positions positionSaver, posKey string, logger *zap.Logger) model {
	if logger == nil {
		logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = "type or paste a phrase from the page"
	ti.CharLimit = 1024
	ti.Prompt = "Explain: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{
		ctx:       ctx,
		sess:      sess,
		updates:   updates,
		positions: positions,
		posKey:    posKey,
		logger:    logger,
		keys:      defaultKeyMap(),
		state:     sess.State(),
		viewport:  viewport.New(80, 24-chromeRows-panelRows),
		input:     ti,
		spinner:   sp,
		width:     80,
		height:    24,
	}
	m.resize()
	return m
}

func waitForState(updates <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return sessionClosedMsg{}
		}
		return stateMsg(st)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.updates), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.selecting {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case stateMsg:
		m.applyState(session.State(msg))
		return m, waitForState(m.updates)

	case sessionClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Next):
		if err := m.sess.Next(m.ctx); err != nil {
			m.notice = pageNotice(err)
		}
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		if err := m.sess.Prev(m.ctx); err != nil {
			m.notice = pageNotice(err)
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if m.state.Phase != session.PhaseReading {
			m.notice = selectionNotice(session.ErrNotReading)
			return m, nil
		}
		m.selecting = true
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Dismiss):
		// Nothing to dismiss is not worth a notice.
		_ = m.sess.Dismiss()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Confirm):
		raw := m.input.Value()
		m.selecting = false
		m.input.Blur()
		if _, err := m.sess.Select(m.ctx, raw); err != nil {
			m.notice = selectionNotice(err)
		}
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		m.selecting = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyState takes a new session snapshot, refreshing the page text and
// saving the position when a page finishes loading.
func (m *model) applyState(st session.State) {
	prev := m.state
	m.state = st

	pageChanged := st.Page != prev.Page || st.Document.ID != prev.Document.ID
	if st.Phase == session.PhaseReading && (pageChanged || prev.Phase != session.PhaseReading) {
		m.setPageContent()
		m.viewport.GotoTop()
		if m.positions != nil {
			if err := m.positions.SetPage(m.posKey, st.Page); err != nil {
				m.logger.Warn("failed to save reading position", zap.Int("page", st.Page), zap.Error(err))
			}
		}
	}
	if st.Phase != session.PhaseReading && m.selecting {
		m.selecting = false
		m.input.Blur()
	}
}

func (m *model) resize() {
	w := max(m.width-4, 20)
	m.viewport.Width = w
	m.viewport.Height = max(m.height-chromeRows-panelRows, minPageRows)
	m.input.Width = w - len(m.input.Prompt)
	m.setPageContent()
}

func (m *model) setPageContent() {
	if m.state.Phase != session.PhaseReading {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(wordwrap.String(m.state.Chunk.Text, m.viewport.Width))
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")

	switch m.state.Phase {
	case session.PhaseIdle:
		sb.WriteString(statusStyle.Render("No document open."))
	case session.PhaseLoading:
		sb.WriteString(statusStyle.Render(m.spinner.View() + " Loading page..."))
	case session.PhaseChunkError:
		sb.WriteString(errorStyle.Render(m.state.Message))
	case session.PhaseReading:
		sb.WriteString(m.viewport.View())
	}
	sb.WriteString("\n")

	if panel := m.explanationPanel(); panel != "" {
		sb.WriteString(panel)
		sb.WriteString("\n")
	}

	switch {
	case m.selecting:
		sb.WriteString(m.input.View())
	case m.notice != "":
		sb.WriteString(noticeStyle.Render(m.notice))
	}
	sb.WriteString("\n")
	sb.WriteString(m.controls())

	return sb.String()
}

func (m model) statusLine() string {
	doc := m.state.Document
	title := titleStyle.Render(doc.Label())
	if m.state.Phase == session.PhaseIdle {
		return title
	}
	pos := m.state.PageLabel()
	if m.state.Chunk.Section != "" && m.state.Phase == session.PhaseReading {
		pos += " | " + m.state.Chunk.Section
	}
	return title + statusStyle.Render(pos)
}

func (m model) explanationPanel() string {
	sel := m.state.Selection
	if sel == nil {
		return ""
	}

	width := max(m.width-4, 20)
	var body string
	switch sel.Result.Status {
	case explain.StatusPending:
		body = m.spinner.View() + " Asking..."
	case explain.StatusFailure:
		body = errorStyle.Render(sel.Result.Text)
	default:
		body = wordwrap.String(sel.Result.Text, width-4)
	}
	lines := strings.Split(body, "\n")
	if len(lines) > panelRows-3 {
		lines = append(lines[:panelRows-4], "...")
	}

	heading := phraseStyle.Render(truncate(sel.Extraction.Text, width-4))
	return panelStyle.Width(width).Render(heading + "\n" + strings.Join(lines, "\n"))
}

func (m model) controls() string {
	if m.selecting {
		return controlsStyle.Render("ENTER: explain  ESC: cancel")
	}
	var parts []string
	if m.state.CanPrev() {
		parts = append(parts, "←: prev")
	}
	if m.state.CanNext() {
		parts = append(parts, "→: next")
	}
	if m.state.Phase == session.PhaseReading {
		parts = append(parts, "/: explain", "↑/↓: scroll")
	}
	if m.state.Selection != nil {
		parts = append(parts, "ESC: close")
	}
	parts = append(parts, "Q: quit")
	return controlsStyle.Render(strings.Join(parts, "  "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// selectionNotice is the short message shown for a rejected selection.
func selectionNotice(err error) string {
	switch {
	case errors.Is(err, selection.ErrEmptySelection):
		return "Nothing selected."
	case errors.Is(err, selection.ErrSelectionTooLong):
		return fmt.Sprintf("Select at most %d words.", selection.MaxWords)
	case errors.Is(err, selection.ErrSelectionNotFound):
		return "That text is not on this page."
	case errors.Is(err, session.ErrNotReading):
		return "Wait for the page to load."
	}
	return err.Error()
}

func pageNotice(err error) string {
	switch {
	case errors.Is(err, session.ErrNoNextPage):
		return "This is the last page."
	case errors.Is(err, session.ErrNoPrevPage):
		return "This is the first page."
	}
	return err.Error()
}
