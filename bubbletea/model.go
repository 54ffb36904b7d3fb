package bubbletea

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/pulse"
)

var _ tea.Model = Model{}

// Words that end the session when sent as a message.
var quitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

// Model is the Bubble Tea model for the pulse chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model
	// Spinner animates the status line while a question is in flight.
	Spinner spinner.Model

	ask    AskFunc
	theme  pulse.Theme
	styles Styles

	blocks []MessageBlock

	// history holds sent questions, oldest first. historyPos indexes into it
	// while the user recalls with Up/Down; len(history) means a fresh line.
	history    []string
	historyPos int

	running bool
	cancel  context.CancelFunc
	ready   bool
}

// New creates a new TUI Model that answers questions with ask.
func New(ask AskFunc, theme pulse.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your team..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	return Model{
		Input:   ti,
		Spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styles.Accent)),
		ask:     ask,
		theme:   theme,
		styles:  styles,
	}
}

// Running returns whether a question is in flight.
func (m Model) Running() bool { return m.running }

// Blocks returns the number of rendered conversation blocks.
func (m Model) Blocks() int { return len(m.blocks) }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case AnswerMsg:
		return m.handleAnswer(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.styles.UserMsg.Render("You: "))
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputH-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width - len("You: ")
	m.refresh()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		switch {
		case text == "":
			return m, nil
		case quitWords[strings.ToLower(text)]:
			return m, tea.Quit
		case strings.EqualFold(text, "clear"):
			m.Input.SetValue("")
			m.blocks = nil
			m.refresh()
			return m, nil
		}
		return m.submit(text)

	case tea.KeyUp:
		if !m.running && m.historyPos > 0 {
			m.historyPos--
			m.Input.SetValue(m.history[m.historyPos])
			m.Input.CursorEnd()
		}
		return m, nil

	case tea.KeyDown:
		if !m.running && m.historyPos < len(m.history) {
			m.historyPos++
			if m.historyPos == len(m.history) {
				m.Input.SetValue("")
			} else {
				m.Input.SetValue(m.history[m.historyPos])
				m.Input.CursorEnd()
			}
		}
		return m, nil
	}

	// While idle, typing goes to the input and navigation keys also scroll
	// the viewport. Runes are kept away from the viewport so 'j'/'k' type.
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.history = append(m.history, text)
	m.historyPos = len(m.history)

	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true

	return m, tea.Batch(askCmd(ctx, m.ask, text), m.Spinner.Tick)
}

func (m Model) handleAnswer(msg AnswerMsg) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.cancel = nil

	switch {
	case errors.Is(msg.Err, context.Canceled):
		m.blocks = append(m.blocks, NewErrorBlock(errors.New("request cancelled"), m.styles))
	case msg.Err != nil:
		m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
	case !msg.Answer.Success:
		m.blocks = append(m.blocks, NewFailedAnswerBlock(msg.Answer, m.styles))
	default:
		m.blocks = append(m.blocks, NewAnswerBlock(msg.Answer, m.theme, m.styles))
	}
	m.refresh()
	return m, m.Input.Focus()
}

// refresh re-renders all blocks into the viewport and scrolls to the end.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
}

func (m Model) renderContent() string {
	views := make([]string, len(m.blocks))
	for i, block := range m.blocks {
		views[i] = block.View(m.Viewport.Width)
	}
	return strings.Join(views, "\n\n")
}

func (m Model) statusLine() string {
	if m.running {
		return m.Spinner.View() + " " + m.styles.Muted.Render("Checking JIRA and GitHub... (Ctrl+C to cancel)")
	}
	return m.styles.Muted.Render("Enter to send, ↑/↓ for history, 'exit' to quit")
}

// askCmd runs ask off the UI goroutine and reports the result.
func askCmd(ctx context.Context, ask AskFunc, query string) tea.Cmd {
	return func() tea.Msg {
		answer, err := ask(ctx, query)
		return AnswerMsg{Answer: answer, Err: err}
	}
}
