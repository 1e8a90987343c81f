package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"examqa/internal/domain"
	"examqa/internal/service"
)

// QAPort is the TUI-facing subset of the question-answering service.
type QAPort interface {
	Ask(ctx context.Context, query string, opts service.AskOptions) (*service.Answer, error)
	Reload(ctx context.Context) (domain.Stats, error)
}

// Model is the Bubble Tea model for the interactive Q&A session.
type Model struct {
	qa       QAPort
	input    textinput.Model
	viewport viewport.Model

	mode      domain.Mode
	retrieval service.RetrievalChoice
	topK      int

	answer  *service.Answer
	summary string
	status  string
	busy    bool
	ready   bool
}

type answerMsg struct {
	query string
	ans   *service.Answer
	err   error
}

type reloadMsg struct {
	stats domain.Stats
	err   error
}

// New creates a new TUI model instance.
func New(qa QAPort, summary string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if topK <= 0 {
		topK = 3
	}
	return Model{
		qa:        qa,
		input:     ti,
		viewport:  vp,
		mode:      domain.ModeExam,
		retrieval: service.RetrievalAuto,
		topK:      topK,
		summary:   summary,
		status:    "Ready. Tab cycles mode, Ctrl+R toggles retrieval, Ctrl+L reloads the corpus.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 3                                    // header + summary + settings
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			// keep the previous answer and context on screen
			m.status = describeError(msg.err)
		} else {
			m.answer = msg.ans
			m.status = fmt.Sprintf("Answered %q (retrieval %s, %d sources)",
				msg.query, onOff(msg.ans.RetrievalUsed), len(msg.ans.Context))
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil
	case reloadMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Reload failed: " + msg.err.Error()
		} else {
			m.summary = StatsSummary(msg.stats)
			m.status = fmt.Sprintf("Corpus reloaded: %d questions", msg.stats.Total)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Thinking..."
				return m, m.ask(q)
			}
			return m, nil
		case "tab":
			m.mode = nextMode(m.mode)
			m.status = "Mode: " + string(m.mode)
			return m, nil
		case "ctrl+r":
			m.retrieval = nextRetrieval(m.retrieval)
			m.status = "Retrieval: " + m.retrieval.String()
			return m, nil
		case "ctrl+l":
			if !m.busy {
				m.busy = true
				m.status = "Reloading corpus..."
				return m, m.reload()
			}
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Past Paper Q&A")
	summary := dimStyle.Render(m.summary)
	settings := dimStyle.Render(fmt.Sprintf("mode: %s   retrieval: %s   top-k: %d",
		m.mode, m.retrieval, m.topK))
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	answer := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + settings + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) ask(query string) tea.Cmd {
	opts := service.AskOptions{Mode: m.mode, Retrieval: m.retrieval, TopK: m.topK}
	return func() tea.Msg {
		ans, err := m.qa.Ask(context.Background(), query, opts)
		return answerMsg{query: query, ans: ans, err: err}
	}
}

func (m Model) reload() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.qa.Reload(context.Background())
		return reloadMsg{stats: stats, err: err}
	}
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet. Ask about a topic, a unit, or a past exam question."
	}
	var sb strings.Builder
	sb.WriteString(m.answer.Text)
	if len(m.answer.Context) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(sourceHeaderStyle.Render("Sources"))
		for _, r := range m.answer.Context {
			year := "unknown"
			if r.Entry.Year != 0 {
				year = fmt.Sprintf("%d", r.Entry.Year)
			}
			sb.WriteString(fmt.Sprintf("\n[Q%d] %s, %s  score=%.2f\n", r.Rank, r.Entry.Unit, year, r.Score))
			sb.WriteString(dimStyle.Render(clip(r.Entry.Text, 200)))
		}
	}
	return sb.String()
}

// StatsSummary formats catalog statistics for the summary line.
func StatsSummary(st domain.Stats) string {
	return fmt.Sprintf("%d questions across %d units", st.Total, len(st.PerUnit))
}

func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrGenerationUnavailable):
		return "Generation backend unreachable. Is the model server running?"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "Empty question."
	default:
		return "Error: " + err.Error()
	}
}

func nextMode(m domain.Mode) domain.Mode {
	modes := domain.Modes()
	for i, c := range modes {
		if c == m {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}

func nextRetrieval(c service.RetrievalChoice) service.RetrievalChoice {
	switch c {
	case service.RetrievalAuto:
		return service.RetrievalOn
	case service.RetrievalOn:
		return service.RetrievalOff
	default:
		return service.RetrievalAuto
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// clip shortens s to at most n bytes on a rune boundary.
func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

var (
	answerBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sourceHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
