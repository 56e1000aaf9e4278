package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdf-rag/internal/domain"
)

// FailureMessage is shown for any query error other than invalid input.
const FailureMessage = "Chat request failed. Please try again."

// AnswerPort is the TUI-facing subset of the RAG service.
type AnswerPort interface {
	AnswerQuery(ctx context.Context, query string) (*domain.AnswerResult, error)
}

type answerMsg struct {
	result *domain.AnswerResult
	err    error
}

type turn struct {
	query  string
	result *domain.AnswerResult
	failed string
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	ctx      context.Context
	service  AnswerPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	turns    []turn
	title    string
	status   string
	cursor   int
	waiting  bool
	ready    bool
}

// New creates a chat model. ctx bounds every query the model issues.
func New(ctx context.Context, service AnswerPort, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		title:    title,
		status:   "Ready. Enter a question, up/down to browse context.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.waiting = false
		t := &m.turns[len(m.turns)-1]
		if msg.err != nil {
			t.failed = errorText(msg.err)
			m.status = t.failed
		} else {
			t.result = msg.result
			m.status = fmt.Sprintf("Answered by %s with %d context snippet(s)", msg.result.Source, len(msg.result.Context))
		}
		m.cursor = 0
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.turns = append(m.turns, turn{query: q})
			m.waiting = true
			m.status = "Thinking..."
			m.refresh()
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case "down":
			if n := m.snippetCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.refresh()
				return m, nil
			}
		case "up":
			if n := m.snippetCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.refresh()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(query string) tea.Cmd {
	ctx, service := m.ctx, m.service
	return func() tea.Msg {
		res, err := service.AnswerQuery(ctx, query)
		return answerMsg{result: res, err: err}
	}
}

func errorText(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return "Please enter a question."
	}
	return FailureMessage
}

// View renders the TUI layout and current conversation.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.title)
	status := m.status
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		resultBoxStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) snippetCount() int {
	if len(m.turns) == 0 {
		return 0
	}
	if r := m.turns[len(m.turns)-1].result; r != nil {
		return len(r.Context)
	}
	return 0
}

func (m Model) renderConversation() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(queryStyle.Render("You: " + t.query))
		b.WriteString("\n")
		switch {
		case t.failed != "":
			b.WriteString(errorStyle.Render(t.failed))
		case t.result == nil:
			b.WriteString("...")
		default:
			b.WriteString(t.result.Answer)
			if i == len(m.turns)-1 {
				b.WriteString(m.renderSnippet(t))
			}
		}
	}
	return b.String()
}

func (m Model) renderSnippet(t turn) string {
	if len(t.result.Context) == 0 {
		return ""
	}
	s := t.result.Context[m.cursor]
	title := fmt.Sprintf("Context %d/%d", m.cursor+1, len(t.result.Context))
	if name, ok := s.Metadata["filename"]; ok {
		title += fmt.Sprintf("  %v", name)
	}
	if page, ok := s.Metadata["page"]; ok {
		title += fmt.Sprintf(" p.%v", page)
	}
	return "\n\n" + contextTitleStyle.Render(title) + "\n" + highlightBestSentence(s.Content, t.query)
}

var (
	resultBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	queryStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	contextTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unicodeWordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe        = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences, best := bestSentence(text, query)
	for i := range sentences {
		if i == best {
			sentences[i] = highlightStyle.Render(sentences[i])
		}
	}
	return strings.Join(sentences, " ")
}

// bestSentence splits text into trimmed sentences and returns the index of the one
// sharing the most words with query, or -1 when query has no words.
func bestSentence(text, query string) ([]string, int) {
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return sentences, -1
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return sentences, bestIdx
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
