// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

// popularCount is how many popular questions the welcome screen lists.
const popularCount = 5

// ErrNoAnswerService is returned when the view has no answer service.
var ErrNoAnswerService = errors.New("answer service not available")

// turn is one question and its outcome.
type turn struct {
	query  string
	answer *domain.Answer
	err    error
}

// View is a scrolling transcript above a question input and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	statusbar *status.Bar
	viewport  viewport.Model

	answerService driving.AnswerService
	statsService  driving.StatsService
	ctx           context.Context

	turns    []turn
	popular  []domain.QueryCount
	pending  string
	explain  bool
	width    int
	height   int
	ready    bool
	quitting bool
}

// NewView creates a new chat view. The stats service is optional.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
	statsService driving.StatsService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		statusbar:     status.NewBar(s, km),
		viewport:      viewport.New(80, 20),
		answerService: answerService,
		statsService:  statsService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
	}
	v.refresh()
	return v
}

// WithContext sets the context questions are answered under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor and loads popular questions.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadPopular())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.PopularLoaded:
		if msg.Err == nil {
			v.popular = msg.Queries
			v.refresh()
		}
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Quit):
		v.quitting = true
		return v, tea.Quit

	case keymap.Matches(key, v.keymap.Send):
		return v, v.submit()

	case keymap.Matches(key, v.keymap.ScrollUp), keymap.Matches(key, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case keymap.Matches(key, v.keymap.Clear):
		v.turns = nil
		v.statusbar.Clear()
		v.refresh()
		return v, nil

	case keymap.Matches(key, v.keymap.Explain):
		v.explain = !v.explain
		v.refresh()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the typed question. One question is in flight at a time.
func (v *View) submit() tea.Cmd {
	query := v.input.Value()
	if query == "" || v.pending != "" {
		return nil
	}
	v.pending = query
	v.input.Reset()
	v.statusbar.SetState(status.StateThinking)
	v.refresh()
	return v.ask(query)
}

func (v *View) ask(query string) tea.Cmd {
	svc, ctx := v.answerService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.AnswerReceived{Query: query, Err: ErrNoAnswerService}
		}
		ans, err := svc.Ask(ctx, query)
		return messages.AnswerReceived{Query: query, Answer: ans, Err: err}
	}
}

func (v *View) loadPopular() tea.Cmd {
	svc, ctx := v.statsService, v.ctx
	if svc == nil {
		return nil
	}
	return func() tea.Msg {
		top, err := svc.TopQueries(ctx, popularCount)
		return messages.PopularLoaded{Queries: top, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.pending = ""
	v.turns = append(v.turns, turn{query: msg.Query, answer: msg.Answer, err: msg.Err})

	var ve *domain.ValidationError
	switch {
	case errors.As(msg.Err, &ve):
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage(ve.Reason)
	case msg.Err != nil:
		v.statusbar.SetError(msg.Err)
	case msg.Answer != nil:
		v.statusbar.SetAnswer(msg.Answer)
	}
	v.refresh()
}

// refresh re-renders the transcript and scrolls to the latest turn.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(max(v.viewport.Width-2, 20))
	var b strings.Builder

	if len(v.turns) == 0 && v.pending == "" {
		b.WriteString(v.styles.Muted.Render("Ask a question about the college."))
		b.WriteString("\n")
		if len(v.popular) > 0 {
			b.WriteString("\n")
			b.WriteString(v.styles.Muted.Render("Popular questions:"))
			b.WriteString("\n")
			for _, q := range v.popular {
				b.WriteString(v.styles.Provenance.Render("- " + q.Query))
				b.WriteString("\n")
			}
		}
		return b.String()
	}

	for _, t := range v.turns {
		b.WriteString(v.styles.Question.Render("You: " + t.query))
		b.WriteString("\n")
		b.WriteString(wrap.Render(v.renderOutcome(t)))
		b.WriteString("\n\n")
	}
	if v.pending != "" {
		b.WriteString(v.styles.Question.Render("You: " + v.pending))
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderOutcome(t turn) string {
	var ve *domain.ValidationError
	switch {
	case errors.As(t.err, &ve):
		return v.styles.Refusal.Render(ve.Message)
	case t.err != nil:
		return v.styles.Error.Render("Error: " + t.err.Error())
	case t.answer == nil:
		return ""
	case t.answer.Refused:
		return v.styles.Refusal.Render(t.answer.Text)
	}

	ans := t.answer
	lines := []string{v.styles.Answer.Render(ans.Text)}

	score := lipgloss.NewStyle().
		Foreground(v.styles.ConfidenceColour(ans.Confidence)).
		Render(fmt.Sprintf("%.2f", ans.Confidence))
	lines = append(lines, v.styles.Provenance.Render(ans.Strategy.Description()+" ")+score)
	for _, a := range ans.Attributions {
		lines = append(lines, v.styles.Provenance.Render(fmt.Sprintf("source: %s (chunk %d)", a.Source, a.ChunkID)))
	}

	if v.explain {
		if c := ans.Classification; c != nil {
			lines = append(lines, v.styles.Provenance.Render(fmt.Sprintf("label: %s (%.2f)", c.Label, c.Confidence)))
		}
		lines = append(lines, v.styles.Provenance.Render("routing: "+ans.Decision.Reason))
		for _, at := range ans.Attempts {
			verdict := "rejected"
			if at.Accepted {
				verdict = "accepted"
			}
			lines = append(lines, v.styles.Provenance.Render(
				fmt.Sprintf("%s %.2f %s", at.Strategy, at.Confidence, verdict)))
		}
	}
	return strings.Join(lines, "\n")
}

// View renders the chat.
func (v *View) View() string {
	if v.quitting {
		return ""
	}
	title := v.styles.Title.Render("Concierge")
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		v.viewport.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sizes the transcript to fill what the title, input and
// status bar leave.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	// Title, bordered input (3) and status bar.
	v.viewport.Width = width
	v.viewport.Height = max(height-5, 3)
	v.refresh()
}

// Explaining reports whether routing details are shown.
func (v *View) Explaining() bool {
	return v.explain
}

// Pending returns the question awaiting an answer, if any.
func (v *View) Pending() string {
	return v.pending
}

// Turns returns how many questions have been answered or rejected.
func (v *View) Turns() int {
	return len(v.turns)
}

// Ready reports whether the view has received its size.
func (v *View) Ready() bool {
	return v.ready
}
