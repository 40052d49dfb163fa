// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/concierge/internal/core/domain"
)

// State represents the chat state for display.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateAnswered State = "answered"
	StateError    State = "error"
)

// Bar displays the chat state, the last answer's provenance and key hints.
type Bar struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	state      State
	message    string
	strategy   domain.Strategy
	confidence float64
	asked      int
	width      int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateThinking:
		return b.styles.Muted.Render("Thinking...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateAnswered:
		if b.strategy == "" {
			return b.styles.Muted.Render(fmt.Sprintf("Declined | %d asked", b.asked))
		}
		score := lipgloss.NewStyle().
			Foreground(b.styles.ConfidenceColour(b.confidence)).
			Render(fmt.Sprintf("%.2f", b.confidence))
		return b.styles.Muted.Render(fmt.Sprintf("%s ", b.strategy)) + score +
			b.styles.Muted.Render(fmt.Sprintf(" | %d asked", b.asked))
	case StateReady:
	}
	if b.message != "" {
		return b.styles.Muted.Render(b.message)
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) renderRight() string {
	bindings := b.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetAnswer records the outcome of the last question.
func (b *Bar) SetAnswer(ans *domain.Answer) {
	b.asked++
	b.state = StateAnswered
	b.message = ""
	b.strategy = ans.Strategy
	b.confidence = ans.Confidence
}

// SetError shows err.
func (b *Bar) SetError(err error) {
	b.state = StateError
	b.message = err.Error()
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets a custom message.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// Asked returns how many questions were answered or declined.
func (b *Bar) Asked() int {
	return b.asked
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the current width.
func (b *Bar) Width() int {
	return b.width
}

// Clear resets the status bar to the ready state.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.strategy = ""
	b.confidence = 0
}

