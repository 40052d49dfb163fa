package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/concierge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/concierge/internal/core/domain"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.Asked())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestBar_View(t *testing.T) {
	bar := NewBar(nil, nil)

	view := bar.View()
	assert.Contains(t, view, "Ready")
	assert.Contains(t, view, "enter: ask")
}

func TestBar_SetAnswer(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)

	bar.SetAnswer(&domain.Answer{Strategy: domain.StrategyShortAnswer, Confidence: 0.82})
	assert.Equal(t, StateAnswered, bar.State())
	assert.Equal(t, 1, bar.Asked())
	assert.Contains(t, bar.View(), "SHORT_ANSWER")
	assert.Contains(t, bar.View(), "0.82")

	bar.SetAnswer(&domain.Answer{Refused: true})
	assert.Equal(t, 2, bar.Asked())
	assert.Contains(t, bar.View(), "Declined")
}

func TestBar_SetError(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)

	bar.SetError(errors.New("index unavailable"))
	assert.Equal(t, StateError, bar.State())
	assert.Contains(t, bar.View(), "Error: index unavailable")
}

func TestBar_Thinking(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateThinking)
	assert.Contains(t, bar.View(), "Thinking...")
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetAnswer(&domain.Answer{Strategy: domain.StrategyRule, Confidence: 1})
	bar.SetMessage("hello")

	bar.Clear()
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 1, bar.Asked())
}

func TestBar_NarrowWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(10)
	assert.NotEmpty(t, bar.View())
}
