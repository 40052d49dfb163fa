package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

func notATerminal(t *testing.T) {
	t.Helper()
	orig := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = orig })
}

func TestChat_PlainWhenNotATerminal(t *testing.T) {
	notATerminal(t)
	svc := indexedServices()
	answers := &mockAnswerService{answer: feesAnswer()}
	svc.Answer = answers

	out, err := runCLI(t, svc, "when are fees due\n\n  \nexit\nnever asked\n", "chat")

	require.NoError(t, err)
	assert.Equal(t, []string{"when are fees due"}, answers.queries)
	assert.Contains(t, out, "> ")
	assert.Contains(t, out, "Tuition is due in May.")
}

func TestChat_PlainFlag(t *testing.T) {
	svc := indexedServices()
	answers := &mockAnswerService{answer: feesAnswer()}
	svc.Answer = answers

	_, err := runCLI(t, svc, "fees\n", "chat", "--plain")

	require.NoError(t, err)
	assert.Equal(t, []string{"fees"}, answers.queries)
}

func TestChat_ValidationAndErrorsContinue(t *testing.T) {
	notATerminal(t)
	svc := indexedServices()
	svc.Answer = &mockAnswerService{err: &domain.ValidationError{Reason: "gibberish", Message: "Please rephrase."}}

	out, err := runCLI(t, svc, "zzqx\n", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "Please rephrase.")

	svc.Answer = &mockAnswerService{err: errors.New("embedder down")}
	out, err = runCLI(t, svc, "fees\nquit\n", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "Error: embedder down")
}

func TestChat_NoIndex(t *testing.T) {
	notATerminal(t)
	svc := indexedServices()
	svc.Index = &mockIndexService{err: domain.ErrIndexUnavailable}

	_, err := runCLI(t, svc, "", "chat")

	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}
