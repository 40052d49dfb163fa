package filesystem

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/normalisers"
)

func TestReadQAPairs(t *testing.T) {
	csvData := "Question,Answers\n" +
		"What is the tuition fee?,\"90,000 per year.\"\n" +
		"  Where is the library?  , Block B.\n" +
		",orphan answer\n" +
		"No answer here,\n" +
		"what is the tuition fee?,duplicate\n" +
		"\"Multi\nline?\",\"Yes, it works.\"\n"

	pairs, err := readQAPairs(context.Background(), strings.NewReader(csvData), "qa.csv")
	require.NoError(t, err)
	assert.Equal(t, []domain.QAPair{
		{Question: "What is the tuition fee?", Answer: "90,000 per year."},
		{Question: "Where is the library?", Answer: "Block B."},
		{Question: "Multi\nline?", Answer: "Yes, it works."},
	}, pairs)
}

func TestReadQAPairs_HeaderVariants(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"reordered", "answers,question\nA1,Q1\n"},
		{"singular answer", "Question,Answer\nQ1,A1\n"},
		{"extra columns", "id,Question,Category,Answers\n1,Q1,misc,A1\n"},
		{"byte order mark", "\ufeffQuestion,Answers\nQ1,A1\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pairs, err := readQAPairs(context.Background(), strings.NewReader(tc.data), "qa.csv")
			require.NoError(t, err)
			assert.Equal(t, []domain.QAPair{{Question: "Q1", Answer: "A1"}}, pairs)
		})
	}
}

func TestReadQAPairs_Errors(t *testing.T) {
	_, err := readQAPairs(context.Background(), strings.NewReader(""), "qa.csv")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = readQAPairs(context.Background(), strings.NewReader("Prompt,Reply\nq,a\n"), "qa.csv")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "Question and Answers")

	_, err = readQAPairs(context.Background(), strings.NewReader("Question,Answers\n\"unterminated,a\n"), "qa.csv")
	assert.Error(t, err)
}

func TestReadQAPairs_ShortRowsSkipped(t *testing.T) {
	pairs, err := readQAPairs(context.Background(), strings.NewReader("Question,Answers\nlonely\nQ,A\n"), "qa.csv")
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestLoader_LoadQAPairs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "qa.csv", "Question,Answers\nQ1,A1\nQ2,A2\n")
	loader := NewLoader(normalisers.NewDefaultRegistry())

	pairs, err := loader.LoadQAPairs(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)

	_, err = loader.LoadQAPairs(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.ErrorContains(t, err, "open Q&A file")
}
