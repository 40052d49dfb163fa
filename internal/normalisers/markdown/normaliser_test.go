package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.NotNil(t, normaliser.md)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/markdown")
	assert.Contains(t, mimeTypes, "text/x-markdown")
	assert.Len(t, mimeTypes, 2)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/srv/docs/hostel.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Hostel\n\nRooms are **shared** and [booked online](https://example.edu/rooms).\n"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, result)

	doc := result.Document
	assert.Equal(t, "hostel.md", doc.Source)
	assert.Equal(t, "Hostel\n\nRooms are shared and booked online.", doc.Content)
	assert.Equal(t, Format, doc.Format)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_EmptyContent(t *testing.T) {
	raw := &domain.RawDocument{URI: "/srv/docs/empty.md", MIMEType: "text/markdown"}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, result.Document.Content)
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain paragraph",
			input: "Hello World",
			want:  "Hello World",
		},
		{
			name:  "headings keep their text",
			input: "# Title\n\n## Subtitle\n\nBody.",
			want:  "Title\n\nSubtitle\n\nBody.",
		},
		{
			name:  "fenced code removed",
			input: "Intro.\n\n```go\nfmt.Println(1)\n```\n\nOutro.",
			want:  "Intro.\n\nOutro.",
		},
		{
			name:  "inline code text kept",
			input: "Run `make` now.",
			want:  "Run make now.",
		},
		{
			name:  "image removed",
			input: "See ![campus map](map.png) here.",
			want:  "See here.",
		},
		{
			name:  "emphasis markers removed",
			input: "_italic_ and *more* and __strong__",
			want:  "italic and more and strong",
		},
		{
			name:  "soft line break joins lines",
			input: "line one\nline two",
			want:  "line one line two",
		},
		{
			name:  "blockquote",
			input: "> quoted text",
			want:  "quoted text",
		},
		{
			name:  "tight list",
			input: "- one\n- two\n- three",
			want:  "one\ntwo\nthree",
		},
		{
			name:  "ordered list",
			input: "1. first\n2. second",
			want:  "first\nsecond",
		},
		{
			name:  "thematic break removed",
			input: "above\n\n---\n\nbelow",
			want:  "above\n\nbelow",
		},
		{
			name:  "html block removed",
			input: "<div>\nhidden\n</div>\n\nshown",
			want:  "shown",
		},
		{
			name:  "autolink keeps address",
			input: "Mail <admissions@example.edu> today.",
			want:  "Mail admissions@example.edu today.",
		},
	}

	n := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.extractText([]byte(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalise_ComplexMarkdown(t *testing.T) {
	complexMarkdown := "# Admissions Guide\n\n" +
		"Welcome to the **admissions** guide.\n\n" +
		"## Deadlines\n\n" +
		"- Early round closes in *March*\n" +
		"- Final round closes in June\n\n" +
		"```bash\ncurl https://example.edu\n```\n\n" +
		"> Late applications are reviewed case by case.\n\n" +
		"See [the portal](https://example.edu/portal) for details.\n"

	raw := &domain.RawDocument{URI: "/srv/docs/guide.md", MIMEType: "text/markdown", Content: []byte(complexMarkdown)}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	content := result.Document.Content
	assert.Contains(t, content, "Admissions Guide")
	assert.Contains(t, content, "Welcome to the admissions guide.")
	assert.Contains(t, content, "Early round closes in March")
	assert.Contains(t, content, "Late applications are reviewed case by case.")
	assert.Contains(t, content, "See the portal for details.")
	assert.NotContains(t, content, "curl")
	assert.NotContains(t, content, "**")
	assert.NotContains(t, content, "https://")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func BenchmarkNormalise(b *testing.B) {
	normaliser := New()
	ctx := context.Background()
	raw := &domain.RawDocument{
		URI:     "/test/doc.md",
		Content: []byte("# Title\n\nSome **bold** text with [a link](https://example.com).\n\n- item\n- item"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = normaliser.Normalise(ctx, raw)
	}
}
