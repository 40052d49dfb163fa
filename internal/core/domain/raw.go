package domain

import "path/filepath"

// RawDocument represents opaque bytes read from the corpus before
// normalisation.
type RawDocument struct {
	// URI is the original location (usually a file path).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any
}

// SourceName returns the name a document is attributed to: the "source"
// metadata value when the loader set one, otherwise the file name.
func (r *RawDocument) SourceName() string {
	if src, ok := r.Metadata["source"].(string); ok && src != "" {
		return src
	}
	return filepath.Base(r.URI)
}

// ChangeType represents the type of corpus change.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// String returns the change name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// CorpusChange is a file event observed under a corpus directory.
type CorpusChange struct {
	Type ChangeType
	Path string
}
