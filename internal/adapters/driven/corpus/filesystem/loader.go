package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
	"github.com/custodia-labs/concierge/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.CorpusLoader = (*Loader)(nil)

// DefaultMaxFileSize caps the size of a single corpus file.
const DefaultMaxFileSize = 32 << 20

// Loader reads corpus files through a normaliser registry.
type Loader struct {
	registry    driven.NormaliserRegistry
	supported   map[string]bool
	maxFileSize int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(l *Loader) { l.maxFileSize = n }
}

// NewLoader creates a loader that normalises files with registry.
func NewLoader(registry driven.NormaliserRegistry, opts ...Option) *Loader {
	l := &Loader{
		registry:    registry,
		supported:   make(map[string]bool),
		maxFileSize: DefaultMaxFileSize,
	}
	for _, mt := range registry.SupportedMIMETypes() {
		l.supported[mt] = true
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDocuments walks dir in lexical order and normalises every supported
// file. A file that cannot be read or normalised is logged and skipped;
// documents whose text is blank are dropped.
func (l *Loader) LoadDocuments(ctx context.Context, dir string) ([]domain.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", dir)
	}

	var docs []domain.Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			logger.Warn("Skipping %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		if rel != "." && isHidden(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		mimeType := detectMIMEType(path)
		if !l.supported[mimeType] {
			logger.Debug("Skipping %s: unsupported type %s", rel, mimeType)
			return nil
		}

		doc, err := l.loadFile(ctx, path, filepath.ToSlash(rel), mimeType)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Warn("Skipping %s: %v", rel, err)
			return nil
		}
		if strings.TrimSpace(doc.Content) == "" {
			logger.Debug("Skipping %s: no text", rel)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	logger.Debug("Loaded %d documents from %s", len(docs), dir)
	return docs, nil
}

func (l *Loader) loadFile(ctx context.Context, path, source, mimeType string) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, err
	}
	if info.Size() > l.maxFileSize {
		return domain.Document{}, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), l.maxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}

	result, err := l.registry.Normalise(ctx, &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{
			"source":    source,
			"filename":  filepath.Base(path),
			"extension": strings.TrimPrefix(filepath.Ext(path), "."),
			"size":      info.Size(),
			"modified":  info.ModTime(),
		},
	})
	if err != nil {
		return domain.Document{}, err
	}
	return result.Document, nil
}
