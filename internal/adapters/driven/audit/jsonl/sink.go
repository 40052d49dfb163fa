// Package jsonl provides an audit sink that appends events to a JSON lines
// file using a log/slog JSON handler.
package jsonl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.AuditSink = (*Sink)(nil)

// Sink writes one JSON object per audit event.
type Sink struct {
	logger *slog.Logger
	closer io.Closer
	once   sync.Once
}

// Open appends to the file at path, creating it and its directory.
func Open(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	s := New(f)
	s.closer = f
	return s, nil
}

// New writes events to w. The caller owns w.
func New(w io.Writer) *Sink {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// The event carries its own timestamp; drop the record's.
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return &Sink{logger: slog.New(handler)}
}

// Emit writes the event as a single line.
func (s *Sink) Emit(ctx context.Context, event domain.AuditEvent) {
	attrs := []slog.Attr{
		slog.String("query_id", event.QueryID),
		slog.String("stage", string(event.Stage)),
		slog.Time("timestamp", event.Timestamp),
		slog.Float64("confidence", event.Confidence),
		slog.Int64("latency_ms", event.LatencyMS),
	}
	if event.Strategy != "" {
		attrs = append(attrs, slog.String("strategy", string(event.Strategy)))
	}
	if event.Decision != "" {
		attrs = append(attrs, slog.String("decision", event.Decision))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for k := range event.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]any, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, slog.Any(k, event.Fields[k]))
		}
		attrs = append(attrs, slog.Group("fields", fields...))
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

// Close closes the file opened by Open.
func (s *Sink) Close() error {
	var err error
	s.once.Do(func() {
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}
