package filesystem

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/logger"
)

// LoadQAPairs reads a CSV file whose header names a "Question" column and
// an "Answers" (or "Answer") column, in any order and case. Rows with a
// blank question or answer are skipped, as are repeats of a question
// already seen.
func (l *Loader) LoadQAPairs(ctx context.Context, path string) ([]domain.QAPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open Q&A file: %w", err)
	}
	defer f.Close()

	return readQAPairs(ctx, f, path)
}

func readQAPairs(ctx context.Context, r io.Reader, name string) ([]domain.QAPair, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	qCol, aCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case "question", "questions":
			qCol = i
		case "answers", "answer":
			aCol = i
		}
	}
	if qCol < 0 || aCol < 0 {
		return nil, fmt.Errorf("%w: %s needs Question and Answers columns, got %v",
			domain.ErrInvalidInput, name, header)
	}

	var pairs []domain.QAPair
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if qCol >= len(record) || aCol >= len(record) {
			logger.Debug("Skipping %s line %d: missing columns", name, line)
			continue
		}

		q := strings.TrimSpace(record[qCol])
		a := strings.TrimSpace(record[aCol])
		if q == "" || a == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			logger.Debug("Skipping %s line %d: duplicate question", name, line)
			continue
		}
		seen[key] = true
		pairs = append(pairs, domain.QAPair{Question: q, Answer: a})
	}

	logger.Debug("Loaded %d Q&A pairs from %s", len(pairs), name)
	return pairs, nil
}
