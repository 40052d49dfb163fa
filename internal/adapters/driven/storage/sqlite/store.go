package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/concierge/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// DatabaseFileName is the database file inside the data directory.
const DatabaseFileName = "concierge.db"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.concierge/data/concierge.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".concierge", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFileName)

	// WAL lets queries read while a rebuild writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SnapshotStore returns a SnapshotStore interface backed by this store.
func (s *Store) SnapshotStore() driven.SnapshotStore {
	return &snapshotStore{store: s}
}

// UnresolvedStore returns an UnresolvedStore interface backed by this store.
func (s *Store) UnresolvedStore() driven.UnresolvedStore {
	return &unresolvedStore{store: s}
}

// StatsStore returns a StatsStore interface backed by this store.
func (s *Store) StatsStore() driven.StatsStore {
	return &statsStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Snapshot Store ====================

// snapshotStore implements driven.SnapshotStore.
type snapshotStore struct {
	store *Store
}

var _ driven.SnapshotStore = (*snapshotStore)(nil)

// SaveSnapshot replaces the stored snapshot in a single transaction.
func (s *snapshotStore) SaveSnapshot(ctx context.Context, data *driven.SnapshotData) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"index_meta", "qa_entries", "chunk_entries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	m := data.Meta
	_, err = tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, embedding_model, dimensions, chunk_size, chunk_overlap,
			documents, chunks, qa_pairs, built_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.EmbeddingModel, m.Dimensions, m.ChunkSize, m.ChunkOverlap,
		m.Documents, m.Chunks, m.QAPairs, m.BuiltAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting index meta: %w", err)
	}

	qaStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO qa_entries (position, question, answer, embedding) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing Q&A insert: %w", err)
	}
	defer qaStmt.Close()

	for i, e := range data.QA {
		if _, err := qaStmt.ExecContext(ctx, i, e.Payload.Question, e.Payload.Answer,
			float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("inserting Q&A entry %d: %w", i, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_entries (position, source, chunk_id, start_char, end_char, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	for i, e := range data.Chunks {
		c := e.Payload
		if _, err := chunkStmt.ExecContext(ctx, i, c.Source, c.ChunkID, c.StartChar, c.EndChar, c.Text,
			float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("inserting chunk entry %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot returns the stored snapshot, or domain.ErrNotFound.
func (s *snapshotStore) LoadSnapshot(ctx context.Context) (*driven.SnapshotData, error) {
	var data driven.SnapshotData
	m := &data.Meta

	err := s.store.db.QueryRowContext(ctx, `
		SELECT embedding_model, dimensions, chunk_size, chunk_overlap, documents, chunks, qa_pairs, built_at
		FROM index_meta WHERE id = 1
	`).Scan(&m.EmbeddingModel, &m.Dimensions, &m.ChunkSize, &m.ChunkOverlap,
		&m.Documents, &m.Chunks, &m.QAPairs, &m.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying index meta: %w", err)
	}

	qa, err := s.loadQA(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := s.loadChunks(ctx)
	if err != nil {
		return nil, err
	}
	data.QA = qa
	data.Chunks = chunks

	if len(qa) != m.QAPairs || len(chunks) != m.Chunks {
		return nil, fmt.Errorf("snapshot is incomplete: meta lists %d Q&A pairs and %d chunks, found %d and %d",
			m.QAPairs, m.Chunks, len(qa), len(chunks))
	}

	return &data, nil
}

func (s *snapshotStore) loadQA(ctx context.Context) ([]domain.IndexEntry[domain.QAPair], error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT question, answer, embedding FROM qa_entries ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying Q&A entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry[domain.QAPair]
	for rows.Next() {
		var (
			e    domain.IndexEntry[domain.QAPair]
			blob []byte
		)
		if err := rows.Scan(&e.Payload.Question, &e.Payload.Answer, &blob); err != nil {
			return nil, fmt.Errorf("scanning Q&A entry: %w", err)
		}
		e.Vector = bytesToFloat32Slice(blob)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *snapshotStore) loadChunks(ctx context.Context) ([]domain.IndexEntry[domain.Chunk], error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source, chunk_id, start_char, end_char, text, embedding
		FROM chunk_entries ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunk entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry[domain.Chunk]
	for rows.Next() {
		var (
			e    domain.IndexEntry[domain.Chunk]
			c    = &e.Payload
			blob []byte
		)
		if err := rows.Scan(&c.Source, &c.ChunkID, &c.StartChar, &c.EndChar, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk entry: %w", err)
		}
		e.Vector = bytesToFloat32Slice(blob)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ==================== Unresolved Store ====================

// unresolvedStore implements driven.UnresolvedStore.
type unresolvedStore struct {
	store *Store
}

var _ driven.UnresolvedStore = (*unresolvedStore)(nil)

// RecordUnresolved inserts q or, for a query already recorded, bumps its
// count and refreshes the latest query ID, diagnostics and time.
func (s *unresolvedStore) RecordUnresolved(ctx context.Context, q domain.UnresolvedQuery) error {
	now := time.Now().UTC()
	first, last := q.FirstSeen, q.LastSeen
	if first.IsZero() {
		first = now
	}
	if last.IsZero() {
		last = now
	}
	count := max(q.Count, 1)

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO unresolved_queries (
			query, query_id, reason, label, short_answer_similarity, retrieval_confidence,
			count, first_seen, last_seen
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			query_id = excluded.query_id,
			reason = excluded.reason,
			label = excluded.label,
			short_answer_similarity = excluded.short_answer_similarity,
			retrieval_confidence = excluded.retrieval_confidence,
			count = unresolved_queries.count + excluded.count,
			last_seen = excluded.last_seen
	`, strings.TrimSpace(q.Query), q.QueryID, q.Reason, q.Label, q.ShortAnswerSimilarity,
		q.RetrievalConfidence, count, first.UTC(), last.UTC())
	if err != nil {
		return fmt.Errorf("recording unresolved query: %w", err)
	}
	return nil
}

// ListUnresolved returns records by most recent first. A limit of zero
// or less returns every record.
func (s *unresolvedStore) ListUnresolved(ctx context.Context, limit int) ([]domain.UnresolvedQuery, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT query, query_id, reason, label, short_answer_similarity, retrieval_confidence,
			count, first_seen, last_seen
		FROM unresolved_queries
		ORDER BY last_seen DESC, query
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unresolved queries: %w", err)
	}
	defer rows.Close()

	var out []domain.UnresolvedQuery
	for rows.Next() {
		var q domain.UnresolvedQuery
		if err := rows.Scan(
			&q.Query, &q.QueryID, &q.Reason, &q.Label, &q.ShortAnswerSimilarity,
			&q.RetrievalConfidence, &q.Count, &q.FirstSeen, &q.LastSeen,
		); err != nil {
			return nil, fmt.Errorf("scanning unresolved query: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ==================== Stats Store ====================

// statsStore implements driven.StatsStore.
type statsStore struct {
	store *Store
}

var _ driven.StatsStore = (*statsStore)(nil)

// IncrementQuery adds one to the counter for query. Queries too short to
// be meaningful are ignored.
func (s *statsStore) IncrementQuery(ctx context.Context, query string) error {
	key, ok := domain.StatQueryKey(query)
	if !ok {
		return nil
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO query_stats (query, count, last_asked) VALUES (?, 1, ?)
		ON CONFLICT(query) DO UPDATE SET
			count = query_stats.count + 1,
			last_asked = excluded.last_asked
	`, key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("incrementing query count: %w", err)
	}
	return nil
}

// TopQueries returns up to n queries by descending count. Ties are
// broken by the most recently asked.
func (s *statsStore) TopQueries(ctx context.Context, n int) ([]domain.QueryCount, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT query, count FROM query_stats
		ORDER BY count DESC, last_asked DESC, query
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("querying top queries: %w", err)
	}
	defer rows.Close()

	var out []domain.QueryCount
	for rows.Next() {
		var qc domain.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scanning query count: %w", err)
		}
		out = append(out, qc)
	}
	return out, rows.Err()
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a little-endian byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
