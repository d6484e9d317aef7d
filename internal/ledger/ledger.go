package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Run is one transcription invocation.
type Run struct {
	ID         string
	Input      string
	Output     string
	Mode       string
	Status     string
	Chunks     int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Chunk is the outcome of one recognized segment.
type Chunk struct {
	RunID    string
	Index    int
	Path     string
	Offset   time.Duration
	Duration time.Duration
	Words    int
	Status   string
	Error    string
}

// Store keeps run history in SQLite. A Store opened while disabled accepts
// every call and persists nothing.
type Store struct {
	db    *sql.DB
	log   *logrus.Logger
	clock func() time.Time
}

// Open initializes the ledger at path, or a no-op store when disabled.
func Open(ctx context.Context, enabled bool, path string, log *logrus.Logger) (*Store, error) {
	if !enabled {
		return &Store{log: log, clock: time.Now}, nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    input TEXT NOT NULL,
    output TEXT,
    mode TEXT,
    status TEXT NOT NULL,
    chunks INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS chunks (
    run_id TEXT NOT NULL,
    idx INTEGER NOT NULL,
    path TEXT,
    offset_ms INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    words INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY(run_id, idx),
    FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Enabled reports whether the store persists anything.
func (s *Store) Enabled() bool { return s != nil && s.db != nil }

// Close releases underlying resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, r Run) error {
	if s == nil || s.db == nil {
		return nil
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, input, output, mode, status, chunks, started_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Input, r.Output, r.Mode, StatusRunning, r.Chunks, r.StartedAt)
	return err
}

// SetChunks records how many segments the run was split into.
func (s *Store) SetChunks(ctx context.Context, runID string, n int) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET chunks = ? WHERE id = ?`, n, runID)
	return err
}

// RecordChunk upserts the outcome of one segment.
func (s *Store) RecordChunk(ctx context.Context, c Chunk) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks(run_id, idx, path, offset_ms, duration_ms, words, status, error, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, idx) DO UPDATE SET words=excluded.words, status=excluded.status, error=excluded.error`,
		c.RunID, c.Index, c.Path, c.Offset.Milliseconds(), c.Duration.Milliseconds(), c.Words, c.Status, c.Error, s.clock().UTC())
	return err
}

// FinishRun marks a run done or failed.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	if s == nil || s.db == nil {
		return nil
	}
	status, msg := StatusDone, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, msg, s.clock().UTC(), runID)
	return err
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, output, mode, status, chunks, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var (
			r        Run
			output   sql.NullString
			mode     sql.NullString
			errMsg   sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Input, &output, &mode, &r.Status, &r.Chunks, &errMsg, &r.StartedAt, &finished); err != nil {
			return nil, err
		}
		r.Output, r.Mode, r.Error = output.String, mode.String, errMsg.String
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListChunks returns the chunks of a run in index order.
func (s *Store) ListChunks(ctx context.Context, runID string) ([]Chunk, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, idx, path, offset_ms, duration_ms, words, status, error
		 FROM chunks WHERE run_id = ? ORDER BY idx ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		var (
			c          Chunk
			path, msg  sql.NullString
			offMS, dMS int64
		)
		if err := rows.Scan(&c.RunID, &c.Index, &path, &offMS, &dMS, &c.Words, &c.Status, &msg); err != nil {
			return nil, err
		}
		c.Path, c.Error = path.String, msg.String
		c.Offset = time.Duration(offMS) * time.Millisecond
		c.Duration = time.Duration(dMS) * time.Millisecond
		out = append(out, c)
	}
	return out, rows.Err()
}
