package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	file        TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	message     TEXT NOT NULL,
	assertions  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS results_run_id ON results(run_id);
`

// Run is one recorded invocation of the runner.
type Run struct {
	ID        string
	StartedAt time.Time
	Passed    int
	Failed    int
	Duration  time.Duration
}

// FileResult is the stored outcome of one test file.
type FileResult struct {
	File       string
	Passed     bool
	Kind       string
	Message    string
	Assertions int64
	Duration   time.Duration
}

// Store persists run results in a SQLite database.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	now          func() time.Time
}

// Open connects to the database named by dsn, creating the schema when
// needed. dsn is a file path, optionally prefixed with sqlite: or sqlite://.
func Open(dsn string) (*Store, error) {
	path, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{
		db:           db,
		queryTimeout: 30 * time.Second,
		now:          time.Now,
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores run and all of its file results, returning the new run ID.
func (s *Store) Record(run *runner.RunResult) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	started := s.now().Add(-run.Duration).UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, passed, failed, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		id, started.Format(time.RFC3339Nano), run.Passed, run.Failed, run.Duration.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, file, passed, kind, message, assertions, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Results {
		message := ""
		if r.Error != nil {
			message = r.Error.Error()
		}
		if _, err := stmt.ExecContext(ctx, id, r.File, r.Passed, string(r.Kind), message, r.Assertions, r.Duration.Milliseconds()); err != nil {
			return "", fmt.Errorf("failed to record result for %s: %w", r.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, passed, failed, duration_ms FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run     Run
			started string
			ms      int64
		)
		if err := rows.Scan(&run.ID, &started, &run.Passed, &run.Failed, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("run %s has invalid start time: %w", run.ID, err)
		}
		run.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Results returns the file results recorded for runID, in file order.
func (s *Store) Results(runID string) ([]FileResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT file, passed, kind, message, assertions, duration_ms FROM results WHERE run_id = ? ORDER BY file`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	results := make([]FileResult, 0)
	for rows.Next() {
		var (
			r  FileResult
			ms int64
		)
		if err := rows.Scan(&r.File, &r.Passed, &r.Kind, &r.Message, &r.Assertions, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return results, nil
}

// parseDSN accepts:
// - sqlite://path/to/history.db
// - sqlite:./history.db
// - path/to/history.db
func parseDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		dsn = strings.TrimPrefix(dsn, "sqlite:")
	case strings.Contains(dsn, "://"):
		return "", fmt.Errorf("unsupported history database: %s", dsn)
	}
	if dsn == "" {
		return "", fmt.Errorf("history database path is empty")
	}
	return dsn, nil
}
