package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/cyber-boost/tusktsk/pkg/core"
)

var errNotOpened = errors.New("database not opened")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// NewFromDB wraps an open database. The schema is not touched.
func NewFromDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens a connection to the SQLite database, creating parent
// directories as needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if path == ":memory:" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state store", slog.String("path", path))
	return nil
}

// Open opens and migrates the store at path.
func Open(path string, logger *slog.Logger) (*SQLiteStore, error) {
	s := NewSQLiteStore(logger)
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.InitSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema brings the schema up to date.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return errNotOpened
	}
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

func generateID() string {
	return uuid.New().String()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// --- Builds ---

// StartBuild creates a running build.
func (s *SQLiteStore) StartBuild(ctx context.Context) (*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	b := &Build{
		ID:        generateID(),
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		Status:    BuildStatusRunning,
	}
	s.logger.Debug("starting build", slog.String("id", b.ID))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, started_at, status) VALUES (?, ?, ?)`,
		b.ID, toMillis(b.StartedAt), string(b.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start build: %w", err)
	}
	return b, nil
}

// FinishBuild records the outcome of a build.
func (s *SQLiteStore) FinishBuild(ctx context.Context, id string, status BuildStatus, files, errs int) error {
	if s.db == nil {
		return errNotOpened
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE builds SET finished_at = ?, status = ?, files = ?, errors = ? WHERE id = ?`,
		toMillis(time.Now()), string(status), files, errs, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish build: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	return nil
}

const buildColumns = `id, started_at, finished_at, status, files, errors`

func scanBuild(row interface{ Scan(...any) error }) (*Build, error) {
	var (
		b        Build
		started  int64
		finished sql.NullInt64
		status   string
	)
	if err := row.Scan(&b.ID, &started, &finished, &status, &b.Files, &b.Errors); err != nil {
		return nil, err
	}
	b.StartedAt = fromMillis(started)
	if finished.Valid {
		t := fromMillis(finished.Int64)
		b.FinishedAt = &t
	}
	b.Status = BuildStatus(status)
	return &b, nil
}

// GetBuild retrieves a build by ID.
func (s *SQLiteStore) GetBuild(ctx context.Context, id string) (*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}
	return b, nil
}

// ListBuilds returns the most recent builds, newest first. A limit of
// zero or less returns all builds.
func (s *SQLiteStore) ListBuilds(ctx context.Context, limit int) ([]*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- Artifacts ---

// RecordArtifact inserts or replaces the artifact for a source file.
func (s *SQLiteStore) RecordArtifact(ctx context.Context, a *Artifact) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (source_path, source_hash, artifact_path, size, algorithm, compiled_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_path) DO UPDATE SET
		   source_hash = excluded.source_hash,
		   artifact_path = excluded.artifact_path,
		   size = excluded.size,
		   algorithm = excluded.algorithm,
		   compiled_at = excluded.compiled_at`,
		a.SourcePath, a.SourceHash, a.ArtifactPath, a.Size, a.Algorithm, toMillis(a.CompiledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

const artifactColumns = `source_path, source_hash, artifact_path, size, algorithm, compiled_at`

func scanArtifact(row interface{ Scan(...any) error }) (*Artifact, error) {
	var (
		a        Artifact
		compiled int64
	)
	if err := row.Scan(&a.SourcePath, &a.SourceHash, &a.ArtifactPath, &a.Size, &a.Algorithm, &compiled); err != nil {
		return nil, err
	}
	a.CompiledAt = fromMillis(compiled)
	return &a, nil
}

// GetArtifact returns the cached artifact for a source file.
func (s *SQLiteStore) GetArtifact(ctx context.Context, sourcePath string) (*Artifact, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE source_path = ?`, sourcePath)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact for %s: %w", sourcePath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return a, nil
}

// ListArtifacts returns every cached artifact ordered by source path.
func (s *SQLiteStore) ListArtifacts(ctx context.Context) ([]*Artifact, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts ORDER BY source_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Diagnostics ---

// SaveDiagnostics replaces the diagnostics stored for one file of a build.
func (s *SQLiteStore) SaveDiagnostics(ctx context.Context, buildID, sourcePath string, diags []core.Diagnostic) error {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM diagnostics WHERE build_id = ? AND source_path = ?`, buildID, sourcePath); err != nil {
		return fmt.Errorf("failed to clear diagnostics: %w", err)
	}
	for _, d := range diags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO diagnostics (build_id, source_path, code, severity, message, line, col)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			buildID, sourcePath, d.Code, d.Severity.String(), d.Message, d.Pos.Line, d.Pos.Column,
		); err != nil {
			return fmt.Errorf("failed to save diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit diagnostics: %w", err)
	}
	return nil
}

// ListDiagnostics returns the diagnostics of a build ordered by file and
// position.
func (s *SQLiteStore) ListDiagnostics(ctx context.Context, buildID string) ([]*DiagnosticRecord, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id, source_path, code, severity, message, line, col
		 FROM diagnostics WHERE build_id = ? ORDER BY source_path, line, col`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*DiagnosticRecord
	for rows.Next() {
		var d DiagnosticRecord
		if err := rows.Scan(&d.BuildID, &d.SourcePath, &d.Code, &d.Severity, &d.Message, &d.Line, &d.Col); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
