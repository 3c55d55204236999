// Package state records builds, compiled artifacts and their diagnostics
// in a SQLite database.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// BuildStatus is the lifecycle state of a build.
type BuildStatus string

// Build statuses.
const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

// Build is one project build.
type Build struct {
	ID         string      `json:"id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Status     BuildStatus `json:"status"`
	Files      int         `json:"files"`
	Errors     int         `json:"errors"`
}

// Duration is how long the build ran, or zero while it is running.
func (b *Build) Duration() time.Duration {
	if b.FinishedAt == nil {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}

// Artifact is the cached compile result for one source file.
type Artifact struct {
	SourcePath   string    `json:"source_path"`
	SourceHash   string    `json:"source_hash"`
	ArtifactPath string    `json:"artifact_path"`
	Size         int64     `json:"size"`
	Algorithm    string    `json:"algorithm"`
	CompiledAt   time.Time `json:"compiled_at"`
}

// DiagnosticRecord is a stored diagnostic.
type DiagnosticRecord struct {
	BuildID    string `json:"build_id"`
	SourcePath string `json:"source_path"`
	Code       string `json:"code"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Line       int    `json:"line"`
	Col        int    `json:"col"`
}

// Store is the persistence used by the build engine.
type Store interface {
	StartBuild(ctx context.Context) (*Build, error)
	FinishBuild(ctx context.Context, id string, status BuildStatus, files, errs int) error
	GetBuild(ctx context.Context, id string) (*Build, error)
	ListBuilds(ctx context.Context, limit int) ([]*Build, error)

	RecordArtifact(ctx context.Context, a *Artifact) error
	GetArtifact(ctx context.Context, sourcePath string) (*Artifact, error)
	ListArtifacts(ctx context.Context) ([]*Artifact, error)

	SaveDiagnostics(ctx context.Context, buildID, sourcePath string, diags []core.Diagnostic) error
	ListDiagnostics(ctx context.Context, buildID string) ([]*DiagnosticRecord, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
