// Package store provides persistence for ideas, artifacts, and the pipeline
// trail. The default backend is SQLite (one file per store under the data
// dir); a Postgres backend is available behind the same interfaces.
package store

import (
	"context"
	"fmt"

	"github.com/okontny/kindling/internal/models"
)

// ErrIdeaNotFound indicates an update or delete targeted an idea that does
// not exist.
var ErrIdeaNotFound = fmt.Errorf("idea not found")

// ErrArtifactNotFound indicates a delete targeted an artifact that does not
// exist.
var ErrArtifactNotFound = fmt.Errorf("artifact not found")

// ArtifactDraft is the write-side shape for a new artifact. ID, status, and
// creation time are assigned by the store.
type ArtifactDraft struct {
	IdeaID       string
	Type         models.ProjectType
	Title        string
	Body         string
	CategoryTags []string
	NextActions  []models.NextAction
	NextReading  []string
}

// IdeaStore persists ideas. Get returns (nil, nil) when the idea is absent.
// List methods order by creation time ascending, oldest first.
type IdeaStore interface {
	Insert(ctx context.Context, text, contextRefs string) (*models.Idea, error)
	Get(ctx context.Context, id string) (*models.Idea, error)
	ListAll(ctx context.Context) ([]models.Idea, error)
	ListByStatus(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error)
	UpdateStatus(ctx context.Context, id string, status models.IdeaStatus) error
	Delete(ctx context.Context, id string) error
}

// ArtifactStore persists generated artifacts awaiting review. Get returns
// (nil, nil) when the artifact is absent.
type ArtifactStore interface {
	Insert(ctx context.Context, draft ArtifactDraft) (*models.Artifact, error)
	Get(ctx context.Context, id string) (*models.Artifact, error)
	ListAll(ctx context.Context) ([]models.Artifact, error)
	Delete(ctx context.Context, id string) error
}

// LogStore is the append-only pipeline trail. Entries are never updated or
// deleted.
type LogStore interface {
	Append(ctx context.Context, ideaID, message string) error
	ListAll(ctx context.Context) ([]models.LogEntry, error)
}

// Options selects and parameterizes the backend.
type Options struct {
	// Driver is "sqlite" (default when empty) or "postgres".
	Driver string
	// DataDir holds the SQLite files. Unused by the postgres driver.
	DataDir string
	// PostgresDSN is required by the postgres driver.
	PostgresDSN string
}

// Stores bundles the three stores of one backend behind a single lifecycle.
type Stores struct {
	Ideas     IdeaStore
	Artifacts ArtifactStore
	Logs      LogStore

	closeFn func() error
	pingFn  func(ctx context.Context) error
}

// Close releases the backend connections.
func (s *Stores) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Ping checks that the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.pingFn == nil {
		return nil
	}
	return s.pingFn(ctx)
}

// Open creates the stores for the configured driver and runs migrations.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	switch opts.Driver {
	case "", "sqlite":
		return openSQLiteStores(opts.DataDir)
	case "postgres":
		return openPostgresStores(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
