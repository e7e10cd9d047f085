// Package trail records the per-idea pipeline trail.
package trail

import (
	"context"
	"log/slog"

	"github.com/okontny/kindling/internal/store"
)

// Recorder appends trail entries for state-mutating pipeline steps. Writes
// are best-effort: a failed append is logged and never alters the outcome of
// the step that produced it.
type Recorder struct {
	logs   store.LogStore
	logger *slog.Logger
}

// NewRecorder creates a trail recorder over the given log store.
func NewRecorder(logs store.LogStore, logger *slog.Logger) *Recorder {
	return &Recorder{logs: logs, logger: logger}
}

// Record appends one entry for the idea.
func (r *Recorder) Record(ctx context.Context, ideaID, message string) {
	r.logger.Debug("trail", "idea_id", ideaID, "message", message)
	if err := r.logs.Append(ctx, ideaID, message); err != nil {
		r.logger.Warn("trail append failed", "idea_id", ideaID, "error", err)
	}
}
