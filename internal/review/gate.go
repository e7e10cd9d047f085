// Package review implements the human decision point: approve publishes and
// purges, reject folds corrections into a fresh queued idea.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/notify"
	"github.com/okontny/kindling/internal/publish"
	"github.com/okontny/kindling/internal/store"
	"github.com/okontny/kindling/internal/trail"
)

// ErrArtifactNotFound indicates the reviewed artifact does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrPublishFailed marks approval failures caused by the publish destination
// rather than our own stores.
var ErrPublishFailed = errors.New("publish failed")

// ErrIdeaDangling indicates the artifact's originating idea is gone, an
// inconsistency a rejection cannot recover from.
var ErrIdeaDangling = errors.New("originating idea not found")

// Deps wires the gate's collaborators.
type Deps struct {
	Ideas     store.IdeaStore
	Artifacts store.ArtifactStore
	Trail     *trail.Recorder
	Publisher publish.Publisher
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// Gate carries out review decisions against the stores.
type Gate struct {
	ideas     store.IdeaStore
	artifacts store.ArtifactStore
	trail     *trail.Recorder
	publisher publish.Publisher
	notifier  notify.Notifier
	logger    *slog.Logger
}

// NewGate constructs a review gate.
func NewGate(deps Deps) *Gate {
	return &Gate{
		ideas:     deps.Ideas,
		artifacts: deps.Artifacts,
		trail:     deps.Trail,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
	}
}

// Approve publishes the artifact, purges it, and marks the originating idea
// approved. Publishing is a single attempt: on failure nothing is mutated
// and the artifact stays reviewable. A missing originating idea is tolerated
// (the artifact is still published, with no source refs).
func (g *Gate) Approve(ctx context.Context, artifactID string) error {
	artifact, err := g.artifacts.Get(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("fetch artifact: %w", err)
	}
	if artifact == nil {
		return ErrArtifactNotFound
	}

	idea, err := g.ideas.Get(ctx, artifact.IdeaID)
	if err != nil {
		return fmt.Errorf("fetch idea: %w", err)
	}
	var sourceRefs string
	if idea != nil {
		sourceRefs = idea.ContextRefs
	}

	if err := g.publisher.Publish(ctx, artifact, sourceRefs); err != nil {
		g.trail.Record(ctx, artifact.IdeaID, fmt.Sprintf("publish failed: %v", err))
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	// Published. From here a failure leaves a publish-but-not-purged window
	// that the propagated error surfaces.
	if err := g.artifacts.Delete(ctx, artifact.ID); err != nil {
		g.logger.Error("published but could not purge artifact",
			"artifact_id", artifact.ID, "error", err)
		return fmt.Errorf("purge artifact: %w", err)
	}

	if idea != nil {
		if err := g.ideas.UpdateStatus(ctx, idea.ID, models.IdeaStatusApproved); err != nil {
			g.logger.Error("published but could not mark idea approved",
				"idea_id", idea.ID, "error", err)
			return fmt.Errorf("mark idea approved: %w", err)
		}
	}

	g.trail.Record(ctx, artifact.IdeaID, fmt.Sprintf("approved, published to %s", g.publisher.Name()))
	g.notify(ctx, fmt.Sprintf("kindling: published %q to %s", artifact.Title, g.publisher.Name()))
	return nil
}

// Reject requeues the idea with the reviewer's corrections folded in and
// purges the artifact. The new idea is inserted first; if that fails,
// nothing else is mutated. Returns the new queued idea.
func (g *Gate) Reject(ctx context.Context, artifactID, correctionText, correctionRefs string) (*models.Idea, error) {
	artifact, err := g.artifacts.Get(ctx, artifactID)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact: %w", err)
	}
	if artifact == nil {
		return nil, ErrArtifactNotFound
	}

	idea, err := g.ideas.Get(ctx, artifact.IdeaID)
	if err != nil {
		return nil, fmt.Errorf("fetch idea: %w", err)
	}
	if idea == nil {
		return nil, fmt.Errorf("%w: %s", ErrIdeaDangling, artifact.IdeaID)
	}

	newText := fmt.Sprintf("%s\n\n[Correction Notes]: %s", idea.Text, correctionText)
	newRefs := correctionRefs
	if idea.ContextRefs != "" {
		newRefs = idea.ContextRefs + "," + correctionRefs
	}

	newIdea, err := g.ideas.Insert(ctx, newText, newRefs)
	if err != nil {
		return nil, fmt.Errorf("requeue corrected idea: %w", err)
	}

	if err := g.ideas.UpdateStatus(ctx, idea.ID, models.IdeaStatusRejected); err != nil {
		g.logger.Error("corrected idea queued but original not marked rejected",
			"idea_id", idea.ID, "new_idea_id", newIdea.ID, "error", err)
		return nil, fmt.Errorf("mark idea rejected: %w", err)
	}

	if err := g.artifacts.Delete(ctx, artifact.ID); err != nil {
		g.logger.Error("rejected but could not purge artifact",
			"artifact_id", artifact.ID, "error", err)
		return nil, fmt.Errorf("purge artifact: %w", err)
	}

	g.trail.Record(ctx, idea.ID, fmt.Sprintf("rejected, corrections requeued as idea %s", newIdea.ID))
	g.trail.Record(ctx, newIdea.ID, fmt.Sprintf("queued with corrections from rejected artifact %s", artifact.ID))
	g.notify(ctx, fmt.Sprintf("kindling: rejected %q, corrections requeued", artifact.Title))
	return newIdea, nil
}

// notify posts best-effort; a failed notification never fails the decision.
func (g *Gate) notify(ctx context.Context, message string) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.Post(ctx, message); err != nil {
		g.logger.Warn("notification failed", "error", err)
	}
}
