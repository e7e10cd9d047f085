package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/publish"
	"github.com/okontny/kindling/internal/store"
	"github.com/okontny/kindling/internal/trail"
)

type mockPublisher struct {
	err      error
	calls    int
	lastRefs string
}

func (m *mockPublisher) Name() string { return "mock-destination" }

func (m *mockPublisher) Publish(ctx context.Context, artifact *models.Artifact, sourceRefs string) error {
	m.calls++
	m.lastRefs = sourceRefs
	return m.err
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (n *recordingNotifier) Post(ctx context.Context, message string) error {
	n.messages = append(n.messages, message)
	return n.err
}

func newTestGate(t *testing.T, pub publish.Publisher, notifier *recordingNotifier) (*Gate, *store.Stores) {
	t.Helper()

	s, err := store.Open(context.Background(), store.Options{Driver: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open stores: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGate(Deps{
		Ideas:     s.Ideas,
		Artifacts: s.Artifacts,
		Trail:     trail.NewRecorder(s.Logs, logger),
		Publisher: pub,
		Notifier:  notifier,
		Logger:    logger,
	})
	return g, s
}

func seedReviewable(t *testing.T, s *store.Stores, refs string) (*models.Idea, *models.Artifact) {
	t.Helper()
	ctx := context.Background()

	idea, err := s.Ideas.Insert(ctx, "build a solar charger", refs)
	if err != nil {
		t.Fatalf("Insert idea failed: %v", err)
	}
	if err := s.Ideas.UpdateStatus(ctx, idea.ID, models.IdeaStatusAwaitingReview); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	artifact, err := s.Artifacts.Insert(ctx, store.ArtifactDraft{
		IdeaID: idea.ID,
		Type:   models.ProjectBuild,
		Title:  "Solar Charger Plan",
		Body:   "The plan body.",
		NextActions: []models.NextAction{
			{Name: "Order the panels and the charge controller", Priority: models.PriorityHigh},
		},
	})
	if err != nil {
		t.Fatalf("Insert artifact failed: %v", err)
	}
	return idea, artifact
}

func TestApprovePublishesAndPurges(t *testing.T) {
	pub := &mockPublisher{}
	notifier := &recordingNotifier{}
	g, s := newTestGate(t, pub, notifier)
	ctx := context.Background()

	idea, artifact := seedReviewable(t, s, "https://example.com/spec")

	if err := g.Approve(ctx, artifact.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if pub.calls != 1 {
		t.Errorf("Expected one publish call, got %d", pub.calls)
	}
	if pub.lastRefs != "https://example.com/spec" {
		t.Errorf("Expected idea refs passed to publisher, got %q", pub.lastRefs)
	}

	gone, _ := s.Artifacts.Get(ctx, artifact.ID)
	if gone != nil {
		t.Error("Artifact should be purged after approval")
	}

	got, _ := s.Ideas.Get(ctx, idea.ID)
	if got.Status != models.IdeaStatusApproved {
		t.Errorf("Expected approved, got %s", got.Status)
	}

	if len(notifier.messages) != 1 {
		t.Errorf("Expected one notification, got %d", len(notifier.messages))
	}

	entries, _ := s.Logs.ListAll(ctx)
	if len(entries) == 0 {
		t.Error("Expected a trail entry for the approval")
	}
}

func TestApproveArtifactNotFound(t *testing.T) {
	g, _ := newTestGate(t, &mockPublisher{}, &recordingNotifier{})

	err := g.Approve(context.Background(), "missing")
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("Expected ErrArtifactNotFound, got %v", err)
	}
}

func TestApprovePublishFailureMutatesNothing(t *testing.T) {
	pub := &mockPublisher{err: fmt.Errorf("notion is down")}
	g, s := newTestGate(t, pub, &recordingNotifier{})
	ctx := context.Background()

	idea, artifact := seedReviewable(t, s, "")

	if err := g.Approve(ctx, artifact.ID); !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("Expected ErrPublishFailed, got %v", err)
	}

	still, _ := s.Artifacts.Get(ctx, artifact.ID)
	if still == nil {
		t.Error("Artifact must stay reviewable after a failed publish")
	}

	got, _ := s.Ideas.Get(ctx, idea.ID)
	if got.Status != models.IdeaStatusAwaitingReview {
		t.Errorf("Idea status must be unchanged, got %s", got.Status)
	}
}

func TestApproveNotConfiguredSurfaces(t *testing.T) {
	pub := &mockPublisher{err: publish.ErrNotConfigured}
	g, s := newTestGate(t, pub, &recordingNotifier{})
	ctx := context.Background()

	_, artifact := seedReviewable(t, s, "")

	err := g.Approve(ctx, artifact.ID)
	if !errors.Is(err, publish.ErrNotConfigured) {
		t.Fatalf("Expected wrapped ErrNotConfigured, got %v", err)
	}

	still, _ := s.Artifacts.Get(ctx, artifact.ID)
	if still == nil {
		t.Error("Artifact must be retained when publishing is unconfigured")
	}
}

func TestApproveToleratesMissingIdea(t *testing.T) {
	pub := &mockPublisher{}
	g, s := newTestGate(t, pub, &recordingNotifier{})
	ctx := context.Background()

	idea, artifact := seedReviewable(t, s, "https://example.com")
	if err := s.Ideas.Delete(ctx, idea.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if err := g.Approve(ctx, artifact.ID); err != nil {
		t.Fatalf("Approve should tolerate a missing idea, got %v", err)
	}
	if pub.lastRefs != "" {
		t.Errorf("Expected empty refs for a missing idea, got %q", pub.lastRefs)
	}

	gone, _ := s.Artifacts.Get(ctx, artifact.ID)
	if gone != nil {
		t.Error("Artifact should be purged")
	}
}

func TestRejectRequeuesWithCorrections(t *testing.T) {
	g, s := newTestGate(t, &mockPublisher{}, &recordingNotifier{})
	ctx := context.Background()

	idea, artifact := seedReviewable(t, s, "https://example.com/a")

	newIdea, err := g.Reject(ctx, artifact.ID, "needs a bill of materials", "https://example.com/b")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	wantText := "build a solar charger\n\n[Correction Notes]: needs a bill of materials"
	if newIdea.Text != wantText {
		t.Errorf("Unexpected new text:\n got %q\nwant %q", newIdea.Text, wantText)
	}
	if newIdea.ContextRefs != "https://example.com/a,https://example.com/b" {
		t.Errorf("Unexpected new refs: %q", newIdea.ContextRefs)
	}
	if newIdea.Status != models.IdeaStatusQueued {
		t.Errorf("New idea must be queued, got %s", newIdea.Status)
	}

	stored, _ := s.Ideas.Get(ctx, newIdea.ID)
	if stored == nil || stored.Text != wantText {
		t.Error("New idea not persisted as returned")
	}

	original, _ := s.Ideas.Get(ctx, idea.ID)
	if original.Status != models.IdeaStatusRejected {
		t.Errorf("Original idea must be rejected, got %s", original.Status)
	}

	gone, _ := s.Artifacts.Get(ctx, artifact.ID)
	if gone != nil {
		t.Error("Artifact should be purged after rejection")
	}

	queued, _ := s.Ideas.ListByStatus(ctx, models.IdeaStatusQueued)
	if len(queued) != 1 {
		t.Errorf("Expected exactly one queued idea, got %d", len(queued))
	}
}

func TestRejectEmptyOriginalRefs(t *testing.T) {
	g, s := newTestGate(t, &mockPublisher{}, &recordingNotifier{})
	ctx := context.Background()

	_, artifact := seedReviewable(t, s, "")

	newIdea, err := g.Reject(ctx, artifact.ID, "more depth", "https://example.com/c")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	// No leading separator when the original had no refs.
	if newIdea.ContextRefs != "https://example.com/c" {
		t.Errorf("Unexpected refs: %q", newIdea.ContextRefs)
	}
}

func TestRejectArtifactNotFound(t *testing.T) {
	g, _ := newTestGate(t, &mockPublisher{}, &recordingNotifier{})

	_, err := g.Reject(context.Background(), "missing", "notes", "")
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("Expected ErrArtifactNotFound, got %v", err)
	}
}

func TestRejectDanglingIdea(t *testing.T) {
	g, s := newTestGate(t, &mockPublisher{}, &recordingNotifier{})
	ctx := context.Background()

	idea, artifact := seedReviewable(t, s, "")
	if err := s.Ideas.Delete(ctx, idea.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := g.Reject(ctx, artifact.ID, "notes", "")
	if !errors.Is(err, ErrIdeaDangling) {
		t.Fatalf("Expected ErrIdeaDangling, got %v", err)
	}

	still, _ := s.Artifacts.Get(ctx, artifact.ID)
	if still == nil {
		t.Error("Artifact must be retained on a dangling rejection")
	}
	ideas, _ := s.Ideas.ListAll(ctx)
	if len(ideas) != 0 {
		t.Errorf("No new idea may be created, got %d", len(ideas))
	}
}

func TestRejectNotifierFailureDoesNotPropagate(t *testing.T) {
	notifier := &recordingNotifier{err: fmt.Errorf("slack is down")}
	g, s := newTestGate(t, &mockPublisher{}, notifier)
	ctx := context.Background()

	_, artifact := seedReviewable(t, s, "")

	if _, err := g.Reject(ctx, artifact.ID, "notes", ""); err != nil {
		t.Fatalf("Reject must succeed despite notifier failure, got %v", err)
	}
}
