package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/okontny/kindling/internal/generator"
	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/store"
)

// scriptedProcessor plays back a queue of outcomes per idea text and flips
// the idea's stored status the way the generator would, so later rounds see
// the effect of earlier ones.
type scriptedProcessor struct {
	t        *testing.T
	ideas    store.IdeaStore
	script   map[string][]generator.Outcome
	order    []string
	errTexts map[string]bool
}

func (p *scriptedProcessor) Process(ctx context.Context, idea models.Idea) (generator.Result, error) {
	p.order = append(p.order, idea.Text)
	if p.errTexts[idea.Text] {
		return generator.Result{}, errors.New("store unavailable")
	}

	outcome := generator.OutcomeStored
	if queue := p.script[idea.Text]; len(queue) > 0 {
		outcome = queue[0]
		p.script[idea.Text] = queue[1:]
	}

	var status models.IdeaStatus
	switch outcome {
	case generator.OutcomeStored:
		status = models.IdeaStatusAwaitingReview
	case generator.OutcomeReprocess:
		status = models.IdeaStatusReprocess
	case generator.OutcomeError:
		status = models.IdeaStatusError
	}
	if err := p.ideas.UpdateStatus(ctx, idea.ID, status); err != nil {
		p.t.Fatalf("Failed to flip idea status: %v", err)
	}
	return generator.Result{Outcome: outcome}, nil
}

type captureNotifier struct {
	messages []string
}

func (n *captureNotifier) Post(ctx context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

func newTestRunner(t *testing.T) (*Runner, *store.Stores, *scriptedProcessor, *captureNotifier, *[]time.Duration) {
	t.Helper()
	stores, err := store.Open(context.Background(), store.Options{Driver: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open stores: %v", err)
	}
	t.Cleanup(func() { stores.Close() })

	processor := &scriptedProcessor{
		t:        t,
		ideas:    stores.Ideas,
		script:   map[string][]generator.Outcome{},
		errTexts: map[string]bool{},
	}
	notifier := &captureNotifier{}
	var slept []time.Duration
	r := New(Deps{
		Ideas:     stores.Ideas,
		Processor: processor,
		Notifier:  notifier,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sleep:     func(d time.Duration) { slept = append(slept, d) },
	})
	return r, stores, processor, notifier, &slept
}

func seedIdea(t *testing.T, stores *store.Stores, text string, status models.IdeaStatus) *models.Idea {
	t.Helper()
	idea, err := stores.Ideas.Insert(context.Background(), text, "")
	if err != nil {
		t.Fatalf("Failed to insert idea: %v", err)
	}
	if status != models.IdeaStatusQueued {
		if err := stores.Ideas.UpdateStatus(context.Background(), idea.ID, status); err != nil {
			t.Fatalf("Failed to set idea status: %v", err)
		}
	}
	return idea
}

func TestRunPicksReprocessBeforeQueued(t *testing.T) {
	r, stores, processor, _, slept := newTestRunner(t)
	ctx := context.Background()

	for _, text := range []string{"q1", "q2", "q3", "q4"} {
		seedIdea(t, stores, text, models.IdeaStatusQueued)
	}
	for _, text := range []string{"r1", "r2", "r3"} {
		seedIdea(t, stores, text, models.IdeaStatusReprocess)
	}

	summary, err := r.Run(ctx, Options{MaxRounds: 3, BatchSize: 5, Cooldown: time.Second})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"r1", "r2", "r3", "q1", "q2"}
	if len(processor.order) != len(want) {
		t.Fatalf("Expected %d processed ideas, got %d (%v)", len(want), len(processor.order), processor.order)
	}
	for i, text := range want {
		if processor.order[i] != text {
			t.Errorf("Expected idea %d to be %q, got %q", i, text, processor.order[i])
		}
	}
	// Nothing needs reprocessing after round one, so the run stops there;
	// the two leftover queued ideas wait for the next trigger.
	if summary.Rounds != 1 {
		t.Errorf("Expected 1 round, got %d", summary.Rounds)
	}
	if summary.Processed != 5 || summary.Stored != 5 {
		t.Errorf("Expected 5 processed and stored, got %+v", summary)
	}
	if len(*slept) != 0 {
		t.Errorf("Expected no cooldown sleeps, got %v", *slept)
	}

	queued, err := stores.Ideas.ListByStatus(ctx, models.IdeaStatusQueued)
	if err != nil {
		t.Fatalf("Failed to list queued ideas: %v", err)
	}
	if len(queued) != 2 {
		t.Errorf("Expected 2 ideas left queued, got %d", len(queued))
	}
}

func TestRunStopsEarlyWhenNothingNeedsReprocessing(t *testing.T) {
	r, stores, _, _, slept := newTestRunner(t)
	ctx := context.Background()

	seedIdea(t, stores, "build a kite", models.IdeaStatusQueued)
	seedIdea(t, stores, "research tides", models.IdeaStatusQueued)

	summary, err := r.Run(ctx, Options{MaxRounds: 3, BatchSize: 5, Cooldown: 5 * time.Second})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Rounds != 1 {
		t.Errorf("Expected exactly 1 round, got %d", summary.Rounds)
	}
	if summary.Processed != 2 || summary.Stored != 2 {
		t.Errorf("Expected 2 processed and stored, got %+v", summary)
	}
	if len(*slept) != 0 {
		t.Errorf("Expected no cooldown sleeps, got %v", *slept)
	}
}

func TestRunCooldownBetweenRounds(t *testing.T) {
	r, stores, processor, _, slept := newTestRunner(t)
	ctx := context.Background()

	seedIdea(t, stores, "flaky idea", models.IdeaStatusQueued)
	processor.script["flaky idea"] = []generator.Outcome{generator.OutcomeReprocess, generator.OutcomeStored}

	summary, err := r.Run(ctx, Options{MaxRounds: 3, BatchSize: 5, Cooldown: 7 * time.Second})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Rounds != 2 {
		t.Errorf("Expected 2 rounds, got %d", summary.Rounds)
	}
	if summary.Reprocessed != 1 || summary.Stored != 1 {
		t.Errorf("Expected 1 reprocessed and 1 stored, got %+v", summary)
	}
	if len(*slept) != 1 || (*slept)[0] != 7*time.Second {
		t.Errorf("Expected one 7s cooldown, got %v", *slept)
	}
}

func TestRunStopsAtRoundBudget(t *testing.T) {
	r, stores, processor, _, slept := newTestRunner(t)
	ctx := context.Background()

	idea := seedIdea(t, stores, "never valid", models.IdeaStatusQueued)
	processor.script["never valid"] = []generator.Outcome{
		generator.OutcomeReprocess, generator.OutcomeReprocess, generator.OutcomeReprocess,
	}

	summary, err := r.Run(ctx, Options{MaxRounds: 2, BatchSize: 5, Cooldown: time.Second})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Rounds != 2 {
		t.Errorf("Expected 2 rounds, got %d", summary.Rounds)
	}
	if summary.Reprocessed != 2 {
		t.Errorf("Expected 2 reprocess outcomes, got %d", summary.Reprocessed)
	}
	// One cooldown between the rounds, none after the final one.
	if len(*slept) != 1 {
		t.Errorf("Expected one cooldown sleep, got %v", *slept)
	}

	got, err := stores.Ideas.Get(ctx, idea.ID)
	if err != nil {
		t.Fatalf("Failed to get idea: %v", err)
	}
	if got.Status != models.IdeaStatusReprocess {
		t.Errorf("Expected idea left in reprocess for the next run, got %s", got.Status)
	}
}

func TestRunEmptyQueue(t *testing.T) {
	r, _, processor, notifier, slept := newTestRunner(t)

	summary, err := r.Run(context.Background(), Options{MaxRounds: 3, BatchSize: 5, Cooldown: time.Second})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Rounds != 0 || summary.Processed != 0 {
		t.Errorf("Expected an empty summary, got %+v", summary)
	}
	if len(processor.order) != 0 {
		t.Errorf("Expected no processing, got %v", processor.order)
	}
	if len(*slept) != 0 {
		t.Errorf("Expected no sleeps, got %v", *slept)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("Expected no notification for an empty run, got %v", notifier.messages)
	}
}

func TestRunContinuesPastProcessorError(t *testing.T) {
	r, stores, processor, _, _ := newTestRunner(t)
	ctx := context.Background()

	seedIdea(t, stores, "broken idea", models.IdeaStatusQueued)
	seedIdea(t, stores, "fine idea", models.IdeaStatusQueued)
	processor.errTexts["broken idea"] = true

	summary, err := r.Run(ctx, Options{MaxRounds: 1, BatchSize: 5, Cooldown: time.Second})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 2 {
		t.Errorf("Expected 2 processed, got %d", summary.Processed)
	}
	if summary.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", summary.Failed)
	}
	if summary.Stored != 1 {
		t.Errorf("Expected 1 stored, got %d", summary.Stored)
	}
	if len(processor.order) != 2 {
		t.Errorf("Expected both ideas attempted, got %v", processor.order)
	}
}

func TestRunErrorOutcomeIsNotRequeued(t *testing.T) {
	r, stores, processor, _, _ := newTestRunner(t)
	ctx := context.Background()

	idea := seedIdea(t, stores, "doomed idea", models.IdeaStatusQueued)
	processor.script["doomed idea"] = []generator.Outcome{generator.OutcomeError}

	summary, err := r.Run(ctx, Options{MaxRounds: 3, BatchSize: 5, Cooldown: time.Second})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Rounds != 1 {
		t.Errorf("Expected 1 round, got %d", summary.Rounds)
	}
	if summary.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", summary.Failed)
	}
	if len(processor.order) != 1 {
		t.Errorf("Expected a single attempt, got %v", processor.order)
	}

	got, err := stores.Ideas.Get(ctx, idea.ID)
	if err != nil {
		t.Fatalf("Failed to get idea: %v", err)
	}
	if got.Status != models.IdeaStatusError {
		t.Errorf("Expected idea parked in error, got %s", got.Status)
	}
}

func TestRunNotifiesSummary(t *testing.T) {
	r, stores, _, notifier, _ := newTestRunner(t)

	seedIdea(t, stores, "notify me", models.IdeaStatusQueued)

	if _, err := r.Run(context.Background(), Options{MaxRounds: 1, BatchSize: 5, Cooldown: time.Second}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifier.messages))
	}
	want := "kindling: batch run finished: 1 rounds, 1 processed: 1 stored, 0 reprocessed, 0 failed"
	if notifier.messages[0] != want {
		t.Errorf("Expected notification %q, got %q", want, notifier.messages[0])
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	r, stores, processor, _, _ := newTestRunner(t)

	seedIdea(t, stores, "first", models.IdeaStatusQueued)
	seedIdea(t, stores, "second", models.IdeaStatusQueued)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, Options{MaxRounds: 1, BatchSize: 5, Cooldown: time.Second})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(processor.order) != 0 {
		t.Errorf("Expected no processing after cancellation, got %v", processor.order)
	}
}
