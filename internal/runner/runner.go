// Package runner drains the idea queue in bounded batch runs.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/okontny/kindling/internal/generator"
	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/notify"
	"github.com/okontny/kindling/internal/store"
)

// Processor runs one generation pass for one idea. Satisfied by
// *generator.Generator.
type Processor interface {
	Process(ctx context.Context, idea models.Idea) (generator.Result, error)
}

// Options bounds one run.
type Options struct {
	// MaxRounds caps how many rounds the run may take.
	MaxRounds int
	// BatchSize caps how many ideas one round picks up.
	BatchSize int
	// Cooldown is slept between rounds when reprocess work remains.
	Cooldown time.Duration
}

// Summary reports what a run did.
type Summary struct {
	Rounds      int `json:"rounds"`
	Processed   int `json:"processed"`
	Stored      int `json:"stored"`
	Reprocessed int `json:"reprocessed"`
	Failed      int `json:"failed"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d rounds, %d processed: %d stored, %d reprocessed, %d failed",
		s.Rounds, s.Processed, s.Stored, s.Reprocessed, s.Failed)
}

// Deps wires the runner's collaborators. Sleep defaults to time.Sleep and
// exists so tests can observe cooldowns.
type Deps struct {
	Ideas     store.IdeaStore
	Processor Processor
	Notifier  notify.Notifier
	Logger    *slog.Logger
	Sleep     func(time.Duration)
}

// Runner processes eligible ideas sequentially, reprocess before queued,
// oldest first. It is single-threaded by design: one model call at a time.
type Runner struct {
	ideas     store.IdeaStore
	processor Processor
	notifier  notify.Notifier
	logger    *slog.Logger
	sleep     func(time.Duration)
}

// New constructs a runner.
func New(deps Deps) *Runner {
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Runner{
		ideas:     deps.Ideas,
		processor: deps.Processor,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		sleep:     sleep,
	}
}

// Run executes one batch run. Per-idea failures are counted and logged but
// do not stop the run; a broken idea must not wedge the queue. Store
// failures while listing, and context cancellation, end the run with the
// partial summary.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.MaxRounds < 1 {
		opts.MaxRounds = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}

	var summary Summary
	for round := 1; round <= opts.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		eligible, err := r.eligible(ctx, opts.BatchSize)
		if err != nil {
			return summary, err
		}
		if len(eligible) == 0 {
			break
		}

		summary.Rounds++
		r.logger.Info("batch round started", "round", round, "ideas", len(eligible))

		for _, idea := range eligible {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			result, err := r.processor.Process(ctx, idea)
			summary.Processed++
			if err != nil {
				summary.Failed++
				r.logger.Error("idea processing failed", "idea_id", idea.ID, "error", err)
				continue
			}

			switch result.Outcome {
			case generator.OutcomeStored:
				summary.Stored++
			case generator.OutcomeReprocess:
				summary.Reprocessed++
			case generator.OutcomeError:
				summary.Failed++
			}
		}

		if round == opts.MaxRounds {
			break
		}

		// Another round only pays off while validation retries are pending;
		// error ideas are never picked back up automatically.
		remaining, err := r.ideas.ListByStatus(ctx, models.IdeaStatusReprocess)
		if err != nil {
			return summary, fmt.Errorf("list reprocess ideas: %w", err)
		}
		if len(remaining) == 0 {
			break
		}
		r.sleep(opts.Cooldown)
	}

	r.logger.Info("batch run finished", "summary", summary.String())
	if r.notifier != nil && summary.Processed > 0 {
		if err := r.notifier.Post(ctx, "kindling: batch run finished: "+summary.String()); err != nil {
			r.logger.Warn("notification failed", "error", err)
		}
	}
	return summary, nil
}

// eligible returns the next batch: reprocess ideas first, then queued,
// each oldest first, truncated to the batch size.
func (r *Runner) eligible(ctx context.Context, batchSize int) ([]models.Idea, error) {
	reprocess, err := r.ideas.ListByStatus(ctx, models.IdeaStatusReprocess)
	if err != nil {
		return nil, fmt.Errorf("list reprocess ideas: %w", err)
	}
	queued, err := r.ideas.ListByStatus(ctx, models.IdeaStatusQueued)
	if err != nil {
		return nil, fmt.Errorf("list queued ideas: %w", err)
	}

	eligible := append(reprocess, queued...)
	if len(eligible) > batchSize {
		eligible = eligible[:batchSize]
	}
	return eligible, nil
}
