// Package api provides the service layer and HTTP surface for kindling.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okontny/kindling/internal/config"
	"github.com/okontny/kindling/internal/generator"
	"github.com/okontny/kindling/internal/llm"
	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/notify"
	"github.com/okontny/kindling/internal/prompt"
	"github.com/okontny/kindling/internal/publish"
	"github.com/okontny/kindling/internal/review"
	"github.com/okontny/kindling/internal/runner"
	"github.com/okontny/kindling/internal/store"
	"github.com/okontny/kindling/internal/trail"
)

// Version is stamped into /health responses and the CLI.
var Version = "0.1.0"

// Sentinel errors for service operations.
var (
	ErrEmptyIdea   = errors.New("idea text is empty")
	ErrRunInFlight = errors.New("a batch run is already in progress")
)

// Service exposes the pipeline operations the HTTP server and CLI call.
type Service struct {
	stores *store.Stores
	runner *runner.Runner
	gate   *review.Gate
	trail  *trail.Recorder
	batch  config.BatchConfig
	logger *slog.Logger

	running atomic.Bool
	lastMu  sync.Mutex
	lastRun *RunRecord
}

// Deps wires a service from prebuilt collaborators.
type Deps struct {
	Stores *store.Stores
	Runner *runner.Runner
	Gate   *review.Gate
	Trail  *trail.Recorder
	Batch  config.BatchConfig
	Logger *slog.Logger
}

// NewService creates a service over already-wired collaborators.
func NewService(deps Deps) *Service {
	return &Service{
		stores: deps.Stores,
		runner: deps.Runner,
		gate:   deps.Gate,
		trail:  deps.Trail,
		batch:  deps.Batch,
		logger: deps.Logger,
	}
}

// NewServiceFromConfig assembles the full pipeline from configuration:
// classifier, prompt library, model client, generator, runner, review gate,
// publisher and notifier.
func NewServiceFromConfig(cfg *config.Config, stores *store.Stores, logger *slog.Logger) (*Service, error) {
	prompts, err := prompt.NewLibrary(cfg.Prompts)
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}
	classifier, err := classifierFromConfig(cfg.Classify)
	if err != nil {
		return nil, err
	}
	limits, err := limitsFromConfig(cfg.Validation)
	if err != nil {
		return nil, err
	}

	rec := trail.NewRecorder(stores.Logs, logger)
	notifier := notify.New(cfg.Slack.Token, cfg.Slack.Channel)

	gen := generator.New(generator.Deps{
		Ideas:      stores.Ideas,
		Artifacts:  stores.Artifacts,
		Trail:      rec,
		Classifier: classifier,
		Prompts:    prompts,
		Model:      llm.NewOllama(cfg.Model.BaseURL, cfg.Model.Name),
		Limits:     limits,
		Timeout:    cfg.Model.Timeout(),
		Logger:     logger,
	})
	run := runner.New(runner.Deps{
		Ideas:     stores.Ideas,
		Processor: gen,
		Notifier:  notifier,
		Logger:    logger,
	})
	gate := review.NewGate(review.Deps{
		Ideas:     stores.Ideas,
		Artifacts: stores.Artifacts,
		Trail:     rec,
		Publisher: publish.NewNotion(cfg.Notion.APIKey, cfg.Notion.DatabaseID),
		Notifier:  notifier,
		Logger:    logger,
	})

	return NewService(Deps{
		Stores: stores,
		Runner: run,
		Gate:   gate,
		Trail:  rec,
		Batch:  cfg.Batch,
		Logger: logger,
	}), nil
}

func classifierFromConfig(c config.ClassifyConfig) (generator.Classifier, error) {
	var fallback models.ProjectType
	if c.Default != "" {
		t, err := models.ParseProjectType(c.Default)
		if err != nil {
			return nil, fmt.Errorf("classifier default: %w", err)
		}
		fallback = t
	}
	if len(c.Rules) == 0 {
		return generator.NewKeywordClassifier(generator.DefaultRules(), fallback), nil
	}
	rules := make([]generator.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		t, err := models.ParseProjectType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("classifier rule: %w", err)
		}
		rules = append(rules, generator.Rule{Type: t, Keywords: r.Keywords})
	}
	return generator.NewKeywordClassifier(rules, fallback), nil
}

func limitsFromConfig(c config.ValidationConfig) (generator.Limits, error) {
	limits := generator.Limits{
		DefaultMinBody: c.DefaultMinBody,
		MinBody:        map[models.ProjectType]int{},
	}
	for name, n := range c.MinBody {
		t, err := models.ParseProjectType(name)
		if err != nil {
			return generator.Limits{}, fmt.Errorf("validation min_body: %w", err)
		}
		limits.MinBody[t] = n
	}
	return limits, nil
}

// --- Idea Operations ---

// AddIdea queues a new idea for the next batch run.
func (s *Service) AddIdea(ctx context.Context, text, contextRefs string) (*models.Idea, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyIdea
	}
	idea, err := s.stores.Ideas.Insert(ctx, text, contextRefs)
	if err != nil {
		return nil, err
	}
	s.trail.Record(ctx, idea.ID, "idea submitted")
	return idea, nil
}

// GetIdea retrieves an idea by ID, nil when absent.
func (s *Service) GetIdea(ctx context.Context, id string) (*models.Idea, error) {
	return s.stores.Ideas.Get(ctx, id)
}

// ListIdeas returns all ideas, or only those in the given status.
func (s *Service) ListIdeas(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error) {
	if status == "" {
		return s.stores.Ideas.ListAll(ctx)
	}
	return s.stores.Ideas.ListByStatus(ctx, status)
}

// DeleteIdea removes an idea outright.
func (s *Service) DeleteIdea(ctx context.Context, id string) error {
	return s.stores.Ideas.Delete(ctx, id)
}

// --- Review Operations ---

// ListReview returns all artifacts awaiting review.
func (s *Service) ListReview(ctx context.Context) ([]models.Artifact, error) {
	return s.stores.Artifacts.ListAll(ctx)
}

// GetArtifact retrieves a reviewable artifact by ID, nil when absent.
func (s *Service) GetArtifact(ctx context.Context, id string) (*models.Artifact, error) {
	return s.stores.Artifacts.Get(ctx, id)
}

// Approve publishes an artifact and retires it from the review queue.
func (s *Service) Approve(ctx context.Context, artifactID string) error {
	return s.gate.Approve(ctx, artifactID)
}

// Reject discards an artifact and requeues its idea with correction notes.
func (s *Service) Reject(ctx context.Context, artifactID, correctionText, correctionRefs string) (*models.Idea, error) {
	return s.gate.Reject(ctx, artifactID, correctionText, correctionRefs)
}

// --- Batch Operations ---

// RunOverrides optionally replaces the configured batch bounds for one run.
// Zero values keep the configured defaults.
type RunOverrides struct {
	Rounds    int
	BatchSize int
	Cooldown  time.Duration
}

// RunRecord remembers the most recent batch run for the status endpoint.
type RunRecord struct {
	Summary    runner.Summary `json:"summary"`
	FinishedAt time.Time      `json:"finished_at"`
}

// RunBatch executes one batch run. Only one run may be in flight at a time;
// concurrent triggers get ErrRunInFlight so generations never interleave.
func (s *Service) RunBatch(ctx context.Context, overrides RunOverrides) (runner.Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return runner.Summary{}, ErrRunInFlight
	}
	defer s.running.Store(false)

	opts := runner.Options{
		MaxRounds: s.batch.MaxRounds,
		BatchSize: s.batch.Size,
		Cooldown:  s.batch.Cooldown(),
	}
	if overrides.Rounds > 0 {
		opts.MaxRounds = overrides.Rounds
	}
	if overrides.BatchSize > 0 {
		opts.BatchSize = overrides.BatchSize
	}
	if overrides.Cooldown > 0 {
		opts.Cooldown = overrides.Cooldown
	}

	summary, err := s.runner.Run(ctx, opts)

	s.lastMu.Lock()
	s.lastRun = &RunRecord{Summary: summary, FinishedAt: time.Now().UTC()}
	s.lastMu.Unlock()

	return summary, err
}

// --- Introspection ---

// StatusReport is the shape of GET /status.
type StatusReport struct {
	Status         string     `json:"status"`
	Queued         int        `json:"queued"`
	Reprocess      int        `json:"reprocess"`
	AwaitingReview int        `json:"awaiting_review"`
	Errored        int        `json:"errored"`
	LastRun        *RunRecord `json:"last_run,omitempty"`
}

// Status reports queue depths and whether a batch run is in flight.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	report := StatusReport{Status: "idle"}
	if s.running.Load() {
		report.Status = "processing"
	}

	counts := []struct {
		status models.IdeaStatus
		into   *int
	}{
		{models.IdeaStatusQueued, &report.Queued},
		{models.IdeaStatusReprocess, &report.Reprocess},
		{models.IdeaStatusError, &report.Errored},
	}
	for _, c := range counts {
		ideas, err := s.stores.Ideas.ListByStatus(ctx, c.status)
		if err != nil {
			return StatusReport{}, err
		}
		*c.into = len(ideas)
	}

	artifacts, err := s.stores.Artifacts.ListAll(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	report.AwaitingReview = len(artifacts)

	s.lastMu.Lock()
	report.LastRun = s.lastRun
	s.lastMu.Unlock()

	return report, nil
}

// Logs returns trail entries, oldest first. A positive limit keeps only the
// most recent entries.
func (s *Service) Logs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	entries, err := s.stores.Logs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// HealthResponse is the shape of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Stores  string `json:"stores"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// Health pings the stores and reports liveness.
func (s *Service) Health(ctx context.Context) HealthResponse {
	resp := HealthResponse{
		OK:      true,
		Stores:  "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.stores.Ping(ctx); err != nil {
		resp.OK = false
		resp.Stores = err.Error()
	}
	return resp
}
