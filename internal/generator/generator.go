// Package generator grows one idea into a reviewable artifact: classify,
// render the prompt, call the model, extract and validate the draft, store.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/okontny/kindling/internal/llm"
	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/prompt"
	"github.com/okontny/kindling/internal/store"
	"github.com/okontny/kindling/internal/trail"
)

// Outcome is the business result of one generation pass.
type Outcome string

const (
	// OutcomeStored means an artifact was stored and the idea awaits review.
	OutcomeStored Outcome = "stored"
	// OutcomeReprocess means validation failed and the idea will be retried.
	OutcomeReprocess Outcome = "reprocess"
	// OutcomeError means generation failed and the idea needs intervention.
	OutcomeError Outcome = "error"
)

// Result reports what one generation pass did with an idea.
type Result struct {
	Outcome    Outcome
	ArtifactID string
	Reason     string
}

// Deps wires the generator's collaborators.
type Deps struct {
	Ideas      store.IdeaStore
	Artifacts  store.ArtifactStore
	Trail      *trail.Recorder
	Classifier Classifier
	Prompts    *prompt.Library
	Model      llm.Client
	Limits     Limits
	// Timeout bounds each model call. Zero means no deadline.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Generator runs the idea-to-artifact pipeline for single ideas.
type Generator struct {
	ideas      store.IdeaStore
	artifacts  store.ArtifactStore
	trail      *trail.Recorder
	classifier Classifier
	prompts    *prompt.Library
	model      llm.Client
	limits     Limits
	timeout    time.Duration
	logger     *slog.Logger
}

// New constructs a generator.
func New(deps Deps) *Generator {
	return &Generator{
		ideas:      deps.Ideas,
		artifacts:  deps.Artifacts,
		trail:      deps.Trail,
		classifier: deps.Classifier,
		prompts:    deps.Prompts,
		model:      deps.Model,
		limits:     deps.Limits,
		timeout:    deps.Timeout,
		logger:     deps.Logger,
	}
}

// Process runs one generation pass for the idea. Business failures (missing
// template, model failure, validation violation) become idea statuses and a
// Result; only store failures return a Go error. The transient processing
// state is never persisted: on a store failure the idea keeps its prior
// status.
func (g *Generator) Process(ctx context.Context, idea models.Idea) (Result, error) {
	projectType := g.classifier.Classify(idea.Text)
	g.trail.Record(ctx, idea.ID, fmt.Sprintf("processing as %s using model %s", projectType, g.model.Name()))

	promptText, err := g.prompts.Render(projectType, idea)
	if err != nil {
		if errors.Is(err, prompt.ErrNoTemplate) {
			// Configuration failure: retrying cannot help until an operator
			// registers the template.
			return g.conclude(ctx, idea, models.IdeaStatusError, OutcomeError,
				fmt.Sprintf("generation failed: %v", err))
		}
		return Result{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := g.generate(ctx, promptText)
	if err != nil {
		return g.conclude(ctx, idea, models.IdeaStatusError, OutcomeError,
			fmt.Sprintf("generation failed: %v", err))
	}

	draft, err := ParseDraft(raw)
	if err != nil {
		return g.conclude(ctx, idea, models.IdeaStatusError, OutcomeError,
			fmt.Sprintf("generation failed: %v", err))
	}

	// Only the fields the type calls for survive extraction.
	if !requiresActions(projectType) {
		draft.NextActions = nil
	}
	if !requiresReading(projectType) {
		draft.NextReading = nil
	}

	if reason := Validate(projectType, draft, g.limits); reason != "" {
		return g.conclude(ctx, idea, models.IdeaStatusReprocess, OutcomeReprocess,
			fmt.Sprintf("validation failed: %s", reason))
	}

	artifact, err := g.artifacts.Insert(ctx, store.ArtifactDraft{
		IdeaID:       idea.ID,
		Type:         projectType,
		Title:        draft.Title,
		Body:         draft.Body,
		CategoryTags: draft.CategoryTags,
		NextActions:  draft.NextActions,
		NextReading:  draft.NextReading,
	})
	if err != nil {
		return Result{}, fmt.Errorf("store artifact: %w", err)
	}

	if err := g.ideas.UpdateStatus(ctx, idea.ID, models.IdeaStatusAwaitingReview); err != nil {
		// The artifact exists but the idea still carries its old status; it
		// will be picked up again and produce a duplicate unless reconciled.
		g.logger.Error("artifact stored but idea status flip failed",
			"idea_id", idea.ID, "artifact_id", artifact.ID, "error", err)
		return Result{}, fmt.Errorf("mark idea awaiting review: %w", err)
	}

	g.trail.Record(ctx, idea.ID, fmt.Sprintf("artifact %s stored, awaiting review", artifact.ID))
	return Result{Outcome: OutcomeStored, ArtifactID: artifact.ID}, nil
}

// generate calls the model under the configured timeout and maps empty
// output to an error.
func (g *Generator) generate(ctx context.Context, promptText string) (string, error) {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	raw, err := g.model.Generate(callCtx, promptText)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("model returned empty output")
	}
	return raw, nil
}

// conclude records the trail entry and flips the idea to its terminal status
// for this pass. A store failure propagates instead of the business result.
func (g *Generator) conclude(ctx context.Context, idea models.Idea, status models.IdeaStatus, outcome Outcome, reason string) (Result, error) {
	g.trail.Record(ctx, idea.ID, reason)
	if err := g.ideas.UpdateStatus(ctx, idea.ID, status); err != nil {
		return Result{}, fmt.Errorf("mark idea %s: %w", status, err)
	}
	return Result{Outcome: outcome, Reason: reason}, nil
}
