// Package models defines the core domain types for kindling.
package models

import (
	"fmt"
	"time"
)

// IdeaStatus represents the current state of an idea in the pipeline.
type IdeaStatus string

const (
	// IdeaStatusQueued marks an idea waiting for its first generation pass.
	IdeaStatusQueued IdeaStatus = "queued"
	// IdeaStatusProcessing is transient while the generator holds an idea.
	// It is surfaced by the status endpoint but never persisted.
	IdeaStatusProcessing IdeaStatus = "processing"
	// IdeaStatusAwaitingReview means an artifact exists and awaits a human.
	IdeaStatusAwaitingReview IdeaStatus = "awaiting_review"
	// IdeaStatusReprocess flags a validation failure worth retrying.
	IdeaStatusReprocess IdeaStatus = "reprocess"
	// IdeaStatusError marks a configuration or model failure. Error ideas are
	// never requeued automatically; an operator resolves the cause first.
	IdeaStatusError IdeaStatus = "error"
	// IdeaStatusApproved and IdeaStatusRejected are terminal. Rejection spawns
	// a fresh queued idea instead of resurrecting the old row.
	IdeaStatusApproved IdeaStatus = "approved"
	IdeaStatusRejected IdeaStatus = "rejected"
)

// ParseIdeaStatus validates a status string from config or the API.
func ParseIdeaStatus(s string) (IdeaStatus, error) {
	switch IdeaStatus(s) {
	case IdeaStatusQueued, IdeaStatusProcessing, IdeaStatusAwaitingReview,
		IdeaStatusReprocess, IdeaStatusError, IdeaStatusApproved, IdeaStatusRejected:
		return IdeaStatus(s), nil
	}
	return "", fmt.Errorf("unknown idea status %q", s)
}

// Idea is a submitted unit of raw intent awaiting generation.
type Idea struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	ContextRefs string     `json:"context_refs"` // comma-joined URLs or notes
	Status      IdeaStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProjectType classifies an idea and selects its prompt template and
// validation thresholds.
type ProjectType string

const (
	ProjectResearch ProjectType = "research"
	ProjectBuild    ProjectType = "build"
	ProjectArticle  ProjectType = "article"
)

// ParseProjectType validates a project type string.
func ParseProjectType(s string) (ProjectType, error) {
	switch ProjectType(s) {
	case ProjectResearch, ProjectBuild, ProjectArticle:
		return ProjectType(s), nil
	}
	return "", fmt.Errorf("unknown project type %q", s)
}

// Priority ranks a next action.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NextAction is a follow-up task attached to build and research artifacts.
type NextAction struct {
	Name     string   `json:"name"`
	Priority Priority `json:"priority"`
}

// ArtifactStatusAwaitingReview is the only persisted artifact status.
// Artifacts are purged on approval or rejection rather than transitioned.
const ArtifactStatusAwaitingReview = "awaiting_review"

// Artifact is the generated, structured output derived from an idea,
// held until a reviewer approves or rejects it. NextActions is populated
// only for build and research types, NextReading only for article and
// research.
type Artifact struct {
	ID           string       `json:"id"`
	IdeaID       string       `json:"idea_id"`
	Type         ProjectType  `json:"project_type"`
	Title        string       `json:"title"`
	Body         string       `json:"body"`
	CategoryTags []string     `json:"category_tags"`
	NextActions  []NextAction `json:"next_actions"`
	NextReading  []string     `json:"next_reading"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// LogEntry is one line of the append-only activity trail. Entries are
// diagnostic only and never drive control flow.
type LogEntry struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"idea_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
