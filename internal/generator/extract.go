package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okontny/kindling/internal/models"
)

// Draft is the normalized shape of one model output, ready for validation.
type Draft struct {
	Title        string
	Body         string
	CategoryTags []string
	NextActions  []models.NextAction
	NextReading  []string
}

// rawDraft matches the model's JSON before normalization. The list fields
// stay raw because entries arrive as strings or objects interchangeably.
type rawDraft struct {
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	CategoryTags []json.RawMessage `json:"category_tags"`
	NextActions  []json.RawMessage `json:"next_actions"`
	NextReading  []json.RawMessage `json:"next_reading"`
}

// ParseDraft extracts the JSON object from raw model output (first "{" to
// last "}", tolerating prose around it) and normalizes it into a Draft.
func ParseDraft(raw string) (*Draft, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var parsed rawDraft
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	draft := &Draft{
		Title: strings.TrimSpace(parsed.Title),
		Body:  strings.TrimSpace(parsed.Content),
	}
	for _, tag := range parsed.CategoryTags {
		draft.CategoryTags = append(draft.CategoryTags, normalizeString(tag))
	}
	for _, action := range parsed.NextActions {
		draft.NextActions = append(draft.NextActions, normalizeAction(action))
	}
	for _, reading := range parsed.NextReading {
		draft.NextReading = append(draft.NextReading, normalizeString(reading))
	}
	return draft, nil
}

// normalizeAction accepts both shapes the model produces for an action: a
// bare string, or an object with name and priority.
func normalizeAction(raw json.RawMessage) models.NextAction {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return models.NextAction{Name: strings.TrimSpace(s), Priority: models.PriorityLow}
	}

	var obj struct {
		Name     string `json:"name"`
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return models.NextAction{
			Name:     strings.TrimSpace(obj.Name),
			Priority: normalizePriority(obj.Priority),
		}
	}

	return models.NextAction{Name: stringifyRaw(raw), Priority: models.PriorityLow}
}

func normalizePriority(s string) models.Priority {
	switch models.Priority(strings.ToLower(strings.TrimSpace(s))) {
	case models.PriorityMedium:
		return models.PriorityMedium
	case models.PriorityHigh:
		return models.PriorityHigh
	default:
		return models.PriorityLow
	}
}

// normalizeString accepts a bare string or stringifies any other value, so
// object-shaped reading entries survive as one canonical string.
func normalizeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return stringifyRaw(raw)
}

func stringifyRaw(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}
