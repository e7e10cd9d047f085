// Package publish sends approved artifacts to their external destination.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okontny/kindling/internal/models"
)

// ErrNotConfigured indicates publishing credentials are missing. Callers
// treat it as a non-fatal condition: the approval aborts, nothing crashes.
var ErrNotConfigured = errors.New("publisher not configured")

// Publisher sends one approved artifact out. sourceRefs is the originating
// idea's comma-joined reference list, empty when unknown.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, artifact *models.Artifact, sourceRefs string) error
}

const notionVersion = "2022-06-28"

// Notion publishes artifacts as pages of a Notion database.
type Notion struct {
	apiKey     string
	databaseID string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

var _ Publisher = (*Notion)(nil)

// NewNotion builds a publisher for the given credentials. Empty credentials
// are allowed; Publish then returns ErrNotConfigured.
func NewNotion(apiKey, databaseID string) *Notion {
	return &Notion{
		apiKey:     apiKey,
		databaseID: databaseID,
		baseURL:    "https://api.notion.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// Name identifies the destination in logs and the trail.
func (n *Notion) Name() string { return "notion" }

// Publish creates one database page for the artifact.
func (n *Notion) Publish(ctx context.Context, artifact *models.Artifact, sourceRefs string) error {
	if n.apiKey == "" || n.databaseID == "" {
		return ErrNotConfigured
	}

	// The database expects a null url, not an empty string.
	var sourceURL any
	if sourceRefs != "" {
		sourceURL = sourceRefs
	}

	properties := map[string]any{
		"Title":         map[string]any{"title": richText(artifact.Title)},
		"Project Type":  map[string]any{"select": map[string]any{"name": capitalize(string(artifact.Type))}},
		"Status":        map[string]any{"status": map[string]any{"name": "Approved"}},
		"Category Tags": map[string]any{"multi_select": multiSelect(artifact.CategoryTags)},
		"Content":       map[string]any{"rich_text": richText(artifact.Body)},
		"Source URLs":   map[string]any{"url": sourceURL},
		"Created Date":  map[string]any{"date": map[string]any{"start": artifact.CreatedAt.Format(time.RFC3339)}},
		"Approved Date": map[string]any{"date": map[string]any{"start": n.now().UTC().Format(time.RFC3339)}},
	}

	if artifact.Type == models.ProjectBuild || artifact.Type == models.ProjectResearch {
		properties["Next Actions"] = map[string]any{"rich_text": richText(formatActions(artifact.NextActions))}
	}
	if artifact.Type == models.ProjectArticle || artifact.Type == models.ProjectResearch {
		properties["Next Reading"] = map[string]any{"rich_text": richText(formatReading(artifact.NextReading))}
	}

	body, err := json.Marshal(map[string]any{
		"parent":     map[string]any{"database_id": n.databaseID},
		"properties": properties,
	})
	if err != nil {
		return fmt.Errorf("marshal notion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v1/pages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to notion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notion error %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}

	return nil
}

func richText(text string) []map[string]any {
	return []map[string]any{{"text": map[string]any{"content": text}}}
}

func multiSelect(tags []string) []map[string]any {
	out := make([]map[string]any, 0, len(tags))
	for _, tag := range tags {
		out = append(out, map[string]any{"name": strings.TrimSpace(tag)})
	}
	return out
}

func formatActions(actions []models.NextAction) string {
	if len(actions) == 0 {
		return "No items provided."
	}
	var b strings.Builder
	for _, action := range actions {
		fmt.Fprintf(&b, "- **%s** (Priority: %s)\n", action.Name, capitalize(string(action.Priority)))
	}
	return strings.TrimSpace(b.String())
}

func formatReading(reading []string) string {
	if len(reading) == 0 {
		return "No items provided."
	}
	var b strings.Builder
	for _, item := range reading {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return strings.TrimSpace(b.String())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
