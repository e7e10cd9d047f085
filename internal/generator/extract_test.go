package generator

import (
	"testing"

	"github.com/okontny/kindling/internal/models"
)

func TestParseDraftProseWrapped(t *testing.T) {
	raw := "Sure! Here is the expanded idea:\n" +
		`{"title": "Solar Charger", "content": "A detailed plan.", "category_tags": ["hardware"]}` +
		"\nLet me know if you need anything else."

	draft, err := ParseDraft(raw)
	if err != nil {
		t.Fatalf("ParseDraft failed: %v", err)
	}
	if draft.Title != "Solar Charger" {
		t.Errorf("Unexpected title: %s", draft.Title)
	}
	if draft.Body != "A detailed plan." {
		t.Errorf("Unexpected body: %s", draft.Body)
	}
	if len(draft.CategoryTags) != 1 || draft.CategoryTags[0] != "hardware" {
		t.Errorf("Unexpected tags: %v", draft.CategoryTags)
	}
}

func TestParseDraftNoJSON(t *testing.T) {
	if _, err := ParseDraft("I am sorry, I cannot help with that."); err == nil {
		t.Fatal("Expected error when output has no JSON object")
	}
}

func TestParseDraftMalformedJSON(t *testing.T) {
	if _, err := ParseDraft(`{"title": "broken`); err == nil {
		t.Fatal("Expected error when output has no closing brace")
	}
	if _, err := ParseDraft(`{"title": oops}`); err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
}

func TestParseDraftNormalizesBareStringActions(t *testing.T) {
	raw := `{"title": "t", "content": "c", "next_actions": ["  Prototype the charging circuit on a breadboard  "]}`

	draft, err := ParseDraft(raw)
	if err != nil {
		t.Fatalf("ParseDraft failed: %v", err)
	}
	if len(draft.NextActions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(draft.NextActions))
	}
	action := draft.NextActions[0]
	if action.Name != "Prototype the charging circuit on a breadboard" {
		t.Errorf("Expected trimmed name, got %q", action.Name)
	}
	if action.Priority != models.PriorityLow {
		t.Errorf("Expected low priority for bare string, got %s", action.Priority)
	}
}

func TestParseDraftObjectActions(t *testing.T) {
	raw := `{"title": "t", "content": "c", "next_actions": [
		{"name": "Order the solar panels", "priority": "HIGH"},
		{"name": "Sketch the enclosure", "priority": "Medium"},
		{"name": "Think about it", "priority": "someday"},
		{"name": "No priority given"}
	]}`

	draft, err := ParseDraft(raw)
	if err != nil {
		t.Fatalf("ParseDraft failed: %v", err)
	}
	if len(draft.NextActions) != 4 {
		t.Fatalf("Expected 4 actions, got %d", len(draft.NextActions))
	}
	if draft.NextActions[0].Priority != models.PriorityHigh {
		t.Errorf("Expected high, got %s", draft.NextActions[0].Priority)
	}
	if draft.NextActions[1].Priority != models.PriorityMedium {
		t.Errorf("Expected medium, got %s", draft.NextActions[1].Priority)
	}
	// Unknown and missing priorities both settle on low.
	if draft.NextActions[2].Priority != models.PriorityLow {
		t.Errorf("Expected low for unknown priority, got %s", draft.NextActions[2].Priority)
	}
	if draft.NextActions[3].Priority != models.PriorityLow {
		t.Errorf("Expected low for missing priority, got %s", draft.NextActions[3].Priority)
	}
}

func TestParseDraftStringifiesObjectReading(t *testing.T) {
	raw := `{"title": "t", "content": "c", "next_reading": [
		"A plain reading suggestion",
		{"title": "Solar Engineering Handbook", "url": "https://example.com"}
	]}`

	draft, err := ParseDraft(raw)
	if err != nil {
		t.Fatalf("ParseDraft failed: %v", err)
	}
	if len(draft.NextReading) != 2 {
		t.Fatalf("Expected 2 reading entries, got %d", len(draft.NextReading))
	}
	if draft.NextReading[0] != "A plain reading suggestion" {
		t.Errorf("Unexpected first entry: %q", draft.NextReading[0])
	}
	want := `{"title":"Solar Engineering Handbook","url":"https://example.com"}`
	if draft.NextReading[1] != want {
		t.Errorf("Expected stringified object, got %q", draft.NextReading[1])
	}
}

func TestParseDraftTrimsTitleAndBody(t *testing.T) {
	draft, err := ParseDraft(`{"title": "  spaced  ", "content": "\n\tbody\n"}`)
	if err != nil {
		t.Fatalf("ParseDraft failed: %v", err)
	}
	if draft.Title != "spaced" || draft.Body != "body" {
		t.Errorf("Expected trimmed fields, got %q / %q", draft.Title, draft.Body)
	}
}

func TestValidateThresholds(t *testing.T) {
	limits := DefaultLimits()

	longActions := []models.NextAction{{Name: "Collect labeled recordings from public archives", Priority: models.PriorityLow}}
	longReading := []string{"A full survey of the published literature on the topic"}

	tests := []struct {
		name   string
		ptype  models.ProjectType
		draft  Draft
		wantOK bool
	}{
		{"build at threshold", models.ProjectBuild, Draft{Body: body(500), NextActions: longActions}, true},
		{"build below threshold", models.ProjectBuild, Draft{Body: body(499), NextActions: longActions}, false},
		{"article at threshold", models.ProjectArticle, Draft{Body: body(1000), NextReading: longReading}, true},
		{"article below threshold", models.ProjectArticle, Draft{Body: body(999), NextReading: longReading}, false},
		{"research at threshold", models.ProjectResearch, Draft{Body: body(1500), NextActions: longActions, NextReading: longReading}, true},
		{"research below threshold", models.ProjectResearch, Draft{Body: body(1499), NextActions: longActions, NextReading: longReading}, false},
		{"build without actions", models.ProjectBuild, Draft{Body: body(500)}, false},
		{"article without reading", models.ProjectArticle, Draft{Body: body(1000)}, false},
		{"research without reading", models.ProjectResearch, Draft{Body: body(1500), NextActions: longActions}, false},
		{"vague action name", models.ProjectBuild, Draft{Body: body(500), NextActions: []models.NextAction{{Name: "do it", Priority: models.PriorityHigh}}}, false},
		{"vague reading after trim", models.ProjectArticle, Draft{Body: body(1000), NextReading: []string{"   short note   "}}, false},
	}

	for _, tt := range tests {
		reason := Validate(tt.ptype, &tt.draft, limits)
		if tt.wantOK && reason != "" {
			t.Errorf("%s: expected pass, got %q", tt.name, reason)
		}
		if !tt.wantOK && reason == "" {
			t.Errorf("%s: expected a violation", tt.name)
		}
	}
}

func TestValidateCountsCharactersNotBytes(t *testing.T) {
	limits := Limits{DefaultMinBody: 4}
	// Four runes, more than four bytes.
	draft := Draft{Body: "日本語だ"}
	if reason := Validate(models.ProjectBuild, &draft, limits); reason == "" {
		// build also needs actions, so a pass here would be a bug
		t.Fatal("Expected action requirement to fire")
	}
	draft.NextActions = []models.NextAction{{Name: "Translate the collected passages carefully", Priority: models.PriorityLow}}
	if reason := Validate(models.ProjectBuild, &draft, limits); reason != "" {
		t.Errorf("Expected 4-rune body to satisfy minimum 4, got %q", reason)
	}
}

func body(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
