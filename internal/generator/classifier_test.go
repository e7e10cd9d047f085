package generator

import (
	"testing"

	"github.com/okontny/kindling/internal/models"
)

func TestClassifyDefaultRules(t *testing.T) {
	c := NewKeywordClassifier(DefaultRules(), models.ProjectResearch)

	tests := []struct {
		text string
		want models.ProjectType
	}{
		{"build a birdhouse camera", models.ProjectBuild},
		{"Build the thing already", models.ProjectBuild},
		{"let's build!", models.ProjectBuild},
		{"write an essay on soil health", models.ProjectArticle},
		{"an article about fermentation", models.ProjectArticle},
		{"investigate quantum error correction", models.ProjectResearch},
		{"", models.ProjectResearch},
		// "building" is not the word "build"
		{"building codes in Norway", models.ProjectResearch},
		{"rebuild the old deck", models.ProjectResearch},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := NewKeywordClassifier(DefaultRules(), models.ProjectResearch)
	// Matches both rule sets; the build rule comes first.
	if got := c.Classify("build a site and write an article about it"); got != models.ProjectBuild {
		t.Errorf("Expected build from first rule, got %s", got)
	}

	flipped := NewKeywordClassifier([]Rule{
		{Type: models.ProjectArticle, Keywords: []string{"article", "write"}},
		{Type: models.ProjectBuild, Keywords: []string{"build"}},
	}, models.ProjectResearch)
	if got := flipped.Classify("build a site and write an article about it"); got != models.ProjectArticle {
		t.Errorf("Expected article with flipped rule order, got %s", got)
	}
}

func TestClassifyMultiWordKeyword(t *testing.T) {
	c := NewKeywordClassifier([]Rule{
		{Type: models.ProjectArticle, Keywords: []string{"write up"}},
	}, models.ProjectResearch)

	if got := c.Classify("do a write up of the trip"); got != models.ProjectArticle {
		t.Errorf("Expected article for multi-word keyword, got %s", got)
	}
	if got := c.Classify("writeup of the trip"); got != models.ProjectResearch {
		t.Errorf("Expected fallback when multi-word keyword is absent, got %s", got)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := NewKeywordClassifier(DefaultRules(), models.ProjectResearch)
	text := "build a tiny solar charger"

	first := c.Classify(text)
	for i := 0; i < 5; i++ {
		if got := c.Classify(text); got != first {
			t.Fatalf("Classification changed between calls: %s then %s", first, got)
		}
	}
}

func TestClassifyEmptyFallbackDefaultsToResearch(t *testing.T) {
	c := NewKeywordClassifier(nil, "")
	if got := c.Classify("anything at all"); got != models.ProjectResearch {
		t.Errorf("Expected research fallback, got %s", got)
	}
}
