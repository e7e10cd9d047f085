package generator

import (
	"strings"

	"github.com/okontny/kindling/internal/models"
)

// Classifier assigns a project type to raw idea text.
type Classifier interface {
	// Classify is pure: the same text always yields the same type.
	Classify(text string) models.ProjectType
}

// Rule maps a keyword set to a project type.
type Rule struct {
	Type     models.ProjectType
	Keywords []string
}

// KeywordClassifier implements keyword-based classification. Rules are
// checked in order and the first match wins.
type KeywordClassifier struct {
	rules    []Rule
	fallback models.ProjectType
}

var _ Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier creates a classifier with the given ordered rules.
// An empty fallback defaults to research.
func NewKeywordClassifier(rules []Rule, fallback models.ProjectType) *KeywordClassifier {
	if fallback == "" {
		fallback = models.ProjectResearch
	}
	return &KeywordClassifier{rules: rules, fallback: fallback}
}

// DefaultRules returns the built-in rule set: build before article, research
// as the fallback for everything else.
func DefaultRules() []Rule {
	return []Rule{
		{Type: models.ProjectBuild, Keywords: []string{"build"}},
		{Type: models.ProjectArticle, Keywords: []string{"article", "write"}},
	}
}

// Classify returns the type of the first matching rule, or the fallback.
func (c *KeywordClassifier) Classify(text string) models.ProjectType {
	lowered := strings.ToLower(text)

	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if containsWord(lowered, strings.ToLower(keyword)) {
				return rule.Type
			}
		}
	}
	return c.fallback
}

// containsWord checks if text contains keyword as a whole word.
func containsWord(text, keyword string) bool {
	// For multi-word keywords like "write up", use simple contains
	if strings.Contains(keyword, " ") {
		return strings.Contains(text, keyword)
	}

	// For single words, check word boundaries
	words := strings.Fields(text)
	for _, word := range words {
		// Clean punctuation from word
		cleaned := strings.Trim(word, ".,;:!?\"'()[]{}")
		if cleaned == keyword {
			return true
		}
	}
	return false
}
