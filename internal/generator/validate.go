package generator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/okontny/kindling/internal/models"
)

// minActionNameLen is the shortest next-action name considered actionable.
const minActionNameLen = 20

// minReadingLen is the shortest next-reading entry considered useful.
const minReadingLen = 20

// Limits holds the per-type minimum body lengths, in characters.
type Limits struct {
	DefaultMinBody int
	MinBody        map[models.ProjectType]int
}

// DefaultLimits returns the built-in thresholds.
func DefaultLimits() Limits {
	return Limits{
		DefaultMinBody: 500,
		MinBody: map[models.ProjectType]int{
			models.ProjectResearch: 1500,
			models.ProjectArticle:  1000,
			models.ProjectBuild:    500,
		},
	}
}

func (l Limits) minBodyFor(t models.ProjectType) int {
	if n, ok := l.MinBody[t]; ok {
		return n
	}
	return l.DefaultMinBody
}

// requiresActions reports whether the type must carry next actions.
func requiresActions(t models.ProjectType) bool {
	return t == models.ProjectBuild || t == models.ProjectResearch
}

// requiresReading reports whether the type must carry next reading.
func requiresReading(t models.ProjectType) bool {
	return t == models.ProjectArticle || t == models.ProjectResearch
}

// Validate checks the draft against the depth requirements for its type.
// It returns an empty string when the draft passes, otherwise a description
// of the first violated requirement.
func Validate(t models.ProjectType, draft *Draft, limits Limits) string {
	minBody := limits.minBodyFor(t)
	if got := utf8.RuneCountInString(draft.Body); got < minBody {
		return fmt.Sprintf("body has %d characters, %s requires at least %d", got, t, minBody)
	}

	if requiresActions(t) {
		if len(draft.NextActions) == 0 {
			return fmt.Sprintf("%s requires at least one next action", t)
		}
		for _, action := range draft.NextActions {
			if utf8.RuneCountInString(action.Name) < minActionNameLen {
				return fmt.Sprintf("next action %q is too vague, names require at least %d characters", action.Name, minActionNameLen)
			}
		}
	}

	if requiresReading(t) {
		if len(draft.NextReading) == 0 {
			return fmt.Sprintf("%s requires at least one next reading entry", t)
		}
		for _, reading := range draft.NextReading {
			if utf8.RuneCountInString(strings.TrimSpace(reading)) < minReadingLen {
				return fmt.Sprintf("next reading entry %q is too vague, entries require at least %d characters", reading, minReadingLen)
			}
		}
	}

	return ""
}
