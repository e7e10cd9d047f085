// Package prompt holds the per-type prompt template library.
//
// Templates are opaque strings with {idea_text} and {context_urls}
// placeholders; their wording is configuration, not code.
package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/okontny/kindling/internal/models"
)

// ErrNoTemplate signals a lookup for a project type nobody registered a
// template for. This is a configuration problem, not a model failure, and
// the pipeline never retries it.
var ErrNoTemplate = errors.New("no prompt template registered")

// Library maps project types to prompt templates.
type Library struct {
	mu        sync.RWMutex
	templates map[models.ProjectType]string
}

// NewLibrary builds a library from a config map keyed by project type name.
func NewLibrary(templates map[string]string) (*Library, error) {
	l := &Library{templates: make(map[models.ProjectType]string)}
	for name, tmpl := range templates {
		if err := l.Register(name, tmpl); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Register adds or replaces the template for a project type.
func (l *Library) Register(typeName, template string) error {
	t, err := models.ParseProjectType(typeName)
	if err != nil {
		return fmt.Errorf("register template: %w", err)
	}
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("register template: empty template for type %q", typeName)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[t] = template
	return nil
}

// Render substitutes the idea text and context references into the template
// registered for the given type.
func (l *Library) Render(t models.ProjectType, idea models.Idea) (string, error) {
	l.mu.RLock()
	tmpl, ok := l.templates[t]
	l.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w for project type %q", ErrNoTemplate, t)
	}

	out := strings.ReplaceAll(tmpl, "{idea_text}", idea.Text)
	out = strings.ReplaceAll(out, "{context_urls}", idea.ContextRefs)
	return out, nil
}

// Types returns the registered project types sorted by name.
func (l *Library) Types() []models.ProjectType {
	l.mu.RLock()
	defer l.mu.RUnlock()

	types := make([]models.ProjectType, 0, len(l.templates))
	for t := range l.templates {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Defaults returns the built-in templates seeded into new config files by
// `kindling config init`. Each instructs the model to answer with a single
// JSON object matching the generator's draft shape.
func Defaults() map[string]string {
	return map[string]string{
		"research": `You are a world-class researcher. Your task is to generate a detailed research document based on the following idea and context, formatted as a JSON object. The research document should be approximately 3000 words. The response must be a single JSON object with the following structure:
{
  "title": "A concise title for the research project",
  "content": "The full research document, including a detailed introduction, clearly-marked chapters, and a conclusion. Each chapter must end with a relevant case study.",
  "category_tags": ["Tag1", "Tag2", "Tag3"],
  "next_actions": [{"name": "A descriptive string for a research task", "priority": "high"}, {"name": "Another task for future research", "priority": "medium"}, {"name": "A final related topic to explore", "priority": "low"}],
  "next_reading": ["A relevant academic paper", "A link to a detailed blog post", "A book recommendation"]
}

Idea: {idea_text}

Context URLs: {context_urls}
`,
		"build": `You are a senior project manager. Your task is to create a top-level approach, infrastructure plan, and resource list for a build project, formatted as a JSON object. The plan should be approximately 1000 words.

Idea: {idea_text}

Context URLs: {context_urls}

The response must be a single JSON object with the following structure:
{
  "title": "A concise title for the build project plan",
  "content": "The full 1000-word build plan, outlining the approach, infrastructure, and resources.",
  "category_tags": ["Tag1", "Tag2", "Tag3"],
  "next_actions": [{"name": "A descriptive string for the priority resource", "priority": "high"}, {"name": "A concise description of the prep work", "priority": "medium"}, {"name": "Another description of the prep work", "priority": "low"}]
}
`,
		"article": `You are a professional content creator and master storyteller. Your task is to write a captivating story-like article based on the following idea and context, formatted as a JSON object. The article should be approximately 2000 words with a clear beginning, middle, and end. The beginning should inspire curiosity and possibilities. The middle should elaborate on the topic. The end should bring the overall theme to a satisfying conclusion, linking it back to the beginning. If the topic could have any real-life case studies, include that as well in the next_reading section of the JSON.

Idea: {idea_text}

Context URLs: {context_urls}

The response must be a single JSON object, which must mandatorily include next_reading array, with the following structure:
{
  "title": "A catchy title for the article",
  "content": "The full 2000-word article with a clear beginning, middle, and end.",
  "category_tags": ["Tag1", "Tag2", "Tag3"],
  "next_reading": ["A concise suggestion for additional media or a related resource", "A link to supporting information or another article", "Ideas on relevant real-life case studies"]
}
`,
	}
}
