// Package llm talks to the text generation model.
package llm

import "context"

// Client generates text for a rendered prompt. Implementations must honor
// the context deadline; callers impose the timeout.
type Client interface {
	// Name identifies the backing model for logs and the trail.
	Name() string
	// Generate returns the raw model output for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}
