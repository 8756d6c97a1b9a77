package llm

import "context"

// Provider runs one prompt through a language model and returns the full
// output text. Results are normalized to plain strings at this boundary; the
// rest of the engine never sees provider-specific response shapes.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
