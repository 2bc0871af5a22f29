package ai

import "context"

// GenerateOptions are per-call sampling parameters.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
	// Purpose labels the call for logs and metrics (analysis, intent, chat).
	Purpose string
}

// Client is the AI-reasoning collaborator: one rendered prompt in, free text out.
type Client interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Model() string
}
