package llm

import (
	"context"
	"errors"

	"weekly-meal-planner/internal/shared"
)

// ErrRateLimited marks a provider refusal caused by quota or request-rate
// limits. Clients wrap it so callers can test with errors.Is.
var ErrRateLimited = errors.New("rate limited by provider")

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
