package llm

import (
	"context"
	"errors"
	"fmt"

	"ai-day-planner/internal/shared"
)

var (
	// ErrEmptyResponse is returned when the provider answered but the
	// expected text field is missing from the payload.
	ErrEmptyResponse = errors.New("no content generated")

	// ErrMalformedResponse is returned when a successful answer is not the
	// JSON envelope the provider documents.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrMissingAPIKey is returned before any network call when the request
	// carries no credential.
	ErrMissingAPIKey = errors.New("missing api key")
)

// Request is a single prompt plus the generation knobs for it.
type Request struct {
	APIKey          string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req Request) (ContentResponse, error)
}

// StatusError reports a non-2xx answer from the provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error: status=%d body=%s", e.Provider, e.StatusCode, e.Body)
}
