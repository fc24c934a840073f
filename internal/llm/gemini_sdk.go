package llm

import (
	"context"
	"errors"
	"fmt"

	"ai-day-planner/internal/config"
	"ai-day-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// geminiSDKClient uses Google's official SDK. The credential can differ per
// call (the user may type one in), so a client is created for each request.
type geminiSDKClient struct {
	model string
	opts  []option.ClientOption
}

// NewGeminiSDKClient creates a Gemini client backed by generative-ai-go.
func NewGeminiSDKClient(cfg *config.Config, opts ...option.ClientOption) TextGenerator {
	return &geminiSDKClient{model: cfg.GeminiModel, opts: opts}
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *geminiSDKClient) GenerateContent(ctx context.Context, r Request) (ContentResponse, error) {
	if r.APIKey == "" {
		return ContentResponse{}, ErrMissingAPIKey
	}

	opts := append([]option.ClientOption{option.WithAPIKey(r.APIKey)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(r.Temperature)
	model.SetMaxOutputTokens(r.MaxOutputTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(r.Prompt))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return ContentResponse{}, &StatusError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, ErrEmptyResponse
	}

	// Only the first part carries the answer, as on the REST path.
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok || text == "" {
		return ContentResponse{}, ErrEmptyResponse
	}

	usage := shared.TokenUsage{Model: c.model}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return ContentResponse{Content: string(text), Usage: usage}, nil
}
