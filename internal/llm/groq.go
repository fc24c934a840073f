package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ai-day-planner/internal/config"
	"ai-day-planner/internal/shared"

	openai "github.com/sashabaranov/go-openai"
)

const groqAPIURL = "https://api.groq.com/openai/v1"

// groqClient is a client for the Groq API, which speaks the OpenAI chat protocol.
type groqClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config) TextGenerator {
	return &groqClient{
		baseURL: groqAPIURL,
		model:   cfg.GroqModel,
		httpClient: &http.Client{
			Timeout: requestTimeout(cfg),
		},
	}
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *groqClient) GenerateContent(ctx context.Context, r Request) (ContentResponse, error) {
	if r.APIKey == "" {
		return ContentResponse{}, ErrMissingAPIKey
	}

	clientCfg := openai.DefaultConfig(r.APIKey)
	clientCfg.BaseURL = c.baseURL
	clientCfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: r.Prompt,
			},
		},
		Temperature: r.Temperature,
		MaxTokens:   int(r.MaxOutputTokens),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return ContentResponse{}, &StatusError{Provider: "groq", StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return ContentResponse{}, &StatusError{Provider: "groq", StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
		}
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return ContentResponse{}, ErrEmptyResponse
	}

	return ContentResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			Model:            c.model,
		},
	}, nil
}
