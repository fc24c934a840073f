package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-day-planner/internal/config"
	"ai-day-planner/internal/shared"
)

const defaultTimeout = 60 * time.Second

func requestTimeout(cfg *config.Config) time.Duration {
	if cfg.RequestTimeout > 0 {
		return cfg.RequestTimeout
	}
	return defaultTimeout
}

// geminiClient talks to the Gemini generateContent REST endpoint.
type geminiClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiClient creates a new Gemini REST client.
// The API key travels in the x-goog-api-key header so it never shows up in URLs or access logs.
func NewGeminiClient(cfg *config.Config) TextGenerator {
	return &geminiClient{
		baseURL: strings.TrimRight(cfg.GeminiBaseURL, "/"),
		model:   cfg.GeminiModel,
		httpClient: &http.Client{
			Timeout: requestTimeout(cfg),
		},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float32 `json:"temperature"`
		MaxOutputTokens int32   `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *geminiClient) GenerateContent(ctx context.Context, r Request) (ContentResponse, error) {
	if r.APIKey == "" {
		return ContentResponse{}, ErrMissingAPIKey
	}

	var body geminiRequest
	body.Contents = []geminiContent{{Parts: []geminiPart{{Text: r.Prompt}}}}
	body.GenerationConfig.Temperature = r.Temperature
	body.GenerationConfig.MaxOutputTokens = r.MaxOutputTokens

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", r.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, &StatusError{Provider: "gemini", StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return ContentResponse{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(geminiResp.Candidates) == 0 ||
		geminiResp.Candidates[0].Content == nil ||
		len(geminiResp.Candidates[0].Content.Parts) == 0 ||
		geminiResp.Candidates[0].Content.Parts[0].Text == nil {
		return ContentResponse{}, ErrEmptyResponse
	}

	return ContentResponse{
		Content: *geminiResp.Candidates[0].Content.Parts[0].Text,
		Usage: shared.TokenUsage{
			PromptTokens:     geminiResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      geminiResp.UsageMetadata.TotalTokenCount,
			Model:            c.model,
		},
	}, nil
}
