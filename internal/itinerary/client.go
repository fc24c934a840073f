package itinerary

import (
	"context"
	"errors"
	"time"

	"ai-day-planner/internal/llm"
	"ai-day-planner/internal/shared"
)

// ErrTransitReplacement is returned when asked to replace a transit entry.
var ErrTransitReplacement = errors.New("transit entries have no replacement")

// Options are the generation knobs of the client.
type Options struct {
	Temperature          float32
	ItineraryMaxTokens   int32
	ReplacementMaxTokens int32
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Temperature:          0.7,
		ItineraryMaxTokens:   4096,
		ReplacementMaxTokens: 512,
	}
}

// Client builds prompts, calls the model and parses its replies.
type Client struct {
	textGen llm.TextGenerator
	opts    Options
}

// NewClient creates a new Client. Zero options fall back to DefaultOptions.
func NewClient(textGen llm.TextGenerator, opts Options) *Client {
	def := DefaultOptions()
	if opts.Temperature == 0 {
		opts.Temperature = def.Temperature
	}
	if opts.ItineraryMaxTokens == 0 {
		opts.ItineraryMaxTokens = def.ItineraryMaxTokens
	}
	if opts.ReplacementMaxTokens == 0 {
		opts.ReplacementMaxTokens = def.ReplacementMaxTokens
	}
	return &Client{textGen: textGen, opts: opts}
}

type GenerateResult struct {
	Itinerary Itinerary
	Meta      shared.AgentMeta
}

type ReplacementResult struct {
	Entry Entry
	Meta  shared.AgentMeta
}

// Complete sends one prompt and returns the raw assistant text.
// No retry is attempted.
func (c *Client) Complete(ctx context.Context, credential, prompt string, maxTokens int32) (llm.ContentResponse, error) {
	if credential == "" {
		return llm.ContentResponse{}, ErrCredentialMissing
	}

	resp, err := c.textGen.GenerateContent(ctx, llm.Request{
		APIKey:          credential,
		Prompt:          prompt,
		Temperature:     c.opts.Temperature,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return llm.ContentResponse{}, newRequestError(err)
	}
	return resp, nil
}

// Generate produces a full itinerary for prefs.
func (c *Client) Generate(ctx context.Context, prefs TripPreferences, credential string) (GenerateResult, error) {
	if credential == "" {
		return GenerateResult{}, ErrCredentialMissing
	}

	start := time.Now()
	prompt, err := buildItineraryPrompt(prefs)
	if err != nil {
		return GenerateResult{}, err
	}

	resp, err := c.Complete(ctx, credential, prompt, c.opts.ItineraryMaxTokens)
	if err != nil {
		return GenerateResult{}, err
	}

	meta := shared.AgentMeta{
		AgentName: shared.OperationItinerary,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	it, err := ParseItinerary(resp.Content)
	if err != nil {
		return GenerateResult{Meta: meta}, err
	}
	return GenerateResult{Itinerary: it, Meta: meta}, nil
}

// Replacement asks for one alternative to original in the same time slot.
// Blank time or duration in the reply are taken from original.
func (c *Client) Replacement(ctx context.Context, prefs TripPreferences, original Entry, credential string) (ReplacementResult, error) {
	if original.IsTransit() {
		return ReplacementResult{}, ErrTransitReplacement
	}
	if credential == "" {
		return ReplacementResult{}, ErrCredentialMissing
	}

	start := time.Now()
	prompt, err := buildReplacementPrompt(prefs, original)
	if err != nil {
		return ReplacementResult{}, err
	}

	resp, err := c.Complete(ctx, credential, prompt, c.opts.ReplacementMaxTokens)
	if err != nil {
		return ReplacementResult{}, err
	}

	meta := shared.AgentMeta{
		AgentName: shared.OperationReplacement,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	entry, err := parseEntry(resp.Content, original)
	if err != nil {
		return ReplacementResult{Meta: meta}, err
	}
	return ReplacementResult{Entry: entry, Meta: meta}, nil
}
