package shared

import (
	"time"
)

// Operation names used when recording model calls.
const (
	OperationItinerary   = "Itinerary"
	OperationReplacement = "Replacement"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for a single model call.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
