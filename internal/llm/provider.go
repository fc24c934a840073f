package llm

import (
	"fmt"

	"ai-day-planner/internal/config"
)

// NewTextGenerator returns the generator selected by LLM_PROVIDER.
func NewTextGenerator(cfg *config.Config) (TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg), nil
	case config.ProviderGeminiSDK:
		return NewGeminiSDKClient(cfg), nil
	case config.ProviderGroq:
		return NewGroqClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
}
