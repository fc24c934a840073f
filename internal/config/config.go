package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Supported values for LLM_PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderGeminiSDK = "gemini-sdk"
	ProviderGroq      = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GroqAPIKey    string
	GroqModel     string

	Temperature          float32
	ItineraryMaxTokens   int32
	ReplacementMaxTokens int32
	RequestTimeout       time.Duration

	DatabasePath string
	LogLevel     string
	Port         string

	// Telegram Config
	TelegramBotToken    string
	TelegramWebhookURL  string
	TelegramAllowUserID int64

	PublicBaseURL string
	ShareSecret   string
	ShareTTL      time.Duration
	SessionTTL    time.Duration
}

// NewFromEnv creates a new Config object from environment variables.
// No credential is required here: the API key may be supplied later by the user.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		LLMProvider:        getEnv("LLM_PROVIDER", ProviderGemini),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-pro-latest"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqModel:          getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		DatabasePath:       getEnv("DATABASE_PATH", "data/day-planner.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		ShareSecret:        os.Getenv("SHARE_SECRET"),
	}

	switch cfg.LLMProvider {
	case ProviderGemini, ProviderGeminiSDK, ProviderGroq:
	default:
		return nil, fmt.Errorf("LLM_PROVIDER %q is not supported", cfg.LLMProvider)
	}

	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.7"), 32)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}
	cfg.Temperature = float32(temperature)

	if cfg.ItineraryMaxTokens, err = getEnvInt32("ITINERARY_MAX_TOKENS", 4096); err != nil {
		return nil, err
	}
	if cfg.ReplacementMaxTokens, err = getEnvInt32("REPLACEMENT_MAX_TOKENS", 512); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("LLM_REQUEST_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShareTTL, err = getEnvDuration("SHARE_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 2*time.Hour); err != nil {
		return nil, err
	}

	// Telegram Config (Optional for CLI, required for Bot)
	if v := os.Getenv("TELEGRAM_ALLOW_USER_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_ID: %w", err)
		}
		cfg.TelegramAllowUserID = id
	}

	return cfg, nil
}

// RequireTelegram checks the variables only the bot needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	if c.TelegramAllowUserID == 0 {
		return fmt.Errorf("TELEGRAM_ALLOW_USER_ID environment variable not set")
	}
	return nil
}

// Credentials returns the credential source seeded with the environment
// default of the configured provider.
func (c *Config) Credentials() CredentialSource {
	if c.LLMProvider == ProviderGroq {
		return CredentialSource{Default: c.GroqAPIKey}
	}
	return CredentialSource{Default: c.GeminiAPIKey}
}

// CredentialLabel names the key the configured provider expects.
func (c *Config) CredentialLabel() string {
	if c.LLMProvider == ProviderGroq {
		return "Groq API key"
	}
	return "Gemini API key"
}

// Model returns the model name of the configured provider.
func (c *Config) Model() string {
	if c.LLMProvider == ProviderGroq {
		return c.GroqModel
	}
	return c.GeminiModel
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) (int32, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return int32(n), nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
