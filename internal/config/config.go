package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	LLMProvider       string
	GeminiAPIKey      string
	GeminiModel       string
	GroqAPIKey        string
	GroqModel         string
	GroqAPIURL        string
	GenerationTimeout time.Duration

	Port               string
	SessionSecret      string
	SessionTTL         time.Duration
	RedisAddr          string
	RateLimitPerMinute int
	// TrustProxyHeaders takes the client IP from X-Forwarded-For/X-Real-IP.
	// Only enable it behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool

	MetricsDBPath        string
	MetricsRetentionDays int

	LogLevel  string
	LogFormat string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
}

// NewFromEnv creates a new Config object from environment variables.
// The credential of the selected provider is required; everything else
// falls back to a default.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LLM_PROVIDER", ProviderGemini)
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GROQ_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("GENERATION_TIMEOUT", "60s")
	v.SetDefault("PORT", "8080")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("METRICS_RETENTION_DAYS", 30)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	cfg := &Config{
		LLMProvider:          strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		GeminiAPIKey:         v.GetString("GEMINI_API_KEY"),
		GeminiModel:          v.GetString("GEMINI_MODEL"),
		GroqAPIKey:           v.GetString("GROQ_API_KEY"),
		GroqModel:            v.GetString("GROQ_MODEL"),
		GroqAPIURL:           v.GetString("GROQ_API_URL"),
		GenerationTimeout:    v.GetDuration("GENERATION_TIMEOUT"),
		Port:                 v.GetString("PORT"),
		SessionSecret:        v.GetString("SESSION_SECRET"),
		SessionTTL:           v.GetDuration("SESSION_TTL"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RateLimitPerMinute:   v.GetInt("RATE_LIMIT_PER_MINUTE"),
		TrustProxyHeaders:    v.GetBool("TRUST_PROXY_HEADERS"),
		MetricsDBPath:        v.GetString("METRICS_DB_PATH"),
		MetricsRetentionDays: v.GetInt("METRICS_RETENTION_DAYS"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		TelegramBotToken:     v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:   v.GetString("TELEGRAM_WEBHOOK_URL"),
	}

	switch cfg.LLMProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q (expected %q or %q)", cfg.LLMProvider, ProviderGemini, ProviderGroq)
	}

	if cfg.GenerationTimeout <= 0 {
		return nil, fmt.Errorf("GENERATION_TIMEOUT must be a positive duration")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be a positive duration")
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be a positive integer")
	}

	ids, err := parseUserIDs(v.GetString("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.TelegramAllowedUserIDs = ids

	return cfg, nil
}

// TelegramEnabled reports whether the Telegram front-end should start.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
