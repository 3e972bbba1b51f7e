package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loader reads so the host
// environment cannot leak into a test case.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "GROQ_API_KEY", "GROQ_MODEL",
		"GROQ_API_URL", "GENERATION_TIMEOUT", "PORT", "SESSION_SECRET", "SESSION_TTL",
		"REDIS_ADDR", "RATE_LIMIT_PER_MINUTE", "METRICS_DB_PATH", "METRICS_RETENTION_DAYS",
		"LOG_LEVEL", "LOG_FORMAT", "TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_URL",
		"TELEGRAM_ALLOWED_USER_IDS", "TRUST_PROXY_HEADERS",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		cfg, err := NewFromEnv()
		require.NoError(t, err)

		assert.Equal(t, ProviderGemini, cfg.LLMProvider)
		assert.Equal(t, "gemini_key", cfg.GeminiAPIKey)
		assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
		assert.Equal(t, 60*time.Second, cfg.GenerationTimeout)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
		assert.Equal(t, 10, cfg.RateLimitPerMinute)
		assert.Equal(t, 30, cfg.MetricsRetentionDays)
		assert.Empty(t, cfg.TelegramAllowedUserIDs)
		assert.False(t, cfg.TelegramEnabled())
		assert.False(t, cfg.TrustProxyHeaders)
	})

	t.Run("Overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("GENERATION_TIMEOUT", "15s")
		t.Setenv("PORT", "9090")
		t.Setenv("RATE_LIMIT_PER_MINUTE", "3")
		t.Setenv("TELEGRAM_BOT_TOKEN", "token")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "42, 7")
		t.Setenv("TRUST_PROXY_HEADERS", "true")

		cfg, err := NewFromEnv()
		require.NoError(t, err)

		assert.True(t, cfg.TrustProxyHeaders)

		assert.Equal(t, 15*time.Second, cfg.GenerationTimeout)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, 3, cfg.RateLimitPerMinute)
		assert.Equal(t, []int64{42, 7}, cfg.TelegramAllowedUserIDs)
		assert.True(t, cfg.TelegramEnabled())
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		clearEnv(t)

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.EqualError(t, err, "GEMINI_API_KEY environment variable not set")
	})

	t.Run("GroqProviderNeedsGroqKey", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "groq")
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		_, err := NewFromEnv()
		assert.EqualError(t, err, "GROQ_API_KEY environment variable not set")

		t.Setenv("GROQ_API_KEY", "groq_key")
		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ProviderGroq, cfg.LLMProvider)
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "openai")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported LLM_PROVIDER")
	})

	t.Run("NonPositiveLimits", func(t *testing.T) {
		tests := []struct {
			key, value, want string
		}{
			{"SESSION_TTL", "0s", "SESSION_TTL must be a positive duration"},
			{"SESSION_TTL", "-1h", "SESSION_TTL must be a positive duration"},
			{"RATE_LIMIT_PER_MINUTE", "0", "RATE_LIMIT_PER_MINUTE must be a positive integer"},
			{"RATE_LIMIT_PER_MINUTE", "-5", "RATE_LIMIT_PER_MINUTE must be a positive integer"},
			{"GENERATION_TIMEOUT", "0s", "GENERATION_TIMEOUT must be a positive duration"},
		}
		for _, tt := range tests {
			clearEnv(t)
			t.Setenv("GEMINI_API_KEY", "gemini_key")
			t.Setenv(tt.key, tt.value)

			_, err := NewFromEnv()
			assert.EqualError(t, err, tt.want, tt.key+"="+tt.value)
		}
	})

	t.Run("InvalidTelegramUserID", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12,abc")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TELEGRAM_ALLOWED_USER_IDS")
	})
}
