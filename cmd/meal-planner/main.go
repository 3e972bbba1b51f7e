package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weekly-meal-planner/internal/app"
	"weekly-meal-planner/internal/config"
	"weekly-meal-planner/internal/database"
	"weekly-meal-planner/internal/llm"
	"weekly-meal-planner/internal/logger"
	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/session"
	"weekly-meal-planner/internal/telegram"
	"weekly-meal-planner/internal/web"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("meal planner stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize the generation provider
	textGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := textGen.(llm.Closer); ok {
		defer c.Close()
	}
	log.Info("generation provider ready", zap.String("provider", cfg.LLMProvider))

	// 3. Optional token usage store
	var usage *metrics.Store
	if cfg.MetricsDBPath != "" {
		db, err := database.NewDB(cfg.MetricsDBPath, log)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		usage = metrics.NewStore(db.SQL)
		removed, err := usage.Cleanup(ctx, cfg.MetricsRetentionDays)
		if err != nil {
			log.Warn("usage cleanup failed", zap.Error(err))
		} else {
			log.Info("usage cleanup finished", zap.Int64("removed", removed))
		}
	}

	// 4. Session store
	var sessions session.Store
	if cfg.RedisAddr != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.SessionTTL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		sessions = redisStore
		log.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	} else {
		memStore := session.NewMemoryStore(cfg.SessionTTL)
		go memStore.RunCleanup(ctx, 10*time.Minute)
		sessions = memStore
	}

	// 5. Initialize Services
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mealPlanner := planner.NewPlanner(textGen, cfg.GenerationTimeout)
	application := app.NewApp(mealPlanner, sessions, usage, metrics.NewCollector(registry), log)

	secret, err := sessionSecret(cfg, log)
	if err != nil {
		return err
	}

	opts := web.Options{
		App:                application,
		Logger:             log,
		SessionSecret:      secret,
		SessionTTL:         cfg.SessionTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		Gatherer:           registry,
		DataPath:           cfg.MetricsDBPath,
	}

	// 6. Optional Telegram Bot
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg, application, usage, log)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram Bot: %w", err)
		}
		opts.Telegram = bot
	}

	server := web.NewServer(opts)
	defer server.Close()

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Generation can take up to the configured timeout.
		WriteTimeout: cfg.GenerationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("meal planner listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exiting")
	return nil
}

func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, error) {
	if cfg.LLMProvider == config.ProviderGroq {
		return llm.NewGroqClient(cfg, 0.9), nil
	}
	gemini, err := llm.NewGeminiClient(ctx, cfg, llm.WithResponseSchema(planner.GeminiSchema()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return gemini, nil
}

// sessionSecret returns the configured signing key, or a random one that
// lasts for the life of the process.
func sessionSecret(cfg *config.Config, log *zap.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	log.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	return secret, nil
}
