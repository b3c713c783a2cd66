package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medassist-ai/cmd/mainconfig"
	"github.com/wolfman30/medassist-ai/internal/api/router"
	"github.com/wolfman30/medassist-ai/internal/calendar"
	"github.com/wolfman30/medassist-ai/internal/compliance"
	appconfig "github.com/wolfman30/medassist-ai/internal/config"
	"github.com/wolfman30/medassist-ai/internal/conversation"
	"github.com/wolfman30/medassist-ai/internal/http/handlers"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/internal/sessions"
	"github.com/wolfman30/medassist-ai/internal/webchat"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medassist-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"calendar_backend", cfg.CalendarBackend,
	)

	ctx := context.Background()
	bookingMetrics := metrics.NewBookingMetrics(nil)

	// Calendar storage
	store, err := buildCalendarStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize calendar store", "error", err)
		os.Exit(1)
	}
	hours := calendar.Hours{Start: cfg.SlotDayStart, End: cfg.SlotDayEnd, Interval: cfg.SlotInterval}
	allocator, err := calendar.NewAllocator(store, hours, logger, bookingMetrics)
	if err != nil {
		logger.Error("invalid business hours", "error", err)
		os.Exit(1)
	}

	// Model providers
	llm, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	svc := conversation.NewService(llm, allocator, conversation.ServiceConfig{
		ModelID:         modelIDFor(cfg, cfg.LLMProvider),
		MaxTokens:       1024,
		Temperature:     0.7,
		MaxHistoryTurns: cfg.MaxHistoryTurns,
	}, logger, bookingMetrics)

	// Session persistence
	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	sessionStore := sessions.NewStore(redisClient, cfg.SessionTTL, nil)

	// Audit trail (optional, needs a database)
	var audit *compliance.AuditService
	var adminAudit *handlers.AdminAuditHandler
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		audit = compliance.NewAuditService(db)
		adminAudit = handlers.NewAdminAuditHandler(audit, logger)
	} else {
		logger.Warn("DATABASE_URL not set; audit logging disabled")
	}

	chatHandler := handlers.NewChatHandler(svc, sessionStore, audit, logger, cfg.DefaultUserID)
	webchatHandler := webchat.NewHandler(svc, sessionStore, logger, cfg.DefaultUserID)

	r := router.New(&router.Config{
		Logger:          logger,
		ChatHandler:     chatHandler,
		WebChatHandler:  webchatHandler,
		AdminAudit:      adminAudit,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func buildCalendarStore(ctx context.Context, cfg *appconfig.Config) (calendar.Store, error) {
	switch cfg.CalendarBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres calendar backend requires DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return calendar.NewPostgresStore(pool), nil
	case "file":
		return calendar.NewFileStore(cfg.CalendarFile), nil
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", cfg.CalendarBackend)
	}
}

func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, error) {
	primary, err := buildProvider(ctx, cfg, cfg.LLMProvider)
	if err != nil {
		return nil, err
	}
	if cfg.LLMFallbackProvider == "" || cfg.LLMFallbackProvider == cfg.LLMProvider {
		return primary, nil
	}

	fallback, err := buildProvider(ctx, cfg, cfg.LLMFallbackProvider)
	if err != nil {
		logger.Warn("fallback provider unavailable; continuing without it",
			"provider", cfg.LLMFallbackProvider, "error", err)
		return primary, nil
	}
	return conversation.NewFallbackLLMClient(primary, fallback, logger), nil
}

func buildProvider(ctx context.Context, cfg *appconfig.Config, provider string) (conversation.LLMClient, error) {
	switch provider {
	case "bedrock":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)), nil
	case "gemini":
		return conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	case "ollama":
		return conversation.NewOllamaLLMClient(cfg.OllamaBaseURL, cfg.OllamaModelID, nil), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

func modelIDFor(cfg *appconfig.Config, provider string) string {
	switch provider {
	case "gemini":
		return cfg.GeminiModelID
	case "ollama":
		return cfg.OllamaModelID
	default:
		return cfg.BedrockModelID
	}
}
