package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/elsastre/luisa/cmd/mainconfig"
	"github.com/elsastre/luisa/internal/api/router"
	appconfig "github.com/elsastre/luisa/internal/config"
	"github.com/elsastre/luisa/internal/conversation"
	"github.com/elsastre/luisa/internal/http/handlers"
	"github.com/elsastre/luisa/internal/notify"
	observemetrics "github.com/elsastre/luisa/internal/observability/metrics"
	"github.com/elsastre/luisa/internal/ratelimit"
	"github.com/elsastre/luisa/internal/whatsapp"
	"github.com/elsastre/luisa/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting luisa API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	var store *conversation.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = conversation.NewStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, running without persistence")
	}

	states := conversation.NewStateStore(rdb, nil, cfg.ConversationTTL)
	metrics := observemetrics.NewConversationMetrics(nil)

	gateway := whatsapp.NewClient(whatsapp.Config{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIVersion:    cfg.WhatsAppAPIVersion,
		Timeout:       cfg.WhatsAppSendTimeout,
		RetryAttempts: cfg.WhatsAppRetryAttempts,
		Redis:         rdb,
		Logger:        logger,
	})

	brainCfg := conversation.BrainConfig{
		MaxCalls:     cfg.LLMMaxCalls,
		BudgetWindow: cfg.LLMBudgetWindow,
		PlanCacheTTL: cfg.PlanCacheTTL,
		Logger:       logger,
	}
	if cfg.LLMEnabled && cfg.OpenAIAPIKey != "" {
		llm := conversation.NewFallbackLLMClient(
			conversation.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.LLMTimeout, logger),
			nil,
			logger,
		)
		brainCfg.Planner = conversation.NewPlanner(llm, cfg.LLMModel, logger)
		if cfg.ClassifierEnabled {
			brainCfg.Classifier = conversation.NewClassifier(llm, cfg.LLMModel, logger)
		}
		brainCfg.Humanizer = conversation.NewHumanizer(llm, cfg.LLMModel, cfg.HumanizerEnabled, logger)
	} else {
		logger.Info("language model disabled, running rules only")
	}
	brain := conversation.NewBrain(brainCfg)

	cache := conversation.NewReplyCache(cfg.ReplyCacheMaxSize, cfg.ReplyCacheTTL)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cache.CleanupExpired()
		}
	}()

	engine := conversation.NewEngine(conversation.EngineConfig{
		States:          states,
		Store:           store,
		Brain:           brain,
		Cache:           cache,
		Notifier:        notify.NewService(gateway, cfg.NotifyNumbers, logger),
		Sender:          gateway,
		Metrics:         metrics,
		Logger:          logger,
		HumanModeTTL:    cfg.HumanModeTTL,
		HandoffCooldown: cfg.HandoffCooldown,
	})

	var orchestrator *conversation.Orchestrator
	if cfg.UseMemoryQueue {
		orchestrator = conversation.NewOrchestrator(
			engine,
			conversation.NewMemoryQueue(128),
			logger,
			conversation.WithWorkerCount(cfg.WorkerCount),
		)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		orchestrator = conversation.NewOrchestrator(
			engine,
			conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.TaskQueueURL),
			logger,
			conversation.WithWorkerCount(cfg.WorkerCount),
		)
	}

	webhookHandler := handlers.NewWebhookHandler(handlers.WebhookConfig{
		VerifyToken: cfg.WhatsAppVerifyToken,
		Dispatcher:  orchestrator,
		Redis:       rdb,
		Limiter:     ratelimit.New(cfg.RateLimitPerMinute),
		Metrics:     metrics,
		Logger:      logger,
	})
	chatHandler := handlers.NewChatHandler(orchestrator, logger)
	opsHandler := handlers.NewOpsHandler(nil, cache, logger)
	if store != nil {
		// a nil *Store must not reach the handler as a non-nil interface
		opsHandler = handlers.NewOpsHandler(store, cache, logger)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Webhook:            webhookHandler,
		Chat:               chatHandler,
		Ops:                opsHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := orchestrator.Shutdown(ctx); err != nil {
		logger.Error("orchestrator forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
