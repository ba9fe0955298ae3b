package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simao-ai/rural-platform/cmd/mainconfig"
	"github.com/simao-ai/rural-platform/internal/api/router"
	"github.com/simao-ai/rural-platform/internal/app/bootstrap"
	appconfig "github.com/simao-ai/rural-platform/internal/config"
	"github.com/simao-ai/rural-platform/internal/http/handlers"
	"github.com/simao-ai/rural-platform/internal/observability/metrics"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting rural-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for conversation state and handoff queues")
		os.Exit(1)
	}
	defer redisClient.Close()

	llm, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	registry := prometheus.NewRegistry()
	conversationMetrics := metrics.NewConversationMetrics(registry)

	notifier := bootstrap.BuildNotifyService(cfg, awsCfg, logger)
	engine := bootstrap.BuildHandoffEngine(redisClient, cfg, awsCfg, notifier, logger)
	orchestrator := bootstrap.BuildOrchestrator(cfg, redisClient, llm, engine, conversationMetrics, logger)
	dispatcher := bootstrap.BuildDispatcher(cfg, awsCfg, orchestrator, logger)

	routerCfg := &router.Config{
		Logger:         logger,
		Webhook:        handlers.NewWebhookHandler(dispatcher, logger),
		HandoffAdmin:   handlers.NewHandoffAdminHandler(engine, logger),
		AdminToken:     cfg.AdminToken,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
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
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher shutdown incomplete", "error", err)
	}

	logger.Info("server stopped")
}
