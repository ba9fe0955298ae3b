package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/simao-ai/rural-platform/cmd/mainconfig"
	"github.com/simao-ai/rural-platform/internal/app/bootstrap"
	appconfig "github.com/simao-ai/rural-platform/internal/config"
	"github.com/simao-ai/rural-platform/internal/conversation"
	"github.com/simao-ai/rural-platform/internal/messaging"
	"github.com/simao-ai/rural-platform/internal/observability/metrics"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

// Standalone queue consumer. The API enqueues inbound jobs to SQS and this
// binary drains them, so reply generation can scale separately from the
// HTTP tier.
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting conversation worker", "env", cfg.Env, "workers", cfg.WorkerCount)

	if cfg.UseMemoryQueue || cfg.InboundQueueURL == "" {
		logger.Error("conversation worker requires INBOUND_QUEUE_URL, the in-memory queue only lives inside the API process")
		os.Exit(1)
	}

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

	conversationMetrics := metrics.NewConversationMetrics(prometheus.NewRegistry())
	notifier := bootstrap.BuildNotifyService(cfg, awsCfg, logger)
	engine := bootstrap.BuildHandoffEngine(redisClient, cfg, awsCfg, notifier, logger)
	orchestrator := bootstrap.BuildOrchestrator(cfg, redisClient, llm, engine, conversationMetrics, logger)

	var opts []conversation.DispatcherOption
	if sender := messaging.NewGatewaySender(cfg.GatewayCallbackURL, cfg.GatewayToken, logger); sender != nil {
		opts = append(opts, conversation.WithMessenger(sender))
	} else {
		logger.Warn("no gateway callback configured, worker results are dropped when nobody waits on them")
	}
	dispatcher := bootstrap.BuildDispatcher(cfg, awsCfg, orchestrator, logger, opts...)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("conversation worker shutdown timed out", "error", err)
		return
	}
	logger.Info("conversation worker stopped")
}
