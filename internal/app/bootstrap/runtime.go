package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/simao-ai/rural-platform/internal/config"
	"github.com/simao-ai/rural-platform/internal/conversation"
	"github.com/simao-ai/rural-platform/internal/handoff"
	"github.com/simao-ai/rural-platform/internal/notify"
	"github.com/simao-ai/rural-platform/internal/observability/metrics"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildLLMClient assembles the reply generator: Gemini primary, Bedrock
// fallback. The returned closer releases the Gemini connection.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	closer := func() {}

	var primary conversation.LLMClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini unavailable, continuing without it", "error", err)
		} else {
			primary = gemini
			closer = func() { _ = gemini.Close() }
		}
	}

	var fallback conversation.LLMClient
	if strings.TrimSpace(cfg.BedrockModelID) != "" {
		fallback = conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	}

	switch {
	case primary != nil && fallback != nil:
		return conversation.NewFallbackLLMClient(primary, fallback, logger), closer, nil
	case primary != nil:
		return primary, closer, nil
	case fallback != nil:
		return fallback, closer, nil
	default:
		return nil, closer, errors.New("bootstrap: no LLM provider configured, set GEMINI_API_KEY or BEDROCK_MODEL_ID")
	}
}

// BuildNotifyService wires the agent-pool alert channels. Returns nil when
// no channel is configured, which the escalation engine tolerates.
func BuildNotifyService(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *notify.Service {
	if logger == nil {
		logger = logging.Default()
	}

	var email notify.EmailSender
	switch cfg.EmailProvider {
	case "ses":
		email = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "sendgrid":
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			email = sg
		}
	default:
		// auto: prefer SendGrid when its key is present, then SES.
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			email = sg
		} else if strings.TrimSpace(cfg.SESFromEmail) != "" {
			email = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
		}
	}

	var sms notify.SMSSender
	if telnyx := notify.NewTelnyxSMSSender(cfg.TelnyxAPIKey, cfg.TelnyxFromNumber, cfg.TelnyxMessagingProfileID, logger); telnyx != nil {
		sms = telnyx
	}

	if email == nil && sms == nil {
		logger.Warn("no agent-pool alert channels configured")
		return nil
	}
	return notify.NewService(email, sms, cfg.AgentPoolEmail, cfg.AgentPoolPhone, logger)
}

// BuildHandoffEngine wires the escalation queues with their notifier and
// DynamoDB archive.
func BuildHandoffEngine(redisClient *redis.Client, cfg *appconfig.Config, awsCfg aws.Config, notifier handoff.Notifier, logger *logging.Logger) *handoff.Engine {
	var archiver handoff.Archiver
	if strings.TrimSpace(cfg.HandoffArchiveTable) != "" {
		archiver = handoff.NewDynamoArchive(dynamodb.NewFromConfig(awsCfg), cfg.HandoffArchiveTable, cfg.HandoffRetention, logger)
	}
	return handoff.NewEngine(redisClient, notifier, archiver, cfg.HandoffRetention, logger)
}

// BuildOrchestrator assembles the full inbound pipeline over the shared
// Redis state store.
func BuildOrchestrator(cfg *appconfig.Config, redisClient *redis.Client, llm conversation.LLMClient, engine *handoff.Engine, m *metrics.ConversationMetrics, logger *logging.Logger) *conversation.Orchestrator {
	store := conversation.NewRedisStateStore(redisClient, cfg.ContextTTL, logger)
	modelID := cfg.GeminiModelID
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		modelID = cfg.BedrockModelID
	}
	return conversation.NewOrchestrator(store, llm, engine, conversation.OrchestratorConfig{
		LLMTimeout: cfg.LLMTimeout,
		IdleExpiry: time.Duration(cfg.IdleExpiryHours) * time.Hour,
		ModelID:    modelID,
		Metrics:    m,
		Logger:     logger,
	})
}

// BuildDispatcher picks the queue backing: in-memory for local development,
// SQS everywhere else.
func BuildDispatcher(cfg *appconfig.Config, awsCfg aws.Config, orchestrator *conversation.Orchestrator, logger *logging.Logger, extra ...conversation.DispatcherOption) *conversation.Dispatcher {
	opts := []conversation.DispatcherOption{conversation.WithWorkerCount(cfg.WorkerCount)}
	opts = append(opts, extra...)
	if cfg.UseMemoryQueue || strings.TrimSpace(cfg.InboundQueueURL) == "" {
		return conversation.NewDispatcher(orchestrator, conversation.NewMemoryQueue(64), logger, opts...)
	}
	queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.InboundQueueURL)
	return conversation.NewDispatcher(orchestrator, queue, logger, opts...)
}
