package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	AdminToken     string
	UseMemoryQueue bool
	WorkerCount    int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Conversation engine
	ContextTTL          time.Duration
	IdleExpiryHours     int
	LLMTimeout          time.Duration
	GeminiAPIKey        string
	GeminiModelID       string
	BedrockModelID      string
	InboundQueueURL     string
	HandoffArchiveTable string
	HandoffRetention    time.Duration

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Agent-pool notifications
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	AgentPoolEmail    string
	AgentPoolPhone    string

	// Outbound gateway callback (worker mode)
	GatewayCallbackURL string
	GatewayToken       string

	// SMS alerts (urgent escalations)
	TelnyxAPIKey             string
	TelnyxFromNumber         string
	TelnyxMessagingProfileID string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ContextTTL:          getEnvAsDuration("CONVERSATION_CONTEXT_TTL", 7*24*time.Hour),
		IdleExpiryHours:     getEnvAsInt("CONVERSATION_IDLE_HOURS", 24),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		InboundQueueURL:     getEnv("INBOUND_QUEUE_URL", ""),
		HandoffArchiveTable: getEnv("HANDOFF_ARCHIVE_TABLE", "handoff_archive"),
		HandoffRetention:    getEnvAsDuration("HANDOFF_RETENTION", 30*24*time.Hour),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Simão IA Rural"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		AgentPoolEmail:    getEnv("AGENT_POOL_EMAIL", ""),
		AgentPoolPhone:    getEnv("AGENT_POOL_PHONE", ""),

		GatewayCallbackURL: getEnv("GATEWAY_CALLBACK_URL", ""),
		GatewayToken:       getEnv("GATEWAY_TOKEN", ""),

		TelnyxAPIKey:             getEnv("TELNYX_API_KEY", ""),
		TelnyxFromNumber:         getEnv("TELNYX_FROM_NUMBER", ""),
		TelnyxMessagingProfileID: getEnv("TELNYX_MESSAGING_PROFILE_ID", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
