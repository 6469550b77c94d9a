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
	LogFormat      string
	UseMemoryQueue bool
	WorkerCount    int

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	TaskQueueURL        string

	// WhatsApp Cloud API gateway
	WhatsAppEnabled       bool
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppVerifyToken   string
	WhatsAppAPIVersion    string
	WhatsAppSendTimeout   time.Duration
	WhatsAppRetryAttempts int

	// Team numbers that receive handoff notifications
	NotifyNumbers []string

	// Language model orchestration
	LLMEnabled        bool
	OpenAIAPIKey      string
	LLMModel          string
	LLMTimeout        time.Duration
	LLMMaxCalls       int
	LLMBudgetWindow   time.Duration
	HumanizerEnabled  bool
	ClassifierEnabled bool

	// Conversation behavior
	ConversationTTL   time.Duration
	HumanModeTTL      time.Duration
	HandoffCooldown   time.Duration
	PlanCacheTTL      time.Duration
	ReplyCacheTTL     time.Duration
	ReplyCacheMaxSize int

	RateLimitPerMinute int

	// Origins allowed to call the chat/ops endpoints from a browser
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		TaskQueueURL:        getEnv("TASK_QUEUE_URL", ""),

		WhatsAppEnabled:       getEnvAsBool("WHATSAPP_ENABLED", false),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAPIVersion:    getEnv("WHATSAPP_API_VERSION", "v20.0"),
		WhatsAppSendTimeout:   getEnvAsDuration("WHATSAPP_SEND_TIMEOUT", 8*time.Second),
		WhatsAppRetryAttempts: getEnvAsInt("WHATSAPP_RETRY_ATTEMPTS", 2),

		NotifyNumbers: getEnvAsList("NOTIFY_NUMBERS"),

		LLMEnabled:        getEnvAsBool("LLM_ENABLED", false),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 8*time.Second),
		LLMMaxCalls:       getEnvAsInt("LLM_MAX_CALLS_PER_CONVERSATION", 4),
		LLMBudgetWindow:   getEnvAsDuration("LLM_BUDGET_WINDOW", 24*time.Hour),
		HumanizerEnabled:  getEnvAsBool("HUMANIZER_ENABLED", false),
		ClassifierEnabled: getEnvAsBool("CLASSIFIER_ENABLED", false),

		ConversationTTL:   getEnvAsDuration("CONVERSATION_TTL", 24*time.Hour),
		HumanModeTTL:      getEnvAsDuration("HUMAN_MODE_TTL", 12*time.Hour),
		HandoffCooldown:   getEnvAsDuration("HANDOFF_COOLDOWN", 30*time.Minute),
		PlanCacheTTL:      getEnvAsDuration("PLAN_CACHE_TTL", 5*time.Minute),
		ReplyCacheTTL:     getEnvAsDuration("REPLY_CACHE_TTL", 12*time.Hour),
		ReplyCacheMaxSize: getEnvAsInt("REPLY_CACHE_MAX_SIZE", 200),

		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 20),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
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

// getEnvAsList splits a comma-separated environment variable, dropping
// empty entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
