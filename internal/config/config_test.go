package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "")
	t.Setenv("NOTIFY_NUMBERS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue by default")
	}
	if cfg.LLMMaxCalls != 4 {
		t.Fatalf("expected default call budget 4, got %d", cfg.LLMMaxCalls)
	}
	if cfg.HumanModeTTL != 12*time.Hour {
		t.Fatalf("expected default human mode TTL, got %s", cfg.HumanModeTTL)
	}
	if cfg.RateLimitPerMinute != 20 {
		t.Fatalf("expected default rate limit 20, got %d", cfg.RateLimitPerMinute)
	}
	if len(cfg.NotifyNumbers) != 0 {
		t.Fatalf("expected no notify numbers by default, got %v", cfg.NotifyNumbers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("WHATSAPP_ENABLED", "true")
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify-me")
	t.Setenv("NOTIFY_NUMBERS", "573001112233, 573004445566")
	t.Setenv("LLM_MAX_CALLS_PER_CONVERSATION", "6")
	t.Setenv("HUMAN_MODE_TTL", "6h")
	t.Setenv("REPLY_CACHE_MAX_SIZE", "50")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ops.elsastre.co, http://localhost:5173")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if !cfg.WhatsAppEnabled {
		t.Fatalf("expected whatsapp enabled")
	}
	if cfg.WhatsAppVerifyToken != "verify-me" {
		t.Fatalf("expected verify token override, got %s", cfg.WhatsAppVerifyToken)
	}
	if len(cfg.NotifyNumbers) != 2 || cfg.NotifyNumbers[1] != "573004445566" {
		t.Fatalf("expected notify numbers parsed, got %v", cfg.NotifyNumbers)
	}
	if cfg.LLMMaxCalls != 6 {
		t.Fatalf("expected call budget override, got %d", cfg.LLMMaxCalls)
	}
	if cfg.HumanModeTTL != 6*time.Hour {
		t.Fatalf("expected human mode TTL override, got %s", cfg.HumanModeTTL)
	}
	if cfg.ReplyCacheMaxSize != 50 {
		t.Fatalf("expected cache size override, got %d", cfg.ReplyCacheMaxSize)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://ops.elsastre.co" {
		t.Fatalf("expected CORS origins parsed, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "not-a-number")
	t.Setenv("WHATSAPP_ENABLED", "maybe")
	t.Setenv("LLM_TIMEOUT", "soon")
	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Fatalf("expected worker count fallback, got %d", cfg.WorkerCount)
	}
	if cfg.WhatsAppEnabled {
		t.Fatalf("expected whatsapp disabled on unparseable bool")
	}
	if cfg.LLMTimeout != 8*time.Second {
		t.Fatalf("expected timeout fallback, got %s", cfg.LLMTimeout)
	}
}
