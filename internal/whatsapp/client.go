package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elsastre/luisa/internal/conversation"
	"github.com/elsastre/luisa/pkg/logging"
)

const (
	defaultAPIVersion     = "v20.0"
	defaultSendTimeout    = 8 * time.Second
	defaultRetryAttempts  = 2
	dedupTTL              = 120 * time.Second
	dedupFingerprintMax   = 50
	dedupFingerprintWords = 10
)

// Config wires the graph API client. An empty AccessToken disables sending:
// the client logs what it would have sent and reports success=false.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	Redis         *redis.Client
	Logger        *logging.Logger
}

// Client posts text messages through the WhatsApp Cloud API with retries
// and a short-lived Redis dedup guard against double sends.
type Client struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	retryAttempts int
	httpClient    *http.Client
	redis         *redis.Client
	logger        *logging.Logger

	sleep func(time.Duration)
}

var _ conversation.MessageSender = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/" + cfg.APIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	return &Client{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		retryAttempts: cfg.RetryAttempts,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		redis:         cfg.Redis,
		logger:        cfg.Logger,
		sleep:         time.Sleep,
	}
}

// Send delivers one text message. Client errors from the API (400, 401,
// 403) are not retried; everything else gets up to retryAttempts extra
// tries with linear backoff.
func (c *Client) Send(ctx context.Context, to, body string) (conversation.SendOutcome, error) {
	to = NormalizePhone(to)
	if to == "" || strings.TrimSpace(body) == "" {
		return conversation.SendOutcome{ErrorCode: "invalid_input"}, fmt.Errorf("whatsapp: recipient and body required")
	}

	if c.accessToken == "" {
		c.logger.Info("whatsapp gateway disabled, skipping send", "to", MaskPhone(to))
		return conversation.SendOutcome{Success: false, ErrorCode: "disabled"}, nil
	}

	if c.isDuplicate(ctx, to, body) {
		c.logger.Info("duplicate outbound suppressed", "to", MaskPhone(to))
		return conversation.SendOutcome{Success: true}, nil
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return conversation.SendOutcome{ErrorCode: "encode"}, fmt.Errorf("whatsapp: failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	started := time.Now()

	var lastErr error
	var lastCode string
	for attempt := 1; attempt <= 1+c.retryAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			lastErr = err
			lastCode = "request"
			break
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			lastCode = "network"
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				latency := float64(time.Since(started).Microseconds()) / 1000.0
				c.logger.Info("whatsapp message sent",
					"to", MaskPhone(to),
					"latency_ms", latency,
					"attempt", attempt,
				)
				return conversation.SendOutcome{Success: true, LatencyMS: latency}, nil
			}

			lastCode = fmt.Sprintf("http_%d", resp.StatusCode)
			lastErr = fmt.Errorf("whatsapp: send failed with status %d: %s", resp.StatusCode, truncate(string(respBody), 200))

			// Auth and validation failures will not improve on retry.
			if resp.StatusCode == http.StatusBadRequest ||
				resp.StatusCode == http.StatusUnauthorized ||
				resp.StatusCode == http.StatusForbidden {
				break
			}
		}

		if attempt <= c.retryAttempts {
			c.sleep(time.Duration(attempt) * time.Second)
		}
	}

	latency := float64(time.Since(started).Microseconds()) / 1000.0
	c.logger.Error("whatsapp send failed",
		"to", MaskPhone(to),
		"error_code", lastCode,
		"error", lastErr,
	)
	return conversation.SendOutcome{Success: false, LatencyMS: latency, ErrorCode: lastCode}, lastErr
}

// isDuplicate claims an outbox key in Redis; a second identical message to
// the same recipient inside the TTL window is suppressed. Redis errors fail
// open so a cache outage never blocks replies.
func (c *Client) isDuplicate(ctx context.Context, to, body string) bool {
	if c.redis == nil {
		return false
	}
	key := outboxKey(to, body, time.Now().UTC())
	ok, err := c.redis.SetNX(ctx, key, 1, dedupTTL).Result()
	if err != nil {
		c.logger.Warn("outbox dedup check failed", "error", err)
		return false
	}
	return !ok
}

func outboxKey(to, body string, now time.Time) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(body)))
	if len(words) > dedupFingerprintWords {
		words = words[:dedupFingerprintWords]
	}
	fingerprint := strings.Join(words, " ")
	if len(fingerprint) > dedupFingerprintMax {
		fingerprint = fingerprint[:dedupFingerprintMax]
	}
	return fmt.Sprintf("wa:outbox:%s:%s:%d", to, fingerprint, now.Unix()/60)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
