package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elsastre/luisa/internal/conversation"
	observemetrics "github.com/elsastre/luisa/internal/observability/metrics"
	"github.com/elsastre/luisa/internal/ratelimit"
	"github.com/elsastre/luisa/internal/whatsapp"
	"github.com/elsastre/luisa/pkg/logging"
)

const idempotencyTTL = 24 * time.Hour

// WebhookHandler terminates the WhatsApp Cloud API webhook: the GET
// verification handshake and the POST message ingestion path.
type WebhookHandler struct {
	verifyToken string
	dispatcher  conversation.Dispatcher
	redis       *redis.Client
	limiter     *ratelimit.Limiter
	metrics     *observemetrics.ConversationMetrics
	logger      *logging.Logger
}

type WebhookConfig struct {
	VerifyToken string
	Dispatcher  conversation.Dispatcher
	Redis       *redis.Client
	Limiter     *ratelimit.Limiter
	Metrics     *observemetrics.ConversationMetrics
	Logger      *logging.Logger
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(ratelimit.DefaultPerMinute)
	}
	return &WebhookHandler{
		verifyToken: cfg.VerifyToken,
		dispatcher:  cfg.Dispatcher,
		redis:       cfg.Redis,
		limiter:     cfg.Limiter,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Verify answers Meta's subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken && h.verifyToken != "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	h.logger.Warn("webhook verification rejected", "mode", q.Get("hub.mode"))
	w.WriteHeader(http.StatusForbidden)
}

// Ingest acks the provider fast and enqueues any text message for async
// processing. Status updates and unparseable payloads are acked and
// dropped; the only non-200 outcome is the per-sender rate limit.
func (h *WebhookHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.metrics.ObserveInbound("unreadable", "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	in, kind := whatsapp.ParseWebhook(body)
	if kind != whatsapp.PayloadText {
		h.metrics.ObserveInbound(string(kind), "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if !h.claimMessage(r, in.ProviderMessageID) {
		h.metrics.ObserveInbound("text", "duplicate")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if !h.limiter.Allow("wa:" + in.From) {
		h.metrics.ObserveInbound("text", "rate_limited")
		h.logger.Warn("sender rate limited", "from", whatsapp.MaskPhone(in.From))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "rate_limited"})
		return
	}

	msg := conversation.InboundMessage{
		ConversationID:    in.From,
		ContactName:       in.ContactName,
		Body:              in.Body,
		ProviderMessageID: in.ProviderMessageID,
		Channel:           conversation.ChannelWhatsApp,
	}
	if err := h.dispatcher.Dispatch(r.Context(), msg); err != nil {
		// The idempotency claim is already taken, so a provider retry
		// would be dropped. Ack and surface the loss in the logs.
		h.logger.Error("failed to enqueue inbound message",
			"error", err,
			"from", whatsapp.MaskPhone(in.From),
		)
		h.metrics.ObserveInbound("text", "enqueue_failed")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	h.metrics.ObserveInbound("text", "accepted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// claimMessage takes the idempotency claim for a provider message id. The
// claim precedes every other side effect; Redis errors fail open.
func (h *WebhookHandler) claimMessage(r *http.Request, providerMessageID string) bool {
	if h.redis == nil || providerMessageID == "" {
		return true
	}
	ok, err := h.redis.SetNX(r.Context(), "wa:msg:"+providerMessageID, 1, idempotencyTTL).Result()
	if err != nil {
		h.logger.Warn("idempotency claim failed", "error", err)
		return true
	}
	return ok
}
