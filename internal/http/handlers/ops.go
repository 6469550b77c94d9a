package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/elsastre/luisa/internal/conversation"
	"github.com/elsastre/luisa/pkg/logging"
)

type opsStore interface {
	OpsSnapshot(ctx context.Context) (conversation.OpsSnapshot, error)
	ListHandoffs(ctx context.Context, limit int) ([]conversation.HandoffRecord, error)
}

// OpsHandler serves the read-only operator endpoints: pipeline aggregates,
// recent handoffs and reply cache statistics.
type OpsHandler struct {
	store  opsStore
	cache  *conversation.ReplyCache
	logger *logging.Logger
}

func NewOpsHandler(store opsStore, cache *conversation.ReplyCache, logger *logging.Logger) *OpsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &OpsHandler{store: store, cache: cache, logger: logger}
}

// Snapshot returns last-hour aggregates computed from interaction traces.
func (h *OpsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "trace store not configured", http.StatusServiceUnavailable)
		return
	}
	snapshot, err := h.store.OpsSnapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to build ops snapshot", "error", err)
		http.Error(w, "failed to build snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Handoffs lists the most recent handoffs, newest first.
func (h *OpsHandler) Handoffs(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "trace store not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	records, err := h.store.ListHandoffs(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list handoffs", "error", err)
		http.Error(w, "failed to list handoffs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handoffs": records})
}

// CacheStats reports reply cache hit rates.
func (h *OpsHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusOK, conversation.CacheStats{})
		return
	}
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
