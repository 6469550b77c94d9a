package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elsastre/luisa/internal/conversation"
)

type fakeOpsStore struct {
	snapshot    conversation.OpsSnapshot
	snapshotErr error
	handoffs    []conversation.HandoffRecord
	gotLimit    int
}

func (f *fakeOpsStore) OpsSnapshot(_ context.Context) (conversation.OpsSnapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeOpsStore) ListHandoffs(_ context.Context, limit int) ([]conversation.HandoffRecord, error) {
	f.gotLimit = limit
	return f.handoffs, nil
}

func TestSnapshotReturnsAggregates(t *testing.T) {
	store := &fakeOpsStore{snapshot: conversation.OpsSnapshot{
		TotalMessages60m: 40,
		PctRulesOnly:     80,
		PctHandoff:       10,
		PctLLM:           10,
		P95LatencyMS:     230.5,
	}}
	h := NewOpsHandler(store, nil, nil)

	rec := httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/ops/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got conversation.OpsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 40, got.TotalMessages60m)
	assert.InDelta(t, 230.5, got.P95LatencyMS, 0.001)
}

func TestSnapshotStoreError(t *testing.T) {
	h := NewOpsHandler(&fakeOpsStore{snapshotErr: errors.New("db down")}, nil, nil)

	rec := httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/ops/snapshot", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandoffsPassesLimit(t *testing.T) {
	store := &fakeOpsStore{handoffs: []conversation.HandoffRecord{{
		ConversationID: "573001112233",
		Team:           conversation.TeamCommercial,
		Priority:       conversation.PriorityHigh,
	}}}
	h := NewOpsHandler(store, nil, nil)

	rec := httptest.NewRecorder()
	h.Handoffs(rec, httptest.NewRequest(http.MethodGet, "/ops/handoffs?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.gotLimit)
	assert.Contains(t, rec.Body.String(), "commercial")
}

func TestHandoffsRejectsBadLimit(t *testing.T) {
	h := NewOpsHandler(&fakeOpsStore{}, nil, nil)

	rec := httptest.NewRecorder()
	h.Handoffs(rec, httptest.NewRequest(http.MethodGet, "/ops/handoffs?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheStats(t *testing.T) {
	cache := conversation.NewReplyCache(10, time.Hour)
	cache.Set("¿cuál es el horario?", "Lunes a sábado")
	h := NewOpsHandler(nil, cache, nil)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/ops/cache", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got conversation.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Size)
}
