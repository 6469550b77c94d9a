package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, rdb *redis.Client) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(Config{
		AccessToken:   "test-token",
		PhoneNumberID: "12345",
		BaseURL:       server.URL,
		RetryAttempts: 2,
		Redis:         rdb,
	})
	c.sleep = func(time.Duration) {}
	return c
}

func TestSendSuccess(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/12345/messages", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}, nil)

	outcome, err := c.Send(context.Background(), "+57 300 111 2233", "¡Hola!")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Greater(t, outcome.LatencyMS, 0.0)
}

func TestSendRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, nil)

	outcome, err := c.Send(context.Background(), "573001112233", "hola")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)

	outcome, err := c.Send(context.Background(), "573001112233", "hola")
	require.Error(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, "http_401", outcome.ErrorCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendDisabledGateway(t *testing.T) {
	c := NewClient(Config{})

	outcome, err := c.Send(context.Background(), "573001112233", "hola")
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, "disabled", outcome.ErrorCode)
}

func TestSendSuppressesDuplicate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}, rdb)

	first, err := c.Send(context.Background(), "573001112233", "tu pedido va en camino")
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := c.Send(context.Background(), "573001112233", "tu pedido va en camino")
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOutboxKeyBucketsByMinute(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 30, 0, time.UTC)
	k1 := outboxKey("573001112233", "hola, ¿cómo estás?", base)
	k2 := outboxKey("573001112233", "hola, ¿cómo estás?", base.Add(10*time.Second))
	k3 := outboxKey("573001112233", "hola, ¿cómo estás?", base.Add(2*time.Minute))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
