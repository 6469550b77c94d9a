package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	trace *InteractionTrace
	err   error
}

func (s *captureSink) SaveTrace(_ context.Context, trace *InteractionTrace) error {
	s.trace = trace
	return s.err
}

func TestHashPhoneMasksNumber(t *testing.T) {
	got := HashPhone("+57 300 111-2233")

	require.NotEmpty(t, got)
	assert.True(t, strings.HasSuffix(got, "...2233"))
	assert.NotContains(t, got, "573001112233")
	assert.Len(t, got, 8+3+4)
}

func TestHashPhoneTooShort(t *testing.T) {
	assert.Empty(t, HashPhone("12"))
}

func TestTracerFinishPersistsTrace(t *testing.T) {
	sink := &captureSink{}
	tracer := NewTracer(sink, nil, "conv1", "whatsapp", "573001112233")
	// Back-date the start so the measured latency is positive regardless
	// of clock resolution.
	tracer.started = tracer.started.Add(-5 * time.Millisecond)
	tracer.Trace.RawText = "hola"
	tracer.Trace.ResponseText = "¡Hola! ¿Qué necesitas hoy?"
	tracer.Trace.Intent = IntentBuyMachine

	tracer.Finish(context.Background())

	require.NotNil(t, sink.trace)
	assert.Equal(t, "conv1", sink.trace.ConversationID)
	assert.True(t, strings.HasSuffix(sink.trace.CustomerPhoneHash, "...2233"))
	assert.Greater(t, sink.trace.LatencyMS, 0.0)
	assert.Equal(t, len([]rune("¡Hola! ¿Qué necesitas hoy?")), sink.trace.ResponseLenChars)
}

func TestTracerFinishTruncatesResponse(t *testing.T) {
	sink := &captureSink{}
	tracer := NewTracer(sink, nil, "conv1", "api", "")
	tracer.Trace.ResponseText = strings.Repeat("á", 600)

	tracer.Finish(context.Background())

	require.NotNil(t, sink.trace)
	assert.Equal(t, 500, len([]rune(sink.trace.ResponseText)))
	assert.Equal(t, 600, sink.trace.ResponseLenChars)
}

func TestTracerFinishSwallowsSinkErrors(t *testing.T) {
	sink := &captureSink{err: errors.New("db down")}
	tracer := NewTracer(sink, nil, "conv1", "api", "")

	assert.NotPanics(t, func() { tracer.Finish(context.Background()) })
}

func TestTracerRecordError(t *testing.T) {
	tracer := NewTracer(nil, nil, "conv1", "api", "")
	tracer.RecordError(errors.New("boom"))

	assert.Equal(t, "boom", tracer.Trace.ErrorMessage)
	assert.NotPanics(t, func() { tracer.Finish(context.Background()) })
}
