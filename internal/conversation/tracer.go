package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elsastre/luisa/pkg/logging"
)

// InteractionTrace is the audit record for one processed message. Phones
// are stored hashed and response text is truncated.
type InteractionTrace struct {
	RequestID         string
	ConversationID    string
	Channel           string
	CustomerPhoneHash string
	RawText           string
	NormalizedText    string
	Intent            Intent
	RoutedTeam        Team
	LLMCalled         bool
	CacheHit          bool
	ResponseText      string
	ResponseLenChars  int
	LatencyMS         float64
	DecisionPath      string
	ErrorMessage      string
	SendSuccess       *bool
	SendLatencyMS     float64
	SendErrorCode     string
	CreatedAt         time.Time
}

// TraceSink persists traces. Implementations must tolerate being handed
// partially filled traces.
type TraceSink interface {
	SaveTrace(ctx context.Context, trace *InteractionTrace) error
}

const traceResponseMaxChars = 500

// HashPhone reduces a phone number to "sha8...last4" so traces never hold
// a full number.
func HashPhone(phone string) string {
	clean := strings.NewReplacer("+", "", " ", "", "-", "").Replace(phone)
	if len(clean) < 4 {
		return ""
	}
	sum := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:])[:8] + "..." + clean[len(clean)-4:]
}

// Tracer measures and records a single interaction. Create one per
// inbound message, fill fields while processing, then Finish.
type Tracer struct {
	Trace InteractionTrace

	sink    TraceSink
	logger  *logging.Logger
	started time.Time
}

func NewTracer(sink TraceSink, logger *logging.Logger, conversationID, channel, customerPhone string) *Tracer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracer{
		Trace: InteractionTrace{
			RequestID:         uuid.NewString(),
			ConversationID:    conversationID,
			Channel:           channel,
			CustomerPhoneHash: HashPhone(customerPhone),
			CreatedAt:         time.Now().UTC(),
		},
		sink:    sink,
		logger:  logger,
		started: time.Now(),
	}
}

// RecordError notes a processing failure on the trace. The caller still
// propagates the error; tracing only observes it.
func (t *Tracer) RecordError(err error) {
	if err != nil {
		t.Trace.ErrorMessage = err.Error()
	}
}

// Finish stops the timer, logs the interaction and persists the trace.
// Persistence failures are logged and swallowed so tracing can never break
// message processing.
func (t *Tracer) Finish(ctx context.Context) {
	t.Trace.LatencyMS = float64(time.Since(t.started).Microseconds()) / 1000.0
	t.Trace.ResponseLenChars = len([]rune(t.Trace.ResponseText))
	if runes := []rune(t.Trace.ResponseText); len(runes) > traceResponseMaxChars {
		t.Trace.ResponseText = string(runes[:traceResponseMaxChars])
	}

	t.logger.Info("interaction traced",
		"request_id", t.Trace.RequestID,
		"conversation_id", t.Trace.ConversationID,
		"channel", t.Trace.Channel,
		"intent", string(t.Trace.Intent),
		"routed_team", string(t.Trace.RoutedTeam),
		"llm_called", t.Trace.LLMCalled,
		"cache_hit", t.Trace.CacheHit,
		"latency_ms", t.Trace.LatencyMS,
		"decision_path", t.Trace.DecisionPath,
		"error", t.Trace.ErrorMessage,
	)

	if t.sink == nil {
		return
	}
	if err := t.sink.SaveTrace(ctx, &t.Trace); err != nil {
		t.logger.Error("failed to persist trace",
			"request_id", t.Trace.RequestID,
			"error", err.Error(),
		)
	}
}
