package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists messages, traces, handoffs and notifications in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

func (s *Store) SaveMessage(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO messages (id, conversation_id, direction, body, provider_message_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`
	_, err := s.pool.Exec(ctx, query, msg.ID, msg.ConversationID, msg.Direction, msg.Body, msg.ProviderMessageID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("conversation: save message: %w", err)
	}
	return nil
}

// ListRecentMessages returns the last limit messages for a conversation in
// chronological order.
func (s *Store) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 12
	}
	query := `
		SELECT id, conversation_id, direction, body, COALESCE(provider_message_id, ''), created_at
		FROM (
			SELECT id, conversation_id, direction, body, provider_message_id, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`
	rows, err := s.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: list recent messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Body, &m.ProviderMessageID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: list recent messages: %w", err)
	}
	return messages, nil
}

// SaveTrace implements TraceSink.
func (s *Store) SaveTrace(ctx context.Context, trace *InteractionTrace) error {
	query := `
		INSERT INTO interaction_traces (
			request_id, conversation_id, channel, customer_phone_hash,
			raw_text, normalized_text, intent, routed_team,
			llm_called, cache_hit, response_text, response_len_chars,
			latency_ms, decision_path, error_message,
			send_success, send_latency_ms, send_error_code, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.pool.Exec(ctx, query,
		trace.RequestID, trace.ConversationID, trace.Channel, trace.CustomerPhoneHash,
		trace.RawText, trace.NormalizedText, string(trace.Intent), string(trace.RoutedTeam),
		trace.LLMCalled, trace.CacheHit, trace.ResponseText, trace.ResponseLenChars,
		trace.LatencyMS, trace.DecisionPath, trace.ErrorMessage,
		trace.SendSuccess, trace.SendLatencyMS, trace.SendErrorCode, trace.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("conversation: save trace: %w", err)
	}
	return nil
}

// HandoffRecord is a persisted escalation to a human team.
type HandoffRecord struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversation_id"`
	Team              Team      `json:"team"`
	Priority          Priority  `json:"priority"`
	Reason            string    `json:"reason"`
	CustomerPhoneHash string    `json:"customer_phone_hash"`
	Summary           string    `json:"summary"`
	CreatedAt         time.Time `json:"created_at"`
}

func (s *Store) SaveHandoff(ctx context.Context, record HandoffRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO handoffs (id, conversation_id, team, priority, reason, customer_phone_hash, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		record.ID, record.ConversationID, string(record.Team), string(record.Priority),
		record.Reason, record.CustomerPhoneHash, record.Summary, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("conversation: save handoff: %w", err)
	}
	return nil
}

func (s *Store) ListHandoffs(ctx context.Context, limit int) ([]HandoffRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT id, conversation_id, team, priority, reason, customer_phone_hash, summary, created_at
		FROM handoffs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: list handoffs: %w", err)
	}
	defer rows.Close()

	var records []HandoffRecord
	for rows.Next() {
		var r HandoffRecord
		var team, priority string
		if err := rows.Scan(&r.ID, &r.ConversationID, &team, &priority, &r.Reason, &r.CustomerPhoneHash, &r.Summary, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan handoff: %w", err)
		}
		r.Team = Team(team)
		r.Priority = Priority(priority)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: list handoffs: %w", err)
	}
	return records, nil
}

// NotificationRecord is an internal team alert queued for delivery.
type NotificationRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Team           Team      `json:"team"`
	Recipient      string    `json:"recipient"`
	Body           string    `json:"body"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Store) SaveNotification(ctx context.Context, record NotificationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = "pending"
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO notifications (id, conversation_id, team, recipient, body, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		record.ID, record.ConversationID, string(record.Team), record.Recipient,
		record.Body, record.Status, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("conversation: save notification: %w", err)
	}
	return nil
}

// OpsSnapshot aggregates the last 60 minutes of traces.
type OpsSnapshot struct {
	TotalMessages60m int     `json:"total_msgs_60m"`
	PctRulesOnly     float64 `json:"pct_rules_only"`
	PctHandoff       float64 `json:"pct_handoff"`
	PctLLM           float64 `json:"pct_llm"`
	ErrorCount       int     `json:"error_count"`
	P95LatencyMS     float64 `json:"p95_latency_ms"`
}

func (s *Store) OpsSnapshot(ctx context.Context) (OpsSnapshot, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT llm_called),
			COUNT(*) FILTER (WHERE routed_team <> ''),
			COUNT(*) FILTER (WHERE llm_called),
			COUNT(*) FILTER (WHERE error_message <> ''),
			COALESCE(percentile_cont(0.95) WITHIN GROUP (ORDER BY latency_ms), 0)
		FROM interaction_traces
		WHERE created_at > now() - interval '60 minutes'
	`
	var snap OpsSnapshot
	var rulesOnly, handoffs, llmCalls int
	if err := s.pool.QueryRow(ctx, query).Scan(
		&snap.TotalMessages60m, &rulesOnly, &handoffs, &llmCalls, &snap.ErrorCount, &snap.P95LatencyMS,
	); err != nil {
		return OpsSnapshot{}, fmt.Errorf("conversation: ops snapshot: %w", err)
	}

	if snap.TotalMessages60m > 0 {
		total := float64(snap.TotalMessages60m)
		snap.PctRulesOnly = float64(rulesOnly) / total * 100
		snap.PctHandoff = float64(handoffs) / total * 100
		snap.PctLLM = float64(llmCalls) / total * 100
	}
	return snap, nil
}
