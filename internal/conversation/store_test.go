package conversation

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestStoreSaveMessage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), "57300111", DirectionInbound, "hola", "wamid.1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveMessage(context.Background(), Message{
		ConversationID:    "57300111",
		Direction:         DirectionInbound,
		Body:              "hola",
		ProviderMessageID: "wamid.1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListRecentMessagesChronological(t *testing.T) {
	store, mock := newMockStore(t)

	earlier := time.Now().Add(-2 * time.Minute)
	later := time.Now().Add(-1 * time.Minute)
	rows := pgxmock.NewRows([]string{"id", "conversation_id", "direction", "body", "provider_message_id", "created_at"}).
		AddRow("m1", "57300111", DirectionInbound, "hola", "", earlier).
		AddRow("m2", "57300111", DirectionOutbound, "¡Hola! ¿Qué necesitas?", "", later)
	mock.ExpectQuery("SELECT id, conversation_id, direction, body").
		WithArgs("57300111", 12).
		WillReturnRows(rows)

	got, err := store.ListRecentMessages(context.Background(), "57300111", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hola", got[0].Body)
	assert.Equal(t, DirectionOutbound, got[1].Direction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSaveTrace(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO interaction_traces").
		WithArgs(
			"req1", "57300111", "whatsapp", "abcd1234...2233",
			"hola", "hola", "buy_machine", "commercial",
			false, false, "respuesta", 9,
			12.5, "triage_greeting", "",
			pgxmock.AnyArg(), 0.0, "", pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveTrace(context.Background(), &InteractionTrace{
		RequestID:         "req1",
		ConversationID:    "57300111",
		Channel:           "whatsapp",
		CustomerPhoneHash: "abcd1234...2233",
		RawText:           "hola",
		NormalizedText:    "hola",
		Intent:            IntentBuyMachine,
		RoutedTeam:        TeamCommercial,
		ResponseText:      "respuesta",
		ResponseLenChars:  9,
		LatencyMS:         12.5,
		DecisionPath:      "triage_greeting",
		CreatedAt:         time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSaveAndListHandoffs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO handoffs").
		WithArgs(pgxmock.AnyArg(), "57300111", "technical", "urgent", "urgent_need", "abcd1234...2233", "resumen", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveHandoff(context.Background(), HandoffRecord{
		ConversationID:    "57300111",
		Team:              TeamTechnical,
		Priority:          PriorityUrgent,
		Reason:            "urgent_need",
		CustomerPhoneHash: "abcd1234...2233",
		Summary:           "resumen",
	})
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"id", "conversation_id", "team", "priority", "reason", "customer_phone_hash", "summary", "created_at"}).
		AddRow("h1", "57300111", "technical", "urgent", "urgent_need", "abcd1234...2233", "resumen", time.Now())
	mock.ExpectQuery("SELECT id, conversation_id, team, priority").
		WithArgs(5).
		WillReturnRows(rows)

	got, err := store.ListHandoffs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, TeamTechnical, got[0].Team)
	assert.Equal(t, PriorityUrgent, got[0].Priority)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSaveNotificationDefaults(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(pgxmock.AnyArg(), "57300111", "commercial", "573009998877", "aviso", "pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveNotification(context.Background(), NotificationRecord{
		ConversationID: "57300111",
		Team:           TeamCommercial,
		Recipient:      "573009998877",
		Body:           "aviso",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreOpsSnapshot(t *testing.T) {
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"count", "rules_only", "handoffs", "llm_calls", "errors", "p95"}).
		AddRow(10, 8, 2, 2, 1, 230.5)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	snap, err := store.OpsSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, snap.TotalMessages60m)
	assert.InDelta(t, 80.0, snap.PctRulesOnly, 0.01)
	assert.InDelta(t, 20.0, snap.PctHandoff, 0.01)
	assert.InDelta(t, 20.0, snap.PctLLM, 0.01)
	assert.Equal(t, 1, snap.ErrorCount)
	assert.InDelta(t, 230.5, snap.P95LatencyMS, 0.01)
	require.NoError(t, mock.ExpectationsWereMet())
}
