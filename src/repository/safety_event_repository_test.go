package repository

import (
	"context"
	"regexp"
	"testing"

	"tradeledger/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafetyEventRepositorySearch(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewSafetyEventRepository(mockDB)

	eventType := model.EventTypeOrderRejected
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "safety_events" WHERE event_type = $1 AND "timestamp" >= $2 ORDER BY "timestamp" ASC, event_id ASC LIMIT $3`)).
		WithArgs("ORDER_REJECTED", "2025-03-01T00:00:00Z", 10).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "timestamp", "event_type", "details", "action_taken"}).
			AddRow(4, "2025-03-01T10:00:00Z", "ORDER_REJECTED", `{"reason":"max_risk_exceeded"}`, "order_blocked"))

	events, err := repo.Search(context.Background(), SafetyEventSearchOptions{
		EventType: &eventType,
		From:      ptrString("2025-03-01T00:00:00Z"),
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint(4), events[0].EventID)
	assert.JSONEq(t, `{"reason":"max_risk_exceeded"}`, string(events[0].Details))
	assert.Equal(t, "order_blocked", events[0].ActionTaken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSafetyEventRepositoryCreate(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewSafetyEventRepository(mockDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "safety_events" ("timestamp","event_type","details","action_taken","created_at") VALUES ($1,$2,$3,$4,$5) RETURNING "event_id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(9))
	mock.ExpectCommit()

	event := &model.SafetyEvent{
		Timestamp:   "2025-03-01T10:00:00Z",
		EventType:   model.EventTypeCircuitBreaker,
		Details:     model.MustJSON(map[string]any{"drawdown": 0.12}),
		ActionTaken: "trading_halted",
	}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.Equal(t, uint(9), event.EventID)

	require.NoError(t, mock.ExpectationsWereMet())
}
