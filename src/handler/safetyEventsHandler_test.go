package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradeledger/src/ledger"
	"tradeledger/src/model"
	"tradeledger/src/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSafetyEventsHandler(t *testing.T) {
	mockRepo := &mockLedger{events: []model.SafetyEvent{{
		EventID:     3,
		EventType:   model.EventTypeOrderRejected,
		Details:     model.MustJSON(map[string]any{"reason": "max_risk_exceeded"}),
		ActionTaken: "order_blocked",
	}}}
	handler := SearchSafetyEventsHandler(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/safety-events?eventType=ORDER_REJECTED&from=2025-03-01T00:00:00Z", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ledger.SafetyEventFilter{
		EventType: model.EventTypeOrderRejected,
		From:      "2025-03-01T00:00:00Z",
		Limit:     defaultPageSize,
	}, mockRepo.eventFilter)

	var body []model.SafetyEvent
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.JSONEq(t, `{"reason":"max_risk_exceeded"}`, string(body[0].Details))
}

func TestSearchSafetyEventsHandler_Errors(t *testing.T) {
	t.Run("bad window", func(t *testing.T) {
		rr := httptest.NewRecorder()
		SearchSafetyEventsHandler(&mockLedger{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/safety-events?to=soon", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("validation from the ledger", func(t *testing.T) {
		mockRepo := &mockLedger{err: &ledger.ValidationError{Field: "limit", Reason: "must not be negative"}}
		rr := httptest.NewRecorder()
		SearchSafetyEventsHandler(mockRepo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/safety-events", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockRepo := &mockLedger{err: &ledger.StorageError{Op: "query_safety_events", Err: assert.AnError}}
		rr := httptest.NewRecorder()
		SearchSafetyEventsHandler(mockRepo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/safety-events", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestSummaryHandler(t *testing.T) {
	pnl := 125.0
	mockRepo := &mockLedger{
		trades: []model.Trade{
			{TradeID: 1, Symbol: "AAPL", Status: model.TradeStatusFilled, MaxRisk: 500, CapitalRequired: 2000, PnL: &pnl},
			{TradeID: 2, Symbol: "AAPL", Status: model.TradeStatusSubmitted, MaxRisk: 300, CapitalRequired: 900},
		},
		events: []model.SafetyEvent{{EventType: model.EventTypeKillSwitch, ActionTaken: "trading_halted"}},
	}

	rr := httptest.NewRecorder()
	SummaryHandler(mockRepo, mockRepo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var summary report.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Trades.Total)
	assert.Equal(t, 1, summary.Trades.Open)
	assert.Equal(t, "800", summary.Trades.MaxRisk.String())
	assert.Equal(t, "125", summary.Trades.RealizedPnL.String())
	assert.Equal(t, 1, summary.SafetyEvents.ByKind[model.EventTypeKillSwitch])
}
