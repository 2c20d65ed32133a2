package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradeledger/src/ledger"
	"tradeledger/src/model"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLedger struct {
	trades      []model.Trade
	events      []model.SafetyEvent
	err         error
	tradeFilter ledger.TradeFilter
	eventFilter ledger.SafetyEventFilter
	calledCount int
}

func (m *mockLedger) QueryTrades(ctx context.Context, filter ledger.TradeFilter) iter.Seq2[model.Trade, error] {
	m.calledCount++
	m.tradeFilter = filter
	return func(yield func(model.Trade, error) bool) {
		if m.err != nil {
			yield(model.Trade{}, m.err)
			return
		}
		for _, trade := range m.trades {
			if !yield(trade, nil) {
				return
			}
		}
	}
}

func (m *mockLedger) GetTrade(ctx context.Context, tradeID uint) (*model.Trade, error) {
	m.calledCount++
	if m.err != nil {
		return nil, m.err
	}
	for _, trade := range m.trades {
		if trade.TradeID == tradeID {
			return &trade, nil
		}
	}
	return nil, fmt.Errorf("%w: trade %d", ledger.ErrNotFound, tradeID)
}

func (m *mockLedger) QuerySafetyEvents(ctx context.Context, filter ledger.SafetyEventFilter) iter.Seq2[model.SafetyEvent, error] {
	m.calledCount++
	m.eventFilter = filter
	return func(yield func(model.SafetyEvent, error) bool) {
		if m.err != nil {
			yield(model.SafetyEvent{}, m.err)
			return
		}
		for _, event := range m.events {
			if !yield(event, nil) {
				return
			}
		}
	}
}

func TestSearchTradesHandler_Success(t *testing.T) {
	mockRepo := &mockLedger{trades: []model.Trade{{TradeID: 1, Symbol: "AAPL", Status: model.TradeStatusFilled}}}
	handler := SearchTradesHandler(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/trades?symbol=AAPL&status=FILLED&from=2025-03-01T00:00:00Z&to=2025-03-02T00:00:00Z&page=3&pageSize=5", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, mockRepo.calledCount)
	assert.Equal(t, ledger.TradeFilter{
		Symbol: "AAPL",
		Status: model.TradeStatusFilled,
		From:   "2025-03-01T00:00:00Z",
		To:     "2025-03-02T00:00:00Z",
		Limit:  5,
		Offset: 10,
	}, mockRepo.tradeFilter)

	var body []model.Trade
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "AAPL", body[0].Symbol)
}

func TestSearchTradesHandler_EmptyResultIsArray(t *testing.T) {
	handler := SearchTradesHandler(&mockLedger{})

	req := httptest.NewRequest(http.MethodGet, "/trades", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestSearchTradesHandler_BadRequest(t *testing.T) {
	for _, query := range []string{
		"status=OPEN",
		"from=yesterday",
		"to=2025-13-45",
		"page=0",
		"pageSize=abc",
	} {
		t.Run(query, func(t *testing.T) {
			mockRepo := &mockLedger{}
			handler := SearchTradesHandler(mockRepo)

			req := httptest.NewRequest(http.MethodGet, "/trades?"+query, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Zero(t, mockRepo.calledCount)
		})
	}
}

func TestSearchTradesHandler_RepoError(t *testing.T) {
	mockRepo := &mockLedger{err: &ledger.StorageError{Op: "query_trades", Err: assert.AnError}}
	handler := SearchTradesHandler(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/trades", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 1, mockRepo.calledCount)
}

func TestGetTradeHandler(t *testing.T) {
	mockRepo := &mockLedger{trades: []model.Trade{{TradeID: 7, Symbol: "MSFT"}}}
	router := chi.NewRouter()
	router.Get("/trades/{id}", GetTradeHandler(mockRepo))

	cases := []struct {
		path string
		code int
	}{
		{"/trades/7", http.StatusOK},
		{"/trades/8", http.StatusNotFound},
		{"/trades/abc", http.StatusBadRequest},
		{"/trades/0", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.code, rr.Code)
		})
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/trades/7", nil))
	var trade model.Trade
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trade))
	assert.Equal(t, "MSFT", trade.Symbol)
}
