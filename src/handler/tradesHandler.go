package handler

import (
	"context"
	"iter"
	"net/http"
	"strconv"

	"tradeledger/src/ledger"
	"tradeledger/src/model"

	"github.com/go-chi/chi/v5"
)

type tradeQuerier interface {
	QueryTrades(ctx context.Context, filter ledger.TradeFilter) iter.Seq2[model.Trade, error]
	GetTrade(ctx context.Context, tradeID uint) (*model.Trade, error)
}

// SearchTradesHandler lists trades oldest first.
// Supports pagination and filters (symbol, status, from, to).
func SearchTradesHandler(repo tradeQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ledger.TradeFilter{Symbol: r.URL.Query().Get("symbol")}

		if statusParam := r.URL.Query().Get("status"); statusParam != "" {
			status := model.TradeStatus(statusParam)
			if !status.Valid() {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			filter.Status = status
		}

		from, to, ok := timeWindow(w, r)
		if !ok {
			return
		}
		filter.From, filter.To = from, to

		limit, offset, ok := pagination(w, r)
		if !ok {
			return
		}
		filter.Limit, filter.Offset = limit, offset

		trades, err := ledger.Collect(repo.QueryTrades(r.Context(), filter))
		if err != nil {
			writeLedgerError(w, err, "failed to search trades")
			return
		}
		if trades == nil {
			trades = []model.Trade{}
		}

		writeJSON(w, trades, "failed to encode trade search response")
	}
}

// GetTradeHandler returns the trade named by the {id} URL parameter.
func GetTradeHandler(repo tradeQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id == 0 {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		trade, err := repo.GetTrade(r.Context(), uint(id))
		if err != nil {
			writeLedgerError(w, err, "failed to fetch trade")
			return
		}

		writeJSON(w, trade, "failed to encode trade response")
	}
}
