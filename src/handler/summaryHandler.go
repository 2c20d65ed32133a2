package handler

import (
	"net/http"

	"tradeledger/src/ledger"
	"tradeledger/src/report"
)

// SummaryHandler aggregates every trade and safety event, optionally within
// a from/to window.
func SummaryHandler(trades tradeQuerier, events safetyEventQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, ok := timeWindow(w, r)
		if !ok {
			return
		}

		tradeSummary, err := report.SummarizeTrades(trades.QueryTrades(r.Context(), ledger.TradeFilter{From: from, To: to}))
		if err != nil {
			writeLedgerError(w, err, "failed to summarize trades")
			return
		}

		eventSummary, err := report.SummarizeSafetyEvents(events.QuerySafetyEvents(r.Context(), ledger.SafetyEventFilter{From: from, To: to}))
		if err != nil {
			writeLedgerError(w, err, "failed to summarize safety events")
			return
		}

		writeJSON(w, report.Summary{Trades: tradeSummary, SafetyEvents: eventSummary}, "failed to encode summary response")
	}
}
