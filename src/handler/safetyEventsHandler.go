package handler

import (
	"context"
	"iter"
	"net/http"

	"tradeledger/src/ledger"
	"tradeledger/src/model"
)

type safetyEventQuerier interface {
	QuerySafetyEvents(ctx context.Context, filter ledger.SafetyEventFilter) iter.Seq2[model.SafetyEvent, error]
}

// SearchSafetyEventsHandler lists safety events oldest first.
// Supports pagination and filters (eventType, from, to).
func SearchSafetyEventsHandler(repo safetyEventQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ledger.SafetyEventFilter{EventType: model.EventType(r.URL.Query().Get("eventType"))}

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

		events, err := ledger.Collect(repo.QuerySafetyEvents(r.Context(), filter))
		if err != nil {
			writeLedgerError(w, err, "failed to search safety events")
			return
		}
		if events == nil {
			events = []model.SafetyEvent{}
		}

		writeJSON(w, events, "failed to encode safety event search response")
	}
}
