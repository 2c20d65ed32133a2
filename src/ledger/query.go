package ledger

import (
	"context"
	"iter"

	"tradeledger/src/model"
	"tradeledger/src/repository"
)

// TradeFilter narrows QueryTrades. Zero values mean "no filter"; From and To
// are inclusive bounds on the trade timestamp and may use any ISO-8601 form.
type TradeFilter struct {
	TradeID    uint
	Symbol     string
	Status     model.TradeStatus
	From       string
	To         string
	Limit      int
	Offset     int
	Descending bool
}

// SafetyEventFilter narrows QuerySafetyEvents.
type SafetyEventFilter struct {
	EventType  model.EventType
	From       string
	To         string
	Limit      int
	Offset     int
	Descending bool
}

func (f TradeFilter) options() (repository.TradeSearchOptions, error) {
	var options repository.TradeSearchOptions
	if f.TradeID != 0 {
		id := f.TradeID
		options.TradeID = &id
	}
	if f.Symbol != "" {
		symbol := f.Symbol
		options.Symbol = &symbol
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return options, invalid("status", "unknown status "+string(f.Status))
		}
		status := f.Status
		options.Status = &status
	}
	from, to, err := window(f.From, f.To)
	if err != nil {
		return options, err
	}
	options.From, options.To = from, to

	if f.Limit < 0 {
		return options, invalid("limit", "must not be negative")
	}
	if f.Offset < 0 {
		return options, invalid("offset", "must not be negative")
	}
	options.Limit = f.Limit
	options.Offset = f.Offset
	options.Descending = f.Descending
	return options, nil
}

func (f SafetyEventFilter) options() (repository.SafetyEventSearchOptions, error) {
	var options repository.SafetyEventSearchOptions
	if f.EventType != "" {
		eventType := f.EventType
		options.EventType = &eventType
	}
	from, to, err := window(f.From, f.To)
	if err != nil {
		return options, err
	}
	options.From, options.To = from, to

	if f.Limit < 0 {
		return options, invalid("limit", "must not be negative")
	}
	if f.Offset < 0 {
		return options, invalid("offset", "must not be negative")
	}
	options.Limit = f.Limit
	options.Offset = f.Offset
	options.Descending = f.Descending
	return options, nil
}

// window turns from and to into bounds comparable with the stored timestamps.
func window(from, to string) (*string, *string, error) {
	var fromPtr, toPtr *string
	if from != "" {
		bound, err := model.NormalizeBound(from, false)
		if err != nil {
			return nil, nil, invalid("from", err.Error())
		}
		fromPtr = &bound
	}
	if to != "" {
		bound, err := model.NormalizeBound(to, true)
		if err != nil {
			return nil, nil, invalid("to", err.Error())
		}
		toPtr = &bound
	}
	return fromPtr, toPtr, nil
}

// QueryTrades returns a lazy sequence of trades matching filter, ordered by
// timestamp and then trade_id. Each range over the sequence runs a fresh
// query. A failure is yielded once as the error of the final pair.
func (l *Ledger) QueryTrades(ctx context.Context, filter TradeFilter) iter.Seq2[model.Trade, error] {
	return func(yield func(model.Trade, error) bool) {
		options, err := filter.options()
		if err != nil {
			yield(model.Trade{}, l.fail(opQueryTrades, err))
			return
		}

		rows, err := l.trades.Rows(ctx, options)
		if err != nil {
			yield(model.Trade{}, l.fail(opQueryTrades, storageErr(opQueryTrades, err)))
			return
		}
		defer rows.Close()

		for rows.Next() {
			trade, err := l.trades.ScanRow(rows)
			if err != nil {
				yield(model.Trade{}, l.fail(opQueryTrades, storageErr(opQueryTrades, err)))
				return
			}
			if !yield(trade, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Trade{}, l.fail(opQueryTrades, storageErr(opQueryTrades, err)))
		}
	}
}

// QuerySafetyEvents returns a lazy sequence of safety events matching filter,
// ordered by timestamp and then event_id.
func (l *Ledger) QuerySafetyEvents(ctx context.Context, filter SafetyEventFilter) iter.Seq2[model.SafetyEvent, error] {
	return func(yield func(model.SafetyEvent, error) bool) {
		options, err := filter.options()
		if err != nil {
			yield(model.SafetyEvent{}, l.fail(opQuerySafetyEvents, err))
			return
		}

		rows, err := l.events.Rows(ctx, options)
		if err != nil {
			yield(model.SafetyEvent{}, l.fail(opQuerySafetyEvents, storageErr(opQuerySafetyEvents, err)))
			return
		}
		defer rows.Close()

		for rows.Next() {
			event, err := l.events.ScanRow(rows)
			if err != nil {
				yield(model.SafetyEvent{}, l.fail(opQuerySafetyEvents, storageErr(opQuerySafetyEvents, err)))
				return
			}
			if !yield(event, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.SafetyEvent{}, l.fail(opQuerySafetyEvents, storageErr(opQuerySafetyEvents, err)))
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
