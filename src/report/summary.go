// Package report aggregates ledger contents for audits.
package report

import (
	"iter"
	"sort"

	"tradeledger/src/model"

	"github.com/shopspring/decimal"
)

// TradeSummary totals a set of trades.
type TradeSummary struct {
	Total           int                       `json:"total"`
	ByStatus        map[model.TradeStatus]int `json:"by_status"`
	Open            int                       `json:"open"`
	Resolved        int                       `json:"resolved"`
	BySymbol        map[string]int            `json:"by_symbol"`
	CapitalRequired decimal.Decimal           `json:"capital_required"`
	MaxRisk         decimal.Decimal           `json:"max_risk"`
	RealizedPnL     decimal.Decimal           `json:"realized_pnl"`
	WithPnL         int                       `json:"with_pnl"`
	FirstTimestamp  string                    `json:"first_timestamp,omitempty"`
	LastTimestamp   string                    `json:"last_timestamp,omitempty"`
}

// SafetySummary totals a set of safety events.
type SafetySummary struct {
	Total          int                     `json:"total"`
	ByType         map[model.EventType]int `json:"by_type"`
	ByKind         map[model.EventType]int `json:"by_kind"`
	ByAction       map[string]int          `json:"by_action"`
	FirstTimestamp string                  `json:"first_timestamp,omitempty"`
	LastTimestamp  string                  `json:"last_timestamp,omitempty"`
}

// Summary is the combined audit view served by the API and the CLI.
type Summary struct {
	Trades       TradeSummary  `json:"trades"`
	SafetyEvents SafetySummary `json:"safety_events"`
}

// SummarizeTrades drains seq. It stops at and returns the first error.
func SummarizeTrades(seq iter.Seq2[model.Trade, error]) (TradeSummary, error) {
	summary := TradeSummary{
		ByStatus:        make(map[model.TradeStatus]int),
		BySymbol:        make(map[string]int),
		CapitalRequired: decimal.Zero,
		MaxRisk:         decimal.Zero,
		RealizedPnL:     decimal.Zero,
	}

	for trade, err := range seq {
		if err != nil {
			return summary, err
		}

		summary.Total++
		summary.ByStatus[trade.Status]++
		summary.BySymbol[trade.Symbol]++
		if trade.Status.IsTerminal() {
			summary.Resolved++
		} else {
			summary.Open++
		}

		summary.CapitalRequired = summary.CapitalRequired.Add(decimal.NewFromFloat(trade.CapitalRequired))
		summary.MaxRisk = summary.MaxRisk.Add(decimal.NewFromFloat(trade.MaxRisk))
		if trade.PnL != nil {
			summary.RealizedPnL = summary.RealizedPnL.Add(decimal.NewFromFloat(*trade.PnL))
			summary.WithPnL++
		}

		summary.FirstTimestamp, summary.LastTimestamp = widen(summary.FirstTimestamp, summary.LastTimestamp, trade.Timestamp)
	}

	return summary, nil
}

// SummarizeSafetyEvents drains seq. Unknown event types are counted under
// their own tag in ByType and under OTHER in ByKind.
func SummarizeSafetyEvents(seq iter.Seq2[model.SafetyEvent, error]) (SafetySummary, error) {
	summary := SafetySummary{
		ByType:   make(map[model.EventType]int),
		ByKind:   make(map[model.EventType]int),
		ByAction: make(map[string]int),
	}

	for event, err := range seq {
		if err != nil {
			return summary, err
		}

		summary.Total++
		summary.ByType[event.EventType]++
		summary.ByKind[event.EventType.Kind()]++
		summary.ByAction[event.ActionTaken]++
		summary.FirstTimestamp, summary.LastTimestamp = widen(summary.FirstTimestamp, summary.LastTimestamp, event.Timestamp)
	}

	return summary, nil
}

// Symbols returns the symbols in s sorted by name.
func (s TradeSummary) Symbols() []string {
	symbols := make([]string, 0, len(s.BySymbol))
	for symbol := range s.BySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func widen(first, last, ts string) (string, string) {
	if first == "" || ts < first {
		first = ts
	}
	if ts > last {
		last = ts
	}
	return first, last
}
