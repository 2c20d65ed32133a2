package ledger

import (
	"math"
	"strings"

	"tradeledger/src/model"

	"github.com/tidwall/gjson"
)

func validateTrade(t *model.Trade) error {
	if strings.TrimSpace(t.Timestamp) == "" {
		return invalid("timestamp", "is required")
	}
	if err := model.CheckTimestamp(t.Timestamp); err != nil {
		return invalid("timestamp", err.Error())
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return invalid("symbol", "is required")
	}
	if strings.TrimSpace(t.Strategy) == "" {
		return invalid("strategy", "is required")
	}
	if len(t.Legs) == 0 {
		return invalid("legs", "is required")
	}
	if !model.IsJSONArray(t.Legs) {
		return invalid("legs", "must be a JSON array")
	}
	if len(gjson.ParseBytes(t.Legs).Array()) == 0 {
		return invalid("legs", "must contain at least one leg")
	}
	if !finite(t.MaxRisk) {
		return invalid("max_risk", "must be a finite number")
	}
	if !finite(t.CapitalRequired) {
		return invalid("capital_required", "must be a finite number")
	}
	if t.Confidence != nil && !finite(*t.Confidence) {
		return invalid("confidence", "must be a finite number")
	}
	if t.FillPrice != nil && !finite(*t.FillPrice) {
		return invalid("fill_price", "must be a finite number")
	}
	if t.PnL != nil && !finite(*t.PnL) {
		return invalid("pnl", "must be a finite number")
	}
	if !t.Status.Valid() {
		return invalid("status", "unknown status "+string(t.Status))
	}
	if t.Metadata != nil && !model.IsJSONObject(*t.Metadata) {
		return invalid("metadata", "must be a JSON object")
	}
	return nil
}

func validateOutcome(o model.TradeOutcome) error {
	if !o.Status.Valid() {
		return invalid("status", "unknown status "+string(o.Status))
	}
	if o.FillPrice != nil && !finite(*o.FillPrice) {
		return invalid("fill_price", "must be a finite number")
	}
	if o.PnL != nil && !finite(*o.PnL) {
		return invalid("pnl", "must be a finite number")
	}
	if o.OrderID != nil && strings.TrimSpace(*o.OrderID) == "" {
		return invalid("order_id", "must not be blank")
	}
	return nil
}

func validateSafetyEvent(e *model.SafetyEvent) error {
	if strings.TrimSpace(string(e.EventType)) == "" {
		return invalid("event_type", "is required")
	}
	if len(e.Details) == 0 {
		return invalid("details", "is required")
	}
	if !model.IsJSONObject(e.Details) {
		return invalid("details", "must be a JSON object")
	}
	if strings.TrimSpace(e.ActionTaken) == "" {
		return invalid("action_taken", "is required")
	}
	if e.Timestamp != "" {
		if err := model.CheckTimestamp(e.Timestamp); err != nil {
			return invalid("timestamp", err.Error())
		}
	}
	return nil
}

// resolveOutcome computes the columns an outcome update must write. A nil
// result with a nil error means the update is already reflected in current.
func resolveOutcome(current *model.Trade, outcome model.TradeOutcome) (*model.TradeOutcome, error) {
	if !current.Status.CanTransitionTo(outcome.Status) {
		return nil, &TransitionError{TradeID: current.TradeID, From: string(current.Status), To: string(outcome.Status)}
	}

	changes := model.TradeOutcome{Status: outcome.Status}
	dirty := outcome.Status != current.Status

	if outcome.FillPrice != nil {
		switch {
		case current.FillPrice == nil:
			changes.FillPrice = outcome.FillPrice
			dirty = true
		case *current.FillPrice != *outcome.FillPrice:
			return nil, &TransitionError{TradeID: current.TradeID, Field: "fill_price"}
		}
	}
	if outcome.PnL != nil {
		switch {
		case current.PnL == nil:
			changes.PnL = outcome.PnL
			dirty = true
		case *current.PnL != *outcome.PnL:
			return nil, &TransitionError{TradeID: current.TradeID, Field: "pnl"}
		}
	}
	if outcome.OrderID != nil {
		switch {
		case current.OrderID == nil:
			changes.OrderID = outcome.OrderID
			dirty = true
		case *current.OrderID != *outcome.OrderID:
			return nil, &TransitionError{TradeID: current.TradeID, Field: "order_id"}
		}
	}

	if !dirty {
		return nil, nil
	}
	return &changes, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
