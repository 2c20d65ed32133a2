package model

import (
	"time"

	"gorm.io/datatypes"
)

// TradeStatus is the lifecycle state of an order submission attempt.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusSubmitted TradeStatus = "SUBMITTED"
	TradeStatusFilled    TradeStatus = "FILLED"
	TradeStatusRejected  TradeStatus = "REJECTED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
)

// TradeStatuses lists every accepted status in lifecycle order.
var TradeStatuses = []TradeStatus{
	TradeStatusPending,
	TradeStatusSubmitted,
	TradeStatusFilled,
	TradeStatusRejected,
	TradeStatusCancelled,
}

// Valid reports whether s belongs to the closed status enumeration.
func (s TradeStatus) Valid() bool {
	switch s {
	case TradeStatusPending, TradeStatusSubmitted, TradeStatusFilled, TradeStatusRejected, TradeStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is permitted from s.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusFilled || s == TradeStatusRejected || s == TradeStatusCancelled
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle monotone.
// Re-applying the current status is always allowed.
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case TradeStatusPending:
		return next == TradeStatusSubmitted || next.IsTerminal()
	case TradeStatusSubmitted:
		return next.IsTerminal()
	}
	return false
}

// Trade is one order submission attempt and its resolved outcome.
// Legs, MaxRisk and CapitalRequired are execution facts and never change after insert.
type Trade struct {
	TradeID         uint            `gorm:"column:trade_id;primaryKey;autoIncrement" json:"trade_id"`
	Timestamp       string          `gorm:"column:timestamp;type:text;not null;index:idx_trades_timestamp" json:"timestamp"`
	Symbol          string          `gorm:"column:symbol;type:text;not null;index:idx_trades_symbol" json:"symbol"`
	Strategy        string          `gorm:"column:strategy;type:text;not null" json:"strategy"`
	SignalSource    *string         `gorm:"column:signal_source;type:text" json:"signal_source,omitempty"`
	Legs            datatypes.JSON  `gorm:"column:legs;type:text;not null" json:"legs"`
	MaxRisk         float64         `gorm:"column:max_risk;not null" json:"max_risk"`
	CapitalRequired float64         `gorm:"column:capital_required;not null" json:"capital_required"`
	Confidence      *float64        `gorm:"column:confidence" json:"confidence,omitempty"`
	Reasoning       *string         `gorm:"column:reasoning;type:text" json:"reasoning,omitempty"`
	OrderID         *string         `gorm:"column:order_id;type:text" json:"order_id,omitempty"`
	Status          TradeStatus     `gorm:"column:status;type:text;not null;index:idx_trades_status" json:"status"`
	FillPrice       *float64        `gorm:"column:fill_price" json:"fill_price,omitempty"`
	PnL             *float64        `gorm:"column:pnl" json:"pnl,omitempty"`
	Metadata        *datatypes.JSON `gorm:"column:metadata;type:text" json:"metadata,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name used by the ledger schema.
func (Trade) TableName() string {
	return "trades"
}

// TradeOutcome carries the follow-up facts reported once an order resolves.
// Nil fields are left untouched.
type TradeOutcome struct {
	Status    TradeStatus `json:"status"`
	FillPrice *float64    `json:"fill_price,omitempty"`
	PnL       *float64    `json:"pnl,omitempty"`
	OrderID   *string     `json:"order_id,omitempty"`
}
