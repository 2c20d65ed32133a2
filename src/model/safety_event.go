package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventType tags a safety event. The tag is open-ended: known values are
// enumerated below and anything else is kept verbatim and reported as EventTypeOther.
type EventType string

const (
	EventTypeOrderRejected   EventType = "ORDER_REJECTED"
	EventTypeCircuitBreaker  EventType = "CIRCUIT_BREAKER"
	EventTypeWatchdogAlert   EventType = "WATCHDOG_ALERT"
	EventTypeKillSwitch      EventType = "KILL_SWITCH"
	EventTypeRiskLimitBreach EventType = "RISK_LIMIT_BREACH"
	EventTypeDataStale       EventType = "DATA_STALE"

	// EventTypeOther is the kind of every tag outside the known set.
	EventTypeOther EventType = "OTHER"
)

var knownEventTypes = map[EventType]struct{}{
	EventTypeOrderRejected:   {},
	EventTypeCircuitBreaker:  {},
	EventTypeWatchdogAlert:   {},
	EventTypeKillSwitch:      {},
	EventTypeRiskLimitBreach: {},
	EventTypeDataStale:       {},
}

// IsKnown reports whether e is one of the enumerated event types.
func (e EventType) IsKnown() bool {
	_, ok := knownEventTypes[e]
	return ok
}

// Kind folds unknown tags into EventTypeOther.
func (e EventType) Kind() EventType {
	if e.IsKnown() {
		return e
	}
	return EventTypeOther
}

// SafetyEvent is an immutable record of a policy violation or protective action.
type SafetyEvent struct {
	EventID     uint           `gorm:"column:event_id;primaryKey;autoIncrement" json:"event_id"`
	Timestamp   string         `gorm:"column:timestamp;type:text;not null;index:idx_safety_events_timestamp" json:"timestamp"`
	EventType   EventType      `gorm:"column:event_type;type:text;not null;index:idx_safety_events_event_type" json:"event_type"`
	Details     datatypes.JSON `gorm:"column:details;type:text;not null" json:"details"`
	ActionTaken string         `gorm:"column:action_taken;type:text;not null" json:"action_taken"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name used by the ledger schema.
func (SafetyEvent) TableName() string {
	return "safety_events"
}
