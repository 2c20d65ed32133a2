package migrations

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// LedgerColumns lists the persisted columns of each ledger table in schema order.
var LedgerColumns = map[string][]string{
	"trades": {
		"trade_id", "timestamp", "symbol", "strategy", "signal_source", "legs",
		"max_risk", "capital_required", "confidence", "reasoning", "order_id",
		"status", "fill_price", "pnl", "metadata", "created_at",
	},
	"safety_events": {
		"event_id", "timestamp", "event_type", "details", "action_taken", "created_at",
	},
}

// LedgerIndexes lists the secondary indexes each ledger table must carry.
var LedgerIndexes = map[string][]string{
	"trades":        {"idx_trades_timestamp", "idx_trades_symbol", "idx_trades_status"},
	"safety_events": {"idx_safety_events_timestamp", "idx_safety_events_event_type"},
}

// Verify inspects the live schema and reports every missing table, column or index.
func Verify(db *gorm.DB) error {
	migrator := db.Migrator()

	var missing []string
	for _, table := range []string{"trades", "safety_events"} {
		if !migrator.HasTable(table) {
			missing = append(missing, table)
			continue
		}

		columnTypes, err := migrator.ColumnTypes(table)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		present := make(map[string]struct{}, len(columnTypes))
		for _, ct := range columnTypes {
			present[strings.ToLower(ct.Name())] = struct{}{}
		}
		for _, column := range LedgerColumns[table] {
			if _, ok := present[column]; !ok {
				missing = append(missing, table+"."+column)
			}
		}

		for _, index := range LedgerIndexes[table] {
			if !migrator.HasIndex(table, index) {
				missing = append(missing, table+"."+index)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("ledger schema is missing %s", strings.Join(missing, ", "))
	}
	return nil
}
