package database

import (
	"fmt"

	"tradeledger/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OpenReadOnly opens a connection for audit tooling. It runs no migrations
// and fails if the ledger tables are not reachable.
func OpenReadOnly(config Config) (*gorm.DB, error) {
	db, err := open(config, true)
	if err != nil {
		return nil, err
	}

	var trades, events int64
	if err := db.Model(&model.Trade{}).Count(&trades).Error; err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to access trades: %w", err)
	}
	if err := db.Model(&model.SafetyEvent{}).Count(&events).Error; err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to access safety_events: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"driver":        config.Driver,
		"trades":        trades,
		"safety_events": events,
	}).Info("[ReadOnlyDB] ledger tables reachable")

	return db, nil
}
