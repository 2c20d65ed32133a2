package repository

import (
	"context"
	"database/sql"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/model"
)

// SafetyEventRepository handles persistence of safety events.
// Events are append-only: the repository exposes no update or delete.
type SafetyEventRepository struct {
	db *gorm.DB
}

// SafetyEventSearchOptions narrows a safety event query. Zero values mean "no filter".
type SafetyEventSearchOptions struct {
	EventType  *model.EventType
	From       *string
	To         *string
	Limit      int
	Offset     int
	Descending bool
}

// NewSafetyEventRepository creates a repository on the given connection.
func NewSafetyEventRepository(db *gorm.DB) *SafetyEventRepository {
	return &SafetyEventRepository{db: db}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *SafetyEventRepository) WithDB(db *gorm.DB) *SafetyEventRepository {
	return &SafetyEventRepository{db: db}
}

// Create persists a new safety event.
func (r *SafetyEventRepository) Create(ctx context.Context, event *model.SafetyEvent) error {
	logger.WithFields(map[string]interface{}{
		"repo":         "SafetyEventRepository",
		"op":           "Create",
		"event_type":   event.EventType,
		"action_taken": event.ActionTaken,
	}).Warn("Persisting safety event")

	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SafetyEventRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to persist safety event")

		return err
	}

	return nil
}

// Search returns the safety events matching options, oldest first unless Descending is set.
func (r *SafetyEventRepository) Search(ctx context.Context, options SafetyEventSearchOptions) ([]model.SafetyEvent, error) {
	var events []model.SafetyEvent
	if err := r.query(ctx, options).Find(&events).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SafetyEventRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search safety events")

		return nil, err
	}
	return events, nil
}

// Rows opens a cursor over the safety events matching options.
func (r *SafetyEventRepository) Rows(ctx context.Context, options SafetyEventSearchOptions) (*sql.Rows, error) {
	rows, err := r.query(ctx, options).Rows()
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SafetyEventRepository",
			"op":   "Rows",
		}).WithError(err).Error("Failed to open safety event cursor")

		return nil, err
	}
	return rows, nil
}

// ScanRow decodes the current cursor row into a safety event.
func (r *SafetyEventRepository) ScanRow(rows *sql.Rows) (model.SafetyEvent, error) {
	var event model.SafetyEvent
	err := r.db.ScanRows(rows, &event)
	return event, err
}

// Count returns the number of stored safety events.
func (r *SafetyEventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SafetyEvent{}).Count(&count).Error
	return count, err
}

func (r *SafetyEventRepository) query(ctx context.Context, options SafetyEventSearchOptions) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.SafetyEvent{})

	if options.EventType != nil {
		query = query.Where("event_type = ?", *options.EventType)
	}
	if options.From != nil {
		query = query.Where(`"timestamp" >= ?`, *options.From)
	}
	if options.To != nil {
		query = query.Where(`"timestamp" <= ?`, *options.To)
	}

	if options.Descending {
		query = query.Order(`"timestamp" DESC, event_id DESC`)
	} else {
		query = query.Order(`"timestamp" ASC, event_id ASC`)
	}

	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	return query
}
