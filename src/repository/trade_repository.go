package repository

import (
	"context"
	"database/sql"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradeledger/src/model"
)

// ErrStaleStatus is returned by ApplyOutcome when the row no longer carries
// the status the caller read.
var ErrStaleStatus = errors.New("trade status changed concurrently")

// TradeRepository handles persistence of trade records.
type TradeRepository struct {
	db *gorm.DB
}

// TradeSearchOptions narrows a trade query. Zero values mean "no filter".
// From and To are inclusive bounds compared against the ISO-8601 timestamp column.
type TradeSearchOptions struct {
	TradeID    *uint
	Symbol     *string
	Status     *model.TradeStatus
	From       *string
	To         *string
	Limit      int
	Offset     int
	Descending bool
}

// NewTradeRepository creates a repository on the given connection.
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Debug("Creating new TradeRepository")

	return &TradeRepository{db: db}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade. The given trade is updated with the generated
// trade_id and created_at.
func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"symbol":   trade.Symbol,
		"strategy": trade.Strategy,
		"status":   trade.Status,
	}).Debug("Creating new trade")

	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"trade_id": trade.TradeID,
	}).Info("Trade recorded")

	return nil
}

// FindByID fetches a single trade by its primary key.
// Returns (nil, nil) if the trade is not found.
func (r *TradeRepository) FindByID(ctx context.Context, id uint) (*model.Trade, error) {
	return r.find(ctx, r.db, id, false)
}

// FindByIDForUpdate loads a trade inside tx holding a row lock where the
// dialect supports one. SQLite serializes writers at BEGIN IMMEDIATE instead.
func (r *TradeRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*model.Trade, error) {
	return r.find(ctx, tx, id, true)
}

func (r *TradeRepository) find(ctx context.Context, db *gorm.DB, id uint, lock bool) (*model.Trade, error) {
	logger.WithFields(map[string]interface{}{
		"repo": "TradeRepository",
		"op":   "FindByID",
		"id":   id,
		"lock": lock,
	}).Debug("Fetching trade by ID")

	query := db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var trade model.Trade
	err := query.Where("trade_id = ?", id).Take(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "TradeRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Trade not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch trade by ID")

		return nil, err
	}

	return &trade, nil
}

// Search returns the trades matching options, oldest first unless Descending is set.
func (r *TradeRepository) Search(ctx context.Context, options TradeSearchOptions) ([]model.Trade, error) {
	logger.WithFields(map[string]interface{}{
		"repo":   "TradeRepository",
		"op":     "Search",
		"limit":  options.Limit,
		"offset": options.Offset,
	}).Debug("Searching trades")

	var trades []model.Trade
	if err := r.query(ctx, options).Find(&trades).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search trades")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "TradeRepository",
		"op":          "Search",
		"rows_return": len(trades),
	}).Debug("Trades fetched")

	return trades, nil
}

// Rows opens a cursor over the trades matching options. Callers must close it
// and decode each row with ScanRow.
func (r *TradeRepository) Rows(ctx context.Context, options TradeSearchOptions) (*sql.Rows, error) {
	rows, err := r.query(ctx, options).Rows()
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Rows",
		}).WithError(err).Error("Failed to open trade cursor")

		return nil, err
	}
	return rows, nil
}

// ScanRow decodes the current cursor row into a trade.
func (r *TradeRepository) ScanRow(rows *sql.Rows) (model.Trade, error) {
	var trade model.Trade
	err := r.db.ScanRows(rows, &trade)
	return trade, err
}

// Count returns the number of stored trades.
func (r *TradeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Trade{}).Count(&count).Error
	return count, err
}

// ApplyOutcome writes the resolved outcome columns of a trade that still has
// expectedStatus. Execution facts are never part of the update set.
func (r *TradeRepository) ApplyOutcome(
	ctx context.Context,
	tx *gorm.DB,
	id uint,
	expectedStatus model.TradeStatus,
	outcome model.TradeOutcome,
) error {
	updates := map[string]interface{}{"status": outcome.Status}
	if outcome.FillPrice != nil {
		updates["fill_price"] = *outcome.FillPrice
	}
	if outcome.PnL != nil {
		updates["pnl"] = *outcome.PnL
	}
	if outcome.OrderID != nil {
		updates["order_id"] = *outcome.OrderID
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "TradeRepository",
		"op":         "ApplyOutcome",
		"id":         id,
		"fromStatus": expectedStatus,
		"newStatus":  outcome.Status,
	}).Debug("Updating trade outcome")

	result := tx.WithContext(ctx).
		Model(&model.Trade{}).
		Where("trade_id = ? AND status = ?", id, expectedStatus).
		Updates(updates)
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "ApplyOutcome",
			"id":   id,
		}).WithError(result.Error).Error("Failed to update trade outcome")

		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrStaleStatus
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "TradeRepository",
		"op":     "ApplyOutcome",
		"id":     id,
		"status": outcome.Status,
	}).Info("Trade outcome updated")

	return nil
}

func (r *TradeRepository) query(ctx context.Context, options TradeSearchOptions) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Trade{})

	if options.TradeID != nil {
		query = query.Where("trade_id = ?", *options.TradeID)
	}
	if options.Symbol != nil {
		query = query.Where("symbol = ?", *options.Symbol)
	}
	if options.Status != nil {
		query = query.Where("status = ?", *options.Status)
	}
	if options.From != nil {
		query = query.Where(`"timestamp" >= ?`, *options.From)
	}
	if options.To != nil {
		query = query.Where(`"timestamp" <= ?`, *options.To)
	}

	if options.Descending {
		query = query.Order(`"timestamp" DESC, trade_id DESC`)
	} else {
		query = query.Order(`"timestamp" ASC, trade_id ASC`)
	}

	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	return query
}
