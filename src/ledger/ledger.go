// Package ledger records order submission attempts and safety events for
// audit and replay. A Ledger owns its database handle; construct one at
// process start and pass it to every writer.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradeledger/src/database"
	"tradeledger/src/model"
	"tradeledger/src/monitor"
	"tradeledger/src/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	opRecordTrade       = "record_trade"
	opUpdateOutcome     = "update_trade_outcome"
	opRecordSafetyEvent = "record_safety_event"
	opQueryTrades       = "query_trades"
	opQuerySafetyEvents = "query_safety_events"
	opGetTrade          = "get_trade"
)

// Ledger is the trade and safety event store.
type Ledger struct {
	db      *gorm.DB
	trades  *repository.TradeRepository
	events  *repository.SafetyEventRepository
	metrics *monitor.Metrics
	now     func() time.Time
	log     *logrus.Entry
	ownsDB  bool
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithMetrics reports operation counters to m.
func WithMetrics(m *monitor.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithClock replaces the clock used to stamp safety events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger replaces the ledger's log entry.
func WithLogger(entry *logrus.Entry) Option {
	return func(l *Ledger) { l.log = entry }
}

// New wraps an already migrated connection. The caller keeps ownership of db.
func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:     db,
		trades: repository.NewTradeRepository(db),
		events: repository.NewSafetyEventRepository(db),
		now:    time.Now,
		log:    logrus.WithField("component", "ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open connects to the configured database, applies migrations and returns
// a Ledger that owns the connection. Release it with Close.
func Open(config database.Config, opts ...Option) (*Ledger, error) {
	db, err := database.OpenMain(config)
	if err != nil {
		return nil, storageErr("open", err)
	}
	l := New(db, opts...)
	l.ownsDB = true
	return l, nil
}

// DB exposes the underlying connection for read-only tooling.
func (l *Ledger) DB() *gorm.DB {
	return l.db
}

// Close releases the connection if the Ledger opened it.
func (l *Ledger) Close() error {
	if !l.ownsDB {
		return nil
	}
	l.log.Info("closing ledger")
	if err := database.Close(l.db); err != nil {
		return storageErr("close", err)
	}
	return nil
}

// RecordTrade inserts a new trade and returns its trade_id. An empty status
// defaults to SUBMITTED. trade_id and created_at are assigned by the store;
// on success they are written back into trade.
func (l *Ledger) RecordTrade(ctx context.Context, trade *model.Trade) (uint, error) {
	defer l.metrics.ObserveDuration(opRecordTrade, time.Now())

	if trade == nil {
		return 0, l.fail(opRecordTrade, invalid("trade", "is nil"))
	}

	row := *trade
	row.TradeID = 0
	row.CreatedAt = time.Time{}
	if row.Status == "" {
		row.Status = model.TradeStatusSubmitted
	}

	if err := validateTrade(&row); err != nil {
		return 0, l.fail(opRecordTrade, err)
	}

	if err := l.trades.Create(ctx, &row); err != nil {
		return 0, l.fail(opRecordTrade, storageErr(opRecordTrade, err))
	}

	trade.TradeID = row.TradeID
	trade.Status = row.Status
	trade.CreatedAt = row.CreatedAt
	l.metrics.IncTradeRecorded()

	return row.TradeID, nil
}

// UpdateTradeOutcome applies a one-time lifecycle transition to a trade.
// The read, the transition check and the write happen in one transaction
// holding the row, so concurrent updates of one trade are linearizable.
// Re-applying an outcome already reflected in the row is a no-op.
func (l *Ledger) UpdateTradeOutcome(ctx context.Context, tradeID uint, outcome model.TradeOutcome) error {
	defer l.metrics.ObserveDuration(opUpdateOutcome, time.Now())

	if err := validateOutcome(outcome); err != nil {
		return l.fail(opUpdateOutcome, err)
	}

	applied := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := l.trades.FindByIDForUpdate(ctx, tx, tradeID)
		if err != nil {
			return storageErr(opUpdateOutcome, err)
		}
		if current == nil {
			return fmt.Errorf("%w: trade %d", ErrNotFound, tradeID)
		}

		changes, err := resolveOutcome(current, outcome)
		if err != nil {
			return err
		}
		if changes == nil {
			return nil
		}

		if err := l.trades.ApplyOutcome(ctx, tx, tradeID, current.Status, *changes); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return storageErr(opUpdateOutcome, ErrConcurrentUpdate)
			}
			return storageErr(opUpdateOutcome, err)
		}
		applied = true
		return nil
	})
	if err != nil {
		if !isLedgerError(err) {
			err = storageErr(opUpdateOutcome, err)
		}
		return l.fail(opUpdateOutcome, err)
	}

	if applied {
		l.metrics.IncOutcomeApplied(string(outcome.Status))
	} else {
		l.log.WithFields(logrus.Fields{"trade_id": tradeID, "status": outcome.Status}).
			Debug("outcome already applied")
	}

	return nil
}

// RecordSafetyEvent appends an immutable safety event and returns its event_id.
// An empty timestamp is stamped with the ledger clock.
func (l *Ledger) RecordSafetyEvent(ctx context.Context, event *model.SafetyEvent) (uint, error) {
	defer l.metrics.ObserveDuration(opRecordSafetyEvent, time.Now())

	if event == nil {
		return 0, l.fail(opRecordSafetyEvent, invalid("event", "is nil"))
	}

	row := *event
	row.EventID = 0
	row.CreatedAt = time.Time{}

	if err := validateSafetyEvent(&row); err != nil {
		return 0, l.fail(opRecordSafetyEvent, err)
	}
	if row.Timestamp == "" {
		row.Timestamp = model.FormatTimestamp(l.now())
	}

	if err := l.events.Create(ctx, &row); err != nil {
		return 0, l.fail(opRecordSafetyEvent, storageErr(opRecordSafetyEvent, err))
	}

	event.EventID = row.EventID
	event.Timestamp = row.Timestamp
	event.CreatedAt = row.CreatedAt
	l.metrics.IncSafetyEvent(string(row.EventType.Kind()))

	return row.EventID, nil
}

// GetTrade returns one trade by id.
func (l *Ledger) GetTrade(ctx context.Context, tradeID uint) (*model.Trade, error) {
	trade, err := l.trades.FindByID(ctx, tradeID)
	if err != nil {
		return nil, l.fail(opGetTrade, storageErr(opGetTrade, err))
	}
	if trade == nil {
		return nil, l.fail(opGetTrade, fmt.Errorf("%w: trade %d", ErrNotFound, tradeID))
	}
	return trade, nil
}

// CountTrades returns the number of stored trades.
func (l *Ledger) CountTrades(ctx context.Context) (int64, error) {
	count, err := l.trades.Count(ctx)
	if err != nil {
		return 0, l.fail(opQueryTrades, storageErr(opQueryTrades, err))
	}
	return count, nil
}

// CountSafetyEvents returns the number of stored safety events.
func (l *Ledger) CountSafetyEvents(ctx context.Context) (int64, error) {
	count, err := l.events.Count(ctx)
	if err != nil {
		return 0, l.fail(opQuerySafetyEvents, storageErr(opQuerySafetyEvents, err))
	}
	return count, nil
}

func (l *Ledger) fail(op string, err error) error {
	l.metrics.IncError(op, class(err))

	entry := l.log.WithField("op", op).WithError(err)
	if errors.Is(err, ErrStorage) {
		entry.Error("ledger storage failure")
	} else {
		entry.Warn("ledger operation refused")
	}
	return err
}

func isLedgerError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrStorage)
}
