package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tradeledger/src/database/migrations"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenMain opens the read/write ledger database, applies pending migrations
// and verifies the resulting schema. Safe to call concurrently from several
// processes at startup.
func OpenMain(config Config) (*gorm.DB, error) {
	db, err := open(config, false)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"driver": config.Driver}).Info("[database] ledger connection established")

	if config.Driver == DriverSQLite {
		var mode string
		if err := db.Raw("PRAGMA journal_mode").Row().Scan(&mode); err != nil {
			closeQuietly(db)
			return nil, fmt.Errorf("read journal mode: %w", err)
		}
		if !strings.EqualFold(mode, "wal") {
			closeQuietly(db)
			return nil, fmt.Errorf("sqlite journal mode is %q, want wal", mode)
		}
	}

	if err := migrations.Run(db); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.Verify(db); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("schema verification failed: %w", err)
	}

	logrus.Info("[database] ledger migrations completed")

	return db, nil
}

func open(config Config, readOnly bool) (*gorm.DB, error) {
	dialector, err := dialectorFor(config, readOnly)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector,
		&gorm.Config{
			TranslateError: true,
			NowFunc:        func() time.Time { return time.Now().UTC() },
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB from GORM: %w", err)
	}
	maxOpen := config.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 8
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func dialectorFor(config Config, readOnly bool) (gorm.Dialector, error) {
	switch config.Driver {
	case DriverSQLite, "":
		if config.Path == "" {
			return nil, fmt.Errorf("sqlite path is empty")
		}
		if !readOnly {
			if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		return sqlite.Open(SQLiteDSN(config.Path, config.BusyTimeout, readOnly)), nil
	case DriverPostgres:
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("LEDGER_DATABASE_URL is required for the postgres driver")
		}
		return postgres.Open(config.DatabaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
}

// SQLiteDSN builds the go-sqlite3 connection string for the ledger file.
// Write transactions start with BEGIN IMMEDIATE so concurrent writers queue on
// the busy timeout instead of failing lock upgrades. Read-only connections use
// query_only rather than mode=ro so they can still map the WAL index after the
// last writer has closed.
func SQLiteDSN(path string, busyTimeout time.Duration, readOnly bool) string {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	params := url.Values{}
	params.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	if readOnly {
		params.Set("_query_only", "true")
	} else {
		params.Set("_journal_mode", "WAL")
		params.Set("_synchronous", "FULL")
		params.Set("_txlock", "immediate")
	}

	return "file:" + path + "?" + params.Encode()
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeQuietly(db *gorm.DB) {
	if err := Close(db); err != nil {
		logrus.WithError(err).Warn("[database] failed to close connection")
	}
}
