package migrations

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DataMigration tracks executed migrations.
// Table name is fixed to avoid collisions with ledger tables.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "schema_migrations" }

// Migration is one named, idempotent schema step.
type Migration struct {
	ID string
	Fn func(*gorm.DB) error
}

func ensureDataMigrationsTable(db *gorm.DB) error {
	return db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		id VARCHAR(200) PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`).Error
}

// RunOnce runs fn only if migrationID was not executed before.
// It records the migration as executed only after fn succeeds. A concurrent
// process recording the same id first is not an error.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	if db == nil {
		return nil
	}
	if migrationID == "" {
		return fmt.Errorf("migration id is empty")
	}
	if fn == nil {
		return fmt.Errorf("migration %q has nil fn", migrationID)
	}

	if err := ensureDataMigrationsTable(db); err != nil {
		return fmt.Errorf("ensure data migrations table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var m DataMigration
		err := tx.First(&m, "id = ?", migrationID).Error
		if err == nil {
			// already applied
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}

		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}

		rec := DataMigration{
			ID:        migrationID,
			AppliedAt: time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}

		return nil
	})
}

// ForDialect returns the ordered migration list for a gorm dialector name.
// Append new migrations at the bottom with a stable unique id.
func ForDialect(name string) ([]Migration, error) {
	switch name {
	case "sqlite":
		return []Migration{
			{ID: "00001_create_ledger_schema", Fn: execSQLiteFile("0001_ledger_schema.sql")},
		}, nil
	case "postgres":
		return []Migration{
			{ID: "00001_create_ledger_schema", Fn: autoMigrateLedger},
		}, nil
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", name)
	}
}

// Run executes every migration for the dialect of db.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	list, err := ForDialect(db.Dialector.Name())
	if err != nil {
		return err
	}

	for _, m := range list {
		if err := RunOnce(db, m.ID, m.Fn); err != nil {
			return err
		}
	}

	return nil
}
