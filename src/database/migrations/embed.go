package migrations

import (
	"embed"
	"fmt"
	"strings"

	"tradeledger/src/model"

	"gorm.io/gorm"
)

// SQLiteFS embeds the SQLite schema files.
//
//go:embed sqlite/*.sql
var SQLiteFS embed.FS

// SQLiteStatements returns the statements of an embedded SQLite file in order.
func SQLiteStatements(file string) ([]string, error) {
	data, err := SQLiteFS.ReadFile("sqlite/" + file)
	if err != nil {
		return nil, fmt.Errorf("read migration %s: %w", file, err)
	}

	var stmts []string
	for _, part := range strings.Split(string(data), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

func execSQLiteFile(file string) func(*gorm.DB) error {
	return func(tx *gorm.DB) error {
		stmts, err := SQLiteStatements(file)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("apply %s: %w", file, err)
			}
		}
		return nil
	}
}

// autoMigrateLedger derives the PostgreSQL schema from the gorm tags on the models.
func autoMigrateLedger(tx *gorm.DB) error {
	return tx.AutoMigrate(&model.Trade{}, &model.SafetyEvent{})
}
