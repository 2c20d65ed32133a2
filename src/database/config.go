package database

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver       string        `envconfig:"LEDGER_DB_DRIVER" default:"sqlite"` // "sqlite" or "postgres"
	Path         string        `envconfig:"LEDGER_DB_PATH" default:"data/ledger.db"`
	DatabaseURL  string        `envconfig:"LEDGER_DATABASE_URL"` // used when Driver is "postgres"
	BusyTimeout  time.Duration `envconfig:"LEDGER_DB_BUSY_TIMEOUT" default:"5s"`
	MaxOpenConns int           `envconfig:"LEDGER_DB_MAX_OPEN_CONNS" default:"8"`
	GormLogLevel int           `envconfig:"GORM_LOG_LEVEL" default:"2"`
}

// LoadConfig reads the database settings from the environment.
func LoadConfig() (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("error processing env config: %w", err)
	}
	return config, nil
}

func GetConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}
