package server

import (
	"context"
	"fmt"

	"tradeledger/src/database"
	"tradeledger/src/ledger"
	"tradeledger/src/monitor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	logger "github.com/sirupsen/logrus"
)

// Run migrates the ledger, then serves the audit API from a read-only
// connection until ctx is cancelled.
func Run(ctx context.Context, config *Config, dbConfig database.Config) error {
	// Initialize main (read/write) database to apply migrations
	mainDB, err := database.OpenMain(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	if err := database.Close(mainDB); err != nil {
		logger.WithError(err).Warn("failed to close migration connection")
	}

	// Initialize read-only database
	readDB, err := database.OpenReadOnly(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to open read-only ledger: %w", err)
	}
	defer func() {
		if err := database.Close(readDB); err != nil {
			logger.WithError(err).Warn("failed to close read-only connection")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitor.NewMetrics("ledger", reg)

	l := ledger.New(readDB,
		ledger.WithMetrics(metrics),
		ledger.WithLogger(logger.WithField("component", "audit-api")),
	)

	return StartServer(ctx, config.Port, NewRouter(l, reg))
}
