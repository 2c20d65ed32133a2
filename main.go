package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tradeledger/src/database"
	"tradeledger/src/monitor"
	"tradeledger/src/server"

	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	monitor.SetupLogger()
	defer handlePanic()

	// Shutdown on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, server.GetConfig(), database.GetConfig()); err != nil {
		logger.WithError(err).Error("Audit API stopped")
		stop()
		os.Exit(1)
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		os.Exit(2)
	}
}
