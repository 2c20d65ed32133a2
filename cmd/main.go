package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tradeledger/src/database"
	"tradeledger/src/ledger"
	"tradeledger/src/model"
	"tradeledger/src/monitor"
	"tradeledger/src/report"
	"tradeledger/src/server"
	"tradeledger/src/snapshot"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	monitor.SetupLogger()

	if err := newApp().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ledger"
	app.Usage = "The trade and safety ledger command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		migrateCMD,
		serveCMD,
		tradesCMD,
		eventsCMD,
		recordEventCMD,
		summaryCMD,
		snapshotsCMD,
	}

	return app
}

var (
	windowFlags = []cli.Flag{
		cli.StringFlag{Name: "from", Usage: "inclusive lower bound on the ISO-8601 timestamp"},
		cli.StringFlag{Name: "to", Usage: "inclusive upper bound on the ISO-8601 timestamp"},
	}

	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "apply ledger migrations",
		Action:      migrateAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Create or upgrade the ledger schema and verify it`,
	}
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the audit API",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve the read-only audit API on PORT`,
	}
	tradesCMD = cli.Command{
		Name:      "trades",
		Usage:     "list trades",
		Action:    tradesAction,
		ArgsUsage: "",
		Flags: append([]cli.Flag{
			cli.StringFlag{Name: "symbol", Usage: "only trades on this symbol"},
			cli.StringFlag{Name: "status", Usage: "only trades in this status"},
			cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum number of trades, 0 for all"},
			cli.BoolFlag{Name: "desc", Usage: "newest first"},
		}, windowFlags...),
		Description: `Print matching trades as JSON`,
	}
	eventsCMD = cli.Command{
		Name:      "events",
		Usage:     "list safety events",
		Action:    eventsAction,
		ArgsUsage: "",
		Flags: append([]cli.Flag{
			cli.StringFlag{Name: "type", Usage: "only events with this event_type"},
			cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum number of events, 0 for all"},
			cli.BoolFlag{Name: "desc", Usage: "newest first"},
		}, windowFlags...),
		Description: `Print matching safety events as JSON`,
	}
	recordEventCMD = cli.Command{
		Name:      "record-event",
		Usage:     "record a manual safety event",
		Action:    recordEventAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "type", Value: string(model.EventTypeKillSwitch), Usage: "event_type tag"},
			cli.StringFlag{Name: "action", Usage: "action_taken"},
			cli.StringFlag{Name: "details", Value: "{}", Usage: "details as a JSON object"},
		},
		Description: `Append an operator-initiated safety event`,
	}
	summaryCMD = cli.Command{
		Name:        "summary",
		Usage:       "summarize the ledger",
		Action:      summaryAction,
		ArgsUsage:   "",
		Flags:       windowFlags,
		Description: `Print trade and safety event totals as JSON`,
	}
	snapshotsCMD = cli.Command{
		Name:      "snapshots",
		Usage:     "list decision snapshots",
		Action:    snapshotsAction,
		ArgsUsage: "[path]",
		Flags:     []cli.Flag{},
		Description: `Without arguments list the snapshot files in LEDGER_SNAPSHOT_DIR.
   With a path print that snapshot.`,
	}
)

func migrateAction(_ *cli.Context) error {
	log := logrus.WithField("cmd", "migrate")
	log.Info("Starting migrate CMD")

	l, err := ledger.Open(database.GetConfig())
	if err != nil {
		log.WithError(err).Error("Opening ledger")
		return err
	}
	defer l.Close()

	ctx := context.Background()
	trades, err := l.CountTrades(ctx)
	if err != nil {
		return err
	}
	events, err := l.CountSafetyEvents(ctx)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"trades": trades, "safety_events": events}).Info("Ledger schema is current")
	return nil
}

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, server.GetConfig(), database.GetConfig())
}

func tradesAction(c *cli.Context) error {
	return withReadOnlyLedger(func(l *ledger.Ledger) error {
		seq := l.QueryTrades(context.Background(), ledger.TradeFilter{
			Symbol:     c.String("symbol"),
			Status:     model.TradeStatus(c.String("status")),
			From:       c.String("from"),
			To:         c.String("to"),
			Limit:      c.Int("limit"),
			Descending: c.Bool("desc"),
		})
		trades, err := ledger.Collect(seq)
		if err != nil {
			return err
		}
		if trades == nil {
			trades = []model.Trade{}
		}
		return printJSON(c.App.Writer, trades)
	})
}

func eventsAction(c *cli.Context) error {
	return withReadOnlyLedger(func(l *ledger.Ledger) error {
		seq := l.QuerySafetyEvents(context.Background(), ledger.SafetyEventFilter{
			EventType:  model.EventType(c.String("type")),
			From:       c.String("from"),
			To:         c.String("to"),
			Limit:      c.Int("limit"),
			Descending: c.Bool("desc"),
		})
		events, err := ledger.Collect(seq)
		if err != nil {
			return err
		}
		if events == nil {
			events = []model.SafetyEvent{}
		}
		return printJSON(c.App.Writer, events)
	})
}

func recordEventAction(c *cli.Context) error {
	log := logrus.WithField("cmd", "record-event")

	l, err := ledger.Open(database.GetConfig())
	if err != nil {
		log.WithError(err).Error("Opening ledger")
		return err
	}
	defer l.Close()

	event := &model.SafetyEvent{
		EventType:   model.EventType(c.String("type")),
		Details:     []byte(c.String("details")),
		ActionTaken: c.String("action"),
	}
	id, err := l.RecordSafetyEvent(context.Background(), event)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"event_id": id, "event_type": event.EventType}).Info("Safety event recorded")
	return printJSON(c.App.Writer, event)
}

func summaryAction(c *cli.Context) error {
	return withReadOnlyLedger(func(l *ledger.Ledger) error {
		ctx := context.Background()
		from, to := c.String("from"), c.String("to")

		trades, err := report.SummarizeTrades(l.QueryTrades(ctx, ledger.TradeFilter{From: from, To: to}))
		if err != nil {
			return err
		}
		events, err := report.SummarizeSafetyEvents(l.QuerySafetyEvents(ctx, ledger.SafetyEventFilter{From: from, To: to}))
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, report.Summary{Trades: trades, SafetyEvents: events})
	})
}

func snapshotsAction(c *cli.Context) error {
	if path := c.Args().First(); path != "" {
		snap, err := snapshot.Load(path)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, snap)
	}

	writer, err := snapshot.NewWriter(snapshot.GetConfig().Dir)
	if err != nil {
		return err
	}
	paths, err := writer.List()
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Fprintln(c.App.Writer, path)
	}
	return nil
}

func withReadOnlyLedger(fn func(l *ledger.Ledger) error) error {
	db, err := database.OpenReadOnly(database.GetConfig())
	if err != nil {
		logrus.WithError(err).Error("Opening read-only ledger")
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logrus.WithError(err).Warn("Closing read-only ledger")
		}
	}()

	return fn(ledger.New(db))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
