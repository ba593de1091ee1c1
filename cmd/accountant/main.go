package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intraday-accounting/internal/interfaces"
	"intraday-accounting/internal/logger"
	"intraday-accounting/internal/trace"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	eventsPath := flag.String("events", "", "JSONL stream of fills and ticks to replay (default: stdin)")
	since := flag.String("since", "", "session report start (RFC3339, default: midnight IST)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "tracer shutdown: %v\n", err)
		}
	}()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		os.Exit(1)
	}
	compressOldLogs(ctx)

	acct, err := initializeAccounting(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer acct.Close()

	feed, err := openEventFeed(*eventsPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open event stream", err, "path", *eventsPath)
		os.Exit(1)
	}
	defer feed.Close()

	orders := newLogOrderLayer()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Info(ctx, "Shutting down...")
		cancel()
	}()

	if err := runLoop(ctx, acct, feed, orders); err != nil && ctx.Err() == nil {
		logger.ErrorWithErr(ctx, "Replay loop failed", err)
	}

	printSessionReport(ctx, acct, *since)
}

// runLoop drives the engine sequentially: one event at a time, in stream
// order, exactly the contract the core expects.
func runLoop(ctx context.Context, acct interfaces.Accounting, feed *eventFeed, orders interfaces.OrderLayer) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ev, err := feed.Next(ctx)
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}

		switch {
		case ev.Fill != nil:
			if _, err := acct.RecordFill(ctx, *ev.Fill); err != nil {
				// A bad fill means accounting for that instrument is no
				// longer trustworthy. Surface and stop.
				return err
			}
		case ev.Tick != nil:
			update, triggered, err := acct.UpdatePrice(ctx, ev.Tick.Instrument, ev.Tick.Price, ev.Tick.Time)
			if err != nil {
				// A single malformed tick is recoverable: drop and log.
				logger.Warn(ctx, "Dropping malformed tick", "error", err, "instrument", ev.Tick.Instrument)
				continue
			}
			if update != nil {
				if err := orders.ReplaceStop(ctx, *update); err != nil {
					logger.Warn(ctx, "Stop replacement failed", "error", err, "instrument", update.Instrument)
				}
			}
			if triggered != nil {
				if err := orders.SubmitExit(ctx, *triggered); err != nil {
					logger.Warn(ctx, "Exit submission failed", "error", err, "instrument", triggered.Instrument)
				}
			}
		}
	}
}

func printSessionReport(ctx context.Context, acct interfaces.Accounting, since string) {
	var from time.Time
	if since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			logger.Warn(ctx, "Ignoring bad -since value", "error", err, "value", since)
		} else {
			from = parsed
		}
	}
	report, err := acct.SessionReport(ctx, from)
	if err != nil {
		logger.Warn(ctx, "No session report", "error", err)
		return
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to render session report", err)
		return
	}
	fmt.Println(string(b))
}
