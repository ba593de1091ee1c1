package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"intraday-accounting/internal/interfaces"
	"intraday-accounting/internal/logger"
	"intraday-accounting/internal/types"
)

// event is one line of the replay stream: either a fill or a tick.
type event struct {
	Type string           `json:"type"` // "fill" or "tick"
	Fill *types.Fill      `json:"fill,omitempty"`
	Tick *interfaces.Tick `json:"tick,omitempty"`
}

// eventFeed reads newline-delimited JSON events from a file or stdin.
type eventFeed struct {
	r       io.ReadCloser
	scanner *bufio.Scanner
	line    int
}

func openEventFeed(path string) (*eventFeed, error) {
	var r io.ReadCloser = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r = f
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventFeed{r: r, scanner: scanner}, nil
}

// Next returns the next event, nil at end of stream. Unparseable lines are
// logged and skipped; they are a feed problem, not an accounting one.
func (f *eventFeed) Next(ctx context.Context) (*event, error) {
	for f.scanner.Scan() {
		f.line++
		raw := f.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev event
		if err := json.Unmarshal(raw, &ev); err != nil {
			logger.Warn(ctx, "Skipping malformed event line", "line", f.line, "error", err)
			continue
		}
		switch ev.Type {
		case "fill":
			if ev.Fill == nil {
				logger.Warn(ctx, "Skipping fill event without body", "line", f.line)
				continue
			}
			if ev.Fill.OrderID == "" {
				// Synthetic fixtures often omit broker order ids.
				ev.Fill.OrderID = uuid.NewString()
			}
			return &ev, nil
		case "tick":
			if ev.Tick == nil {
				logger.Warn(ctx, "Skipping tick event without body", "line", f.line)
				continue
			}
			return &ev, nil
		default:
			logger.Warn(ctx, "Skipping event of unknown type", "line", f.line, "type", ev.Type)
		}
	}
	if err := f.scanner.Err(); err != nil {
		return nil, fmt.Errorf("event stream read: %w", err)
	}
	return nil, nil
}

func (f *eventFeed) Close() error {
	return f.r.Close()
}

// logOrderLayer is the replay stand-in for the external execution layer:
// it records what the order layer would have been asked to do.
type logOrderLayer struct{}

func newLogOrderLayer() interfaces.OrderLayer {
	return &logOrderLayer{}
}

func (l *logOrderLayer) ReplaceStop(ctx context.Context, update types.StopUpdate) error {
	logger.Info(ctx, "Order layer: replace resting stop",
		"instrument", update.Instrument,
		"old_stop", update.OldStop,
		"new_stop", update.NewStop,
	)
	return nil
}

func (l *logOrderLayer) SubmitExit(ctx context.Context, trigger types.StopTriggered) error {
	logger.Risk(ctx, trigger.Instrument, "STOP_EXIT_REQUESTED",
		"price", trigger.Price,
		"stop_price", trigger.StopPrice,
	)
	return nil
}
