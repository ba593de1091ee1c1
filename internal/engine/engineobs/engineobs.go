package engineobs

import (
	"context"
	"time"

	"intraday-accounting/internal/analytics"
	"intraday-accounting/internal/interfaces"
	"intraday-accounting/internal/logger"
	"intraday-accounting/internal/trace"
	"intraday-accounting/internal/types"
)

type observableAccounting struct {
	acct interfaces.Accounting
}

var _ interfaces.Accounting = (*observableAccounting)(nil)

func Wrap(acct interfaces.Accounting) interfaces.Accounting {
	return &observableAccounting{
		acct: acct,
	}
}

func (oa *observableAccounting) RecordFill(ctx context.Context, fill types.Fill) (*types.MatchResult, error) {
	ctx, span := trace.StartSpan(ctx, "accounting.RecordFill")
	defer span.End()

	start := time.Now()

	result, err := oa.acct.RecordFill(ctx, fill)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Fill rejected", err,
			"instrument", fill.Instrument,
			"order_id", fill.OrderID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Fill booked",
		"instrument", fill.Instrument,
		"side", string(fill.Side),
		"qty", fill.Qty,
		"price", fill.Price,
		"realized_trades", len(result.Realized),
		"reversed", result.Reversed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (oa *observableAccounting) UpdatePrice(ctx context.Context, symbol string, price float64, ts time.Time) (*types.StopUpdate, *types.StopTriggered, error) {
	ctx, span := trace.StartSpan(ctx, "accounting.UpdatePrice")
	defer span.End()

	update, triggered, err := oa.acct.UpdatePrice(ctx, symbol, price, ts)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Tick rejected", err, "symbol", symbol, "price", price)
		return nil, nil, err
	}
	if triggered != nil {
		logger.WarnSkip(ctx, 1, "Stop trigger reported to order layer",
			"symbol", symbol,
			"price", triggered.Price,
			"stop_price", triggered.StopPrice,
		)
	}
	return update, triggered, nil
}

func (oa *observableAccounting) Snapshot(ctx context.Context, symbol string) (*types.PositionSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "accounting.Snapshot")
	defer span.End()
	return oa.acct.Snapshot(ctx, symbol)
}

func (oa *observableAccounting) SessionReport(ctx context.Context, since time.Time) (*analytics.Report, error) {
	ctx, span := trace.StartSpan(ctx, "accounting.SessionReport")
	defer span.End()

	start := time.Now()
	report, err := oa.acct.SessionReport(ctx, since)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Session report failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	logger.InfoSkip(ctx, 1, "Session report computed",
		"trade_count", report.TradeCount,
		"net_pnl", report.NetPnL,
		"win_rate", report.WinRate,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (oa *observableAccounting) Rebuild(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "accounting.Rebuild")
	defer span.End()

	start := time.Now()
	if err := oa.acct.Rebuild(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "State rebuild failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
	logger.InfoSkip(ctx, 1, "State rebuilt",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (oa *observableAccounting) Close() error {
	return oa.acct.Close()
}
