package engine

import (
	"context"
	"fmt"

	"crossbot/internal/metrics"
	"crossbot/internal/risk"
	"crossbot/internal/types"
)

// DefaultBacktestCandles is used when a request does not specify a series
// length
const DefaultBacktestCandles = 500

// Backtest replays numCandles of historical prices through the same
// signal/risk pipeline the live loop uses, on state local to this call: the
// live position and ledger are never touched, so a backtest can run while
// the live loop is active. Trades are indexed by candle position instead of
// wall-clock time. The replay is deterministic: identical series and
// configuration produce identical ledgers and profit.
func (b *Bot) Backtest(ctx context.Context, numCandles int) (*types.BacktestResult, error) {
	if numCandles < 1 {
		return nil, fmt.Errorf("num_candles must be positive, got %d", numCandles)
	}

	prices, err := b.source.RecentPrices(ctx, b.symbol, b.interval, numCandles)
	if err != nil {
		return nil, fmt.Errorf("failed to load backtest series: %w", err)
	}

	// Fresh strategy per invocation, never the live loop's instance
	strat, err := b.newStrategy()
	if err != nil {
		return nil, err
	}

	var position *types.Position
	profit := 0.0
	trades := make([]types.Trade, 0)

	for i, price := range prices {
		signal := strat.GenerateSignal(prices[:i+1])

		var execs []risk.Execution
		position, execs = b.risk.Apply(position, signal, price, int64(i))
		for _, ex := range execs {
			trades = append(trades, ex.Trade)
			profit += ex.Realized
		}
	}

	metrics.ObserveBacktest()
	b.logger.Info("[ENGINE] Backtest finished",
		"symbol", b.symbol,
		"candles", len(prices),
		"trades", len(trades),
		"profit", profit,
		"open_at_end", position != nil,
	)

	return &types.BacktestResult{
		Profit:     profit,
		TradeCount: len(trades),
		Trades:     trades,
	}, nil
}
