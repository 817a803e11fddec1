package exchange

import (
	"context"
	"errors"
)

// ErrDataUnavailable marks transient market-data failures. Callers in the
// live loop skip the tick and retry; the backtest fails fast.
var ErrDataUnavailable = errors.New("market data unavailable")

// PriceSource supplies close prices for a symbol. Implementations may block
// on network I/O; both calls honor context cancellation.
type PriceSource interface {
	// CurrentPrice returns the latest price for the symbol
	CurrentPrice(ctx context.Context, symbol string) (float64, error)

	// RecentPrices returns up to limit historical close prices for the
	// symbol at the given candle interval, ordered oldest first
	RecentPrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error)

	// Close cleans up resources
	Close() error
}
