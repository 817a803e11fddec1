package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/adshao/go-binance/v2"
)

// BinanceSource implements PriceSource against the Binance REST API
type BinanceSource struct {
	client *binance.Client
	logger *slog.Logger
}

// NewBinanceSource creates a Binance-backed price source. The price
// endpoints are public, so empty credentials are accepted.
func NewBinanceSource(apiKey, secretKey string, logger *slog.Logger) *BinanceSource {
	return &BinanceSource{
		client: binance.NewClient(apiKey, secretKey),
		logger: logger,
	}
}

// CurrentPrice returns the latest ticker price for a symbol
func (b *BinanceSource) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: price for %s: %v", ErrDataUnavailable, symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: no price returned for %s", ErrDataUnavailable, symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable price %q for %s", ErrDataUnavailable, prices[0].Price, symbol)
	}
	return price, nil
}

// RecentPrices returns the last limit kline close prices, oldest first
func (b *BinanceSource) RecentPrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: klines for %s: %v", ErrDataUnavailable, symbol, err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			b.logger.Warn("[BINANCE] Skipping unparseable close",
				"symbol", symbol,
				"close", k.Close,
			)
			continue
		}
		closes = append(closes, c)
	}
	return closes, nil
}

// Close is a no-op for the REST client
func (b *BinanceSource) Close() error {
	return nil
}
