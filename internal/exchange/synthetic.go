package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
)

// SyntheticSource implements PriceSource with a generated random walk. It is
// the fallback when no exchange credentials are configured and the primary
// source for tests.
//
// CurrentPrice advances a mutable walk, one step per call. RecentPrices
// re-derives its series from the configured seed on every call, so the same
// request always yields the same series and backtests stay reproducible.
type SyntheticSource struct {
	logger     *slog.Logger
	mu         sync.Mutex
	rng        *rand.Rand
	seed       int64
	basePrice  float64
	volatility float64
	current    float64

	failMessage string
}

// SyntheticOption configures the synthetic source
type SyntheticOption func(*SyntheticSource)

// WithBasePrice sets the starting price for the walk
func WithBasePrice(price float64) SyntheticOption {
	return func(s *SyntheticSource) {
		s.basePrice = price
	}
}

// WithVolatility sets the per-step movement as a fraction of the price
func WithVolatility(v float64) SyntheticOption {
	return func(s *SyntheticSource) {
		s.volatility = v
	}
}

// WithSeed fixes the random seed (for reproducible runs)
func WithSeed(seed int64) SyntheticOption {
	return func(s *SyntheticSource) {
		s.seed = seed
	}
}

// WithSourceFailure makes every fetch fail (for testing fail-soft paths)
func WithSourceFailure(msg string) SyntheticOption {
	return func(s *SyntheticSource) {
		s.failMessage = msg
	}
}

// NewSyntheticSource creates a synthetic price source
func NewSyntheticSource(logger *slog.Logger, opts ...SyntheticOption) *SyntheticSource {
	s := &SyntheticSource{
		logger:     logger,
		seed:       1,
		basePrice:  30000.0,
		volatility: 0.005,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewSource(s.seed))
	s.current = s.basePrice
	return s
}

// CurrentPrice advances the walk one step and returns the new price
func (s *SyntheticSource) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failMessage != "" {
		return 0, fmt.Errorf("%w: %s", ErrDataUnavailable, s.failMessage)
	}

	s.current = step(s.rng, s.current, s.basePrice, s.volatility)
	return s.current, nil
}

// RecentPrices generates limit prices from a walk seeded with the configured
// seed. Calls with the same arguments return identical series.
func (s *SyntheticSource) RecentPrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	s.mu.Lock()
	failMsg := s.failMessage
	base := s.basePrice
	vol := s.volatility
	seed := s.seed
	s.mu.Unlock()

	if failMsg != "" {
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, failMsg)
	}

	rng := rand.New(rand.NewSource(seed))
	prices := make([]float64, limit)
	price := base
	for i := 0; i < limit; i++ {
		price = step(rng, price, base, vol)
		prices[i] = price
	}
	return prices, nil
}

// step moves the walk: gaussian noise plus a pull back toward the base price
// so it cannot drift off without bound
func step(rng *rand.Rand, current, base, volatility float64) float64 {
	noise := rng.NormFloat64() * current * volatility
	reversion := (base - current) * 0.05
	next := current + noise + reversion
	if next <= 0 {
		next = current
	}
	return next
}

// Close is a no-op for the synthetic source
func (s *SyntheticSource) Close() error {
	return nil
}
