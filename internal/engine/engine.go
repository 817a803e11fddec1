package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"crossbot/internal/config"
	"crossbot/internal/exchange"
	"crossbot/internal/metrics"
	"crossbot/internal/risk"
	"crossbot/internal/strategy"
	"crossbot/internal/types"
)

var (
	// ErrAlreadyRunning is returned by Start while a live worker exists
	ErrAlreadyRunning = errors.New("bot already running")
	// ErrNotRunning is returned by Stop when the bot is idle
	ErrNotRunning = errors.New("bot not running")
	// ErrStopTimeout is returned when the worker did not cease within the
	// bounded wait; the stop is forced rather than hanging
	ErrStopTimeout = errors.New("live loop did not stop within timeout")
)

const defaultStopTimeout = 5 * time.Second

// TickRecorder archives live price observations. Recording is best-effort;
// failures never affect the trading loop.
type TickRecorder interface {
	RecordTick(ctx context.Context, symbol string, price float64, ts time.Time) error
}

// Bot owns the trading loop lifecycle and the shared trade ledger. One
// background worker at most runs the live loop; Start, Stop, Status and
// Backtest are safe to call from any goroutine while it is active.
type Bot struct {
	logger *slog.Logger
	source exchange.PriceSource
	risk   *risk.Manager

	symbol       string
	interval     string
	tickInterval time.Duration
	stopTimeout  time.Duration
	newStrategy  func() (strategy.Strategy, error)

	recorder TickRecorder

	mu       sync.RWMutex
	running  bool
	position *types.Position
	trades   []types.Trade
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures optional bot collaborators
type Option func(*Bot)

// WithRecorder attaches a tick archive to the live loop
func WithRecorder(r TickRecorder) Option {
	return func(b *Bot) {
		b.recorder = r
	}
}

// WithStopTimeout overrides the bounded wait of Stop
func WithStopTimeout(d time.Duration) Option {
	return func(b *Bot) {
		b.stopTimeout = d
	}
}

// New builds the bot from configuration. Strategy construction runs once up
// front so an invalid configuration aborts startup instead of surfacing on
// the first tick.
func New(cfg *config.Config, source exchange.PriceSource, logger *slog.Logger, opts ...Option) (*Bot, error) {
	params := strategy.Params{
		ShortWindow: cfg.Strategy.ShortWindow,
		LongWindow:  cfg.Strategy.LongWindow,
	}
	strategyType := cfg.Strategy.Type

	newStrategy := func() (strategy.Strategy, error) {
		return strategy.New(strategyType, params)
	}
	if _, err := newStrategy(); err != nil {
		return nil, fmt.Errorf("invalid strategy config: %w", err)
	}

	b := &Bot{
		logger:       logger,
		source:       source,
		symbol:       cfg.Symbol,
		interval:     cfg.Interval,
		tickInterval: cfg.TickInterval,
		stopTimeout:  defaultStopTimeout,
		newStrategy:  newStrategy,
		risk: risk.NewManager(risk.Config{
			BaseAssetAmount: cfg.BaseAssetAmount,
			StopLossPct:     cfg.Risk.StopLossPct,
			TakeProfitPct:   cfg.Risk.TakeProfitPct,
			MaxPositionSize: cfg.Risk.MaxPositionSize,
		}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Start spawns the live worker. Each run gets a fresh strategy instance, so
// crossover state never leaks between sessions. Returns ErrAlreadyRunning
// without spawning a second worker when one is active, including a worker
// that survived a timed-out Stop and has not finished yet.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return ErrAlreadyRunning
	}
	if b.done != nil {
		select {
		case <-b.done:
		default:
			return fmt.Errorf("%w: previous worker still stopping", ErrAlreadyRunning)
		}
	}

	strat, err := b.newStrategy()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.cancel = cancel
	b.done = done
	b.running = true

	runID := uuid.NewString()[:8]
	go b.run(runCtx, strat, done, runID)

	b.logger.Info("[ENGINE] Live loop started",
		"run_id", runID,
		"symbol", b.symbol,
		"tick_interval", b.tickInterval,
	)
	return nil
}

// Stop signals the worker to exit at the next loop iteration boundary and
// waits for it to cease, bounded by the stop timeout. Returns ErrNotRunning
// when idle.
func (b *Bot) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return ErrNotRunning
	}
	b.running = false
	cancel := b.cancel
	done := b.done
	b.cancel = nil
	b.mu.Unlock()

	cancel()

	select {
	case <-done:
		b.logger.Info("[ENGINE] Live loop stopped")
		return nil
	case <-time.After(b.stopTimeout):
		// The done channel stays set so Start keeps refusing until the
		// stale worker actually finishes
		b.logger.Error("[ENGINE] Forced stop, worker still busy",
			"timeout", b.stopTimeout,
		)
		return ErrStopTimeout
	}
}

// Status returns a consistent snapshot of the run state, open position and
// ledger size. Pure read, safe concurrently with the live loop.
func (b *Bot) Status() types.Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := types.Status{
		Running:    b.running,
		TradeCount: len(b.trades),
	}
	if b.position != nil {
		price := b.position.EntryPrice
		st.OpenPositionPrice = &price
	}
	return st
}

// Trades returns a copy of the ledger
func (b *Bot) Trades() []types.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]types.Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// run is the live loop worker. Fetch failures skip the tick and retry after
// the interval; only cancellation ends the loop.
func (b *Bot) run(ctx context.Context, strat strategy.Strategy, done chan struct{}, runID string) {
	defer close(done)

	// Price history is memory-capped, generously above the strategy warmup
	historyCap := 1000
	if c := 2 * strat.WarmupPeriod(); c > historyCap {
		historyCap = c
	}
	prices := make([]float64, 0, historyCap)

	ticker := time.NewTicker(b.tickInterval)
	defer ticker.Stop()

	for {
		price, err := b.source.CurrentPrice(ctx, b.symbol)
		switch {
		case err != nil && ctx.Err() != nil:
			// Cancelled mid-fetch
			return
		case err != nil:
			b.logger.Warn("[ENGINE] Price fetch failed, skipping tick",
				"run_id", runID,
				"symbol", b.symbol,
				"error", err,
			)
			metrics.ObserveFetchError()
		default:
			prices = append(prices, price)
			if len(prices) > historyCap {
				prices = prices[len(prices)-historyCap:]
			}
			b.tick(strat, prices, price, time.Now().Unix(), runID)

			if b.recorder != nil {
				if err := b.recorder.RecordTick(ctx, b.symbol, price, time.Now()); err != nil {
					b.logger.Warn("[ENGINE] Tick archive write failed",
						"run_id", runID,
						"error", err,
					)
				}
			}
		}

		select {
		case <-ctx.Done():
			b.logger.Info("[ENGINE] Live loop exiting", "run_id", runID)
			return
		case <-ticker.C:
		}
	}
}

// tick runs the shared per-tick pipeline against the live position and
// ledger
func (b *Bot) tick(strat strategy.Strategy, prices []float64, price float64, ts int64, runID string) {
	signal := strat.GenerateSignal(prices)
	metrics.ObserveTick()
	metrics.ObserveSignal(string(signal))

	b.mu.Lock()
	pos, execs := b.risk.Apply(b.position, signal, price, ts)
	b.position = pos
	for _, ex := range execs {
		b.trades = append(b.trades, ex.Trade)
	}
	b.mu.Unlock()

	for _, ex := range execs {
		metrics.ObserveTrade(string(ex.Trade.Side), ex.Reason)
		b.logger.Info("[ENGINE] Trade executed",
			"run_id", runID,
			"symbol", b.symbol,
			"side", ex.Trade.Side,
			"price", ex.Trade.Price,
			"quantity", ex.Trade.Quantity,
			"reason", ex.Reason,
			"realized", ex.Realized,
		)
	}

	if pos != nil {
		metrics.SetOpenPosition(pos.EntryPrice)
	} else {
		metrics.SetOpenPosition(0)
	}
}
