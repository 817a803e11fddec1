package strategy

import (
	"fmt"
	"sort"

	"crossbot/internal/types"
)

// Strategy converts a price history into a trading signal. The price slice is
// ordered oldest first with the most recent price last. Implementations may
// keep internal edge-detection state between calls; Reset discards it so one
// instance can be reused for a fresh run.
type Strategy interface {
	GenerateSignal(prices []float64) types.Signal
	Reset()

	// WarmupPeriod is the minimum history length before the strategy can
	// produce a non-HOLD signal
	WarmupPeriod() int
}

// Params carries the tunables shared by all registered strategies
type Params struct {
	ShortWindow int
	LongWindow  int
}

// Factory builds a strategy instance from its parameters
type Factory func(p Params) (Strategy, error)

// ErrUnknownStrategy is returned by New for a strategy type that was never
// registered
var ErrUnknownStrategy = fmt.Errorf("unknown strategy type")

var registry = map[string]Factory{}

// Register adds a strategy constructor under a name. Called from init
// functions of the concrete implementations.
func Register(name string, f Factory) {
	registry[name] = f
}

// New builds a strategy by its registered name
func New(name string, p Params) (Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return f(p)
}

// Names returns the registered strategy names, sorted
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
