package strategy

import (
	"fmt"

	"crossbot/internal/indicators"
	"crossbot/internal/types"
)

func init() {
	Register("sma", func(p Params) (Strategy, error) {
		return NewSMACrossover(p.ShortWindow, p.LongWindow)
	})
}

// crossState tracks which side of the long MA the short MA was on
type crossState int

const (
	crossUnset crossState = iota
	crossAbove
	crossBelow
)

// SMACrossover emits BUY when the short moving average crosses above the
// long one and SELL when it crosses back below. Equal averages count as
// "not above", so an exact-equality tick lands on the BELOW side.
type SMACrossover struct {
	shortWindow int
	longWindow  int
	lastCross   crossState
}

// NewSMACrossover validates the window configuration and returns a fresh
// detector with unset cross state
func NewSMACrossover(shortWindow, longWindow int) (*SMACrossover, error) {
	if shortWindow < 1 {
		return nil, fmt.Errorf("short_window must be positive, got %d", shortWindow)
	}
	if longWindow <= shortWindow {
		return nil, fmt.Errorf("long_window (%d) must be greater than short_window (%d)", longWindow, shortWindow)
	}
	return &SMACrossover{
		shortWindow: shortWindow,
		longWindow:  longWindow,
	}, nil
}

// GenerateSignal computes both averages over the tail of the history and
// signals only on a state transition. The very first determinable state is
// recorded silently: there is nothing to compare it against yet.
func (s *SMACrossover) GenerateSignal(prices []float64) types.Signal {
	if len(prices) < s.longWindow {
		// Insufficient history, leave cross state untouched
		return types.SignalHold
	}

	shortMA := indicators.SMA(prices, s.shortWindow)
	longMA := indicators.SMA(prices, s.longWindow)

	current := crossBelow
	if shortMA > longMA {
		current = crossAbove
	}

	signal := types.SignalHold
	if s.lastCross != crossUnset {
		if s.lastCross == crossBelow && current == crossAbove {
			signal = types.SignalBuy
		} else if s.lastCross == crossAbove && current == crossBelow {
			signal = types.SignalSell
		}
	}
	s.lastCross = current
	return signal
}

// Reset clears the cross state so the instance behaves like a newly
// constructed one
func (s *SMACrossover) Reset() {
	s.lastCross = crossUnset
}

// WarmupPeriod returns the long window length
func (s *SMACrossover) WarmupPeriod() int {
	return s.longWindow
}
