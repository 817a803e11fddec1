package risk

import (
	"crossbot/internal/types"
)

// Exit reasons recorded on closing executions
const (
	ReasonSignal     = "signal"
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonEntry      = "entry"
)

// Config holds the position-sizing and exit thresholds
type Config struct {
	// BaseAssetAmount is the fixed quantity opened on every BUY
	BaseAssetAmount float64
	// StopLossPct closes an open position once price falls to
	// entry*(1-StopLossPct)
	StopLossPct float64
	// TakeProfitPct closes an open position once price rises to
	// entry*(1+TakeProfitPct)
	TakeProfitPct float64
	// MaxPositionSize is accepted from configuration but not yet enforced;
	// sizing is fixed at BaseAssetAmount per entry
	MaxPositionSize float64
}

// Execution is a ledger entry paired with the rule that produced it and the
// P&L it realized (0 for opens)
type Execution struct {
	Trade    types.Trade
	Reason   string
	Realized float64
}

// Manager turns strategy signals into trade executions while enforcing the
// single-open-position policy and the stop-loss/take-profit exits. It holds
// no state of its own: the caller owns the position and passes it in on
// every tick.
type Manager struct {
	cfg Config
}

// NewManager creates a risk manager from its configuration
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Apply evaluates one tick. Signal-driven actions run first: a BUY opens a
// position when none is open (a BUY against an open position is ignored,
// not queued), a SELL closes the open one. The threshold exits run
// afterwards and only if a position is still open, so a SELL signal and a
// stop-loss can never both fire on the same tick.
//
// Returns the position after the tick (nil when flat) and the executions to
// append to the ledger, in order.
func (m *Manager) Apply(pos *types.Position, signal types.Signal, price float64, ts int64) (*types.Position, []Execution) {
	var execs []Execution

	switch signal {
	case types.SignalBuy:
		if pos == nil {
			pos = &types.Position{
				EntryPrice: price,
				Quantity:   m.cfg.BaseAssetAmount,
				EntryTime:  ts,
			}
			execs = append(execs, Execution{
				Trade: types.Trade{
					Timestamp: ts,
					Side:      types.SideBuy,
					Price:     price,
					Quantity:  pos.Quantity,
				},
				Reason: ReasonEntry,
			})
		}
	case types.SignalSell:
		if pos != nil {
			execs = append(execs, m.close(pos, price, ts, ReasonSignal))
			pos = nil
		}
	}

	// Threshold exits, skipped when the tick already closed the position
	if pos != nil {
		switch {
		case price <= pos.EntryPrice*(1-m.cfg.StopLossPct):
			execs = append(execs, m.close(pos, price, ts, ReasonStopLoss))
			pos = nil
		case price >= pos.EntryPrice*(1+m.cfg.TakeProfitPct):
			execs = append(execs, m.close(pos, price, ts, ReasonTakeProfit))
			pos = nil
		}
	}

	return pos, execs
}

func (m *Manager) close(pos *types.Position, price float64, ts int64, reason string) Execution {
	return Execution{
		Trade: types.Trade{
			Timestamp: ts,
			Side:      types.SideSell,
			Price:     price,
			Quantity:  pos.Quantity,
		},
		Reason:   reason,
		Realized: (price - pos.EntryPrice) * pos.Quantity,
	}
}
