package types

// Side represents the direction of an executed trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal is a strategy decision for a single tick
type Signal string

const (
	SignalHold Signal = "HOLD"
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)

// Trade is an immutable entry in the append-only trade ledger.
// Timestamp is wall-clock seconds in live mode and the candle index in
// backtests.
type Trade struct {
	Timestamp int64   `json:"timestamp"`
	Side      Side    `json:"action"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
}

// Position is the single open position. At most one exists at a time; it is
// destroyed the moment a SELL is recorded for it.
type Position struct {
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	EntryTime  int64   `json:"entry_timestamp"`
}

// Status is the snapshot returned by the engine's Status operation
type Status struct {
	Running           bool     `json:"running"`
	OpenPositionPrice *float64 `json:"open_position,omitempty"`
	TradeCount        int      `json:"trade_count"`
}

// BacktestResult holds the outcome of a deterministic historical replay.
// Profit is realized P&L only; a position still open at the end of the
// series contributes nothing.
type BacktestResult struct {
	Profit     float64 `json:"profit"`
	TradeCount int     `json:"trade_count"`
	Trades     []Trade `json:"trades"`
}

// BacktestRequest is the request body for the backtest endpoint
type BacktestRequest struct {
	NumCandles int `json:"num_candles"`
}
