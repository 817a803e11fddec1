// Package metrics exposes the Prometheus instrumentation the bot updates
// while running:
//
//	crossbot_ticks_total                  – live-loop ticks processed
//	crossbot_signals_total{signal}        – strategy decisions (HOLD|BUY|SELL)
//	crossbot_trades_total{side,reason}    – executed trades by side and rule
//	crossbot_fetch_errors_total           – skipped ticks due to data errors
//	crossbot_open_position_price          – entry price of the open position (0 when flat)
//	crossbot_backtests_total              – backtest invocations
//
// All collectors are registered in init and served by the HTTP receiver at
// /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ticks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crossbot_ticks_total",
			Help: "Live-loop ticks processed",
		},
	)

	signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossbot_signals_total",
			Help: "Strategy decisions taken",
		},
		[]string{"signal"},
	)

	trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossbot_trades_total",
			Help: "Executed trades by side and triggering rule",
		},
		[]string{"side", "reason"},
	)

	fetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crossbot_fetch_errors_total",
			Help: "Price fetches that failed and were skipped",
		},
	)

	openPosition = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossbot_open_position_price",
			Help: "Entry price of the open position, 0 when flat",
		},
	)

	backtests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crossbot_backtests_total",
			Help: "Backtest invocations",
		},
	)
)

func init() {
	prometheus.MustRegister(ticks, signals, trades, fetchErrors, openPosition, backtests)
}

// ObserveTick counts one processed live tick
func ObserveTick() {
	ticks.Inc()
}

// ObserveSignal counts a strategy decision
func ObserveSignal(signal string) {
	signals.WithLabelValues(signal).Inc()
}

// ObserveTrade counts an executed trade
func ObserveTrade(side, reason string) {
	trades.WithLabelValues(side, reason).Inc()
}

// ObserveFetchError counts a skipped tick
func ObserveFetchError() {
	fetchErrors.Inc()
}

// SetOpenPosition publishes the current entry price, 0 when flat
func SetOpenPosition(price float64) {
	openPosition.Set(price)
}

// ObserveBacktest counts a backtest run
func ObserveBacktest() {
	backtests.Inc()
}
