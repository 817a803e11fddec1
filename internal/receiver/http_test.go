package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossbot/internal/config"
	"crossbot/internal/engine"
	"crossbot/internal/exchange"
	"crossbot/internal/types"
)

type fixedSource struct {
	mu      sync.Mutex
	price   float64
	history []float64
	failAll bool
}

func (s *fixedSource) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return 0, fmt.Errorf("%w: test failure", exchange.ErrDataUnavailable)
	}
	return s.price, nil
}

func (s *fixedSource) RecentPrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, fmt.Errorf("%w: test failure", exchange.ErrDataUnavailable)
	}
	out := make([]float64, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *fixedSource) Close() error { return nil }

func newTestReceiver(t *testing.T, src exchange.PriceSource) (*HTTPReceiver, *engine.Bot) {
	t.Helper()

	cfg := &config.Config{
		Symbol:          "BTCUSDT",
		Interval:        "1m",
		BaseAssetAmount: 1.0,
		TickInterval:    5 * time.Millisecond,
		Risk: config.RiskConfig{
			StopLossPct:   0.5,
			TakeProfitPct: 5.0,
		},
		Strategy: config.StrategyConfig{
			Type:        "sma",
			ShortWindow: 2,
			LongWindow:  3,
		},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	bot, err := engine.New(cfg, src, logger)
	require.NoError(t, err)

	r := NewHTTPReceiver(0, bot, logger)
	r.runCtx = context.Background()
	return r, bot
}

func (r *HTTPReceiver) testHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", r.handleStart)
	mux.HandleFunc("/stop", r.handleStop)
	mux.HandleFunc("/status", r.handleStatus)
	mux.HandleFunc("/backtest", r.handleBacktest)
	mux.HandleFunc("/health", r.handleHealth)
	mux.HandleFunc("/", r.handleRoot)
	return mux
}

func TestReceiver_Health(t *testing.T) {
	r, _ := newTestReceiver(t, &fixedSource{price: 100})

	rec := httptest.NewRecorder()
	r.testHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReceiver_StatusIdle(t *testing.T) {
	r, _ := newTestReceiver(t, &fixedSource{price: 100})

	rec := httptest.NewRecorder()
	r.testHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var st types.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Running)
	assert.Nil(t, st.OpenPositionPrice)
	assert.Zero(t, st.TradeCount)
}

func TestReceiver_StartStopLifecycle(t *testing.T) {
	r, bot := newTestReceiver(t, &fixedSource{price: 100})
	h := r.testHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bot.Status().Running)

	// Second start is rejected, matching the lifecycle contract
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bot already running", body["error"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, bot.Status().Running)

	// Stopping again while idle
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bot not running", body["error"])
}

func TestReceiver_StartSurvivesRequestCompletion(t *testing.T) {
	// The live loop must run under the receiver context, not the request
	// context, or it would die as soon as the /start response is sent
	r, bot := newTestReceiver(t, &fixedSource{price: 100})
	h := r.testHandler()

	ctx, cancel := context.WithCancel(context.Background())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/start", nil).WithContext(ctx)
	h.ServeHTTP(rec, req)
	cancel()
	require.Equal(t, http.StatusOK, rec.Code)

	time.Sleep(30 * time.Millisecond)
	assert.True(t, bot.Status().Running)

	require.NoError(t, bot.Stop())
}

func TestReceiver_Backtest(t *testing.T) {
	src := &fixedSource{history: []float64{10, 9, 8, 12, 13, 5, 4}}
	r, _ := newTestReceiver(t, src)
	h := r.testHandler()

	payload := bytes.NewBufferString(`{"num_candles": 7}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backtest", payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var res types.BacktestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.TradeCount)
	assert.InDelta(t, -7.0, res.Profit, 1e-9)
}

func TestReceiver_BacktestDefaultsAndErrors(t *testing.T) {
	src := &fixedSource{history: []float64{10, 9, 8, 12, 13, 5, 4}}
	r, _ := newTestReceiver(t, src)
	h := r.testHandler()

	// Empty body falls back to the default candle count
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backtest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backtest", bytes.NewBufferString(`{"num_candles": -1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backtest", bytes.NewBufferString(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiver_BacktestDataUnavailable(t *testing.T) {
	r, _ := newTestReceiver(t, &fixedSource{failAll: true})
	h := r.testHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backtest", bytes.NewBufferString(`{"num_candles": 10}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestReceiver_MethodNotAllowed(t *testing.T) {
	r, _ := newTestReceiver(t, &fixedSource{price: 100})
	h := r.testHandler()

	for _, path := range []string{"/start", "/stop", "/backtest"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReceiver_Root(t *testing.T) {
	r, _ := newTestReceiver(t, &fixedSource{price: 100})
	h := r.testHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
