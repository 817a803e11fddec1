package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crossbot/internal/engine"
	"crossbot/internal/exchange"
	"crossbot/internal/types"
)

// Bot is the engine surface the HTTP layer drives
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
	Status() types.Status
	Backtest(ctx context.Context, numCandles int) (*types.BacktestResult, error)
}

// HTTPReceiver exposes the bot control surface over HTTP
type HTTPReceiver struct {
	server *http.Server
	logger *slog.Logger
	bot    Bot
	port   int

	// runCtx is the process-scoped context live loops are started under,
	// never a request context
	runCtx context.Context
}

// NewHTTPReceiver creates the HTTP control surface for a bot
func NewHTTPReceiver(port int, bot Bot, logger *slog.Logger) *HTTPReceiver {
	return &HTTPReceiver{
		port:   port,
		bot:    bot,
		logger: logger,
	}
}

// Start starts the HTTP server
func (r *HTTPReceiver) Start(ctx context.Context) error {
	r.runCtx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("/start", r.handleStart)
	mux.HandleFunc("/stop", r.handleStop)
	mux.HandleFunc("/status", r.handleStatus)
	mux.HandleFunc("/backtest", r.handleBacktest)
	mux.HandleFunc("/health", r.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", r.handleRoot)

	r.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", r.port),
		Handler:      r.loggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	r.logger.Info("[RECEIVER] Starting HTTP server",
		"port", r.port,
		"address", r.server.Addr,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait briefly to catch immediate bind errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts down the HTTP server
func (r *HTTPReceiver) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}

	r.logger.Info("[RECEIVER] Shutting down HTTP server")
	return r.server.Shutdown(ctx)
}

// handleStart handles POST /start
func (r *HTTPReceiver) handleStart(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	runCtx := r.runCtx
	if runCtx == nil {
		runCtx = context.Background()
	}

	if err := r.bot.Start(runCtx); err != nil {
		if errors.Is(err, engine.ErrAlreadyRunning) {
			r.sendError(w, http.StatusBadRequest, "Bot already running")
			return
		}
		r.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	r.sendSuccess(w, "Bot started", nil)
}

// handleStop handles POST /stop
func (r *HTTPReceiver) handleStop(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.bot.Stop(); err != nil {
		if errors.Is(err, engine.ErrNotRunning) {
			r.sendError(w, http.StatusBadRequest, "Bot not running")
			return
		}
		r.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	r.sendSuccess(w, "Bot stopped", nil)
}

// handleStatus handles GET /status
func (r *HTTPReceiver) handleStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(r.bot.Status())
}

// handleBacktest handles POST /backtest
func (r *HTTPReceiver) handleBacktest(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	backtestReq := types.BacktestRequest{NumCandles: engine.DefaultBacktestCandles}
	if req.Body != nil && req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&backtestReq); err != nil {
			r.sendError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	result, err := r.bot.Backtest(req.Context(), backtestReq.NumCandles)
	if err != nil {
		if errors.Is(err, exchange.ErrDataUnavailable) {
			r.sendError(w, http.StatusBadGateway, err.Error())
			return
		}
		r.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleHealth handles GET /health
func (r *HTTPReceiver) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleRoot handles requests to the root path
func (r *HTTPReceiver) handleRoot(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "crossbot API running",
		"endpoints": []string{
			"POST /start - Start the live trading loop",
			"POST /stop - Stop the live trading loop",
			"GET /status - Run state, open position and trade count",
			"POST /backtest - Replay recent candles through the strategy",
			"GET /health - Health check",
			"GET /metrics - Prometheus metrics",
		},
	})
}

// sendError sends an error response
func (r *HTTPReceiver) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// sendSuccess sends a success response
func (r *HTTPReceiver) sendSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// loggingMiddleware logs all incoming requests
func (r *HTTPReceiver) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, req)

		r.logger.Info("[RECEIVER] Request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote", req.RemoteAddr,
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
