package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"crossbot/internal/config"
	"crossbot/internal/crypto"
	"crossbot/internal/engine"
	"crossbot/internal/exchange"
	"crossbot/internal/receiver"
	"crossbot/internal/store"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)

	logger.Info("Starting Crossbot Server",
		"port", cfg.Port,
		"symbol", cfg.Symbol,
		"strategy", cfg.Strategy.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	source, err := buildPriceSource(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize price source", "error", err)
		os.Exit(1)
	}

	var opts []engine.Option
	var tickStore *store.TickStore
	if cfg.TickStoreDSN != "" {
		tickStore, err = store.NewTickStore(ctx, cfg.TickStoreDSN, logger)
		if err != nil {
			logger.Error("Failed to initialize tick archive", "error", err)
			os.Exit(1)
		}
		defer tickStore.Close()
		opts = append(opts, engine.WithRecorder(tickStore))
	}

	bot, err := engine.New(cfg, source, logger, opts...)
	if err != nil {
		logger.Error("Failed to initialize bot", "error", err)
		os.Exit(1)
	}

	httpReceiver := receiver.NewHTTPReceiver(cfg.Port, bot, logger)
	if err := httpReceiver.Start(ctx); err != nil {
		logger.Error("Failed to start HTTP receiver", "error", err)
		os.Exit(1)
	}

	logger.Info("Crossbot Server is running",
		"http_endpoint", "http://127.0.0.1:"+strconv.Itoa(cfg.Port),
	)
	logger.Info("Control the bot via POST /start, POST /stop, GET /status, POST /backtest")
	logger.Info("Press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop HTTP receiver first so no new commands arrive mid-shutdown
	if err := httpReceiver.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP receiver", "error", err)
	}

	if err := bot.Stop(); err != nil && err != engine.ErrNotRunning {
		logger.Error("Error stopping bot", "error", err)
	}

	if err := source.Close(); err != nil {
		logger.Error("Error closing price source", "error", err)
	}

	logger.Info("Crossbot Server stopped gracefully")
}

// buildPriceSource selects Binance when credentials are configured and falls
// back to the synthetic random walk otherwise, so the server always starts.
func buildPriceSource(cfg *config.Config, logger *slog.Logger) (exchange.PriceSource, error) {
	apiKey := cfg.Binance.APIKey
	apiSecret := cfg.Binance.APISecret

	if apiSecret == "" && cfg.Binance.APISecretEnc != "" {
		key, err := crypto.LoadEncryptionKey()
		if err != nil {
			return nil, err
		}
		apiSecret, err = crypto.DecryptSecret(cfg.Binance.APISecretEnc, key)
		if err != nil {
			return nil, err
		}
	}

	if apiKey != "" && apiSecret != "" {
		logger.Info("Using Binance market data", "symbol", cfg.Symbol)
		return exchange.NewBinanceSource(apiKey, apiSecret, logger), nil
	}

	logger.Warn("No Binance credentials configured, using synthetic market data")
	return exchange.NewSyntheticSource(logger), nil
}

// setupLogger configures the structured logger
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}
