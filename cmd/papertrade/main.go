package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcardozo/papertrade/internal/config"
	"github.com/mcardozo/papertrade/internal/guard"
	"github.com/mcardozo/papertrade/internal/handler"
	"github.com/mcardozo/papertrade/internal/marketdata"
	"github.com/mcardozo/papertrade/internal/service"
	"github.com/mcardozo/papertrade/internal/store"
)

// defaultSimPrices seeds the static quote provider when no upstream
// market-data API is configured.
var defaultSimPrices = map[string]float64{
	"AAPL": 178.50,
	"MSFT": 415.20,
	"GOOG": 142.35,
	"AMZN": 185.90,
	"TSLA": 246.75,
	"NVDA": 118.40,
}

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Persistence: SQLite when a path is configured, in-memory otherwise.
	var tradeStore store.TradeStore
	if cfg.SQLitePath != "" {
		sqliteStore, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer sqliteStore.Close()
		tradeStore = sqliteStore
		logger.Info("using sqlite store", slog.String("path", cfg.SQLitePath))
	} else {
		tradeStore = store.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	// Market data: HTTP client when an upstream is configured, static
	// simulation table otherwise.
	var quotes marketdata.Provider
	if cfg.QuoteBaseURL != "" {
		quotes = marketdata.NewClient(cfg.QuoteBaseURL, cfg.QuoteAPIKey, cfg.QuoteTimeout)
		logger.Info("using http quote provider", slog.String("base_url", cfg.QuoteBaseURL))
	} else {
		quotes = marketdata.NewStaticProvider(defaultSimPrices)
		logger.Info("using static quote provider")
	}

	// Guards.
	idem := guard.NewIdempotency(cfg.IdempotencyBucket, cfg.IdempotencyTTL, cfg.SweepInterval)
	limiter := guard.NewLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, cfg.SweepInterval)
	quota := guard.NewDailyQuota(cfg.MaxTradesPerDay)
	valueCap := guard.NewValueCap(cfg.MaxTradeValue)

	// Services.
	tradeSvc := service.NewTradeService(tradeStore, quotes, idem, limiter, quota, valueCap, logger)
	accountSvc := service.NewAccountService(tradeStore, quotes, cfg.StartingCash)

	// Router.
	router := handler.NewRouter(accountSvc, tradeSvc, handler.NewQuoteHandler(quotes), logger)

	// Start guard sweepers with a cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	idem.Start(ctx)
	limiter.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops sweepers).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
