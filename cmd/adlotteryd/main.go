package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"adlottery/config"
	"adlottery/core"
	"adlottery/core/epoch"
	"adlottery/gateway/middleware"
	"adlottery/gateway/routes"
	"adlottery/observability/logging"
	"adlottery/observability/metrics"
	telemetry "adlottery/observability/otel"
	"adlottery/services/indexer"
	"adlottery/storage"
)

const serviceName = "adlotteryd"

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./adlottery.toml", "path to daemon configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(serviceName, cfg.Node.Environment, logging.ParseLevel(cfg.Node.LogLevel), logging.FileConfig{
		Path:       cfg.Node.LogFile,
		MaxSizeMB:  cfg.Node.LogMaxSizeMB,
		MaxBackups: cfg.Node.LogMaxBackups,
		MaxAgeDays: cfg.Node.LogMaxAgeDays,
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Node.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	if err := run(cfg, logger); err != nil {
		logger.Error("adlotteryd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.Node.StorageBackend, cfg.Node.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	app := core.NewApp(db,
		core.WithLogger(logger),
		core.WithMetrics(metrics.Lottery()),
		core.WithEpochConfig(epoch.Config{LengthMs: cfg.Epoch.LengthMs}),
	)

	genesis, err := cfg.Genesis()
	if err != nil {
		return err
	}
	if genesis.HasAdmin() {
		if err := app.Bootstrap(ctx, genesis); err != nil {
			return err
		}
	} else {
		logger.Warn("treasury admin not configured; skipping genesis bootstrap")
	}

	if cfg.Indexer.DSN != "" {
		store, err := indexer.Open(cfg.Indexer.DSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		indexed, err := store.CatchUp(ctx, app)
		if err != nil {
			return err
		}
		logger.Info("indexer caught up", "events", indexed)
		store.Follow(app)
		app.AddSink(store)
	}

	router := routes.New(routes.Config{
		Ledger: app,
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}, logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: serviceName,
			LogRequests: true,
		}, logger, prometheus.DefaultRegisterer),
		CORS: middleware.CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		MetricsHandler: promhttp.Handler(),
	})

	handler := router
	if cfg.Telemetry.Traces {
		handler = otelhttp.NewHandler(router, serviceName)
	}

	server := &http.Server{
		Addr:              cfg.Node.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.Node.ListenAddress)
	if err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	return nil
}
