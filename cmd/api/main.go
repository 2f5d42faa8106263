package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/cmd/mainconfig"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/api/router"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/app/bootstrap"
	appconfig "github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/config"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/leads"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/notify"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/observability/metrics"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting 1031 exchange lead API",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	warnMissingIntegrations(cfg, logger)

	handler, err := buildHandler(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize api", "error", err)
		os.Exit(1)
	}

	// Lead delivery runs inside the request, so the write timeout covers the
	// bot-check plus one outbound timeout with headroom.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2*cfg.OutboundTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildHandler wires config into the full HTTP handler.
func buildHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, error) {
	metricsHandler, leadMetrics := setupMetrics(cfg.MetricsEnabled)

	b, err := bootstrap.BuildBrand(cfg)
	if err != nil {
		return nil, fmt.Errorf("load brand: %w", err)
	}

	email, err := bootstrap.BuildEmailSender(ctx, cfg, sesClientFactory(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("build email sender: %w", err)
	}

	notifier := bootstrap.BuildNotifier(cfg, email, b, leadMetrics, logger)
	verifier := bootstrap.BuildVerifier(cfg, logger)

	return router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leads.NewHandler(verifier, notifier, leadMetrics, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}), nil
}

// setupMetrics returns a nil handler and nil metrics when disabled; both are
// safe to pass on.
func setupMetrics(enabled bool) (http.Handler, *metrics.LeadMetrics) {
	if !enabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewLeadMetrics(reg)
}

func sesClientFactory(cfg *appconfig.Config) bootstrap.SESClientFactory {
	return func(ctx context.Context) (notify.SESAPI, error) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return mainconfig.NewSESClient(awsCfg, cfg), nil
	}
}

func warnMissingIntegrations(cfg *appconfig.Config, logger *logging.Logger) {
	for _, name := range cfg.MissingIntegrations() {
		logger.Warn("integration not configured", "env", name)
	}
}
