package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/api/rest"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/cache"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/config"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/identitysource"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/telemetry"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/textmodel"
	"github.com/davidleathers/identity-audit-engine/internal/metrics"
	"github.com/davidleathers/identity-audit-engine/internal/service/analyzer"
	"github.com/davidleathers/identity-audit-engine/internal/service/audit"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	provider, err := telemetry.InitTracing(ctx, &telemetry.Config{
		ServiceName:    "identity-audit-engine",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	source := identitysource.NewClient(identitysource.Config{
		BaseURL:           cfg.IdentitySource.BaseURL,
		RequestTimeout:    cfg.IdentitySource.RequestTimeout,
		RequestsPerSecond: cfg.IdentitySource.RequestsPerSecond,
		Burst:             cfg.IdentitySource.Burst,
	}, logger.Named("identitysource"))

	var model textmodel.Model = textmodel.Disabled{}
	if cfg.TextModel.Enabled {
		model = textmodel.NewHTTPModel(textmodel.Config{
			BaseURL:        cfg.TextModel.BaseURL,
			Model:          cfg.TextModel.Model,
			RequestTimeout: cfg.TextModel.RequestTimeout,
		}, logger.Named("textmodel"))
	}

	var analysisCache audit.AnalysisCache
	if cfg.Redis.Enabled {
		c, err := cache.NewAnalysisCache(&cfg.Redis, logger.Named("cache"))
		if err != nil {
			// The cache is an optimization; the engine runs without it.
			logger.Warn("analysis cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer c.Close()
			analysisCache = c
		}
	}

	riskAnalyzer := analyzer.New(model, analyzer.Config{
		StaleLoginAfter: time.Duration(cfg.Audit.StaleLoginDays) * 24 * time.Hour,
	}, logger.Named("analyzer"))

	coordinator := audit.NewCoordinator(
		source,
		riskAnalyzer,
		audit.NewRegistry(),
		analysisCache,
		metrics.NewRegistry(prometheus.DefaultRegisterer),
		otel.Tracer("identity-audit-engine"),
		logger.Named("audit"),
		audit.Config{
			DefaultLimit:    cfg.Audit.DefaultLimit,
			QuickLimit:      cfg.Audit.QuickLimit,
			AnalysisWorkers: cfg.Audit.AnalysisWorkers,
		},
	)

	server := rest.NewServer(cfg, coordinator, logger)
	if err := server.Start(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
