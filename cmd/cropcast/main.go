package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cropcast/internal/backend"
	"cropcast/internal/cache"
	"cropcast/internal/cli"
	"cropcast/internal/config"
	"cropcast/internal/core"
	apphttp "cropcast/internal/http"
	"cropcast/internal/log"
	"cropcast/internal/metrics"
	"cropcast/internal/services"
)

// startupTimeout bounds dataset loading from remote backends.
const startupTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, startupTimeout)
	defer cancelLoad()

	src, err := backend.NewFactory(logger).CreateSource(loadCtx, backendCfg)
	if err != nil {
		return err
	}
	if src.Cleanup != nil {
		defer func() {
			if err := src.Cleanup(); err != nil {
				logger.Warn("Dataset source cleanup failed", log.FieldError, err)
			}
		}()
	}

	m := metrics.New()

	svcOpts := []services.Option{
		services.WithLogger(logger),
		services.WithDefaults(cfg.DefaultCrop, cfg.DefaultPeriods),
		services.WithFitObserver(m),
	}
	if cfg.ForecastCacheSize > 0 {
		results := cache.NewLRUCache[core.ForecastResult](cfg.ForecastCacheSize, cfg.ForecastCacheTTL)
		caches := cache.NewManager(logger)
		caches.Register(results)
		caches.StartCleanup(cfg.ForecastCacheTTL)
		defer caches.Stop()
		svcOpts = append(svcOpts, services.WithForecastCache(results))
	}

	// The dataset is read once; every request is served from memory.
	svc, err := services.LoadSalesService(loadCtx, src.Source, svcOpts...)
	if err != nil {
		return err
	}
	cancelLoad()

	stats := svc.Stats()
	m.SetDataset(stats.Records, stats.Crops)
	logger.Info("Dataset loaded",
		log.FieldBackend, backendCfg.Type.String(),
		log.FieldRecords, stats.Records,
		log.FieldCrops, stats.Crops)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:  logger,
		Metrics: m,
		Limits: apphttp.Limits{
			DefaultCrop:    cfg.DefaultCrop,
			DefaultPeriods: cfg.DefaultPeriods,
			MaxPeriods:     cfg.MaxPeriods,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ForecastRateLimit:  cfg.ForecastRateLimit,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting cropcast server", "port", cfg.Port, log.FieldBackend, backendCfg.Type.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
