package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/observability/metrics"
	"github.com/mamadbah2/dairy/internal/repository/mongodb"
	"github.com/mamadbah2/dairy/internal/repository/sheets"
	"github.com/mamadbah2/dairy/internal/scheduler"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/server/router"
	"github.com/mamadbah2/dairy/internal/service/alerts"
	"github.com/mamadbah2/dairy/internal/service/features"
	"github.com/mamadbah2/dairy/internal/service/prediction"
	whatsappsvc "github.com/mamadbah2/dairy/internal/service/whatsapp"
	"github.com/mamadbah2/dairy/pkg/clients/modelserver"
	whatsappclient "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
	"github.com/mamadbah2/dairy/pkg/logger"
)

// herdSource is satisfied by both the MongoDB repository and the sheets reader.
type herdSource interface {
	features.Store
	scheduler.AnimalLister
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var herd herdSource = mongoRepo
	if cfg.DataSource == config.DataSourceSheets {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		herd = sheets.NewHerdSource(sheetsRepo, logger.Named(baseLogger, "repo.herd"))
	}
	baseLogger.Info("herd data source selected", zap.String("source", cfg.DataSource))

	extractor := features.NewExtractor(herd, logger.Named(baseLogger, "svc.features"))
	predictor := buildPredictor(cfg.Model, baseLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	predictionMetrics, err := metrics.NewPredictionMetrics(registry)
	if err != nil {
		baseLogger.Fatal("failed to register metrics", zap.Error(err))
	}

	predictionSvc := prediction.NewService(extractor, predictor, mongoRepo, predictionMetrics, logger.Named(baseLogger, "svc.prediction"))
	predictionHandler := handlers.NewPredictionHandler(predictionSvc, logger.Named(baseLogger, "handlers.prediction"))
	engine := router.New(predictionHandler, registry, logger.Named(baseLogger, "router"))

	if cfg.Scheduler.Enabled {
		var notifier scheduler.RiskNotifier
		if cfg.WhatsApp.Enabled() {
			messagingSvc := whatsappsvc.NewMetaWhatsAppService(whatsappclient.NewClient(cfg.WhatsApp), logger.Named(baseLogger, "svc.whatsapp"))
			notifier = alerts.NewNotifier(messagingSvc, cfg.WhatsApp.AlertRecipient, logger.Named(baseLogger, "svc.alerts"))
		} else {
			baseLogger.Warn("whatsapp not configured, risk alerts disabled")
		}

		sched, err := scheduler.NewScheduler(cfg.Scheduler, herd, predictionSvc, notifier, logger.Named(baseLogger, "scheduler"))
		if err != nil {
			baseLogger.Fatal("failed to init scheduler", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildPredictor returns the heuristic predictor, or the trained model client
// with the heuristic as fallback when a model server is configured.
func buildPredictor(cfg config.ModelConfig, baseLogger *zap.Logger) prediction.Predictor {
	heuristic := prediction.NewHeuristicPredictor()
	if !cfg.Enabled() {
		baseLogger.Info("no model server configured, using heuristic predictor")
		return heuristic
	}

	client := modelserver.NewClient(cfg.ServerURL, cfg.APIKey, cfg.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if health, err := client.Health(ctx); err != nil {
		baseLogger.Warn("model server unreachable at start-up, heuristic fallback will serve until it recovers", zap.Error(err))
	} else {
		baseLogger.Info("model server ready",
			zap.String("status", health.Status),
			zap.Bool("model_loaded", health.ModelLoaded),
			zap.String("model", health.ModelName))
	}

	return prediction.NewTrainedModelPredictor(client, cfg.Name, cfg.Version, heuristic, logger.Named(baseLogger, "svc.model"))
}
