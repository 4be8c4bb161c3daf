package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/binderbay/backend/internal/alerts"
	"github.com/binderbay/backend/internal/api"
	"github.com/binderbay/backend/internal/api/handlers"
	"github.com/binderbay/backend/internal/config"
	"github.com/binderbay/backend/internal/database"
	"github.com/binderbay/backend/internal/jobs"
	"github.com/binderbay/backend/internal/logging"
	"github.com/binderbay/backend/internal/portfolio"
	"github.com/binderbay/backend/internal/pricing"
	"github.com/binderbay/backend/internal/providers"
)

func main() {
	cfg := config.Load()
	log := logging.New()

	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	db := database.GetDB()

	// Provider clients
	primary := providers.NewCardmarketService(cfg.PrimaryBaseURL, cfg.PrimaryAPIKey, cfg.ProviderTimeout)
	secondary := providers.NewCardTraderService(cfg.SecondaryBaseURL, cfg.SecondaryAPIKey, cfg.ProviderTimeout)

	// Pricing core
	store := pricing.NewSnapshotStore(db)
	resolver := pricing.NewResolver(store, primary, secondary, log)
	resolver.SetLiveCallBudget(cfg.LiveCallBudget)
	aggregator := portfolio.NewAggregator(db, resolver, store, log)
	alertService := alerts.NewService(db, log)

	// Batch runners
	snapshotJob := jobs.NewSnapshotJob(store, primary, cfg.SnapshotPacing, log)
	alertEngine := jobs.NewAlertEngine(db, store, jobs.NewLogNotifier(log), log)

	scheduler := jobs.NewScheduler(log)
	if err := scheduler.AddJob(cfg.SnapshotSchedule, snapshotJob.Name(), func(ctx context.Context) error {
		_, err := snapshotJob.Run(ctx)
		return err
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	if err := scheduler.AddJob(cfg.AlertSchedule, alertEngine.Name(), func(ctx context.Context) error {
		_, err := alertEngine.Run(ctx)
		return err
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register alert engine")
	}
	scheduler.Start()

	// Startup catch-up: run both batches once in the background. The
	// runners' overlap guards keep this safe against the schedule firing.
	if cfg.RunJobsOnStartup {
		go func() {
			if _, err := snapshotJob.Run(context.Background()); err != nil {
				log.Error().Err(err).Msg("Startup snapshot run failed")
			}
			if _, err := alertEngine.Run(context.Background()); err != nil {
				log.Error().Err(err).Msg("Startup alert run failed")
			}
		}()
	}

	// HTTP surface
	router := api.SetupRouter(
		cfg.CORSAllowedOrigins,
		handlers.NewPriceHandler(resolver, store),
		handlers.NewPortfolioHandler(aggregator, store),
		handlers.NewAlertHandler(alertService),
		handlers.NewJobHandler(snapshotJob, alertEngine),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
