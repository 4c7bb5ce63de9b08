package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"carbonlink/carbonlink-backend/internal/carbon"
	"carbonlink/carbonlink-backend/internal/config"
	"carbonlink/carbonlink-backend/internal/credits"
	"carbonlink/carbonlink-backend/internal/environment"
	"carbonlink/carbonlink-backend/internal/projects"
)

// RefreshWorker re-warms observation caches and recomputes issuance
// snapshots for every registered project on a schedule.
type RefreshWorker struct {
	aggregator *environment.Aggregator
	projects   projects.Service
	logger     *zap.Logger
	config     RefreshWorkerConfig
}

// RefreshWorkerConfig configuration for the refresh worker
type RefreshWorkerConfig struct {
	Schedule      string
	MaxConcurrent int
}

// DefaultRefreshWorkerConfig returns default configuration
func DefaultRefreshWorkerConfig() RefreshWorkerConfig {
	return RefreshWorkerConfig{
		Schedule:      "*/5 * * * *",
		MaxConcurrent: 5,
	}
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(aggregator *environment.Aggregator, projectSvc projects.Service, logger *zap.Logger, cfg RefreshWorkerConfig) *RefreshWorker {
	return &RefreshWorker{
		aggregator: aggregator,
		projects:   projectSvc,
		logger:     logger,
		config:     cfg,
	}
}

// RefreshAll refreshes every registered project once
func (w *RefreshWorker) RefreshAll(ctx context.Context) {
	list, err := w.projects.List(ctx)
	if err != nil {
		w.logger.Error("Failed to list projects", zap.Error(err))
		return
	}
	if len(list) == 0 {
		return
	}

	w.logger.Info("Refreshing projects", zap.Int("count", len(list)))

	// Process with concurrency limit
	sem := make(chan struct{}, w.config.MaxConcurrent)
	for i := range list {
		sem <- struct{}{}
		go func(project *projects.Project) {
			defer func() { <-sem }()
			w.refreshProject(ctx, project)
		}(&list[i])
	}
	for i := 0; i < w.config.MaxConcurrent; i++ {
		sem <- struct{}{}
	}
}

// refreshProject fetches fresh observations and updates the project's
// issuance snapshot
func (w *RefreshWorker) refreshProject(ctx context.Context, project *projects.Project) {
	startTime := time.Now()

	coord := environment.Coordinate{
		Latitude:  project.Latitude,
		Longitude: project.Longitude,
		Elevation: project.Elevation,
	}

	obs, err := w.aggregator.FetchAll(ctx, coord)
	if err != nil {
		w.logger.Error("Failed to fetch observations",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		return
	}

	assessment := carbon.CalculateCarbonOffset(carbon.BalanceInput{
		Observations: *obs,
		Params:       project.Params(),
	})
	issuance := credits.Evaluate(assessment.TotalProjectCarbon, credits.DefaultMintThreshold)

	if _, err := w.projects.UpdateIssuance(ctx, project.ID, issuance); err != nil {
		w.logger.Error("Failed to update issuance snapshot",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		return
	}

	w.logger.Debug("Project refreshed",
		zap.String("project_id", project.ID.String()),
		zap.Float64("total_carbon", issuance.TotalCarbon),
		zap.Bool("mint_eligible", issuance.MintEligible),
		zap.Duration("duration", time.Since(startTime)))
}

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&projects.Project{}); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	logger.Info("Connected to database")

	aggregator := environment.NewAggregator(
		environment.NewOpenWeatherProvider(cfg.Providers.OpenWeatherAPIKey),
		environment.NewSentinelHubProvider(cfg.Providers.SentinelHubToken),
		environment.NewCopernicusSoilProvider(cfg.Providers.CopernicusAPIKey),
		environment.NewFIRMSProvider(cfg.Providers.NASAFirmsAPIKey),
		logger,
		environment.WithCache(environment.NewObservationCache(cfg.Environment.CacheTTL)),
		environment.WithRetryBudget(cfg.Environment.RetryBudget),
	)
	projectSvc := projects.NewService(db, nil, logger)

	workerCfg := DefaultRefreshWorkerConfig()
	if cfg.Environment.RefreshSchedule != "" {
		workerCfg.Schedule = cfg.Environment.RefreshSchedule
	}
	worker := NewRefreshWorker(aggregator, projectSvc, logger, workerCfg)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Refresh once at startup, then on the schedule
	worker.RefreshAll(ctx)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(workerCfg.Schedule, func() {
		worker.RefreshAll(ctx)
	}); err != nil {
		logger.Fatal("Invalid refresh schedule", zap.Error(err))
	}

	logger.Info("Refresh worker starting", zap.String("schedule", workerCfg.Schedule))
	scheduler.Start()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	logger.Info("Refresh worker stopped")
}
