package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carbonlink/carbonlink-backend/internal/config"
	"carbonlink/carbonlink-backend/internal/environment"
	"carbonlink/carbonlink-backend/internal/oracle"
	"carbonlink/carbonlink-backend/internal/projects"
	"carbonlink/carbonlink-backend/internal/server"
)

// API holds the assembled service graph behind the v1 routes.
type API struct {
	Handler     *server.Handler
	Aggregator  *environment.Aggregator
	Coordinator *oracle.Coordinator
	Projects    projects.Service
}

// SetupAPI builds the aggregator, oracle coordinator, project registry and
// HTTP handler from configuration. db, contract and factory may be nil; the
// corresponding routes degrade gracefully.
func SetupAPI(cfg *config.Config, db *gorm.DB, contract oracle.ProjectContract, factory oracle.ProjectFactory, logger *zap.Logger) (*API, error) {
	aggregator := environment.NewAggregator(
		environment.NewOpenWeatherProvider(cfg.Providers.OpenWeatherAPIKey),
		environment.NewSentinelHubProvider(cfg.Providers.SentinelHubToken),
		environment.NewCopernicusSoilProvider(cfg.Providers.CopernicusAPIKey),
		environment.NewFIRMSProvider(cfg.Providers.NASAFirmsAPIKey),
		logger,
		environment.WithCache(environment.NewObservationCache(cfg.Environment.CacheTTL)),
		environment.WithRetryBudget(cfg.Environment.RetryBudget),
	)

	var coordinator *oracle.Coordinator
	if contract != nil {
		coordinator = oracle.NewCoordinator(contract, logger,
			oracle.WithPollInterval(cfg.Oracle.PollInterval))
	}

	var projectSvc projects.Service
	if db != nil {
		if err := db.AutoMigrate(&projects.Project{}); err != nil {
			return nil, err
		}
		projectSvc = projects.NewService(db, factory, logger)
	}

	handler := server.NewHandler(aggregator, coordinator, projectSvc, logger)

	return &API{
		Handler:     handler,
		Aggregator:  aggregator,
		Coordinator: coordinator,
		Projects:    projectSvc,
	}, nil
}

// RegisterRoutes registers the v1 routes on the router group
func RegisterRoutes(router *gin.RouterGroup, api *API) {
	api.Handler.RegisterRoutes(router)
}
