package projects

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carbonlink/carbonlink-backend/internal/carbon"
	"carbonlink/carbonlink-backend/internal/credits"
	"carbonlink/carbonlink-backend/internal/environment"
	"carbonlink/carbonlink-backend/internal/oracle"
	"carbonlink/carbonlink-backend/pkg/geospatial"
)

// Service manages the project registry.
type Service interface {
	Create(ctx context.Context, req CreateProjectRequest) (*Project, error)
	Get(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	UpdateIssuance(ctx context.Context, id uuid.UUID, issuance credits.Issuance) (*Project, error)
}

// CreateProjectRequest carries the registration payload.
type CreateProjectRequest struct {
	Name             string                  `json:"name" binding:"required"`
	Description      string                  `json:"description"`
	OwnerAddress     string                  `json:"owner_address" binding:"required"`
	Latitude         float64                 `json:"latitude"`
	Longitude        float64                 `json:"longitude"`
	Elevation        float64                 `json:"elevation"`
	Geometry         datatypes.JSON          `json:"geometry"`
	AreaHectares     float64                 `json:"area_hectares"`
	DurationYears    float64                 `json:"duration_years"`
	ProjectType      carbon.ProjectType      `json:"project_type"`
	BaselineScenario carbon.BaselineScenario `json:"baseline_scenario"`
}

type service struct {
	db      *gorm.DB
	factory oracle.ProjectFactory
	logger  *zap.Logger
}

// NewService wires the registry against the database and the on-chain
// project factory. The factory may be nil when chain deployment is
// disabled; projects are then registered without a contract address.
func NewService(db *gorm.DB, factory oracle.ProjectFactory, logger *zap.Logger) Service {
	return &service{db: db, factory: factory, logger: logger}
}

func (s *service) Create(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	coord := environment.Coordinate{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Elevation: req.Elevation,
	}
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	area := req.AreaHectares
	if len(req.Geometry) > 0 {
		boundary, err := geospatial.ParseBoundary(string(req.Geometry))
		if err != nil {
			return nil, fmt.Errorf("parse boundary: %w", err)
		}
		area = geospatial.AreaHectares(boundary)
	}

	params := carbon.ProjectParameters{
		AreaHectares:     area,
		DurationYears:    req.DurationYears,
		ProjectType:      req.ProjectType,
		BaselineScenario: req.BaselineScenario,
	}
	if verr := carbon.ValidateProjectParameters(params); verr != nil {
		return nil, verr
	}

	project := &Project{
		ID:               uuid.New(),
		Name:             req.Name,
		Description:      req.Description,
		OwnerAddress:     req.OwnerAddress,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Elevation:        req.Elevation,
		Geometry:         req.Geometry,
		AreaHectares:     area,
		DurationYears:    req.DurationYears,
		ProjectType:      req.ProjectType,
		BaselineScenario: req.BaselineScenario,
	}

	if s.factory != nil {
		landDetails := fmt.Sprintf("%s|%.4f,%.4f|%.2fha", req.Name, req.Latitude, req.Longitude, area)
		address, err := s.factory.CreateProject(ctx, landDetails)
		if err != nil {
			return nil, fmt.Errorf("deploy project contract: %w", err)
		}
		project.ContractAddress = address
	}

	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("project registered",
		zap.String("project_id", project.ID.String()),
		zap.String("contract", project.ContractAddress),
		zap.Float64("area_hectares", area))

	return project, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

func (s *service) List(ctx context.Context) ([]Project, error) {
	var list []Project
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return list, nil
}

func (s *service) UpdateIssuance(ctx context.Context, id uuid.UUID, issuance credits.Issuance) (*Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	project.CurrentCarbon = issuance.TotalCarbon
	project.TradableCredits = issuance.TradableAmount
	project.BufferCredits = issuance.ReservedAmount
	project.MintEligible = issuance.MintEligible
	project.LastAssessedAt = &now

	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		return nil, fmt.Errorf("update issuance: %w", err)
	}
	return project, nil
}
