package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonlink/carbonlink-backend/internal/carbon"
	"carbonlink/carbonlink-backend/internal/credits"
	"carbonlink/carbonlink-backend/internal/environment"
	"carbonlink/carbonlink-backend/internal/oracle"
	"carbonlink/carbonlink-backend/internal/projects"
)

// Handler handles HTTP requests for carbon assessment operations
type Handler struct {
	aggregator  *environment.Aggregator
	coordinator *oracle.Coordinator
	projects    projects.Service
	logger      *zap.Logger
}

// NewHandler creates a new carbon assessment handler. The coordinator and
// projects service may be nil when the chain or database is not configured;
// the matching routes then return 503.
func NewHandler(aggregator *environment.Aggregator, coordinator *oracle.Coordinator, projectSvc projects.Service, logger *zap.Logger) *Handler {
	return &Handler{
		aggregator:  aggregator,
		coordinator: coordinator,
		projects:    projectSvc,
		logger:      logger,
	}
}

// RegisterRoutes registers the assessment routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.health)

	carbonGroup := router.Group("/carbon")
	{
		carbonGroup.POST("/stock", h.calculateStock)
		carbonGroup.POST("/offset", h.calculateOffset)
		carbonGroup.POST("/balance", h.calculateBalance)
	}

	projectGroup := router.Group("/projects")
	{
		projectGroup.POST("", h.createProject)
		projectGroup.GET("", h.listProjects)
		projectGroup.GET("/:id", h.getProject)
		projectGroup.GET("/:id/progress", h.getProgress)
		projectGroup.POST("/:id/oracle", h.submitOracleRequest)
		projectGroup.GET("/:id/oracle", h.getOracleRequest)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// LocationRequest identifies the site being assessed.
type LocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

func (r LocationRequest) coordinate() environment.Coordinate {
	return environment.Coordinate{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Elevation: r.Elevation,
	}
}

// StockRequest drives a single-point stock assessment. When NDVI is omitted
// the satellite observation for the location supplies it.
type StockRequest struct {
	LocationRequest
	NDVI        *float64 `json:"ndvi"`
	ProjectArea float64  `json:"project_area"`
}

// calculateStock handles POST /api/v1/carbon/stock
func (h *Handler) calculateStock(c *gin.Context) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coord := req.coordinate()
	if err := coord.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obs, err := h.aggregator.FetchAll(c.Request.Context(), coord)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ndvi := obs.Satellite.NDVI
	if req.NDVI != nil {
		ndvi = *req.NDVI
	}

	input := carbon.StockInput{
		NDVI:        ndvi,
		ProjectArea: req.ProjectArea,
		Weather:     obs.Weather,
		Satellite:   obs.Satellite,
		Soil:        obs.Soil,
	}
	if verr := carbon.ValidateStockInput(input); verr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "violations": verr.Violations})
		return
	}

	result := carbon.CalculateCarbonCredits(input)
	c.JSON(http.StatusOK, gin.H{
		"result":       result,
		"observations": obs,
	})
}

// OffsetRequest drives a stock-change assessment between two NDVI readings.
type OffsetRequest struct {
	LocationRequest
	NDVIStart   *float64 `json:"ndvi_start"`
	NDVIEnd     *float64 `json:"ndvi_end"`
	ProjectArea float64  `json:"project_area"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
}

// calculateOffset handles POST /api/v1/carbon/offset
func (h *Handler) calculateOffset(c *gin.Context) {
	var req OffsetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coord := req.coordinate()
	if err := coord.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obs, err := h.aggregator.FetchAll(c.Request.Context(), coord)
	if err != nil {
		h.writeError(c, err)
		return
	}

	input := carbon.OffsetInput{
		NDVIStart:   req.NDVIStart,
		NDVIEnd:     req.NDVIEnd,
		ProjectArea: req.ProjectArea,
		Weather:     obs.Weather,
		Satellite:   obs.Satellite,
		Soil:        obs.Soil,
	}

	result, err := carbon.CalculateCarbonOffsetCredits(input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":       result,
		"observations": obs,
	})
}

// BalanceRequest drives the full sequestration-minus-emissions accounting.
type BalanceRequest struct {
	LocationRequest
	Params carbon.ProjectParameters `json:"params"`
}

// calculateBalance handles POST /api/v1/carbon/balance
func (h *Handler) calculateBalance(c *gin.Context) {
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if verr := carbon.ValidateProjectParameters(req.Params); verr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "violations": verr.Violations})
		return
	}

	coord := req.coordinate()
	if err := coord.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obs, err := h.aggregator.FetchAll(c.Request.Context(), coord)
	if err != nil {
		h.writeError(c, err)
		return
	}

	assessment := carbon.CalculateCarbonOffset(carbon.BalanceInput{
		Observations: *obs,
		Params:       req.Params,
	})
	issuance := credits.Evaluate(assessment.TotalProjectCarbon, credits.DefaultMintThreshold)

	c.JSON(http.StatusOK, gin.H{
		"assessment":   assessment,
		"issuance":     issuance,
		"observations": obs,
	})
}

// createProject handles POST /api/v1/projects
func (h *Handler) createProject(c *gin.Context) {
	if h.projects == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "project registry not configured"})
		return
	}

	var req projects.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// listProjects handles GET /api/v1/projects
func (h *Handler) listProjects(c *gin.Context) {
	if h.projects == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "project registry not configured"})
		return
	}

	list, err := h.projects.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": list, "count": len(list)})
}

// getProject handles GET /api/v1/projects/:id
func (h *Handler) getProject(c *gin.Context) {
	project, ok := h.projectByID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, project)
}

// getProgress handles GET /api/v1/projects/:id/progress
func (h *Handler) getProgress(c *gin.Context) {
	project, ok := h.projectByID(c)
	if !ok {
		return
	}

	issuance := credits.Evaluate(project.CurrentCarbon, credits.DefaultMintThreshold)
	c.JSON(http.StatusOK, gin.H{
		"project_id":       project.ID,
		"issuance":         issuance,
		"last_assessed_at": project.LastAssessedAt,
	})
}

// OracleSubmitRequest controls the oracle submission.
type OracleSubmitRequest struct {
	Await bool `json:"await"`
}

// submitOracleRequest handles POST /api/v1/projects/:id/oracle
func (h *Handler) submitOracleRequest(c *gin.Context) {
	if h.coordinator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oracle not configured"})
		return
	}
	project, ok := h.projectByID(c)
	if !ok {
		return
	}

	var req OracleSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coord := environment.Coordinate{
		Latitude:  project.Latitude,
		Longitude: project.Longitude,
		Elevation: project.Elevation,
	}

	if !req.Await {
		request, err := h.coordinator.Submit(c.Request.Context(), project.ID, coord, project.Params())
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, request)
		return
	}

	assessment, err := h.coordinator.SubmitAndAwait(c.Request.Context(), project.ID, coord, project.Params(), 0)
	if err != nil {
		h.writeError(c, err)
		return
	}

	issuance := credits.Evaluate(assessment.TotalProjectCarbon, credits.DefaultMintThreshold)
	updated, err := h.projects.UpdateIssuance(c.Request.Context(), project.ID, issuance)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessment": assessment,
		"issuance":   issuance,
		"project":    updated,
	})
}

// getOracleRequest handles GET /api/v1/projects/:id/oracle
func (h *Handler) getOracleRequest(c *gin.Context) {
	if h.coordinator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oracle not configured"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	request, polled := h.coordinator.Request(id)
	if !polled {
		c.JSON(http.StatusNotFound, gin.H{"error": "no oracle request for project"})
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) projectByID(c *gin.Context) (*projects.Project, bool) {
	if h.projects == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "project registry not configured"})
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return nil, false
	}

	project, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return nil, false
	}
	return project, true
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *carbon.ValidationError
	var merr *carbon.MissingInputError
	var terr *oracle.TimeoutError
	var rerr *oracle.RejectionError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "violations": verr.Violations})
	case errors.As(err, &merr):
		c.JSON(http.StatusBadRequest, gin.H{"error": merr.Error()})
	case errors.Is(err, oracle.ErrRequestInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, oracle.ErrNoRequest):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &terr):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": terr.Error()})
	case errors.As(err, &rerr):
		// The oracle network refused or failed the request upstream.
		c.JSON(http.StatusBadGateway, gin.H{"error": rerr.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
