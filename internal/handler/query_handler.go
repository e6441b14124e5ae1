package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/models"
	"github.com/okil-ai/consult-api/pkg/response"
)

type queryService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateQueryRequest) (*models.Query, error)
	Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateQueryRequest) (*models.Query, error)
	List(ctx context.Context, claims *models.JWTClaims, query dto.QueryListQuery) ([]models.Query, error)
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Query, error)
}

// QueryHandler exposes written legal queries.
type QueryHandler struct {
	service queryService
}

// NewQueryHandler constructs the handler.
func NewQueryHandler(svc queryService) *QueryHandler {
	return &QueryHandler{service: svc}
}

// Create godoc
// @Summary Submit a legal query
// @Tags Queries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateQueryRequest true "Query"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /queries [post]
func (h *QueryHandler) Create(c *gin.Context) {
	var req dto.CreateQueryRequest
	if !bindJSON(c, &req, "invalid query payload") {
		return
	}
	query, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, query)
}

// List godoc
// @Summary List visible queries
// @Description Users see their own; lawyers see assigned and unassigned queries.
// @Tags Queries
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Router /queries [get]
func (h *QueryHandler) List(c *gin.Context) {
	var query dto.QueryListQuery
	if !bindQuery(c, &query, "invalid query filter") {
		return
	}
	queries, err := h.service.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, queries)
}

// Get godoc
// @Summary Get query
// @Tags Queries
// @Produce json
// @Security BearerAuth
// @Param id path string true "Query ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /queries/{id} [get]
func (h *QueryHandler) Get(c *gin.Context) {
	query, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, query)
}

// Update godoc
// @Summary Change query status or edit its content
// @Tags Queries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Query ID"
// @Param payload body dto.UpdateQueryRequest true "Update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /queries/{id} [patch]
func (h *QueryHandler) Update(c *gin.Context) {
	var req dto.UpdateQueryRequest
	if !bindJSON(c, &req, "invalid query update") {
		return
	}
	query, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, query)
}
