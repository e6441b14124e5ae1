package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/middleware"
	"github.com/okil-ai/consult-api/internal/models"
	"github.com/okil-ai/consult-api/pkg/response"
)

type lawyerDirectoryService interface {
	ListLawyers(ctx context.Context, query dto.LawyerDirectoryQuery) ([]models.LawyerProfile, *models.Pagination, error)
	GetLawyer(ctx context.Context, id string) (*models.LawyerProfile, error)
}

type availabilityService interface {
	Publish(ctx context.Context, claims *models.JWTClaims, req dto.PublishSlotRequest) (*models.AvailabilitySlot, error)
	PublishWindow(ctx context.Context, claims *models.JWTClaims, req dto.PublishWindowRequest) ([]models.AvailabilitySlot, error)
	ListOpen(ctx context.Context, lawyerID string, query dto.AvailabilityQuery) ([]models.AvailabilitySlot, bool, error)
	ListHistory(ctx context.Context, claims *models.JWTClaims, query dto.AvailabilityHistoryQuery) ([]models.AvailabilitySlot, error)
	Delete(ctx context.Context, claims *models.JWTClaims, slotID string) error
}

// LawyerHandler serves the public lawyer directory and lawyer availability.
type LawyerHandler struct {
	directory    lawyerDirectoryService
	availability availabilityService
}

// NewLawyerHandler constructs the handler.
func NewLawyerHandler(directory lawyerDirectoryService, availability availabilityService) *LawyerHandler {
	return &LawyerHandler{directory: directory, availability: availability}
}

// List godoc
// @Summary Lawyer directory
// @Tags Lawyers
// @Produce json
// @Param search query string false "Name search"
// @Param specialization query string false "Specialization"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lawyers [get]
func (h *LawyerHandler) List(c *gin.Context) {
	var query dto.LawyerDirectoryQuery
	if !bindQuery(c, &query, "invalid directory query") {
		return
	}
	lawyers, pagination, err := h.directory.ListLawyers(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lawyers, pagination)
}

// Get godoc
// @Summary Lawyer profile
// @Tags Lawyers
// @Produce json
// @Param id path string true "Lawyer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lawyers/{id} [get]
func (h *LawyerHandler) Get(c *gin.Context) {
	lawyer, err := h.directory.GetLawyer(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lawyer)
}

// OpenSlots godoc
// @Summary Open availability of a lawyer
// @Description Future, unbooked slots ordered by start. date restricts to one UTC day.
// @Tags Availability
// @Produce json
// @Param id path string true "Lawyer ID"
// @Param date query string false "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lawyers/{id}/availability [get]
func (h *LawyerHandler) OpenSlots(c *gin.Context) {
	var query dto.AvailabilityQuery
	if !bindQuery(c, &query, "invalid availability query") {
		return
	}
	slots, cacheHit, err := h.availability.ListOpen(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.OK(c, slots, middleware.ExtractMeta(c))
}

// Publish godoc
// @Summary Publish one availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.PublishSlotRequest true "Slot"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lawyers/availability [post]
func (h *LawyerHandler) Publish(c *gin.Context) {
	var req dto.PublishSlotRequest
	if !bindJSON(c, &req, "invalid slot payload") {
		return
	}
	slot, err := h.availability.Publish(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// PublishWindow godoc
// @Summary Publish a window split into fixed-length slots
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.PublishWindowRequest true "Window"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lawyers/availability/window [post]
func (h *LawyerHandler) PublishWindow(c *gin.Context) {
	var req dto.PublishWindowRequest
	if !bindJSON(c, &req, "invalid window payload") {
		return
	}
	slots, err := h.availability.PublishWindow(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slots)
}

// History godoc
// @Summary Own availability history
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param from query string false "From day (YYYY-MM-DD)"
// @Param to query string false "To day inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /lawyers/availability [get]
func (h *LawyerHandler) History(c *gin.Context) {
	var query dto.AvailabilityHistoryQuery
	if !bindQuery(c, &query, "invalid history query") {
		return
	}
	slots, err := h.availability.ListHistory(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// DeleteSlot godoc
// @Summary Withdraw an unbooked slot
// @Tags Availability
// @Security BearerAuth
// @Param id path string true "Slot ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lawyers/availability/{id} [delete]
func (h *LawyerHandler) DeleteSlot(c *gin.Context) {
	if err := h.availability.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
