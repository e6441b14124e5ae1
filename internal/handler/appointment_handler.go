package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/models"
	"github.com/okil-ai/consult-api/pkg/response"
)

type appointmentService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateAppointmentRequest) (*models.Appointment, error)
	Transition(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateAppointmentRequest) (*models.Appointment, error)
	List(ctx context.Context, claims *models.JWTClaims, query dto.AppointmentListQuery) ([]models.Appointment, error)
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Appointment, error)
}

// AppointmentHandler exposes booking and appointment lifecycle endpoints.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler constructs the handler.
func NewAppointmentHandler(svc appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// Create godoc
// @Summary Book an appointment
// @Description Book a published slot (slot_id) or a free-form date and time.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateAppointmentRequest true "Booking"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if !bindJSON(c, &req, "invalid appointment payload") {
		return
	}
	appt, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// List godoc
// @Summary List own appointments
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status"
// @Param updated_since query string false "RFC3339 timestamp"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	var query dto.AppointmentListQuery
	if !bindQuery(c, &query, "invalid appointment query") {
		return
	}
	appts, err := h.service.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, appts)
}

// Get godoc
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, appt)
}

// Update godoc
// @Summary Change appointment status or reschedule
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body dto.UpdateAppointmentRequest true "Transition"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appointments/{id} [patch]
func (h *AppointmentHandler) Update(c *gin.Context) {
	var req dto.UpdateAppointmentRequest
	if !bindJSON(c, &req, "invalid appointment update") {
		return
	}
	appt, err := h.service.Transition(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, appt)
}
