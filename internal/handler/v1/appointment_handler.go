package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/healthflow/healthflow-api/internal/domain"
	"github.com/healthflow/healthflow-api/internal/domain/appointment"
	"github.com/healthflow/healthflow-api/internal/service"
	"github.com/healthflow/healthflow-api/pkg/metrics"
)

type AppointmentHandler struct {
	svc *service.AppointmentService
	m   *metrics.Collector
}

func NewAppointmentHandler(svc *service.AppointmentService, m *metrics.Collector) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, m: m}
}

func (h *AppointmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/appointments", h.Create)
	rg.GET("/appointments", h.List)
	rg.GET("/appointments/:id", h.Get)
	rg.POST("/appointments/:id/approve", h.Approve)
	rg.POST("/appointments/:id/decline", h.Decline)
	rg.POST("/appointments/:id/cancel", h.Cancel)
	rg.POST("/appointments/:id/complete", h.Complete)
	rg.POST("/appointments/:id/reschedule", h.Reschedule)
}

type createAppointmentRequest struct {
	PatientID uuid.UUID                   `json:"patientId" binding:"required"`
	DoctorID  uuid.UUID                   `json:"doctorId" binding:"required"`
	ClinicID  *uuid.UUID                  `json:"clinicId"`
	Date      string                      `json:"date" binding:"required"`
	StartTime domain.TimeOfDay            `json:"startTime"`
	EndTime   domain.TimeOfDay            `json:"endTime"`
	Type      appointment.AppointmentType `json:"type" binding:"required"`
	Reason    string                      `json:"reason"`
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Create(c.Request.Context(), &appointment.CreateAppointmentCommand{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ClinicID:  req.ClinicID,
		Date:      date,
		Start:     req.StartTime,
		End:       req.EndTime,
		Type:      req.Type,
		Reason:    req.Reason,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.m.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	respondCreated(c, a)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), id, claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) List(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	q := &appointment.ListAppointmentsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "pageSize", 20),
	}
	if raw := c.Query("doctorId"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			q.DoctorID = &id
		}
	}
	if raw := c.Query("patientId"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			q.PatientID = &id
		}
	}
	if raw := c.Query("status"); raw != "" {
		status := appointment.AppointmentStatus(raw)
		if status.IsValid() {
			q.Status = &status
		}
	}

	page, err := h.svc.List(c.Request.Context(), q, claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *AppointmentHandler) Approve(c *gin.Context) {
	h.transition(c, h.svc.Approve)
}

func (h *AppointmentHandler) Decline(c *gin.Context) {
	h.transition(c, h.svc.Decline)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

func (h *AppointmentHandler) Complete(c *gin.Context) {
	h.transition(c, h.svc.Complete)
}

type transitionFunc func(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) (*appointment.Appointment, error)

func (h *AppointmentHandler) transition(c *gin.Context, fn transitionFunc) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := fn(c.Request.Context(), id, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.m.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	respondOK(c, a)
}

type rescheduleRequest struct {
	Date      string           `json:"date" binding:"required"`
	StartTime domain.TimeOfDay `json:"startTime"`
	EndTime   domain.TimeOfDay `json:"endTime"`
}

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Reschedule(c.Request.Context(), id, &appointment.RescheduleAppointmentCommand{
		Date:  date,
		Start: req.StartTime,
		End:   req.EndTime,
	}, claims, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.m.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	respondOK(c, a)
}
