package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthflow/healthflow-api/internal/domain"
	"github.com/healthflow/healthflow-api/internal/domain/availability"
	"github.com/healthflow/healthflow-api/internal/service"
	"github.com/healthflow/healthflow-api/pkg/metrics"
)

type ScheduleHandler struct {
	svc *service.ScheduleService
	m   *metrics.Collector
}

func NewScheduleHandler(svc *service.ScheduleService, m *metrics.Collector) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, m: m}
}

func (h *ScheduleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/doctors/:id/slots", h.AvailableSlots)
	rg.GET("/doctors/:id/availability", h.GetAvailability)
	rg.PUT("/doctors/:id/availability", RequireRoles(domain.RoleDoctor, domain.RoleSecretary, domain.RoleAdmin), h.ReplaceAvailability)
}

func (h *ScheduleHandler) AvailableSlots(c *gin.Context) {
	doctorID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	duration := parseQueryInt(c, "duration", service.DefaultSlotMinutes)

	slots, err := h.svc.AvailableSlots(c.Request.Context(), doctorID, date, duration)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.m.SlotQueriesTotal.Inc()
	respondOK(c, slots)
}

func (h *ScheduleHandler) GetAvailability(c *gin.Context) {
	doctorID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	windows, err := h.svc.WeeklyAvailability(c.Request.Context(), doctorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, windows)
}

type availabilityWindowRequest struct {
	DayOfWeek int              `json:"dayOfWeek"`
	StartTime domain.TimeOfDay `json:"startTime"`
	EndTime   domain.TimeOfDay `json:"endTime"`
}

func (h *ScheduleHandler) ReplaceAvailability(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	doctorID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if claims.Role == domain.RoleDoctor && (claims.DoctorID == nil || *claims.DoctorID != doctorID) {
		respondError(c, http.StatusForbidden, "access denied")
		return
	}

	var req []availabilityWindowRequest
	if !bindJSON(c, &req) {
		return
	}

	windows := make([]availability.Window, 0, len(req))
	for _, w := range req {
		windows = append(windows, availability.Window{
			DoctorID:  doctorID,
			DayOfWeek: time.Weekday(w.DayOfWeek),
			Start:     w.StartTime,
			End:       w.EndTime,
		})
	}

	saved, err := h.svc.ReplaceAvailability(c.Request.Context(), doctorID, windows)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, saved)
}
