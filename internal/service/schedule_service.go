package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthflow/healthflow-api/internal/domain"
	"github.com/healthflow/healthflow-api/internal/domain/appointment"
	"github.com/healthflow/healthflow-api/internal/domain/availability"
)

// DefaultSlotMinutes is used when the caller does not supply a duration.
const DefaultSlotMinutes = 30

// ScheduleService owns doctors' recurring availability and derives bookable
// slots from it.
type ScheduleService struct {
	windows      availability.Repository
	appointments appointment.Repository
	log          *zap.Logger
}

func NewScheduleService(
	windows availability.Repository,
	appointments appointment.Repository,
	log *zap.Logger,
) *ScheduleService {
	return &ScheduleService{windows: windows, appointments: appointments, log: log}
}

// ReplaceAvailability swaps a doctor's entire weekly schedule. Input windows
// are validated before touching storage: start < end per window, and no two
// windows on the same day may overlap.
func (s *ScheduleService) ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, windows []availability.Window) ([]availability.Window, error) {
	if problems := availability.ValidateWeek(windows); len(problems) > 0 {
		return nil, &ValidationError{Fields: problems}
	}

	if err := s.windows.ReplaceWeek(ctx, doctorID, windows); err != nil {
		s.log.Error("failed to replace availability",
			zap.String("doctor_id", doctorID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("replacing availability: %w", err)
	}

	return s.windows.GetWeek(ctx, doctorID)
}

// WeeklyAvailability returns the doctor's full schedule ordered by day and
// start time.
func (s *ScheduleService) WeeklyAvailability(ctx context.Context, doctorID uuid.UUID) ([]availability.Window, error) {
	return s.windows.GetWeek(ctx, doctorID)
}

// AvailableSlots derives the bookable slots for a doctor on one date. The
// result is deterministic for a given repository state: the same inputs
// always produce the same ordered slice, and the call has no side effects.
//
// Windows for the date's weekday are merged where adjacent or overlapping,
// then walked in fixed durationMins steps from each window start; a final
// fragment shorter than the duration is discarded. A slot is unavailable iff
// it overlaps any active appointment for that doctor and date.
func (s *ScheduleService) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, durationMins int) ([]appointment.TimeSlot, error) {
	if durationMins <= 0 {
		return nil, appointment.ErrInvalidDuration
	}

	day := domain.DateOf(date)
	windows, err := s.windows.GetWindows(ctx, doctorID, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("loading availability: %w", err)
	}
	if len(windows) == 0 {
		return []appointment.TimeSlot{}, nil
	}

	booked, err := s.appointments.ListActiveForDate(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("loading bookings: %w", err)
	}

	var slots []appointment.TimeSlot
	for _, w := range availability.MergeDay(windows) {
		for cur := w.Start; cur.AddMinutes(durationMins) <= w.End; cur = cur.AddMinutes(durationMins) {
			end := cur.AddMinutes(durationMins)
			slots = append(slots, appointment.TimeSlot{
				Start:     cur,
				End:       end,
				Available: !overlapsAny(booked, cur, end),
			})
		}
	}
	return slots, nil
}

func overlapsAny(booked []*appointment.Appointment, start, end domain.TimeOfDay) bool {
	for _, b := range booked {
		if domain.Overlaps(b.Start, b.End, start, end) {
			return true
		}
	}
	return false
}
