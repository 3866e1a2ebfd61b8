package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthflow/healthflow-api/internal/domain"
	"github.com/healthflow/healthflow-api/internal/domain/appointment"
	"github.com/healthflow/healthflow-api/internal/domain/availability"
	"github.com/healthflow/healthflow-api/internal/realtime"
)

// meetingLinkBase prefixes generated links for approved online appointments.
const meetingLinkBase = "https://meet.healthflow.com/"

// AppointmentService drives the booking state machine. Every interval write
// goes through the repository's atomic conflict-checked primitives; every
// successful transition is pushed to the realtime router after the write
// commits, never before.
type AppointmentService struct {
	repo     appointment.Repository
	windows  availability.Repository
	events   realtime.Publisher
	auditSvc *AuditService
	log      *zap.Logger
}

func NewAppointmentService(
	repo appointment.Repository,
	windows availability.Repository,
	events realtime.Publisher,
	auditSvc *AuditService,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{repo: repo, windows: windows, events: events, auditSvc: auditSvc, log: log}
}

// Create books a new pending appointment for a patient. The request is
// rejected before touching storage when the interval is malformed or falls
// outside the doctor's availability; the conflict check against existing
// active bookings happens atomically with the insert.
func (s *AppointmentService) Create(
	ctx context.Context,
	cmd *appointment.CreateAppointmentCommand,
	caller *domain.Claims,
	ip string,
) (*appointment.Appointment, error) {
	if caller.Role == domain.RolePatient && cmd.PatientID != caller.UserID {
		return nil, ErrForbidden
	}
	if !cmd.Start.Valid() || !cmd.End.Valid() || cmd.Start >= cmd.End {
		return nil, appointment.ErrInvalidInterval
	}
	if !cmd.Type.IsValid() {
		return nil, appointment.ErrInvalidAppointmentType
	}

	date := domain.DateOf(cmd.Date)
	inside, err := s.insideAvailability(ctx, cmd.DoctorID, date, cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	if !inside {
		return nil, appointment.ErrOutsideAvailability
	}

	a := &appointment.Appointment{
		PatientID: cmd.PatientID,
		DoctorID:  cmd.DoctorID,
		ClinicID:  cmd.ClinicID,
		Date:      date,
		Start:     cmd.Start,
		End:       cmd.End,
		Type:      cmd.Type,
		Status:    appointment.StatusPending,
		Reason:    cmd.Reason,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		if !errors.Is(err, appointment.ErrSlotConflict) {
			s.log.Error("failed to create appointment", zap.Error(err))
		}
		return nil, err
	}

	s.afterTransition(ctx, a, caller, ip, "create")
	return a, nil
}

// Approve moves a pending appointment to approved and stamps the approver.
// Online appointments get a generated meeting link.
func (s *AppointmentService) Approve(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !callerOwnsDoctorSide(caller, a) {
		return nil, ErrForbidden
	}

	if err := a.Approve(caller.UserID, meetingLinkBase+a.ID.String()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.afterTransition(ctx, a, caller, ip, "approve")
	return a, nil
}

// Decline rejects a pending appointment.
func (s *AppointmentService) Decline(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !callerOwnsDoctorSide(caller, a) {
		return nil, ErrForbidden
	}

	if err := a.Decline(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.afterTransition(ctx, a, caller, ip, "decline")
	return a, nil
}

// Cancel withdraws a pending or approved appointment. Patients may cancel
// only their own.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RolePatient && a.PatientID != caller.UserID {
		return nil, ErrForbidden
	}

	if err := a.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.afterTransition(ctx, a, caller, ip, "cancel")
	return a, nil
}

// Complete marks an approved appointment as done.
func (s *AppointmentService) Complete(ctx context.Context, id uuid.UUID, caller *domain.Claims, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !callerOwnsDoctorSide(caller, a) {
		return nil, ErrForbidden
	}

	if err := a.Complete(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.afterTransition(ctx, a, caller, ip, "complete")
	return a, nil
}

// Reschedule moves a pending or approved appointment to a new interval,
// keeping its status. The conflict check excludes the appointment's own
// current slot and runs atomically with the write.
func (s *AppointmentService) Reschedule(
	ctx context.Context,
	id uuid.UUID,
	cmd *appointment.RescheduleAppointmentCommand,
	caller *domain.Claims,
	ip string,
) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RolePatient && a.PatientID != caller.UserID {
		return nil, ErrForbidden
	}

	if err := a.Reschedule(cmd.Date, cmd.Start, cmd.End); err != nil {
		return nil, err
	}

	inside, err := s.insideAvailability(ctx, a.DoctorID, a.Date, a.Start, a.End)
	if err != nil {
		return nil, err
	}
	if !inside {
		return nil, appointment.ErrOutsideAvailability
	}

	if err := s.repo.Reschedule(ctx, a); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, a, caller, ip, "reschedule")
	return a, nil
}

// Get returns one appointment; patients can only see their own.
func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID, caller *domain.Claims) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RolePatient && a.PatientID != caller.UserID {
		return nil, ErrForbidden
	}
	return a, nil
}

// List returns a filtered page of appointments. Patients are always scoped
// to their own records.
func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery, caller *domain.Claims) (*appointment.PagedAppointments, error) {
	if caller.Role == domain.RolePatient {
		q.PatientID = &caller.UserID
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

// insideAvailability checks that [start,end) fits entirely inside one of the
// doctor's merged windows for the date's weekday.
func (s *AppointmentService) insideAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time, start, end domain.TimeOfDay) (bool, error) {
	windows, err := s.windows.GetWindows(ctx, doctorID, date.Weekday())
	if err != nil {
		return false, fmt.Errorf("loading availability: %w", err)
	}
	for _, w := range availability.MergeDay(windows) {
		if w.Contains(start, end) {
			return true, nil
		}
	}
	return false, nil
}

// callerOwnsDoctorSide allows the doctor who owns the schedule, their
// secretary, or an admin to act on the doctor side of an appointment.
func callerOwnsDoctorSide(caller *domain.Claims, a *appointment.Appointment) bool {
	switch caller.Role {
	case domain.RoleAdmin, domain.RoleSecretary:
		return true
	case domain.RoleDoctor:
		return caller.DoctorID != nil && *caller.DoctorID == a.DoctorID
	}
	return false
}

// afterTransition publishes the committed state change and records an audit
// entry. Both are fire-and-forget: the write has already committed, and a
// delivery failure must never surface to the caller.
func (s *AppointmentService) afterTransition(ctx context.Context, a *appointment.Appointment, caller *domain.Claims, ip, action string) {
	payload := realtime.StatusChangedPayload{
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Status:        string(a.Status),
	}
	s.events.Publish(realtime.DoctorGroup(a.DoctorID), realtime.EventStatusChanged, payload)
	s.events.Publish(realtime.UserGroup(a.PatientID), realtime.EventStatusChanged, payload)

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     string(caller.Role),
		Action:       action,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"status":%q}`, a.Status),
	})
}
