package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/healthflow/healthflow-api/internal/domain"
)

type Repository interface {
	// Create inserts the appointment only if no active appointment for the
	// same doctor and date overlaps [Start,End). The check and the insert
	// are a single atomic unit serialized per (doctor, date); concurrent
	// attempts on the same slot see exactly one winner, the rest get
	// ErrSlotConflict.
	Create(ctx context.Context, a *Appointment) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus persists a status transition already validated on the
	// entity, together with approved_by and meeting_link when set.
	UpdateStatus(ctx context.Context, a *Appointment) error

	// Reschedule persists a new interval under the same atomicity guarantee
	// as Create, ignoring the appointment's own row in the conflict check.
	Reschedule(ctx context.Context, a *Appointment) error

	// ListActiveForDate returns active (pending/approved/done) appointments
	// for the doctor on the given date, ordered by start time. Feeds slot
	// generation.
	ListActiveForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)

	// HasConflict reports whether any active appointment for the doctor and
	// date overlaps [start,end), optionally excluding one appointment id.
	// Advisory only outside a Create/Reschedule transaction.
	HasConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, start, end domain.TimeOfDay, excludeID *uuid.UUID) (bool, error)

	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)
}
