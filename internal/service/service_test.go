package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthflow/healthflow-api/internal/domain"
	"github.com/healthflow/healthflow-api/internal/domain/appointment"
	"github.com/healthflow/healthflow-api/internal/domain/availability"
)

// fakeWindowRepo is an in-memory availability.Repository.
type fakeWindowRepo struct {
	mu      sync.Mutex
	windows map[uuid.UUID][]availability.Window
}

func newFakeWindowRepo() *fakeWindowRepo {
	return &fakeWindowRepo{windows: make(map[uuid.UUID][]availability.Window)}
}

func (r *fakeWindowRepo) GetWindows(_ context.Context, doctorID uuid.UUID, day time.Weekday) ([]availability.Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []availability.Window
	for _, w := range r.windows[doctorID] {
		if w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *fakeWindowRepo) GetWeek(_ context.Context, doctorID uuid.UUID) ([]availability.Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]availability.Window, len(r.windows[doctorID]))
	copy(out, r.windows[doctorID])
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (r *fakeWindowRepo) ReplaceWeek(_ context.Context, doctorID uuid.UUID, windows []availability.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]availability.Window, len(windows))
	copy(stored, windows)
	for i := range stored {
		if stored[i].ID == uuid.Nil {
			stored[i].ID = uuid.New()
		}
		stored[i].DoctorID = doctorID
	}
	r.windows[doctorID] = stored
	return nil
}

// fakeAppointmentRepo is an in-memory appointment.Repository. A single mutex
// serializes the conflict check with the write, mirroring the per-(doctor,
// date) advisory lock the real implementation takes.
type fakeAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*appointment.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{items: make(map[uuid.UUID]*appointment.Appointment)}
}

func (r *fakeAppointmentRepo) conflictLocked(doctorID uuid.UUID, date time.Time, start, end domain.TimeOfDay, excludeID *uuid.UUID) bool {
	for _, a := range r.items {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.DoctorID != doctorID || !a.Date.Equal(date) || !a.Status.IsActive() {
			continue
		}
		if domain.Overlaps(a.Start, a.End, start, end) {
			return true
		}
	}
	return false
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflictLocked(a.DoctorID, a.Date, a.Start, a.End, nil) {
		return appointment.ErrSlotConflict
	}
	a.ID = uuid.New()
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[a.ID]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	stored.Status = a.Status
	stored.ApprovedBy = a.ApprovedBy
	stored.MeetingLink = a.MeetingLink
	return nil
}

func (r *fakeAppointmentRepo) Reschedule(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[a.ID]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	if r.conflictLocked(a.DoctorID, a.Date, a.Start, a.End, &a.ID) {
		return appointment.ErrSlotConflict
	}
	stored.Date = a.Date
	stored.Start = a.Start
	stored.End = a.End
	return nil
}

func (r *fakeAppointmentRepo) ListActiveForDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*appointment.Appointment
	for _, a := range r.items {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.IsActive() {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *fakeAppointmentRepo) HasConflict(_ context.Context, doctorID uuid.UUID, date time.Time, start, end domain.TimeOfDay, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conflictLocked(doctorID, date, start, end, excludeID), nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*appointment.Appointment
	for _, a := range r.items {
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	return &appointment.PagedAppointments{
		Appointments: all,
		TotalCount:   int64(len(all)),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   1,
	}, nil
}

// recorderPublisher captures published events for assertions.
type recorderPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Group   string
	Event   string
	Payload any
}

func (p *recorderPublisher) Publish(groupKey, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Group: groupKey, Event: event, Payload: payload})
}

func (p *recorderPublisher) byGroup(groupKey string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []publishedEvent
	for _, e := range p.events {
		if e.Group == groupKey {
			out = append(out, e)
		}
	}
	return out
}

// fakeAuditRepo collects audit entries written by the async worker.
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
