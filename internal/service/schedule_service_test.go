package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthflow/healthflow-api/internal/domain"
	"github.com/healthflow/healthflow-api/internal/domain/appointment"
	"github.com/healthflow/healthflow-api/internal/domain/availability"
)

// monday is a fixed Monday so weekday lookups are stable.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func mustTime(t *testing.T, s string) domain.TimeOfDay {
	t.Helper()
	v, err := domain.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func newScheduleFixture(t *testing.T) (*ScheduleService, *fakeWindowRepo, *fakeAppointmentRepo) {
	t.Helper()
	windows := newFakeWindowRepo()
	appts := newFakeAppointmentRepo()
	return NewScheduleService(windows, appts, zap.NewNop()), windows, appts
}

func setWindows(t *testing.T, repo *fakeWindowRepo, doctorID uuid.UUID, ws ...availability.Window) {
	t.Helper()
	if err := repo.ReplaceWeek(context.Background(), doctorID, ws); err != nil {
		t.Fatalf("ReplaceWeek: %v", err)
	}
}

func TestAvailableSlotsEmptyWhenNoWindows(t *testing.T) {
	svc, _, _ := newScheduleFixture(t)

	slots, err := svc.AvailableSlots(context.Background(), uuid.New(), monday, 30)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("got %d slots for doctor with no schedule, want 0", len(slots))
	}
}

func TestAvailableSlotsWalksWindowInSteps(t *testing.T) {
	svc, windows, _ := newScheduleFixture(t)
	doctorID := uuid.New()
	setWindows(t, windows, doctorID, availability.Window{
		DayOfWeek: time.Monday,
		Start:     mustTime(t, "09:00"),
		End:       mustTime(t, "12:00"),
	})

	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday, 30)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("got %d slots, want 6", len(slots))
	}
	if slots[0].Start.String() != "09:00" || slots[5].End.String() != "12:00" {
		t.Errorf("slot range = %s..%s, want 09:00..12:00", slots[0].Start, slots[5].End)
	}
	for i, s := range slots {
		if !s.Available {
			t.Errorf("slot %d (%s-%s) unavailable with no bookings", i, s.Start, s.End)
		}
	}
}

func TestAvailableSlotsDiscardsShortTail(t *testing.T) {
	svc, windows, _ := newScheduleFixture(t)
	doctorID := uuid.New()
	// 100-minute window with 30-minute slots: three slots, 10 minutes dropped.
	setWindows(t, windows, doctorID, availability.Window{
		DayOfWeek: time.Monday,
		Start:     mustTime(t, "09:00"),
		End:       mustTime(t, "10:40"),
	})

	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday, 30)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	if slots[2].End.String() != "10:30" {
		t.Errorf("last slot ends %s, want 10:30", slots[2].End)
	}
}

func TestAvailableSlotsMarksBookedInterval(t *testing.T) {
	svc, windows, appts := newScheduleFixture(t)
	doctorID := uuid.New()
	setWindows(t, windows, doctorID, availability.Window{
		DayOfWeek: time.Monday,
		Start:     mustTime(t, "09:00"),
		End:       mustTime(t, "12:00"),
	})

	if err := appts.Create(context.Background(), &appointment.Appointment{
		DoctorID: doctorID,
		Date:     monday,
		Start:    mustTime(t, "10:00"),
		End:      mustTime(t, "10:30"),
		Status:   appointment.StatusApproved,
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday, 30)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}

	for _, s := range slots {
		wantAvailable := s.Start.String() != "10:00"
		if s.Available != wantAvailable {
			t.Errorf("slot %s-%s available = %v, want %v", s.Start, s.End, s.Available, wantAvailable)
		}
	}
}

func TestAvailableSlotsCancelledBookingFreesSlot(t *testing.T) {
	svc, windows, appts := newScheduleFixture(t)
	doctorID := uuid.New()
	setWindows(t, windows, doctorID, availability.Window{
		DayOfWeek: time.Monday,
		Start:     mustTime(t, "09:00"),
		End:       mustTime(t, "10:00"),
	})

	a := &appointment.Appointment{
		DoctorID: doctorID,
		Date:     monday,
		Start:    mustTime(t, "09:00"),
		End:      mustTime(t, "09:30"),
		Status:   appointment.StatusPending,
	}
	if err := appts.Create(context.Background(), a); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	a.Status = appointment.StatusCancelled
	if err := appts.UpdateStatus(context.Background(), a); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}

	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday, 30)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for _, s := range slots {
		if !s.Available {
			t.Errorf("slot %s-%s blocked by cancelled booking", s.Start, s.End)
		}
	}
}

func TestAvailableSlotsMergesAdjacentWindows(t *testing.T) {
	svc, windows, _ := newScheduleFixture(t)
	doctorID := uuid.New()
	// 09:00-10:10 and 10:10-11:00 merge into one block: 45-minute slots
	// can straddle the seam.
	setWindows(t, windows, doctorID,
		availability.Window{DayOfWeek: time.Monday, Start: mustTime(t, "09:00"), End: mustTime(t, "10:10")},
		availability.Window{DayOfWeek: time.Monday, Start: mustTime(t, "10:10"), End: mustTime(t, "11:00")},
	)

	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday, 45)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	// Merged block 09:00-11:00 yields 09:00-09:45 and 09:45-10:30.
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	if slots[1].Start.String() != "09:45" || slots[1].End.String() != "10:30" {
		t.Errorf("second slot = %s-%s, want 09:45-10:30", slots[1].Start, slots[1].End)
	}
}

func TestAvailableSlotsRejectsBadDuration(t *testing.T) {
	svc, _, _ := newScheduleFixture(t)

	for _, d := range []int{0, -15} {
		_, err := svc.AvailableSlots(context.Background(), uuid.New(), monday, d)
		if !errors.Is(err, appointment.ErrInvalidDuration) {
			t.Errorf("duration %d: err = %v, want ErrInvalidDuration", d, err)
		}
	}
}

func TestAvailableSlotsDeterministic(t *testing.T) {
	svc, windows, appts := newScheduleFixture(t)
	doctorID := uuid.New()
	setWindows(t, windows, doctorID, availability.Window{
		DayOfWeek: time.Monday,
		Start:     mustTime(t, "09:00"),
		End:       mustTime(t, "12:00"),
	})
	if err := appts.Create(context.Background(), &appointment.Appointment{
		DoctorID: doctorID,
		Date:     monday,
		Start:    mustTime(t, "11:00"),
		End:      mustTime(t, "11:30"),
		Status:   appointment.StatusPending,
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	first, err := svc.AvailableSlots(context.Background(), doctorID, monday, 30)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := svc.AvailableSlots(context.Background(), doctorID, monday, 30)
		if err != nil {
			t.Fatalf("AvailableSlots: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: %d slots, want %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("run %d slot %d = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}

func TestReplaceAvailabilityValidates(t *testing.T) {
	svc, _, _ := newScheduleFixture(t)
	doctorID := uuid.New()

	_, err := svc.ReplaceAvailability(context.Background(), doctorID, []availability.Window{
		{DayOfWeek: time.Monday, Start: mustTime(t, "12:00"), End: mustTime(t, "09:00")},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestReplaceAvailabilityRoundTrip(t *testing.T) {
	svc, _, _ := newScheduleFixture(t)
	doctorID := uuid.New()

	saved, err := svc.ReplaceAvailability(context.Background(), doctorID, []availability.Window{
		{DayOfWeek: time.Tuesday, Start: mustTime(t, "14:00"), End: mustTime(t, "17:00")},
		{DayOfWeek: time.Monday, Start: mustTime(t, "09:00"), End: mustTime(t, "12:00")},
	})
	if err != nil {
		t.Fatalf("ReplaceAvailability: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d windows, want 2", len(saved))
	}
	if saved[0].DayOfWeek != time.Monday || saved[1].DayOfWeek != time.Tuesday {
		t.Errorf("windows not ordered by day: %v, %v", saved[0].DayOfWeek, saved[1].DayOfWeek)
	}

	// A second replace swaps the schedule wholesale.
	saved, err = svc.ReplaceAvailability(context.Background(), doctorID, []availability.Window{
		{DayOfWeek: time.Friday, Start: mustTime(t, "08:00"), End: mustTime(t, "11:00")},
	})
	if err != nil {
		t.Fatalf("second ReplaceAvailability: %v", err)
	}
	if len(saved) != 1 || saved[0].DayOfWeek != time.Friday {
		t.Fatalf("schedule after replace = %+v, want single Friday window", saved)
	}
}
