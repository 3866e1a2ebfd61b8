package appointment

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthflow/healthflow-api/internal/domain"
)

var activeStatuses = []AppointmentStatus{StatusPending, StatusApproved, StatusDone}

type pgRepository struct {
	db *gorm.DB
}

func NewPGRepository(db *gorm.DB) Repository {
	return &pgRepository{db: db}
}

// bookingLockKey derives a stable 64-bit advisory lock key for one
// (doctor, date) pair. Create/Reschedule take this lock for the duration of
// their transaction, so the conflict check and the write are serialized per
// doctor/date while unrelated pairs proceed in parallel.
func bookingLockKey(doctorID uuid.UUID, date time.Time) int64 {
	h := fnv.New64a()
	h.Write(doctorID[:])
	h.Write([]byte(date.Format("2006-01-02")))
	return int64(h.Sum64() & math.MaxInt64)
}

func (r *pgRepository) Create(ctx context.Context, a *Appointment) error {
	a.Date = domain.DateOf(a.Date)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", bookingLockKey(a.DoctorID, a.Date)).Error; err != nil {
			return fmt.Errorf("acquiring booking lock: %w", err)
		}

		conflict, err := hasConflictTx(tx, a.DoctorID, a.Date, a.Start, a.End, nil)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotConflict
		}

		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("inserting appointment: %w", err)
		}
		return nil
	})
}

func (r *pgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading appointment: %w", err)
	}
	return &a, nil
}

func (r *pgRepository) UpdateStatus(ctx context.Context, a *Appointment) error {
	result := r.db.WithContext(ctx).Model(&Appointment{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"status":       a.Status,
			"approved_by":  a.ApprovedBy,
			"meeting_link": a.MeetingLink,
		})
	if result.Error != nil {
		return fmt.Errorf("updating appointment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *pgRepository) Reschedule(ctx context.Context, a *Appointment) error {
	a.Date = domain.DateOf(a.Date)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", bookingLockKey(a.DoctorID, a.Date)).Error; err != nil {
			return fmt.Errorf("acquiring booking lock: %w", err)
		}

		conflict, err := hasConflictTx(tx, a.DoctorID, a.Date, a.Start, a.End, &a.ID)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotConflict
		}

		result := tx.Model(&Appointment{}).
			Where("id = ?", a.ID).
			Updates(map[string]any{
				"date":         a.Date,
				"start_minute": a.Start,
				"end_minute":   a.End,
				"status":       a.Status,
			})
		if result.Error != nil {
			return fmt.Errorf("rescheduling appointment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAppointmentNotFound
		}
		return nil
	})
}

func (r *pgRepository) ListActiveForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	var appointments []*Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND date = ? AND status IN ?", doctorID, domain.DateOf(date), activeStatuses).
		Order("start_minute ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("loading appointments for date: %w", err)
	}
	return appointments, nil
}

func (r *pgRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, start, end domain.TimeOfDay, excludeID *uuid.UUID) (bool, error) {
	return hasConflictTx(r.db.WithContext(ctx), doctorID, domain.DateOf(date), start, end, excludeID)
}

// hasConflictTx applies the half-open overlap rule: an existing active row
// [s,e) conflicts with [start,end) iff s < end AND e > start. Touching
// boundaries are not a conflict.
func hasConflictTx(tx *gorm.DB, doctorID uuid.UUID, date time.Time, start, end domain.TimeOfDay, excludeID *uuid.UUID) (bool, error) {
	query := tx.Model(&Appointment{}).
		Where("doctor_id = ? AND date = ? AND status IN ?", doctorID, date, activeStatuses).
		Where("start_minute < ? AND end_minute > ?", end, start)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking slot conflicts: %w", err)
	}
	return count > 0, nil
}

func (r *pgRepository) List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error) {
	query := r.db.WithContext(ctx).Model(&Appointment{})

	if q.PatientID != nil {
		query = query.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		query = query.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.DateFrom != nil {
		query = query.Where("date >= ?", domain.DateOf(*q.DateFrom))
	}
	if q.DateTo != nil {
		query = query.Where("date <= ?", domain.DateOf(*q.DateTo))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	var appointments []*Appointment
	err := query.
		Order("date ASC, start_minute ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	return &PagedAppointments{
		Appointments: appointments,
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}
