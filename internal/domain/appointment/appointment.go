package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthflow/healthflow-api/internal/domain"
)

type AppointmentType string

const (
	TypeOnline    AppointmentType = "online"
	TypePhysical  AppointmentType = "physical"
	TypeHomeVisit AppointmentType = "home-visit"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case TypeOnline, TypePhysical, TypeHomeVisit:
		return true
	}
	return false
}

// State transitions possibilities:
//
//	pending → approved → done
//	pending → declined
//	pending → cancelled
//	approved → cancelled
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusDeclined  AppointmentStatus = "declined"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusDone      AppointmentStatus = "done"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined, StatusCancelled, StatusDone:
		return true
	}
	return false
}

// IsActive reports whether the appointment still occupies its slot.
// Declined and cancelled appointments free their interval.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusApproved || s == StatusDone
}

// IsTerminal reports whether no further transitions are allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusDeclined || s == StatusCancelled || s == StatusDone
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	PatientID uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index" json:"patientId"`
	DoctorID  uuid.UUID  `gorm:"column:doctor_id;type:uuid;not null;index:idx_appointments_doctor_date" json:"doctorId"`
	ClinicID  *uuid.UUID `gorm:"column:clinic_id;type:uuid" json:"clinicId,omitempty"`

	Date  time.Time        `gorm:"column:date;type:date;not null;index:idx_appointments_doctor_date" json:"date"`
	Start domain.TimeOfDay `gorm:"column:start_minute;type:smallint;not null" json:"startTime"`
	End   domain.TimeOfDay `gorm:"column:end_minute;type:smallint;not null" json:"endTime"`

	Type   AppointmentType   `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Status AppointmentStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	MeetingLink string     `gorm:"column:meeting_link;type:text" json:"meetingLink,omitempty"`
	Reason      string     `gorm:"column:reason;type:text" json:"reason,omitempty"`
	ApprovedBy  *uuid.UUID `gorm:"column:approved_by;type:uuid" json:"approvedBy,omitempty"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) CanTransitionTo(newStatus AppointmentStatus) bool {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusPending:   {StatusApproved, StatusDeclined, StatusCancelled},
		StatusApproved:  {StatusDone, StatusCancelled},
		StatusDeclined:  {},
		StatusCancelled: {},
		StatusDone:      {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (a *Appointment) Approve(approvedBy uuid.UUID, meetingLink string) error {
	if !a.CanTransitionTo(StatusApproved) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusApproved
	a.ApprovedBy = &approvedBy
	if a.Type == TypeOnline {
		a.MeetingLink = meetingLink
	}
	return nil
}

func (a *Appointment) Decline() error {
	if !a.CanTransitionTo(StatusDeclined) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusDeclined
	return nil
}

func (a *Appointment) Cancel() error {
	if !a.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusCancelled
	return nil
}

func (a *Appointment) Complete() error {
	if !a.CanTransitionTo(StatusDone) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusDone
	return nil
}

// Reschedule moves an active, non-terminal appointment to a new interval.
// The status is kept; the conflict check against the new interval is the
// repository's responsibility.
func (a *Appointment) Reschedule(date time.Time, start, end domain.TimeOfDay) error {
	if a.Status != StatusPending && a.Status != StatusApproved {
		return ErrInvalidStatusTransition
	}
	if start >= end {
		return ErrInvalidInterval
	}
	a.Date = domain.DateOf(date)
	a.Start = start
	a.End = end
	return nil
}

// TimeSlot is a candidate bookable interval derived from availability minus
// existing bookings. It is recomputed on every query and never persisted.
type TimeSlot struct {
	Start     domain.TimeOfDay `json:"startTime"`
	End       domain.TimeOfDay `json:"endTime"`
	Available bool             `json:"isAvailable"`
}

type CreateAppointmentCommand struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	ClinicID  *uuid.UUID
	Date      time.Time
	Start     domain.TimeOfDay
	End       domain.TimeOfDay
	Type      AppointmentType
	Reason    string
}

type RescheduleAppointmentCommand struct {
	Date  time.Time
	Start domain.TimeOfDay
	End   domain.TimeOfDay
}

type ListAppointmentsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *AppointmentStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

type PagedAppointments struct {
	Appointments []*Appointment
	TotalCount   int64
	Page         int
	PageSize     int
	TotalPages   int
}
