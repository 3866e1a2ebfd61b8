package appointment

import "errors"

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrSlotConflict            = errors.New("the selected time slot is already booked")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrInvalidInterval         = errors.New("startTime must be before endTime")
	ErrOutsideAvailability     = errors.New("slot falls outside the doctor's availability")
	ErrInvalidDuration         = errors.New("duration must be a positive number of minutes")
	ErrInvalidAppointmentType  = errors.New("invalid appointment type")
)
