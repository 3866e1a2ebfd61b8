package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// GetWindows returns the doctor's windows for one weekday, ordered by
	// start time. An empty slice means the doctor does not work that day.
	GetWindows(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]Window, error)

	// GetWeek returns the doctor's full weekly schedule ordered by day then
	// start time.
	GetWeek(ctx context.Context, doctorID uuid.UUID) ([]Window, error)

	// ReplaceWeek atomically swaps the doctor's entire weekly schedule for
	// the given windows. Inputs are assumed validated.
	ReplaceWeek(ctx context.Context, doctorID uuid.UUID, windows []Window) error
}
