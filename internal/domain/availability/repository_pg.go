package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type pgRepository struct {
	db *gorm.DB
}

func NewPGRepository(db *gorm.DB) Repository {
	return &pgRepository{db: db}
}

func (r *pgRepository) GetWindows(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]Window, error) {
	var windows []Window
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ?", doctorID, int(day)).
		Order("start_minute ASC").
		Find(&windows).Error
	if err != nil {
		return nil, fmt.Errorf("loading availability windows: %w", err)
	}
	return windows, nil
}

func (r *pgRepository) GetWeek(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	var windows []Window
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("day_of_week ASC, start_minute ASC").
		Find(&windows).Error
	if err != nil {
		return nil, fmt.Errorf("loading weekly schedule: %w", err)
	}
	return windows, nil
}

func (r *pgRepository) ReplaceWeek(ctx context.Context, doctorID uuid.UUID, windows []Window) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("doctor_id = ?", doctorID).Delete(&Window{}).Error; err != nil {
			return fmt.Errorf("clearing existing schedule: %w", err)
		}
		if len(windows) == 0 {
			return nil
		}
		for i := range windows {
			windows[i].DoctorID = doctorID
		}
		if err := tx.Create(&windows).Error; err != nil {
			return fmt.Errorf("inserting schedule: %w", err)
		}
		return nil
	})
}
