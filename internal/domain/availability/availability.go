package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/healthflow/healthflow-api/internal/domain"
)

// Window is one recurring weekly interval during which a doctor accepts
// bookings. A doctor's schedule is the set of windows across all weekdays,
// replaced wholesale on update.
type Window struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`

	DoctorID  uuid.UUID        `gorm:"column:doctor_id;type:uuid;not null;index:idx_availability_doctor_day" json:"doctorId"`
	DayOfWeek time.Weekday     `gorm:"column:day_of_week;type:smallint;not null;index:idx_availability_doctor_day" json:"dayOfWeek"`
	Start     domain.TimeOfDay `gorm:"column:start_minute;type:smallint;not null" json:"startTime"`
	End       domain.TimeOfDay `gorm:"column:end_minute;type:smallint;not null" json:"endTime"`
}

func (Window) TableName() string {
	return "clinical.availability_windows"
}

// Contains reports whether [start,end) lies entirely inside the window.
func (w Window) Contains(start, end domain.TimeOfDay) bool {
	return start >= w.Start && end <= w.End
}

// ValidateWeek checks a full replacement schedule: every window needs
// start < end within the day, a valid weekday, and no two windows on the
// same day may overlap. Violations are reported per field so the handler
// can return them all at once.
func ValidateWeek(windows []Window) []string {
	var problems []string

	byDay := make(map[time.Weekday][]Window)
	for i, w := range windows {
		if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
			problems = append(problems, field(i, "dayOfWeek must be between 0 and 6"))
			continue
		}
		if !w.Start.Valid() || !w.End.Valid() {
			problems = append(problems, field(i, "times must fall within a single day"))
			continue
		}
		if w.Start >= w.End {
			problems = append(problems, field(i, "startTime must be before endTime"))
			continue
		}
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], w)
	}

	for day, ws := range byDay {
		sort.Slice(ws, func(i, j int) bool { return ws[i].Start < ws[j].Start })
		for i := 1; i < len(ws); i++ {
			if ws[i].Start < ws[i-1].End {
				problems = append(problems, "windows "+ws[i-1].Start.String()+"-"+ws[i-1].End.String()+
					" and "+ws[i].Start.String()+"-"+ws[i].End.String()+
					" overlap on "+day.String())
			}
		}
	}

	return problems
}

func field(i int, msg string) string {
	return fmt.Sprintf("window %d: %s", i, msg)
}

// MergeDay collapses adjacent or overlapping windows of a single day into
// maximal disjoint intervals, ordered by start. Slot generation walks the
// merged intervals so a 09:00-12:00 plus 12:00-14:00 pair behaves as one
// continuous block.
func MergeDay(windows []Window) []Window {
	if len(windows) == 0 {
		return nil
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Window{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
