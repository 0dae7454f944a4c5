package calendar

import (
	"fmt"
	"time"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/domain/repositories"
)

// ShiftDirection controls which way ShiftToWorkingDay moves a non-working date
type ShiftDirection int

const (
	ShiftForward ShiftDirection = iota
	ShiftBackward
)

// maxShiftDays bounds calendar walks so a calendar made entirely of
// non-working exceptions cannot loop forever.
const maxShiftDays = 3660

// Lookup answers working-day questions over calendar exception data.
// Pure reads only; safe for concurrent use by chunk workers.
type Lookup struct {
	calendarRepo repositories.CalendarRepository
}

// NewLookup creates a calendar lookup over the given repository
func NewLookup(calendarRepo repositories.CalendarRepository) *Lookup {
	return &Lookup{calendarRepo: calendarRepo}
}

// IsWorkingDay reports whether the date is a working day for the scope.
// Saturdays and Sundays default to non-working; exceptions override the
// default in either direction.
func (l *Lookup) IsWorkingDay(scope entities.CalendarScope, date time.Time) (bool, error) {
	if scope.CompanyID == "" {
		return false, fmt.Errorf("calendar scope has no company id")
	}

	exception, err := l.calendarRepo.GetException(scope, truncateToDay(date))
	if err != nil {
		return false, fmt.Errorf("failed to look up calendar exception: %w", err)
	}
	if exception != nil {
		return exception.IsWorking, nil
	}

	weekday := date.Weekday()
	return weekday != time.Saturday && weekday != time.Sunday, nil
}

// ShiftToWorkingDay returns the date itself when it is a working day,
// otherwise the nearest working day in the given direction.
func (l *Lookup) ShiftToWorkingDay(scope entities.CalendarScope, date time.Time, direction ShiftDirection) (time.Time, error) {
	step := 24 * time.Hour
	if direction == ShiftBackward {
		step = -step
	}

	current := truncateToDay(date)
	for i := 0; i <= maxShiftDays; i++ {
		working, err := l.IsWorkingDay(scope, current)
		if err != nil {
			return time.Time{}, err
		}
		if working {
			return current, nil
		}
		current = current.Add(step)
	}

	return time.Time{}, fmt.Errorf("no working day found within %d days of %s", maxShiftDays, date.Format("2006-01-02"))
}

// WorkingDaysBefore returns the date n working days before the given date.
// Used for lead-time offsets when suggesting order dates.
func (l *Lookup) WorkingDaysBefore(scope entities.CalendarScope, date time.Time, n int) (time.Time, error) {
	if n < 0 {
		return time.Time{}, fmt.Errorf("working day offset cannot be negative, got %d", n)
	}

	current, err := l.ShiftToWorkingDay(scope, date, ShiftBackward)
	if err != nil {
		return time.Time{}, err
	}

	for remaining := n; remaining > 0; remaining-- {
		current, err = l.ShiftToWorkingDay(scope, current.Add(-24*time.Hour), ShiftBackward)
		if err != nil {
			return time.Time{}, err
		}
	}

	return current, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
