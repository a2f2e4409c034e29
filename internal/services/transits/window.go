package transits

import (
	"fmt"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

// DefaultBufferMonths is how many whole months are scanned on each side of the target month.
const DefaultBufferMonths = 3

// MonthWindow is the target month plus its scan buffer. Dates are UTC midnights.
type MonthWindow struct {
	month  time.Month
	year   int
	buffer int
}

// NewMonthWindow validates month and year. A negative buffer is rejected.
func NewMonthWindow(month, year, bufferMonths int) (MonthWindow, error) {
	if month < 1 || month > 12 {
		return MonthWindow{}, fmt.Errorf("%w: month %d outside 1..12", models.ErrInvalidWindow, month)
	}
	if year < 1 || year > 9999 {
		return MonthWindow{}, fmt.Errorf("%w: year %d outside 1..9999", models.ErrInvalidWindow, year)
	}
	if bufferMonths < 0 {
		return MonthWindow{}, fmt.Errorf("%w: negative buffer %d", models.ErrInvalidWindow, bufferMonths)
	}
	return MonthWindow{month: time.Month(month), year: year, buffer: bufferMonths}, nil
}

func (w MonthWindow) Month() int { return int(w.month) }
func (w MonthWindow) Year() int  { return w.year }

// MonthStart is the first day of the target month.
func (w MonthWindow) MonthStart() time.Time {
	return time.Date(w.year, w.month, 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd is the last day of the target month.
func (w MonthWindow) MonthEnd() time.Time {
	return w.MonthStart().AddDate(0, 1, -1)
}

// ScanRange expands the target month by the buffer on each side, whole months included.
func (w MonthWindow) ScanRange() (time.Time, time.Time) {
	start := time.Date(w.year, w.month-time.Month(w.buffer), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(w.year, w.month+time.Month(w.buffer)+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return start, end
}

// Days lists every scan day, both ends included.
func (w MonthWindow) Days() []time.Time {
	start, end := w.ScanRange()
	days := make([]time.Time, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Overlaps reports whether the episode touches the target month.
func (w MonthWindow) Overlaps(e models.Episode) bool {
	return !e.StartDate.After(w.MonthEnd()) && !e.EndDate.Before(w.MonthStart())
}

// PeakRelation tells whether the peak falls in the target month, one month away, or further.
func (w MonthWindow) PeakRelation(e models.Episode) models.PeakRelation {
	peak := e.PeakDate.UTC()
	diff := (peak.Year()-w.year)*12 + int(peak.Month()) - int(w.month)
	switch {
	case diff == 0:
		return models.PeakInMonth
	case diff == 1 || diff == -1:
		return models.PeakAdjacentMonth
	default:
		return models.PeakDistant
	}
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}
