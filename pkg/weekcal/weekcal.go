// Package weekcal computes canonical Sunday-start weeks.
//
// Every date handled here is a calendar date: midnight UTC of the given year, month and
// day. Callers should convert wall-clock times with Date before comparing or storing.
package weekcal

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DayNames lists the seven day names in week order.
var DayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DayDate pairs a day name with its calendar date inside a week.
type DayDate struct {
	Day  string    `json:"day"`
	Date time.Time `json:"date"`
}

// Week is a Sunday..Saturday span identified by its Sunday.
type Week struct {
	Start time.Time            `json:"start"`
	Dates map[string]time.Time `json:"dates"`
}

// Compute returns the week containing ref.
func Compute(ref time.Time) Week {
	day := Date(ref)
	// time.Weekday is Sunday=0; convert to Monday=0..Sunday=6 first.
	mondayIndex := (int(day.Weekday()) + 6) % 7
	offset := (mondayIndex + 1) % 7
	start := day.AddDate(0, 0, -offset)

	dates := make(map[string]time.Time, len(DayNames))
	for i, name := range DayNames {
		dates[name] = start.AddDate(0, 0, i)
	}
	return Week{Start: start, Dates: dates}
}

// StartOf returns the Sunday beginning the week that contains ref.
func StartOf(ref time.Time) time.Time {
	return Compute(ref).Start
}

// End returns the Saturday closing the week.
func (w Week) End() time.Time {
	return w.Start.AddDate(0, 0, len(DayNames)-1)
}

// Days returns the week's dates in Sunday..Saturday order.
func (w Week) Days() []DayDate {
	days := make([]DayDate, 0, len(DayNames))
	for i, name := range DayNames {
		days = append(days, DayDate{Day: name, Date: w.Start.AddDate(0, 0, i)})
	}
	return days
}

// Contains reports whether the calendar date falls within the week.
func (w Week) Contains(t time.Time) bool {
	d := Date(t)
	return !d.Before(w.Start) && !d.After(w.End())
}

// DateFor returns the date of the named day in the week.
func (w Week) DateFor(day string) (time.Time, bool) {
	idx := DayIndex(day)
	if idx < 0 {
		return time.Time{}, false
	}
	return w.Start.AddDate(0, 0, idx), true
}

// FormatRange renders a human label such as "Sun 05 Jan - Sat 11 Jan 2025".
func FormatRange(w Week) string {
	end := w.End()
	if w.Start.Year() != end.Year() {
		return fmt.Sprintf("%s - %s", w.Start.Format("Mon 02 Jan 2006"), end.Format("Mon 02 Jan 2006"))
	}
	return fmt.Sprintf("%s - %s", w.Start.Format("Mon 02 Jan"), end.Format("Mon 02 Jan 2006"))
}

// Date truncates t to its calendar date at midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DayIndex returns 0 for Sunday through 6 for Saturday, or -1 for unknown names.
func DayIndex(day string) int {
	for i, name := range DayNames {
		if strings.EqualFold(name, strings.TrimSpace(day)) {
			return i
		}
	}
	return -1
}

// IsDayName reports whether day is one of the seven day names (case-insensitive).
func IsDayName(day string) bool {
	return DayIndex(day) >= 0
}

// NormalizeDay returns the canonical spelling of a day name.
func NormalizeDay(day string) (string, bool) {
	idx := DayIndex(day)
	if idx < 0 {
		return "", false
	}
	return DayNames[idx], true
}

// DayForDate returns the day name of the calendar date.
func DayForDate(t time.Time) string {
	return DayNames[int(Date(t).Weekday())]
}
