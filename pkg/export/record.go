// Package export renders a week's schedule matrix for people: CSV for spreadsheets and a
// landscape PDF grid for printing.
package export

import "fmt"

// Labels used for cells without a time window.
const (
	LabelOff    = "Off"
	LabelNotSet = "Not Set"
)

// Record is one (staff, day) cell. Nil fields mean no value was stored.
type Record struct {
	Staff     string
	Day       string
	Date      string
	IsWorking *bool
	StartTime *string
	EndTime   *string
}

// Label renders the cell for humans: "Off", "Not Set" or "10:00-18:00".
func (r Record) Label() string {
	if r.IsWorking == nil {
		return LabelNotSet
	}
	if !*r.IsWorking {
		return LabelOff
	}
	if r.StartTime == nil || r.EndTime == nil {
		return LabelNotSet
	}
	return fmt.Sprintf("%s-%s", *r.StartTime, *r.EndTime)
}

// Status is the machine-friendly state of the cell.
func (r Record) Status() string {
	switch {
	case r.IsWorking == nil:
		return "not_set"
	case !*r.IsWorking:
		return "off"
	case r.StartTime == nil || r.EndTime == nil:
		return "not_set"
	default:
		return "working"
	}
}
