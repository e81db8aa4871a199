package models

import "fmt"

// TimeSlot identifies a teaching period. Slots referenced by a committed
// schedule are immutable; all engine state keys slots by ID and never mutates
// the record itself.
type TimeSlot struct {
	ID          string `db:"id" json:"id"`
	DayOfWeek   int    `db:"day_of_week" json:"day_of_week"`
	StartMinute int    `db:"start_minute" json:"start_minute"`
	EndMinute   int    `db:"end_minute" json:"end_minute"`
	// DayType tags alternating calendars ("A", "B"). Empty intersects every
	// day type.
	DayType string `db:"day_type" json:"day_type,omitempty"`
}

// Duration returns the slot length in minutes.
func (t TimeSlot) Duration() int {
	return t.EndMinute - t.StartMinute
}

// Label renders a human-readable form used in logs and exports.
func (t TimeSlot) Label() string {
	return fmt.Sprintf("%s %02d:%02d-%02d:%02d", dayName(t.DayOfWeek),
		t.StartMinute/60, t.StartMinute%60, t.EndMinute/60, t.EndMinute%60)
}

var dayNames = map[int]string{
	1: "MONDAY",
	2: "TUESDAY",
	3: "WEDNESDAY",
	4: "THURSDAY",
	5: "FRIDAY",
	6: "SATURDAY",
	7: "SUNDAY",
}

func dayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return "UNKNOWN"
}
