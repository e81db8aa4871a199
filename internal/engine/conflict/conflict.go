// Package conflict holds the single shared notion of time-slot overlap used
// by both the schedule solver and the enrollment allocator, so the two can
// never diverge on what "conflicting" means.
package conflict

import "github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"

// Overlaps reports whether two slots collide: same weekday, intersecting
// day-type tags, and intersecting half-open time ranges. An empty day type
// intersects every day type.
func Overlaps(a, b models.TimeSlot) bool {
	if a.DayOfWeek != b.DayOfWeek {
		return false
	}
	if !dayTypesIntersect(a.DayType, b.DayType) {
		return false
	}
	return a.StartMinute < b.EndMinute && b.StartMinute < a.EndMinute
}

// OverlapsAny reports whether candidate collides with any slot in busy.
func OverlapsAny(candidate models.TimeSlot, busy []models.TimeSlot) bool {
	for _, slot := range busy {
		if Overlaps(candidate, slot) {
			return true
		}
	}
	return false
}

// StudentHasConflict reports whether enrolling into a section scheduled at
// candidate would double-book a student whose approved sections occupy the
// given slots.
func StudentHasConflict(candidate models.TimeSlot, approved []models.TimeSlot) bool {
	return OverlapsAny(candidate, approved)
}

func dayTypesIntersect(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return a == b
}
