package models

import "github.com/lib/pq"

// Day-part preference values for teachers.
const (
	DayPartMorning   = "MORNING"
	DayPartAfternoon = "AFTERNOON"
)

// Teacher is the solver-facing view of an instructor: qualifications, load
// ceiling and unavailable slots. The engine treats it as read-only.
type Teacher struct {
	ID               string         `db:"id" json:"id"`
	FullName         string         `db:"full_name" json:"full_name"`
	Qualifications   pq.StringArray `db:"qualifications" json:"qualifications"`
	MaxWeeklyMinutes int            `db:"max_weekly_minutes" json:"max_weekly_minutes"`
	PreferredDayPart string         `db:"preferred_day_part" json:"preferred_day_part,omitempty"`
	UnavailableSlots []string       `db:"-" json:"unavailable_slots,omitempty"`
}

// QualifiedFor reports whether the teacher holds every required qualification.
func (t *Teacher) QualifiedFor(required []string) bool {
	if len(required) == 0 {
		return true
	}
	held := make(map[string]struct{}, len(t.Qualifications))
	for _, q := range t.Qualifications {
		held[q] = struct{}{}
	}
	for _, q := range required {
		if _, ok := held[q]; !ok {
			return false
		}
	}
	return true
}

// Room is a schedulable space. DistanceZone is an ordinal used to penalise
// back-to-back room changes beyond a walking threshold.
type Room struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Capacity     int    `db:"capacity" json:"capacity"`
	Lab          bool   `db:"lab" json:"lab"`
	DistanceZone int    `db:"distance_zone" json:"distance_zone"`
}

// Course defines requirements inherited by its sections.
type Course struct {
	ID                     string         `db:"id" json:"id"`
	Name                   string         `db:"name" json:"name"`
	RequiredQualifications pq.StringArray `db:"required_qualifications" json:"required_qualifications"`
	RequiresLab            bool           `db:"requires_lab" json:"requires_lab"`
}

// CatalogSnapshot is the fully materialised, immutable input for one solve
// pass. No lazy traversal: every record the solver may touch is already here.
type CatalogSnapshot struct {
	TermID   string              `json:"term_id"`
	Teachers []Teacher           `json:"teachers"`
	Rooms    []Room              `json:"rooms"`
	Slots    []TimeSlot          `json:"slots"`
	Courses  []Course            `json:"courses"`
	Sections []Section           `json:"sections"`
	// Fixed holds assignments that predate this solve (external commitments).
	// They occupy teacher and room time but are never reassigned.
	Fixed []Assignment `json:"fixed,omitempty"`
}
