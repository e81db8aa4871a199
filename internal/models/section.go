package models

import "github.com/lib/pq"

// Section is one schedulable instance of a course: it needs exactly one
// teacher, one room and one time slot. TeacherID/RoomID/SlotID are empty
// until the solver assigns the section.
type Section struct {
	ID                     string         `db:"id" json:"id"`
	CourseID               string         `db:"course_id" json:"course_id"`
	RequiredQualifications pq.StringArray `db:"required_qualifications" json:"required_qualifications"`
	Capacity               int            `db:"capacity" json:"capacity"`
	RequiresLab            bool           `db:"requires_lab" json:"requires_lab"`

	TeacherID string `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomID    string `db:"room_id" json:"room_id,omitempty"`
	SlotID    string `db:"slot_id" json:"slot_id,omitempty"`
}

// Assigned reports whether the section carries a full teacher/room/slot triple.
func (s *Section) Assigned() bool {
	return s.TeacherID != "" && s.RoomID != "" && s.SlotID != ""
}

// Assignment is a committed (section, teacher, room, slot) triple.
type Assignment struct {
	SectionID string `db:"section_id" json:"section_id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	RoomID    string `db:"room_id" json:"room_id"`
	SlotID    string `db:"slot_id" json:"slot_id"`
}

// BlockingConstraint identifies the hard constraint that kept a section
// unassigned.
type BlockingConstraint string

const (
	BlockNoQualifiedTeacher BlockingConstraint = "NO_QUALIFIED_TEACHER"
	BlockNoCompatibleRoom   BlockingConstraint = "NO_COMPATIBLE_ROOM"
	BlockNoFreeSlot         BlockingConstraint = "NO_FREE_SLOT"
)

// UnassignedSection reports a section the solver could not place together
// with the constraint that blocked it. This is result data, not an error:
// a schedule with unplaced sections is still usable.
type UnassignedSection struct {
	SectionID string             `db:"section_id" json:"section_id"`
	Blocked   BlockingConstraint `db:"blocked_by" json:"blocked_by"`
	Detail    string             `db:"detail" json:"detail,omitempty"`
}

// CommittedSchedule is the solver output consumed by the allocator and by
// downstream collaborators.
type CommittedSchedule struct {
	TermID      string              `json:"term_id"`
	Assignments []Assignment        `json:"assignments"`
	Unassigned  []UnassignedSection `json:"unassigned,omitempty"`
}

// AssignmentFor returns the committed assignment for a section, if any.
func (s *CommittedSchedule) AssignmentFor(sectionID string) (Assignment, bool) {
	for _, a := range s.Assignments {
		if a.SectionID == sectionID {
			return a, true
		}
	}
	return Assignment{}, false
}
