package dto

import "github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"

// SolveRequest triggers a full solve for one term's catalog.
type SolveRequest struct {
	TermID string `json:"termId" validate:"required"`
	// Commit persists the result as the term's committed schedule; without
	// it the solve is a dry run.
	Commit bool `json:"commit"`
}

// ResolveRequest triggers an incremental re-solve seeded from the committed
// schedule, after a single availability or requirement change.
type ResolveRequest struct {
	TermID string `json:"termId" validate:"required"`
	Commit bool   `json:"commit"`
}

// SolveStats mirrors the solver's pass summary.
type SolveStats struct {
	Seeded           int     `json:"seeded"`
	Repaired         int     `json:"repaired"`
	RepairIterations int     `json:"repairIterations"`
	SoftPenalty      float64 `json:"softPenalty"`
	ElapsedMillis    int64   `json:"elapsedMillis"`
}

// AssignmentView is one committed (section, teacher, room, slot) row.
type AssignmentView struct {
	SectionID string `json:"sectionId"`
	TeacherID string `json:"teacherId"`
	RoomID    string `json:"roomId"`
	SlotID    string `json:"slotId"`
	SlotLabel string `json:"slotLabel,omitempty"`
}

// UnassignedView names the hard constraint that kept a section unplaced.
type UnassignedView struct {
	SectionID string `json:"sectionId"`
	BlockedBy string `json:"blockedBy"`
	Detail    string `json:"detail,omitempty"`
}

// SolveResponse returns the full result of a solve or re-solve.
type SolveResponse struct {
	TermID      string           `json:"termId"`
	Committed   bool             `json:"committed"`
	Assignments []AssignmentView `json:"assignments"`
	Unassigned  []UnassignedView `json:"unassigned,omitempty"`
	Stats       SolveStats       `json:"stats"`
}

// ScheduleResponse is the read view of a committed schedule.
type ScheduleResponse struct {
	TermID      string           `json:"termId"`
	Assignments []AssignmentView `json:"assignments"`
	Unassigned  []UnassignedView `json:"unassigned,omitempty"`
}

// NewAssignmentViews maps committed assignments into API rows, attaching slot
// labels when the slot catalog is available.
func NewAssignmentViews(assignments []models.Assignment, slots map[string]models.TimeSlot) []AssignmentView {
	views := make([]AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		view := AssignmentView{
			SectionID: a.SectionID,
			TeacherID: a.TeacherID,
			RoomID:    a.RoomID,
			SlotID:    a.SlotID,
		}
		if slot, ok := slots[a.SlotID]; ok {
			view.SlotLabel = slot.Label()
		}
		views = append(views, view)
	}
	return views
}

// NewUnassignedViews maps the infeasibility report into API rows.
func NewUnassignedViews(unassigned []models.UnassignedSection) []UnassignedView {
	views := make([]UnassignedView, 0, len(unassigned))
	for _, u := range unassigned {
		views = append(views, UnassignedView{
			SectionID: u.SectionID,
			BlockedBy: string(u.Blocked),
			Detail:    u.Detail,
		})
	}
	return views
}
