package models

import "time"

// RequestStatus is the lifecycle state of an enrollment request.
type RequestStatus string

// Lifecycle: PENDING -> {APPROVED, WAITLISTED, REJECTED, EXPIRED}.
// APPROVED leaves the terminal set only through an explicit drop, which moves
// it to DROPPED and triggers waitlist promotion.
const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusApproved   RequestStatus = "APPROVED"
	RequestStatusWaitlisted RequestStatus = "WAITLISTED"
	RequestStatusRejected   RequestStatus = "REJECTED"
	RequestStatusExpired    RequestStatus = "EXPIRED"
	RequestStatusDropped    RequestStatus = "DROPPED"
)

// RejectionReason distinguishes why a request was rejected.
type RejectionReason string

const (
	// RejectScheduleConflict: the request overlaps the student's approved
	// schedule. The student must drop the conflicting course first.
	RejectScheduleConflict RejectionReason = "SCHEDULE_CONFLICT"
	// RejectSectionFull is reserved for passes run with waitlisting disabled.
	RejectSectionFull RejectionReason = "SECTION_FULL"
)

// EnrollmentRequest is a student's ranked interest in one section.
// PriorityScore is computed outside this engine; PreferenceRank is the
// student's own ordinal choice among sections of the same course.
type EnrollmentRequest struct {
	ID             string          `db:"id" json:"id"`
	StudentID      string          `db:"student_id" json:"student_id"`
	SectionID      string          `db:"section_id" json:"section_id"`
	PreferenceRank int             `db:"preference_rank" json:"preference_rank"`
	PriorityScore  float64         `db:"priority_score" json:"priority_score"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	Status         RequestStatus   `db:"status" json:"status"`
	Reason         RejectionReason `db:"reason" json:"reason,omitempty"`
	// WaitlistPosition is a per-section, strictly increasing ordinal assigned
	// at waitlist-join time and never reused. Zero when not waitlisted.
	WaitlistPosition int `db:"waitlist_position" json:"waitlist_position,omitempty"`
}

// Terminal reports whether the request can no longer transition.
func (r *EnrollmentRequest) Terminal() bool {
	switch r.Status {
	case RequestStatusRejected, RequestStatusExpired, RequestStatusDropped:
		return true
	}
	return false
}

// WaitlistEntry is the derived view of a WAITLISTED request.
type WaitlistEntry struct {
	RequestID     string    `db:"request_id" json:"request_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	SectionID     string    `db:"section_id" json:"section_id"`
	Position      int       `db:"position" json:"position"`
	PriorityScore float64   `db:"priority_score" json:"priority_score"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Decision records one allocator state transition for a request.
type Decision struct {
	RequestID string          `db:"request_id" json:"request_id"`
	StudentID string          `db:"student_id" json:"student_id"`
	SectionID string          `db:"section_id" json:"section_id"`
	Status    RequestStatus   `db:"status" json:"status"`
	Reason    RejectionReason `db:"reason" json:"reason,omitempty"`
	Position  int             `db:"position" json:"position,omitempty"`
	// PromotedFrom is set when a waitlisted request became approved.
	PromotedFrom int `db:"promoted_from" json:"promoted_from,omitempty"`
}

// PromotionEvent notifies the external notification collaborator that a
// waitlisted request gained a seat. The engine emits it; it never sends
// notifications itself.
type PromotionEvent struct {
	RequestID    string    `json:"request_id"`
	StudentID    string    `json:"student_id"`
	SectionID    string    `json:"section_id"`
	PromotedFrom int       `json:"promoted_from"`
	OccurredAt   time.Time `json:"occurred_at"`
}
