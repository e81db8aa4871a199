package dto

import (
	"time"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// EnrollmentRequestInput submits one ranked request into the buffer.
type EnrollmentRequestInput struct {
	StudentID      string  `json:"studentId" validate:"required"`
	SectionID      string  `json:"sectionId" validate:"required"`
	PreferenceRank int     `json:"preferenceRank" validate:"omitempty,min=1"`
	PriorityScore  float64 `json:"priorityScore" validate:"omitempty,min=0"`
}

// AllocateRequest runs an allocation pass, for one section or for all.
type AllocateRequest struct {
	TermID    string `json:"termId" validate:"required"`
	SectionID string `json:"sectionId"`
}

// DropRequest withdraws an enrollment request.
type DropRequest struct {
	RequestID string `json:"requestId" validate:"required"`
	Reason    string `json:"reason"`
}

// CapacityRequest adjusts a section's seat count.
type CapacityRequest struct {
	SectionID string `json:"sectionId" validate:"required"`
	Capacity  int    `json:"capacity" validate:"min=0"`
}

// DecisionView is one allocator state transition.
type DecisionView struct {
	RequestID    string `json:"requestId"`
	StudentID    string `json:"studentId"`
	SectionID    string `json:"sectionId"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
	Position     int    `json:"position,omitempty"`
	PromotedFrom int    `json:"promotedFrom,omitempty"`
}

// EnrollmentRequestView is the read view of a stored request.
type EnrollmentRequestView struct {
	ID               string    `json:"id"`
	StudentID        string    `json:"studentId"`
	SectionID        string    `json:"sectionId"`
	PreferenceRank   int       `json:"preferenceRank"`
	PriorityScore    float64   `json:"priorityScore"`
	CreatedAt        time.Time `json:"createdAt"`
	Status           string    `json:"status"`
	Reason           string    `json:"reason,omitempty"`
	WaitlistPosition int       `json:"waitlistPosition,omitempty"`
}

// WaitlistView is one waitlist row in promotion order.
type WaitlistView struct {
	RequestID     string    `json:"requestId"`
	StudentID     string    `json:"studentId"`
	Position      int       `json:"position"`
	PriorityScore float64   `json:"priorityScore"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AllocationResponse returns the decisions one pass produced.
type AllocationResponse struct {
	TermID    string         `json:"termId,omitempty"`
	SectionID string         `json:"sectionId,omitempty"`
	Decisions []DecisionView `json:"decisions"`
}

// NewDecisionViews maps allocator decisions into API rows.
func NewDecisionViews(decisions []models.Decision) []DecisionView {
	views := make([]DecisionView, 0, len(decisions))
	for _, d := range decisions {
		views = append(views, DecisionView{
			RequestID:    d.RequestID,
			StudentID:    d.StudentID,
			SectionID:    d.SectionID,
			Status:       string(d.Status),
			Reason:       string(d.Reason),
			Position:     d.Position,
			PromotedFrom: d.PromotedFrom,
		})
	}
	return views
}

// NewRequestView maps a stored request into its API shape.
func NewRequestView(req *models.EnrollmentRequest) EnrollmentRequestView {
	return EnrollmentRequestView{
		ID:               req.ID,
		StudentID:        req.StudentID,
		SectionID:        req.SectionID,
		PreferenceRank:   req.PreferenceRank,
		PriorityScore:    req.PriorityScore,
		CreatedAt:        req.CreatedAt,
		Status:           string(req.Status),
		Reason:           string(req.Reason),
		WaitlistPosition: req.WaitlistPosition,
	}
}

// NewWaitlistViews maps waitlist entries into API rows.
func NewWaitlistViews(entries []models.WaitlistEntry) []WaitlistView {
	views := make([]WaitlistView, 0, len(entries))
	for _, e := range entries {
		views = append(views, WaitlistView{
			RequestID:     e.RequestID,
			StudentID:     e.StudentID,
			Position:      e.Position,
			PriorityScore: e.PriorityScore,
			CreatedAt:     e.CreatedAt,
		})
	}
	return views
}
