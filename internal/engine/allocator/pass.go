package allocator

import (
	"context"
	"fmt"
	"sort"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/conflict"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
	"go.uber.org/zap"
)

// runPass processes one section's queue against its free seats. The caller
// holds the section lock. A pass over an unchanged queue emits no decisions,
// so re-running after a missed trigger is always safe.
func (a *Allocator) runPass(ctx context.Context, section *sectionState) ([]models.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	approved := 0
	var waitlisted, pending []*models.EnrollmentRequest
	for _, req := range a.requests {
		if req.SectionID != section.id {
			continue
		}
		switch req.Status {
		case models.RequestStatusApproved:
			approved++
		case models.RequestStatusWaitlisted:
			waitlisted = append(waitlisted, req)
		case models.RequestStatusPending:
			pending = append(pending, req)
		}
	}

	free := section.capacity - approved
	if free < 0 {
		// Capacity was lowered under the current roster. Approvals stand;
		// no seat opens until attrition brings the count back down.
		free = 0
	}

	// Waitlisted requests outrank every pending one; among themselves the
	// position already encodes the original priority order.
	sort.Slice(waitlisted, func(i, j int) bool {
		return waitlisted[i].WaitlistPosition < waitlisted[j].WaitlistPosition
	})
	sort.Slice(pending, func(i, j int) bool {
		return lessByPriority(pending[i], pending[j])
	})

	var decisions []models.Decision
	for _, req := range append(waitlisted, pending...) {
		fromWaitlist := req.Status == models.RequestStatusWaitlisted

		if free > 0 {
			if slot, clash := a.scheduleClash(req.StudentID, section); clash {
				decisions = append(decisions, a.reject(req, slot))
				continue
			}
			free--
			approved++
			if approved > section.capacity {
				return nil, appErrors.Clone(appErrors.ErrCapacityExceeded,
					fmt.Sprintf("section %s would hold %d approvals over capacity %d", section.id, approved, section.capacity))
			}
			decision := a.approve(req)
			if fromWaitlist {
				a.publishPromotion(ctx, req, decision)
			}
			decisions = append(decisions, *decision)
			continue
		}

		if fromWaitlist {
			// Stays queued at its existing position.
			continue
		}
		if slot, clash := a.scheduleClash(req.StudentID, section); clash {
			decisions = append(decisions, a.reject(req, slot))
			continue
		}
		decisions = append(decisions, a.waitlist(req, section))
	}
	return decisions, nil
}

// lessByPriority orders pending requests: priority score descending, then the
// student's own preference rank ascending, then submission time ascending.
func lessByPriority(x, y *models.EnrollmentRequest) bool {
	if x.PriorityScore != y.PriorityScore {
		return x.PriorityScore > y.PriorityScore
	}
	if x.PreferenceRank != y.PreferenceRank {
		return x.PreferenceRank < y.PreferenceRank
	}
	if !x.CreatedAt.Equal(y.CreatedAt) {
		return x.CreatedAt.Before(y.CreatedAt)
	}
	return x.ID < y.ID
}

// scheduleClash reports whether the student's already-approved sections
// overlap the target section's slot, returning the first clashing slot.
// Caller holds a.mu.
func (a *Allocator) scheduleClash(studentID string, target *sectionState) (models.TimeSlot, bool) {
	for _, req := range a.requests {
		if req.StudentID != studentID || req.Status != models.RequestStatusApproved {
			continue
		}
		other, ok := a.sections[req.SectionID]
		if !ok {
			continue
		}
		if conflict.Overlaps(target.slot, other.slot) {
			return other.slot, true
		}
	}
	return models.TimeSlot{}, false
}

func (a *Allocator) approve(req *models.EnrollmentRequest) *models.Decision {
	promotedFrom := req.WaitlistPosition
	req.Status = models.RequestStatusApproved
	req.Reason = ""
	req.WaitlistPosition = 0
	return &models.Decision{
		RequestID:    req.ID,
		StudentID:    req.StudentID,
		SectionID:    req.SectionID,
		Status:       models.RequestStatusApproved,
		PromotedFrom: promotedFrom,
	}
}

func (a *Allocator) reject(req *models.EnrollmentRequest, clash models.TimeSlot) models.Decision {
	req.Status = models.RequestStatusRejected
	req.Reason = models.RejectScheduleConflict
	req.WaitlistPosition = 0
	a.logger.Debug("enrollment rejected on schedule conflict",
		zap.String("request_id", req.ID),
		zap.String("student_id", req.StudentID),
		zap.String("section_id", req.SectionID),
		zap.String("clashing_slot", clash.Label()),
	)
	return models.Decision{
		RequestID: req.ID,
		StudentID: req.StudentID,
		SectionID: req.SectionID,
		Status:    models.RequestStatusRejected,
		Reason:    models.RejectScheduleConflict,
	}
}

func (a *Allocator) waitlist(req *models.EnrollmentRequest, section *sectionState) models.Decision {
	req.Status = models.RequestStatusWaitlisted
	req.Reason = models.RejectSectionFull
	req.WaitlistPosition = section.nextPosition
	section.nextPosition++
	return models.Decision{
		RequestID: req.ID,
		StudentID: req.StudentID,
		SectionID: req.SectionID,
		Status:    models.RequestStatusWaitlisted,
		Reason:    models.RejectSectionFull,
		Position:  req.WaitlistPosition,
	}
}

func (a *Allocator) publishPromotion(ctx context.Context, req *models.EnrollmentRequest, decision *models.Decision) {
	if a.publisher == nil {
		return
	}
	event := models.PromotionEvent{
		RequestID:    req.ID,
		StudentID:    req.StudentID,
		SectionID:    req.SectionID,
		PromotedFrom: decision.PromotedFrom,
		OccurredAt:   a.clock(),
	}
	if err := a.publisher.PublishPromotion(ctx, event); err != nil {
		// Promotion stands even when the notification fails.
		a.logger.Warn("promotion event publish failed",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
	}
}

func sortWaitlist(entries []models.WaitlistEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})
}
