// Package allocator turns pending enrollment requests into approvals,
// waitlist entries and rejections against the fixed capacity of committed
// sections. Each section's roster is an independently lockable unit: passes
// for different sections run in parallel, passes for the same section are
// strictly serialized.
package allocator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
)

// Publisher receives promotion events for the external notification
// collaborator. The allocator emits events; it never sends notifications.
type Publisher interface {
	PublishPromotion(ctx context.Context, event models.PromotionEvent) error
}

// SectionSeat describes one committed section the allocator manages.
type SectionSeat struct {
	SectionID string
	Capacity  int
	Slot      models.TimeSlot
}

// Config wires allocator collaborators.
type Config struct {
	Logger    *zap.Logger
	Publisher Publisher
	Clock     func() time.Time
}

// Allocator owns EnrollmentRequest and waitlist state exclusively. Committed
// sections are read-only capacity sources.
type Allocator struct {
	logger    *zap.Logger
	publisher Publisher
	clock     func() time.Time

	// mu guards the shared request index; each sectionState additionally
	// serializes its own roster.
	mu       sync.RWMutex
	requests map[string]*models.EnrollmentRequest
	sections map[string]*sectionState
	order    []string
}

type sectionState struct {
	mu       sync.Mutex
	id       string
	capacity int
	slot     models.TimeSlot
	// waitlist positions are strictly increasing and never reused, even
	// across repeated passes.
	nextPosition int
}

// New builds an allocator over the given committed sections.
func New(seats []SectionSeat, cfg Config) *Allocator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	a := &Allocator{
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
		clock:     cfg.Clock,
		requests:  make(map[string]*models.EnrollmentRequest),
		sections:  make(map[string]*sectionState, len(seats)),
	}
	for _, seat := range seats {
		a.sections[seat.SectionID] = &sectionState{
			id:           seat.SectionID,
			capacity:     seat.Capacity,
			slot:         seat.Slot,
			nextPosition: 1,
		}
		a.order = append(a.order, seat.SectionID)
	}
	sort.Strings(a.order)
	return a
}

// FromSchedule derives allocator seats from a committed schedule plus the
// catalog's section capacities and slot records.
func FromSchedule(schedule *models.CommittedSchedule, sections []models.Section, slots map[string]models.TimeSlot, cfg Config) *Allocator {
	capacities := make(map[string]int, len(sections))
	for _, s := range sections {
		capacities[s.ID] = s.Capacity
	}
	seats := make([]SectionSeat, 0, len(schedule.Assignments))
	for _, a := range schedule.Assignments {
		seats = append(seats, SectionSeat{
			SectionID: a.SectionID,
			Capacity:  capacities[a.SectionID],
			Slot:      slots[a.SlotID],
		})
	}
	return New(seats, cfg)
}

// Submit buffers a request for the next allocation pass. Requests arrive
// asynchronously; nothing is decided until a pass runs.
func (a *Allocator) Submit(req models.EnrollmentRequest) (*models.EnrollmentRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.sections[req.SectionID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s is not part of the committed schedule", req.SectionID))
	}
	if req.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	for _, existing := range a.requests {
		if existing.StudentID == req.StudentID && existing.SectionID == req.SectionID && !existing.Terminal() {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an open request for this section")
		}
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = a.clock()
	}
	req.Status = models.RequestStatusPending
	req.Reason = ""
	req.WaitlistPosition = 0

	stored := req
	a.requests[stored.ID] = &stored
	return &stored, nil
}

// Restore loads previously persisted requests with their statuses and
// waitlist positions intact, and advances each section's position counter
// past the highest restored position. Used to rebuild the in-memory ledger
// after a restart.
func (a *Allocator) Restore(requests []models.EnrollmentRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range requests {
		req := requests[i]
		section, ok := a.sections[req.SectionID]
		if !ok {
			continue
		}
		stored := req
		a.requests[stored.ID] = &stored
		if stored.WaitlistPosition >= section.nextPosition {
			section.nextPosition = stored.WaitlistPosition + 1
		}
	}
}

// Request returns a copy of the request by ID.
func (a *Allocator) Request(id string) (*models.EnrollmentRequest, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	req, ok := a.requests[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
	}
	copied := *req
	return &copied, nil
}

// AllocateSection runs one allocation pass for a single section.
func (a *Allocator) AllocateSection(ctx context.Context, sectionID string) ([]models.Decision, error) {
	section, ok := a.section(sectionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s is not part of the committed schedule", sectionID))
	}
	section.mu.Lock()
	defer section.mu.Unlock()
	return a.runPass(ctx, section)
}

// AllocateAll runs allocation passes for every section concurrently; the
// shared request index serializes cross-section conflict checks. Decisions
// are reassembled in deterministic section order, and within a section in
// the exact priority order of processing.
func (a *Allocator) AllocateAll(ctx context.Context) ([]models.Decision, error) {
	type outcome struct {
		decisions []models.Decision
		err       error
	}

	outcomes := make([]outcome, len(a.order))
	var wg sync.WaitGroup
	for i, sectionID := range a.order {
		section, ok := a.section(sectionID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, s *sectionState) {
			defer wg.Done()
			s.mu.Lock()
			defer s.mu.Unlock()
			decisions, err := a.runPass(ctx, s)
			outcomes[i] = outcome{decisions: decisions, err: err}
		}(i, section)
	}
	wg.Wait()

	var all []models.Decision
	for _, o := range outcomes {
		if o.err != nil {
			return nil, o.err
		}
		all = append(all, o.decisions...)
	}
	return all, nil
}

// Drop moves a request to its terminal dropped state. Dropping an APPROVED
// request frees a seat and re-runs the pass for that section only, which
// promotes the lowest-position waitlist entry. Dropping a WAITLISTED request
// removes it from the queue without touching seats.
func (a *Allocator) Drop(ctx context.Context, requestID string) ([]models.Decision, error) {
	a.mu.Lock()
	req, ok := a.requests[requestID]
	if !ok {
		a.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
	}
	switch req.Status {
	case models.RequestStatusApproved, models.RequestStatusWaitlisted, models.RequestStatusPending:
	default:
		a.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "request is already terminal")
	}
	wasApproved := req.Status == models.RequestStatusApproved
	req.Status = models.RequestStatusDropped
	req.WaitlistPosition = 0
	sectionID := req.SectionID
	a.mu.Unlock()

	decisions := []models.Decision{{
		RequestID: requestID,
		StudentID: req.StudentID,
		SectionID: sectionID,
		Status:    models.RequestStatusDropped,
	}}

	if !wasApproved {
		return decisions, nil
	}

	section, ok := a.section(sectionID)
	if !ok {
		return decisions, nil
	}
	section.mu.Lock()
	defer section.mu.Unlock()
	followups, err := a.runPass(ctx, section)
	if err != nil {
		return nil, err
	}
	return append(decisions, followups...), nil
}

// Expire moves a PENDING request to EXPIRED without running a pass.
func (a *Allocator) Expire(requestID string) (*models.Decision, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	req, ok := a.requests[requestID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
	}
	if req.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only pending requests expire")
	}
	req.Status = models.RequestStatusExpired
	return &models.Decision{
		RequestID: req.ID,
		StudentID: req.StudentID,
		SectionID: req.SectionID,
		Status:    models.RequestStatusExpired,
	}, nil
}

// SetCapacity adjusts a section's capacity. Raising it re-runs the pass and
// promotes waitlisted entries into the new seats. Lowering it never revokes
// existing approvals.
func (a *Allocator) SetCapacity(ctx context.Context, sectionID string, capacity int) ([]models.Decision, error) {
	if capacity < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "capacity must not be negative")
	}
	section, ok := a.section(sectionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s is not part of the committed schedule", sectionID))
	}
	section.mu.Lock()
	defer section.mu.Unlock()
	section.capacity = capacity
	return a.runPass(ctx, section)
}

// Waitlist returns the section's waitlist in promotion order.
func (a *Allocator) Waitlist(sectionID string) ([]models.WaitlistEntry, error) {
	if _, ok := a.section(sectionID); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s is not part of the committed schedule", sectionID))
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	var entries []models.WaitlistEntry
	for _, req := range a.requests {
		if req.SectionID != sectionID || req.Status != models.RequestStatusWaitlisted {
			continue
		}
		entries = append(entries, models.WaitlistEntry{
			RequestID:     req.ID,
			StudentID:     req.StudentID,
			SectionID:     req.SectionID,
			Position:      req.WaitlistPosition,
			PriorityScore: req.PriorityScore,
			CreatedAt:     req.CreatedAt,
		})
	}
	sortWaitlist(entries)
	return entries, nil
}

func (a *Allocator) section(id string) (*sectionState, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sections[id]
	return s, ok
}
