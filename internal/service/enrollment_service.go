package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/dto"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/allocator"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/config"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/jobs"
)

type requestStore interface {
	Create(ctx context.Context, req *models.EnrollmentRequest) error
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	ListOpen(ctx context.Context, termID string) ([]models.EnrollmentRequest, error)
	ApplyDecisions(ctx context.Context, decisions []models.Decision) error
	Waitlist(ctx context.Context, sectionID string) ([]models.WaitlistEntry, error)
}

// Event types consumed from the drop/capacity feed.
const (
	EventTypeDrop     = "enrollment.drop"
	EventTypeCapacity = "enrollment.capacity"
)

// DropEvent is the payload of a drop/withdraw job.
type DropEvent struct {
	TermID    string `json:"term_id"`
	RequestID string `json:"request_id"`
	Reason    string `json:"reason,omitempty"`
}

// CapacityEvent is the payload of an administrative capacity change job.
type CapacityEvent struct {
	TermID    string `json:"term_id"`
	SectionID string `json:"section_id"`
	Capacity  int    `json:"capacity"`
}

// EnrollmentService buffers enrollment requests, runs allocation passes and
// consumes drop/capacity events. The in-memory ledger mirrors the persisted
// request state; every pass writes its decisions back in one transaction.
type EnrollmentService struct {
	requests  requestStore
	catalog   catalogLoader
	schedules scheduleStore
	publisher allocator.Publisher
	validator *validator.Validate
	logger    *zap.Logger

	queue *jobs.Queue

	mu      sync.Mutex
	ledgers map[string]*allocator.Allocator
}

// NewEnrollmentService wires allocation dependencies. Start must be called
// before events are enqueued.
func NewEnrollmentService(
	requests requestStore,
	catalog catalogLoader,
	schedules scheduleStore,
	publisher allocator.Publisher,
	cfg config.AllocatorConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EnrollmentService{
		requests:  requests,
		catalog:   catalog,
		schedules: schedules,
		publisher: publisher,
		validator: validate,
		logger:    logger,
		ledgers:   make(map[string]*allocator.Allocator),
	}
	s.queue = jobs.NewQueue("enrollment-events", s.handleEvent, jobs.QueueConfig{
		Workers:    cfg.EventWorkers,
		BufferSize: cfg.EventBuffer,
		MaxRetries: cfg.EventRetries,
		Logger:     logger,
	})
	return s
}

// Start begins consuming buffered drop/capacity events.
func (s *EnrollmentService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the event workers.
func (s *EnrollmentService) Stop() {
	s.queue.Stop()
}

// Submit buffers a request; nothing is decided until a pass runs.
func (s *EnrollmentService) Submit(ctx context.Context, termID string, input dto.EnrollmentRequestInput) (*dto.EnrollmentRequestView, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment request")
	}

	ledger, err := s.ledger(ctx, termID)
	if err != nil {
		return nil, err
	}

	req, err := ledger.Submit(models.EnrollmentRequest{
		StudentID:      input.StudentID,
		SectionID:      input.SectionID,
		PreferenceRank: input.PreferenceRank,
		PriorityScore:  input.PriorityScore,
	})
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist enrollment request")
	}

	view := dto.NewRequestView(req)
	return &view, nil
}

// Allocate runs a pass for one section, or for every section when SectionID
// is empty, and persists the resulting decisions.
func (s *EnrollmentService) Allocate(ctx context.Context, req dto.AllocateRequest) (*dto.AllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation request")
	}

	ledger, err := s.ledger(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	var decisions []models.Decision
	if req.SectionID != "" {
		decisions, err = ledger.AllocateSection(ctx, req.SectionID)
	} else {
		decisions, err = ledger.AllocateAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	if err := s.requests.ApplyDecisions(ctx, decisions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist allocation decisions")
	}

	return &dto.AllocationResponse{
		TermID:    req.TermID,
		SectionID: req.SectionID,
		Decisions: dto.NewDecisionViews(decisions),
	}, nil
}

// Drop withdraws a request immediately and persists any promotion it causes.
func (s *EnrollmentService) Drop(ctx context.Context, termID string, req dto.DropRequest) (*dto.AllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop request")
	}

	ledger, err := s.ledger(ctx, termID)
	if err != nil {
		return nil, err
	}
	decisions, err := ledger.Drop(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("enrollment request dropped",
		zap.String("term_id", termID),
		zap.String("request_id", req.RequestID),
		zap.String("reason", req.Reason),
		zap.Int("decisions", len(decisions)))
	if err := s.requests.ApplyDecisions(ctx, decisions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist drop decisions")
	}
	return &dto.AllocationResponse{TermID: termID, Decisions: dto.NewDecisionViews(decisions)}, nil
}

// SetCapacity adjusts a section's seats and persists any promotions a raise
// causes. Lowering never revokes approvals.
func (s *EnrollmentService) SetCapacity(ctx context.Context, termID string, req dto.CapacityRequest) (*dto.AllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capacity request")
	}

	ledger, err := s.ledger(ctx, termID)
	if err != nil {
		return nil, err
	}
	decisions, err := ledger.SetCapacity(ctx, req.SectionID, req.Capacity)
	if err != nil {
		return nil, err
	}
	if err := s.requests.ApplyDecisions(ctx, decisions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist capacity decisions")
	}
	return &dto.AllocationResponse{TermID: termID, SectionID: req.SectionID, Decisions: dto.NewDecisionViews(decisions)}, nil
}

// Waitlist returns a section's waitlist in promotion order. A warm ledger
// serves the read directly; otherwise the persisted positions are
// authoritative and the read must not force a full rebuild.
func (s *EnrollmentService) Waitlist(ctx context.Context, termID, sectionID string) ([]dto.WaitlistView, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}

	s.mu.Lock()
	ledger, warm := s.ledgers[termID]
	s.mu.Unlock()

	if warm {
		entries, err := ledger.Waitlist(sectionID)
		if err != nil {
			return nil, err
		}
		return dto.NewWaitlistViews(entries), nil
	}

	entries, err := s.requests.Waitlist(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load waitlist")
	}
	return dto.NewWaitlistViews(entries), nil
}

// Request returns one request's current state.
func (s *EnrollmentService) Request(ctx context.Context, termID, requestID string) (*dto.EnrollmentRequestView, error) {
	ledger, err := s.ledger(ctx, termID)
	if err != nil {
		return nil, err
	}
	req, err := ledger.Request(requestID)
	if err != nil {
		return nil, err
	}
	view := dto.NewRequestView(req)
	return &view, nil
}

// EnqueueDrop buffers a drop/withdraw event for asynchronous processing.
func (s *EnrollmentService) EnqueueDrop(event DropEvent) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    EventTypeDrop,
		Payload: event,
	})
}

// EnqueueCapacity buffers a capacity change event.
func (s *EnrollmentService) EnqueueCapacity(event CapacityEvent) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    EventTypeCapacity,
		Payload: event,
	})
}

func (s *EnrollmentService) handleEvent(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case EventTypeDrop:
		event, ok := job.Payload.(DropEvent)
		if !ok {
			return fmt.Errorf("job %s: unexpected drop payload %T", job.ID, job.Payload)
		}
		_, err := s.Drop(ctx, event.TermID, dto.DropRequest{RequestID: event.RequestID, Reason: event.Reason})
		if err != nil && appErrors.Is(err, appErrors.ErrPreconditionFailed) {
			// Already terminal: the event was delivered twice.
			s.logger.Debug("drop event ignored for terminal request", zap.String("request_id", event.RequestID))
			return nil
		}
		return err
	case EventTypeCapacity:
		event, ok := job.Payload.(CapacityEvent)
		if !ok {
			return fmt.Errorf("job %s: unexpected capacity payload %T", job.ID, job.Payload)
		}
		_, err := s.SetCapacity(ctx, event.TermID, dto.CapacityRequest{SectionID: event.SectionID, Capacity: event.Capacity})
		return err
	default:
		return fmt.Errorf("job %s: unknown event type %s", job.ID, job.Type)
	}
}

// ledger returns the in-memory allocation ledger for a term, rebuilding it
// from the committed schedule and persisted open requests on first use.
func (s *EnrollmentService) ledger(ctx context.Context, termID string) (*allocator.Allocator, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ledger, ok := s.ledgers[termID]; ok {
		return ledger, nil
	}

	schedule, err := s.schedules.Load(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "term has no committed schedule; solve before allocating")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load committed schedule")
	}
	snapshot, err := s.catalog.LoadSnapshot(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load catalog snapshot")
	}

	slots := make(map[string]models.TimeSlot, len(snapshot.Slots))
	for _, slot := range snapshot.Slots {
		slots[slot.ID] = slot
	}
	ledger := allocator.FromSchedule(schedule, snapshot.Sections, slots, allocator.Config{
		Logger:    s.logger,
		Publisher: s.publisher,
	})

	open, err := s.requests.ListOpen(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load open requests")
	}
	ledger.Restore(open)

	s.ledgers[termID] = ledger
	return ledger, nil
}

// InvalidateLedger drops a term's in-memory ledger, forcing a rebuild. Called
// after a re-commit changes the schedule underneath the allocator.
func (s *EnrollmentService) InvalidateLedger(termID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ledgers, termID)
}
