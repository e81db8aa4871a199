package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/dto"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/solver"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/timetable"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/config"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
)

type catalogLoader interface {
	LoadSnapshot(ctx context.Context, termID string) (*models.CatalogSnapshot, error)
}

type scheduleStore interface {
	Save(ctx context.Context, schedule *models.CommittedSchedule) error
	Load(ctx context.Context, termID string) (*models.CommittedSchedule, error)
}

type scheduleCache interface {
	Get(ctx context.Context, termID string) (*models.CommittedSchedule, error)
	Set(ctx context.Context, schedule *models.CommittedSchedule)
	Invalidate(ctx context.Context, termID string)
}

// ScheduleService runs solve passes over a term's catalog and owns the
// committed schedule lifecycle.
type ScheduleService struct {
	catalog   catalogLoader
	schedules scheduleStore
	cache     scheduleCache
	solver    *solver.Solver
	timeout   config.SolverConfig
	validator *validator.Validate
	logger    *zap.Logger

	onCommit func(termID string)
}

// OnCommit registers a listener invoked after a schedule is committed. The
// enrollment side uses it to discard ledgers built over the previous
// schedule.
func (s *ScheduleService) OnCommit(fn func(termID string)) {
	s.onCommit = fn
}

// NewScheduleService wires solver dependencies.
func NewScheduleService(
	catalog catalogLoader,
	schedules scheduleStore,
	cache scheduleCache,
	cfg config.SolverConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := solver.New(solver.Config{
		RepairIterations:    cfg.RepairIterations,
		MaxReassign:         cfg.MaxReassign,
		Parallelism:         cfg.Parallelism,
		RoomChangeThreshold: cfg.RoomChangeThreshold,
		Weights: solver.Weights{
			LoadBalance:    cfg.LoadBalanceWeight,
			TimePreference: cfg.TimePrefWeight,
			RoomChange:     cfg.RoomChangeWeight,
		},
		Logger: logger,
	})
	return &ScheduleService{
		catalog:   catalog,
		schedules: schedules,
		cache:     cache,
		solver:    engine,
		timeout:   cfg,
		validator: validate,
		logger:    logger,
	}
}

// Solve runs a full two-phase solve for the term, optionally committing the
// result.
func (s *ScheduleService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve request")
	}

	model, err := s.buildModel(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.solveContext(ctx)
	defer cancel()

	result, err := s.solver.Solve(ctx, model)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solve failed")
	}

	return s.finish(ctx, model, result, req.Commit)
}

// Resolve runs the repair-only incremental pass seeded from the committed
// schedule. The term must have been solved at least once.
func (s *ScheduleService) Resolve(ctx context.Context, req dto.ResolveRequest) (*dto.SolveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid re-solve request")
	}

	prev, err := s.schedules.Load(ctx, req.TermID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "term has no committed schedule to re-solve from")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load committed schedule")
	}

	model, err := s.buildModel(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.solveContext(ctx)
	defer cancel()

	result, err := s.solver.Resolve(ctx, model, prev)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "incremental re-solve failed")
	}

	return s.finish(ctx, model, result, req.Commit)
}

// Get returns the committed schedule, serving from cache when warm.
func (s *ScheduleService) Get(ctx context.Context, termID string) (*dto.ScheduleResponse, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}

	schedule, err := s.cache.Get(ctx, termID)
	if err != nil {
		if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("schedule cache read failed", zap.String("term_id", termID), zap.Error(err))
		}
		schedule, err = s.schedules.Load(ctx, termID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "term has no committed schedule")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load committed schedule")
		}
		s.cache.Set(ctx, schedule)
	}

	return &dto.ScheduleResponse{
		TermID:      schedule.TermID,
		Assignments: dto.NewAssignmentViews(schedule.Assignments, nil),
		Unassigned:  dto.NewUnassignedViews(schedule.Unassigned),
	}, nil
}

func (s *ScheduleService) buildModel(ctx context.Context, termID string) (*timetable.Model, error) {
	snapshot, err := s.catalog.LoadSnapshot(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load catalog snapshot")
	}
	model, err := timetable.Build(snapshot)
	if err != nil {
		// ErrConfiguration and ErrValidation pass through with their codes.
		return nil, err
	}
	return model, nil
}

func (s *ScheduleService) solveContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout.SolveTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout.SolveTimeout)
}

func (s *ScheduleService) finish(ctx context.Context, model *timetable.Model, result *solver.Result, commit bool) (*dto.SolveResponse, error) {
	if commit {
		schedule := result.Committed()
		if err := s.schedules.Save(ctx, schedule); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist committed schedule")
		}
		s.cache.Invalidate(ctx, schedule.TermID)
		s.cache.Set(ctx, schedule)
		if s.onCommit != nil {
			s.onCommit(schedule.TermID)
		}
	}

	slots := make(map[string]models.TimeSlot, len(model.Slots))
	for id, slot := range model.Slots {
		slots[id] = *slot
	}

	return &dto.SolveResponse{
		TermID:      result.TermID,
		Committed:   commit,
		Assignments: dto.NewAssignmentViews(result.Assignments, slots),
		Unassigned:  dto.NewUnassignedViews(result.Unassigned),
		Stats: dto.SolveStats{
			Seeded:           result.Stats.Seeded,
			Repaired:         result.Stats.Repaired,
			RepairIterations: result.Stats.RepairIterations,
			SoftPenalty:      result.Stats.SoftPenalty,
			ElapsedMillis:    result.Stats.Elapsed.Milliseconds(),
		},
	}, nil
}
