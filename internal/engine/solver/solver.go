// Package solver assigns course sections to (teacher, room, time slot)
// triples. Phase one seeds greedily in most-constrained-first order, phase two
// runs a bounded min-conflicts repair for anything the seeding left behind.
// Partial infeasibility is reported as result data, never as an error.
package solver

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/conflict"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/timetable"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// Weights tune the relative cost of soft-constraint violations.
type Weights struct {
	LoadBalance    float64
	TimePreference float64
	RoomChange     float64
}

// Config governs search bounds and scoring.
type Config struct {
	// RepairIterations caps candidate attempts per unassigned section so one
	// intractable section cannot stall the whole solve.
	RepairIterations int
	// MaxReassign bounds how many already-assigned sections one repair
	// attempt may displace.
	MaxReassign int
	// Parallelism is the worker count for read-only candidate scoring.
	Parallelism int
	// RoomChangeThreshold is the distance-zone delta beyond which a
	// back-to-back room change is penalised.
	RoomChangeThreshold int
	Weights             Weights
	Logger              *zap.Logger
}

// Stats summarises one solve pass.
type Stats struct {
	Seeded           int           `json:"seeded"`
	Repaired         int           `json:"repaired"`
	RepairIterations int           `json:"repair_iterations"`
	SoftPenalty      float64       `json:"soft_penalty"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Result lists what was placed and what could not be, with the blocking
// constraint named per unassigned section.
type Result struct {
	TermID      string                     `json:"term_id"`
	Assignments []models.Assignment        `json:"assignments"`
	Unassigned  []models.UnassignedSection `json:"unassigned,omitempty"`
	Stats       Stats                      `json:"stats"`
}

// Committed converts the result into a committed schedule.
func (r *Result) Committed() *models.CommittedSchedule {
	return &models.CommittedSchedule{
		TermID:      r.TermID,
		Assignments: r.Assignments,
		Unassigned:  r.Unassigned,
	}
}

// Solver searches a timetable model for an assignment of every section.
type Solver struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a solver, applying defaults for unset bounds.
func New(cfg Config) *Solver {
	if cfg.RepairIterations <= 0 {
		cfg.RepairIterations = 400
	}
	if cfg.MaxReassign <= 0 {
		cfg.MaxReassign = 3
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if cfg.RoomChangeThreshold <= 0 {
		cfg.RoomChangeThreshold = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Solver{cfg: cfg, logger: cfg.Logger}
}

// Solve runs greedy seeding followed by local repair over the whole model.
func (s *Solver) Solve(ctx context.Context, model *timetable.Model) (*Result, error) {
	start := time.Now()
	st := newState(model)

	ordered := s.orderByTightness(model)

	stats := Stats{}
	var unassigned []string
	for _, section := range ordered {
		if best, ok := s.bestCandidate(ctx, st, section); ok {
			st.place(section.ID, best.assignment())
			stats.Seeded++
			continue
		}
		unassigned = append(unassigned, section.ID)
	}

	repaired, iterations := s.repairAll(ctx, st, unassigned)
	stats.Repaired = repaired
	stats.RepairIterations = iterations

	result := s.collect(st, model, stats, start)
	s.logger.Info("solve finished",
		zap.String("term_id", model.TermID),
		zap.Int("assigned", len(result.Assignments)),
		zap.Int("unassigned", len(result.Unassigned)),
		zap.Duration("elapsed", result.Stats.Elapsed),
	)
	return result, nil
}

// Resolve re-solves incrementally after a single-entity change: the previous
// committed schedule seeds the state, assignments invalidated by the new
// model are dropped, and only the repair phase runs. This bounds disruption
// to already-scheduled sections.
func (s *Solver) Resolve(ctx context.Context, model *timetable.Model, prev *models.CommittedSchedule) (*Result, error) {
	start := time.Now()
	st := newState(model)
	if prev == nil {
		prev = &models.CommittedSchedule{}
	}

	var unassigned []string
	for _, section := range model.Sections {
		prior, ok := prev.AssignmentFor(section.ID)
		if !ok {
			unassigned = append(unassigned, section.ID)
			continue
		}
		if st.feasible(section, prior.TeacherID, prior.RoomID, prior.SlotID) != blockNone {
			unassigned = append(unassigned, section.ID)
			continue
		}
		st.place(section.ID, prior)
	}

	stats := Stats{Seeded: len(st.assignments)}
	repaired, iterations := s.repairAll(ctx, st, unassigned)
	stats.Repaired = repaired
	stats.RepairIterations = iterations

	result := s.collect(st, model, stats, start)
	s.logger.Info("incremental re-solve finished",
		zap.String("term_id", model.TermID),
		zap.Int("kept", stats.Seeded),
		zap.Int("repaired", repaired),
		zap.Int("unassigned", len(result.Unassigned)),
	)
	return result, nil
}

func (s *Solver) orderByTightness(model *timetable.Model) []*models.Section {
	ordered := make([]*models.Section, len(model.Sections))
	copy(ordered, model.Sections)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti := model.Candidates[ordered[i].ID].Tightness()
		tj := model.Candidates[ordered[j].ID].Tightness()
		if ti == tj {
			return ordered[i].ID < ordered[j].ID
		}
		return ti < tj
	})
	return ordered
}

func (s *Solver) collect(st *state, model *timetable.Model, stats Stats, start time.Time) *Result {
	assignments := make([]models.Assignment, 0, len(st.assignments))
	var unassigned []models.UnassignedSection
	for _, section := range model.Sections {
		if a, ok := st.assignments[section.ID]; ok {
			assignments = append(assignments, a)
			continue
		}
		reason, detail := st.blockingReason(section)
		unassigned = append(unassigned, models.UnassignedSection{
			SectionID: section.ID,
			Blocked:   reason,
			Detail:    detail,
		})
	}
	stats.SoftPenalty = st.totalPenalty(s.cfg)
	stats.Elapsed = time.Since(start)
	return &Result{
		TermID:      model.TermID,
		Assignments: assignments,
		Unassigned:  unassigned,
		Stats:       stats,
	}
}

// --- Mutable assignment state ---

// All mutations of state funnel through the solve goroutine; candidate
// scoring only ever reads it.
type state struct {
	model       *timetable.Model
	assignments map[string]models.Assignment
	teacherBusy map[string]map[string]models.TimeSlot
	roomBusy    map[string]map[string]models.TimeSlot
}

func newState(model *timetable.Model) *state {
	st := &state{
		model:       model,
		assignments: make(map[string]models.Assignment),
		teacherBusy: make(map[string]map[string]models.TimeSlot),
		roomBusy:    make(map[string]map[string]models.TimeSlot),
	}
	for _, fixed := range model.Fixed {
		slot := model.Slots[fixed.SlotID]
		st.occupy(fixed.SectionID, fixed.TeacherID, fixed.RoomID, *slot)
	}
	return st
}

func (st *state) occupy(sectionID, teacherID, roomID string, slot models.TimeSlot) {
	if st.teacherBusy[teacherID] == nil {
		st.teacherBusy[teacherID] = make(map[string]models.TimeSlot)
	}
	st.teacherBusy[teacherID][sectionID] = slot
	if st.roomBusy[roomID] == nil {
		st.roomBusy[roomID] = make(map[string]models.TimeSlot)
	}
	st.roomBusy[roomID][sectionID] = slot
}

func (st *state) place(sectionID string, a models.Assignment) {
	slot := st.model.Slots[a.SlotID]
	st.assignments[sectionID] = a
	st.occupy(sectionID, a.TeacherID, a.RoomID, *slot)
}

func (st *state) unplace(sectionID string) (models.Assignment, bool) {
	a, ok := st.assignments[sectionID]
	if !ok {
		return models.Assignment{}, false
	}
	delete(st.assignments, sectionID)
	delete(st.teacherBusy[a.TeacherID], sectionID)
	delete(st.roomBusy[a.RoomID], sectionID)
	return a, true
}

// teacherLoad recomputes the teacher's assigned minutes from live state.
// Deliberately never cached: stale load figures are how double-booked
// teachers happen.
func (st *state) teacherLoad(teacherID string) int {
	total := 0
	for _, slot := range st.teacherBusy[teacherID] {
		total += slot.Duration()
	}
	return total
}

type blockKind int

const (
	blockNone blockKind = iota
	blockTeacher
	blockRoom
	blockSlot
)

// feasible checks every dynamic hard constraint for the triple. Static
// constraints (qualification, lab, room size) are already encoded in the
// candidate sets.
func (st *state) feasible(section *models.Section, teacherID, roomID, slotID string) blockKind {
	slot, ok := st.model.Slots[slotID]
	if !ok {
		return blockSlot
	}
	if !st.model.TeacherAvailable(teacherID, *slot) {
		return blockTeacher
	}
	for busySection, busy := range st.teacherBusy[teacherID] {
		if busySection == section.ID {
			continue
		}
		if conflict.Overlaps(*slot, busy) {
			return blockTeacher
		}
	}
	teacher := st.model.Teachers[teacherID]
	if teacher.MaxWeeklyMinutes > 0 && st.teacherLoad(teacherID)+slot.Duration() > teacher.MaxWeeklyMinutes {
		return blockTeacher
	}
	for busySection, busy := range st.roomBusy[roomID] {
		if busySection == section.ID {
			continue
		}
		if conflict.Overlaps(*slot, busy) {
			return blockRoom
		}
	}
	return blockNone
}

// blockingReason classifies why a section stayed unassigned by tallying the
// first failing constraint across its whole candidate space. Triples that are
// still feasible do not count toward any tally; they mean the repair budget
// ran out, not that a constraint blocks the section.
func (st *state) blockingReason(section *models.Section) (models.BlockingConstraint, string) {
	cand := st.model.Candidates[section.ID]
	var teacherBlocked, roomBlocked, slotBlocked int
	for _, teacherID := range cand.Teachers {
		for _, roomID := range cand.Rooms {
			for _, slotID := range cand.Slots {
				switch st.feasible(section, teacherID, roomID, slotID) {
				case blockTeacher:
					teacherBlocked++
				case blockRoom:
					roomBlocked++
				case blockSlot:
					slotBlocked++
				}
			}
		}
	}
	switch {
	case teacherBlocked > 0 && teacherBlocked >= roomBlocked && teacherBlocked >= slotBlocked:
		return models.BlockNoQualifiedTeacher, "all qualified teachers are booked or at load limit"
	case roomBlocked > 0 && roomBlocked >= slotBlocked:
		return models.BlockNoCompatibleRoom, "all compatible rooms are booked"
	default:
		return models.BlockNoFreeSlot, "no time slot satisfies the remaining constraints"
	}
}
