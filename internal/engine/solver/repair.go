package solver

import (
	"context"
	"sort"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/conflict"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// repairAll attempts local repair for every unassigned section. Returns how
// many got placed and how many candidate attempts were spent overall.
func (s *Solver) repairAll(ctx context.Context, st *state, unassigned []string) (repaired, iterations int) {
	sort.Strings(unassigned)
	for _, sectionID := range unassigned {
		section, ok := st.model.Section(sectionID)
		if !ok {
			continue
		}
		budget := s.cfg.RepairIterations
		used, ok := s.repair(ctx, st, section, budget)
		iterations += used
		if ok {
			repaired++
		}
	}
	return repaired, iterations
}

// repair runs a min-conflicts hill climb for one section: try each candidate
// triple, and when a triple is blocked only by a small set of already-placed
// sections, displace them, claim the triple, and greedily re-place the
// displaced. Rolls back completely when the displaced cannot all be
// re-placed. The iteration budget and the context deadline both cap the
// search; on exhaustion the section simply stays unassigned.
func (s *Solver) repair(ctx context.Context, st *state, section *models.Section, budget int) (used int, placed bool) {
	for _, c := range st.enumerate(section) {
		if used >= budget || ctx.Err() != nil {
			return used, false
		}
		used++

		if st.feasible(section, c.teacherID, c.roomID, c.slotID) == blockNone {
			st.place(section.ID, c.assignment())
			return used, true
		}

		blockers := st.conflictingSections(section, c)
		if len(blockers) == 0 || len(blockers) > s.cfg.MaxReassign {
			continue
		}

		displaced := make([]models.Assignment, 0, len(blockers))
		for _, blocker := range blockers {
			if a, ok := st.unplace(blocker); ok {
				displaced = append(displaced, a)
			}
		}

		if st.feasible(section, c.teacherID, c.roomID, c.slotID) != blockNone {
			rollback(st, displaced)
			continue
		}
		st.place(section.ID, c.assignment())

		if s.replaceDisplaced(ctx, st, displaced) {
			return used, true
		}

		st.unplace(section.ID)
		rollback(st, displaced)
	}
	return used, false
}

// replaceDisplaced finds fresh homes for displaced sections without any
// further displacement.
func (s *Solver) replaceDisplaced(ctx context.Context, st *state, displaced []models.Assignment) bool {
	for _, prior := range displaced {
		section, ok := st.model.Section(prior.SectionID)
		if !ok {
			return false
		}
		best, found := s.bestCandidate(ctx, st, section)
		if !found {
			return false
		}
		st.place(section.ID, best.assignment())
	}
	return true
}

func rollback(st *state, displaced []models.Assignment) {
	// Remove anything re-placed during the failed attempt, then restore the
	// original assignments.
	for _, a := range displaced {
		st.unplace(a.SectionID)
	}
	for _, a := range displaced {
		st.place(a.SectionID, a)
	}
}

// conflictingSections lists the assigned sections whose teacher or room
// bookings collide with the candidate triple.
func (st *state) conflictingSections(section *models.Section, c candidate) []string {
	slot, ok := st.model.Slots[c.slotID]
	if !ok {
		return nil
	}
	// Static blocks (teacher unavailability, load ceiling) cannot be fixed
	// by displacing other sections.
	if !st.model.TeacherAvailable(c.teacherID, *slot) {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for busySection, busy := range st.teacherBusy[c.teacherID] {
		if busySection == section.ID {
			continue
		}
		if conflict.Overlaps(*slot, busy) {
			if _, dup := seen[busySection]; !dup {
				seen[busySection] = struct{}{}
				out = append(out, busySection)
			}
		}
	}
	for busySection, busy := range st.roomBusy[c.roomID] {
		if busySection == section.ID {
			continue
		}
		if conflict.Overlaps(*slot, busy) {
			if _, dup := seen[busySection]; !dup {
				seen[busySection] = struct{}{}
				out = append(out, busySection)
			}
		}
	}

	// A fixed commitment never moves.
	for _, fixed := range st.model.Fixed {
		if _, dup := seen[fixed.SectionID]; dup {
			return nil
		}
	}

	sort.Strings(out)
	return out
}
