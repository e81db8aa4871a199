package solver

import (
	"context"
	"sync"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// candidate is one (teacher, room, slot) triple under evaluation. index keeps
// the enumeration order so tie-breaks stay deterministic even when scoring
// runs in parallel.
type candidate struct {
	index     int
	teacherID string
	roomID    string
	slotID    string
	sectionID string
	penalty   float64
}

func (c candidate) assignment() models.Assignment {
	return models.Assignment{
		SectionID: c.sectionID,
		TeacherID: c.teacherID,
		RoomID:    c.roomID,
		SlotID:    c.slotID,
	}
}

func (st *state) enumerate(section *models.Section) []candidate {
	cand := st.model.Candidates[section.ID]
	out := make([]candidate, 0, len(cand.Teachers)*len(cand.Rooms)*len(cand.Slots))
	i := 0
	for _, teacherID := range cand.Teachers {
		for _, roomID := range cand.Rooms {
			for _, slotID := range cand.Slots {
				out = append(out, candidate{
					index:     i,
					teacherID: teacherID,
					roomID:    roomID,
					slotID:    slotID,
					sectionID: section.ID,
				})
				i++
			}
		}
	}
	return out
}

// bestCandidate scores the section's candidate triples and returns the
// hard-feasible one with the lowest soft penalty. Scoring is read-only and
// fans out across workers; the caller owns all mutations.
func (s *Solver) bestCandidate(ctx context.Context, st *state, section *models.Section) (candidate, bool) {
	candidates := st.enumerate(section)
	if len(candidates) == 0 {
		return candidate{}, false
	}

	workers := s.cfg.Parallelism
	if workers > len(candidates) {
		workers = len(candidates)
	}

	results := make([]candidate, 0, len(candidates))
	var mu sync.Mutex
	var wg sync.WaitGroup

	chunk := (len(candidates) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(candidates) {
			hi = len(candidates)
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(part []candidate) {
			defer wg.Done()
			local := make([]candidate, 0, len(part))
			for _, c := range part {
				if ctx.Err() != nil {
					return
				}
				if st.feasible(section, c.teacherID, c.roomID, c.slotID) != blockNone {
					continue
				}
				c.penalty = st.softPenalty(s.cfg, section, c)
				local = append(local, c)
			}
			mu.Lock()
			results = append(results, local...)
			mu.Unlock()
		}(candidates[lo:hi])
	}
	wg.Wait()

	best := candidate{}
	found := false
	for _, c := range results {
		if !found || c.penalty < best.penalty || (c.penalty == best.penalty && c.index < best.index) {
			best = c
			found = true
		}
	}
	return best, found
}

// softPenalty prices the triple against the soft constraints: teacher load
// imbalance, time-of-day preference mismatch, and back-to-back room changes
// beyond the walking threshold.
func (st *state) softPenalty(cfg Config, section *models.Section, c candidate) float64 {
	slot := st.model.Slots[c.slotID]
	teacher := st.model.Teachers[c.teacherID]

	penalty := 0.0

	if teacher.MaxWeeklyMinutes > 0 {
		projected := float64(st.teacherLoad(c.teacherID)+slot.Duration()) / float64(teacher.MaxWeeklyMinutes)
		penalty += cfg.Weights.LoadBalance * projected
	}

	if mismatchesDayPart(teacher.PreferredDayPart, *slot) {
		penalty += cfg.Weights.TimePreference
	}

	penalty += cfg.Weights.RoomChange * float64(st.roomChanges(cfg, c))

	return penalty
}

const noonMinute = 12 * 60

func mismatchesDayPart(preferred string, slot models.TimeSlot) bool {
	switch preferred {
	case models.DayPartMorning:
		return slot.StartMinute >= noonMinute
	case models.DayPartAfternoon:
		return slot.StartMinute < noonMinute
	default:
		return false
	}
}

// roomChanges counts the teacher's existing assignments adjacent in time to
// the candidate slot that sit in a room further away than the walking
// threshold allows.
func (st *state) roomChanges(cfg Config, c candidate) int {
	slot := st.model.Slots[c.slotID]
	room := st.model.Rooms[c.roomID]

	changes := 0
	for sectionID, busy := range st.teacherBusy[c.teacherID] {
		if busy.DayOfWeek != slot.DayOfWeek {
			continue
		}
		if busy.EndMinute != slot.StartMinute && slot.EndMinute != busy.StartMinute {
			continue
		}
		other, ok := st.assignments[sectionID]
		if !ok || other.RoomID == c.roomID {
			continue
		}
		otherRoom := st.model.Rooms[other.RoomID]
		if abs(otherRoom.DistanceZone-room.DistanceZone) > cfg.RoomChangeThreshold {
			changes++
		}
	}
	return changes
}

// totalPenalty sums the soft penalty of the committed assignments, used for
// result stats.
func (st *state) totalPenalty(cfg Config) float64 {
	total := 0.0
	for sectionID, a := range st.assignments {
		section, ok := st.model.Section(sectionID)
		if !ok {
			continue
		}
		c := candidate{teacherID: a.TeacherID, roomID: a.RoomID, slotID: a.SlotID, sectionID: sectionID}
		total += st.softPenalty(cfg, section, c)
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
