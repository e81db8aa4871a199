// Package timetable builds the in-memory constraint model the solver searches:
// sections to be assigned plus their candidate teachers, rooms and slots,
// derived from an immutable catalog snapshot.
package timetable

import (
	"fmt"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/conflict"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
)

// Candidates holds the per-section candidate resource IDs that survive the
// static hard constraints (qualification, lab flag, room capacity). Dynamic
// constraints (double-booking, load) are the solver's concern.
type Candidates struct {
	Teachers []string
	Rooms    []string
	Slots    []string
}

// Tightness is the most-constrained-variable ordering key: the product of
// candidate set sizes. Smaller means tighter.
func (c Candidates) Tightness() int {
	return len(c.Teachers) * len(c.Rooms) * len(c.Slots)
}

// Model is the read-only constraint graph for one solve pass.
type Model struct {
	TermID     string
	Teachers   map[string]*models.Teacher
	Rooms      map[string]*models.Room
	Slots      map[string]*models.TimeSlot
	Sections   []*models.Section
	Fixed      []models.Assignment
	Candidates map[string]Candidates

	// Ordered ID lists preserve catalog order so candidate enumeration, and
	// with it the whole solve, is deterministic.
	teacherOrder []string
	roomOrder    []string
	slotOrder    []string

	// unavailable caches each teacher's blocked slots resolved to TimeSlot
	// records, so feasibility checks never re-resolve IDs.
	unavailable map[string][]models.TimeSlot
}

// Build validates referential integrity and materialises candidate sets.
// A section with an empty candidate axis is a configuration problem the
// solver cannot repair, so Build fails immediately naming the section.
func Build(snapshot *models.CatalogSnapshot) (*Model, error) {
	if snapshot == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "catalog snapshot is required")
	}

	m := &Model{
		TermID:      snapshot.TermID,
		Teachers:    make(map[string]*models.Teacher, len(snapshot.Teachers)),
		Rooms:       make(map[string]*models.Room, len(snapshot.Rooms)),
		Slots:       make(map[string]*models.TimeSlot, len(snapshot.Slots)),
		Sections:    make([]*models.Section, 0, len(snapshot.Sections)),
		Fixed:       snapshot.Fixed,
		Candidates:  make(map[string]Candidates, len(snapshot.Sections)),
		unavailable: make(map[string][]models.TimeSlot, len(snapshot.Teachers)),
	}

	for i := range snapshot.Teachers {
		t := snapshot.Teachers[i]
		m.Teachers[t.ID] = &t
		m.teacherOrder = append(m.teacherOrder, t.ID)
	}
	for i := range snapshot.Rooms {
		r := snapshot.Rooms[i]
		m.Rooms[r.ID] = &r
		m.roomOrder = append(m.roomOrder, r.ID)
	}
	for i := range snapshot.Slots {
		s := snapshot.Slots[i]
		m.Slots[s.ID] = &s
		m.slotOrder = append(m.slotOrder, s.ID)
	}

	for id, teacher := range m.Teachers {
		for _, slotID := range teacher.UnavailableSlots {
			slot, ok := m.Slots[slotID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("teacher %s references unknown slot %s", id, slotID))
			}
			m.unavailable[id] = append(m.unavailable[id], *slot)
		}
	}

	for _, fixed := range m.Fixed {
		if _, ok := m.Slots[fixed.SlotID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("fixed commitment for section %s references unknown slot %s", fixed.SectionID, fixed.SlotID))
		}
	}

	for i := range snapshot.Sections {
		section := snapshot.Sections[i]
		candidates, err := m.buildCandidates(&section)
		if err != nil {
			return nil, err
		}
		m.Sections = append(m.Sections, &section)
		m.Candidates[section.ID] = candidates
	}

	return m, nil
}

func (m *Model) buildCandidates(section *models.Section) (Candidates, error) {
	var c Candidates

	for _, id := range m.teacherOrder {
		if m.Teachers[id].QualifiedFor(section.RequiredQualifications) {
			c.Teachers = append(c.Teachers, id)
		}
	}
	if len(c.Teachers) == 0 {
		return c, appErrors.Clone(appErrors.ErrConfiguration,
			fmt.Sprintf("section %s: no qualified teacher exists in the catalog", section.ID))
	}

	for _, id := range m.roomOrder {
		room := m.Rooms[id]
		if section.RequiresLab && !room.Lab {
			continue
		}
		if room.Capacity < section.Capacity {
			continue
		}
		c.Rooms = append(c.Rooms, id)
	}
	if len(c.Rooms) == 0 {
		return c, appErrors.Clone(appErrors.ErrConfiguration,
			fmt.Sprintf("section %s: no compatible room exists in the catalog", section.ID))
	}

	// A slot is a candidate when at least one candidate teacher is available
	// for it. Contention with other sections is left to the solver.
	for _, id := range m.slotOrder {
		slot := m.Slots[id]
		for _, teacherID := range c.Teachers {
			if !conflict.OverlapsAny(*slot, m.unavailable[teacherID]) {
				c.Slots = append(c.Slots, id)
				break
			}
		}
	}
	if len(c.Slots) == 0 {
		return c, appErrors.Clone(appErrors.ErrConfiguration,
			fmt.Sprintf("section %s: no time slot is available to any qualified teacher", section.ID))
	}

	return c, nil
}

// TeacherAvailable reports whether the teacher's static availability admits
// the slot.
func (m *Model) TeacherAvailable(teacherID string, slot models.TimeSlot) bool {
	return !conflict.OverlapsAny(slot, m.unavailable[teacherID])
}

// Section returns the section record by ID.
func (m *Model) Section(id string) (*models.Section, bool) {
	for _, s := range m.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}
