package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/conflict"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/engine/timetable"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

func buildModel(t *testing.T, snap *models.CatalogSnapshot) *timetable.Model {
	t.Helper()
	m, err := timetable.Build(snap)
	require.NoError(t, err)
	return m
}

func weekSlots() []models.TimeSlot {
	var slots []models.TimeSlot
	ids := []string{"mon-9", "mon-10", "tue-9", "tue-10", "wed-9"}
	days := []int{1, 1, 2, 2, 3}
	starts := []int{540, 600, 540, 600, 540}
	for i, id := range ids {
		slots = append(slots, models.TimeSlot{
			ID: id, DayOfWeek: days[i], StartMinute: starts[i], EndMinute: starts[i] + 60,
		})
	}
	return slots
}

func baseSnapshot() *models.CatalogSnapshot {
	return &models.CatalogSnapshot{
		TermID: "term-1",
		Teachers: []models.Teacher{
			{ID: "t-1", FullName: "Alpha", Qualifications: []string{"MATH"}, MaxWeeklyMinutes: 600},
			{ID: "t-2", FullName: "Beta", Qualifications: []string{"MATH", "SCIENCE"}, MaxWeeklyMinutes: 600},
		},
		Rooms: []models.Room{
			{ID: "r-1", Name: "101", Capacity: 30},
			{ID: "r-2", Name: "Lab", Capacity: 30, Lab: true},
		},
		Slots: weekSlots(),
		Sections: []models.Section{
			{ID: "sec-a", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 25},
			{ID: "sec-b", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 25},
			{ID: "sec-c", CourseID: "sci", RequiredQualifications: []string{"SCIENCE"}, Capacity: 25, RequiresLab: true},
		},
	}
}

// verifyHardConstraints asserts the exhaustive pairwise invariant: no two
// assigned sections share a teacher or room on overlapping slots, and every
// assignment respects qualification, lab and capacity rules.
func verifyHardConstraints(t *testing.T, m *timetable.Model, result *Result) {
	t.Helper()
	for i, a := range result.Assignments {
		section, ok := m.Section(a.SectionID)
		require.True(t, ok)
		teacher := m.Teachers[a.TeacherID]
		room := m.Rooms[a.RoomID]
		slot := m.Slots[a.SlotID]

		assert.True(t, teacher.QualifiedFor(section.RequiredQualifications),
			"teacher %s not qualified for section %s", a.TeacherID, a.SectionID)
		if section.RequiresLab {
			assert.True(t, room.Lab, "section %s needs a lab", a.SectionID)
		}
		assert.GreaterOrEqual(t, room.Capacity, section.Capacity)
		assert.True(t, m.TeacherAvailable(a.TeacherID, *slot))

		for j, b := range result.Assignments {
			if i == j {
				continue
			}
			other := m.Slots[b.SlotID]
			if conflict.Overlaps(*slot, *other) {
				assert.NotEqual(t, a.TeacherID, b.TeacherID,
					"teacher %s double-booked across %s and %s", a.TeacherID, a.SectionID, b.SectionID)
				assert.NotEqual(t, a.RoomID, b.RoomID,
					"room %s double-booked across %s and %s", a.RoomID, a.SectionID, b.SectionID)
			}
		}
	}
}

func TestSolveAssignsAllSections(t *testing.T) {
	m := buildModel(t, baseSnapshot())
	s := New(Config{})

	result, err := s.Solve(context.Background(), m)
	require.NoError(t, err)

	assert.Len(t, result.Assignments, 3)
	assert.Empty(t, result.Unassigned)
	verifyHardConstraints(t, m, result)
}

func TestSolveIsDeterministic(t *testing.T) {
	s := New(Config{Parallelism: 4})

	first, err := s.Solve(context.Background(), buildModel(t, baseSnapshot()))
	require.NoError(t, err)
	second, err := s.Solve(context.Background(), buildModel(t, baseSnapshot()))
	require.NoError(t, err)

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Unassigned, second.Unassigned)
}

func TestSolveRespectsTeacherWeeklyLoad(t *testing.T) {
	snap := baseSnapshot()
	// One teacher, 120 minutes of capacity, three 60-minute sections.
	snap.Teachers = []models.Teacher{
		{ID: "t-1", FullName: "Alpha", Qualifications: []string{"MATH", "SCIENCE"}, MaxWeeklyMinutes: 120},
	}

	m := buildModel(t, snap)
	result, err := New(Config{}).Solve(context.Background(), m)
	require.NoError(t, err)

	assert.Len(t, result.Assignments, 2)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, models.BlockNoQualifiedTeacher, result.Unassigned[0].Blocked)
	verifyHardConstraints(t, m, result)
}

func TestSolveReportsContentionPerSection(t *testing.T) {
	snap := baseSnapshot()
	// Two sections contending for a single slot, teacher and room.
	snap.Slots = snap.Slots[:1]
	snap.Teachers = snap.Teachers[:1]
	snap.Rooms = snap.Rooms[:1]
	snap.Sections = []models.Section{
		{ID: "sec-a", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 25},
		{ID: "sec-b", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 25},
	}

	m := buildModel(t, snap)
	result, err := New(Config{}).Solve(context.Background(), m)
	require.NoError(t, err)

	assert.Len(t, result.Assignments, 1)
	require.Len(t, result.Unassigned, 1)
	assert.NotEmpty(t, result.Unassigned[0].Blocked)
	assert.NotEmpty(t, result.Unassigned[0].Detail)
}

func TestResolveRepairDisplacesToFit(t *testing.T) {
	snap := &models.CatalogSnapshot{
		TermID: "term-1",
		Teachers: []models.Teacher{
			{ID: "t-math", Qualifications: []string{"MATH"}, MaxWeeklyMinutes: 600},
			{ID: "t-sci", Qualifications: []string{"SCIENCE"}, MaxWeeklyMinutes: 600, UnavailableSlots: []string{"mon-10"}},
		},
		Rooms: []models.Room{{ID: "r-lab", Capacity: 30, Lab: true}},
		Slots: []models.TimeSlot{
			{ID: "mon-9", DayOfWeek: 1, StartMinute: 540, EndMinute: 600},
			{ID: "mon-10", DayOfWeek: 1, StartMinute: 600, EndMinute: 660},
		},
		Sections: []models.Section{
			{ID: "sec-math", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 20},
			{ID: "sec-sci", CourseID: "sci", RequiredQualifications: []string{"SCIENCE"}, Capacity: 20, RequiresLab: true},
		},
	}

	// The committed schedule has sec-math sitting on the only triple the new
	// science section can use; repair must displace it to Monday 10:00.
	prev := &models.CommittedSchedule{
		TermID:      "term-1",
		Assignments: []models.Assignment{{SectionID: "sec-math", TeacherID: "t-math", RoomID: "r-lab", SlotID: "mon-9"}},
	}

	m := buildModel(t, snap)
	result, err := New(Config{}).Resolve(context.Background(), m, prev)
	require.NoError(t, err)

	assert.Len(t, result.Assignments, 2)
	assert.Empty(t, result.Unassigned)
	verifyHardConstraints(t, m, result)

	sci, ok := result.Committed().AssignmentFor("sec-sci")
	require.True(t, ok)
	assert.Equal(t, "mon-9", sci.SlotID)
	math, ok := result.Committed().AssignmentFor("sec-math")
	require.True(t, ok)
	assert.Equal(t, "mon-10", math.SlotID)
}

func TestSolvePrefersTeacherDayPart(t *testing.T) {
	snap := &models.CatalogSnapshot{
		TermID: "term-1",
		Teachers: []models.Teacher{
			{ID: "t-1", Qualifications: []string{"MATH"}, MaxWeeklyMinutes: 600, PreferredDayPart: models.DayPartAfternoon},
		},
		Rooms: []models.Room{{ID: "r-1", Capacity: 30}},
		Slots: []models.TimeSlot{
			{ID: "mon-9", DayOfWeek: 1, StartMinute: 540, EndMinute: 600},
			{ID: "mon-13", DayOfWeek: 1, StartMinute: 780, EndMinute: 840},
		},
		Sections: []models.Section{
			{ID: "sec-a", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 20},
		},
	}

	result, err := New(Config{Weights: Weights{TimePreference: 5}}).Solve(context.Background(), buildModel(t, snap))
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "mon-13", result.Assignments[0].SlotID)
}

func TestResolveKeepsValidAssignments(t *testing.T) {
	m := buildModel(t, baseSnapshot())
	s := New(Config{})

	first, err := s.Solve(context.Background(), m)
	require.NoError(t, err)
	require.Empty(t, first.Unassigned)

	// Same catalog: the incremental pass must change nothing.
	again, err := s.Resolve(context.Background(), buildModel(t, baseSnapshot()), first.Committed())
	require.NoError(t, err)
	assert.ElementsMatch(t, first.Assignments, again.Assignments)
}

func TestResolveRepairsAfterTeacherLeave(t *testing.T) {
	s := New(Config{})
	first, err := s.Solve(context.Background(), buildModel(t, baseSnapshot()))
	require.NoError(t, err)
	require.Empty(t, first.Unassigned)

	// t-1 goes on leave for Monday morning; only assignments that broke get
	// touched.
	snap := baseSnapshot()
	snap.Teachers[0].UnavailableSlots = []string{"mon-9", "mon-10"}
	m := buildModel(t, snap)

	again, err := s.Resolve(context.Background(), m, first.Committed())
	require.NoError(t, err)
	verifyHardConstraints(t, m, again)
	for _, a := range again.Assignments {
		if a.TeacherID != "t-1" {
			continue
		}
		slot := m.Slots[a.SlotID]
		assert.True(t, m.TeacherAvailable("t-1", *slot))
	}
}

func TestSolveHonoursFixedCommitments(t *testing.T) {
	snap := baseSnapshot()
	snap.Sections = snap.Sections[:1]
	// t-1 is externally committed to mon-9 in r-1.
	snap.Fixed = []models.Assignment{{SectionID: "fixed-1", TeacherID: "t-1", RoomID: "r-1", SlotID: "mon-9"}}

	m := buildModel(t, snap)
	result, err := New(Config{}).Solve(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	a := result.Assignments[0]
	if a.TeacherID == "t-1" {
		assert.NotEqual(t, "mon-9", a.SlotID)
	}
	if a.RoomID == "r-1" {
		assert.NotEqual(t, "mon-9", a.SlotID)
	}
}

func TestSolveBudgetExhaustionDegradesToInfeasible(t *testing.T) {
	snap := baseSnapshot()
	snap.Slots = snap.Slots[:1]
	snap.Teachers = snap.Teachers[:1]
	snap.Rooms = snap.Rooms[:1]
	snap.Sections = []models.Section{
		{ID: "sec-a", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 25},
		{ID: "sec-b", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 25},
	}

	// A budget of 1 must still terminate cleanly.
	result, err := New(Config{RepairIterations: 1}).Solve(context.Background(), buildModel(t, snap))
	require.NoError(t, err)
	assert.Len(t, result.Unassigned, 1)
}

func TestBlockingReasonIgnoresFeasibleTriples(t *testing.T) {
	snap := baseSnapshot()
	snap.Teachers = snap.Teachers[:1]
	snap.Rooms = snap.Rooms[:1]
	snap.Sections = []models.Section{
		{ID: "sec-a", CourseID: "math", RequiredQualifications: []string{"MATH"}, Capacity: 25},
	}
	m := buildModel(t, snap)

	// Occupy the teacher at mon-9 only: one triple is teacher-blocked while
	// the rest stay feasible. The report must name the teacher, not the slots.
	st := newState(m)
	st.occupy("sec-other", "t-1", "r-1", *m.Slots["mon-9"])

	section, ok := m.Section("sec-a")
	require.True(t, ok)

	blocked, _ := st.blockingReason(section)
	assert.Equal(t, models.BlockNoQualifiedTeacher, blocked)
}
