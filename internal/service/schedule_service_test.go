package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/dto"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/config"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
)

type stubCatalog struct {
	snapshot *models.CatalogSnapshot
	err      error
}

func (s *stubCatalog) LoadSnapshot(_ context.Context, _ string) (*models.CatalogSnapshot, error) {
	return s.snapshot, s.err
}

type stubScheduleStore struct {
	saved    *models.CommittedSchedule
	existing *models.CommittedSchedule
	loadErr  error
}

func (s *stubScheduleStore) Save(_ context.Context, schedule *models.CommittedSchedule) error {
	s.saved = schedule
	return nil
}

func (s *stubScheduleStore) Load(_ context.Context, _ string) (*models.CommittedSchedule, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.existing == nil {
		return nil, sql.ErrNoRows
	}
	return s.existing, nil
}

type stubCache struct {
	stored *models.CommittedSchedule
}

func (c *stubCache) Get(_ context.Context, _ string) (*models.CommittedSchedule, error) {
	if c.stored == nil {
		return nil, appErrors.ErrCacheMiss
	}
	return c.stored, nil
}

func (c *stubCache) Set(_ context.Context, schedule *models.CommittedSchedule) { c.stored = schedule }

func (c *stubCache) Invalidate(_ context.Context, _ string) { c.stored = nil }

func smallSnapshot() *models.CatalogSnapshot {
	return &models.CatalogSnapshot{
		TermID: "term-1",
		Teachers: []models.Teacher{
			{ID: "t-1", FullName: "Asha Verma", Qualifications: pq.StringArray{"MATH"}, MaxWeeklyMinutes: 1200},
		},
		Rooms: []models.Room{
			{ID: "r-1", Name: "Room 101", Capacity: 30},
		},
		Slots: []models.TimeSlot{
			{ID: "mon-9", DayOfWeek: 1, StartMinute: 540, EndMinute: 600},
			{ID: "mon-10", DayOfWeek: 1, StartMinute: 600, EndMinute: 660},
		},
		Sections: []models.Section{
			{ID: "sec-1", CourseID: "c-1", RequiredQualifications: pq.StringArray{"MATH"}, Capacity: 25},
		},
	}
}

func TestScheduleServiceSolveCommits(t *testing.T) {
	store := &stubScheduleStore{}
	cache := &stubCache{}
	svc := NewScheduleService(&stubCatalog{snapshot: smallSnapshot()}, store, cache, config.SolverConfig{}, nil, nil)

	resp, err := svc.Solve(context.Background(), dto.SolveRequest{TermID: "term-1", Commit: true})
	require.NoError(t, err)
	assert.True(t, resp.Committed)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, "sec-1", resp.Assignments[0].SectionID)
	assert.NotEmpty(t, resp.Assignments[0].SlotLabel)
	require.NotNil(t, store.saved)
	assert.Equal(t, "term-1", store.saved.TermID)
	assert.NotNil(t, cache.stored, "commit warms the schedule cache")
}

func TestScheduleServiceSolveDryRun(t *testing.T) {
	store := &stubScheduleStore{}
	svc := NewScheduleService(&stubCatalog{snapshot: smallSnapshot()}, store, &stubCache{}, config.SolverConfig{}, nil, nil)

	resp, err := svc.Solve(context.Background(), dto.SolveRequest{TermID: "term-1"})
	require.NoError(t, err)
	assert.False(t, resp.Committed)
	assert.Nil(t, store.saved)
}

func TestScheduleServiceSolveValidation(t *testing.T) {
	svc := NewScheduleService(&stubCatalog{snapshot: smallSnapshot()}, &stubScheduleStore{}, &stubCache{}, config.SolverConfig{}, nil, nil)

	_, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestScheduleServiceSolveSurfacesConfigurationError(t *testing.T) {
	snapshot := smallSnapshot()
	snapshot.Sections[0].RequiredQualifications = pq.StringArray{"SCIENCE"}
	svc := NewScheduleService(&stubCatalog{snapshot: snapshot}, &stubScheduleStore{}, &stubCache{}, config.SolverConfig{}, nil, nil)

	_, err := svc.Solve(context.Background(), dto.SolveRequest{TermID: "term-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConfiguration))
}

func TestScheduleServiceResolveRequiresCommittedSchedule(t *testing.T) {
	svc := NewScheduleService(&stubCatalog{snapshot: smallSnapshot()}, &stubScheduleStore{}, &stubCache{}, config.SolverConfig{}, nil, nil)

	_, err := svc.Resolve(context.Background(), dto.ResolveRequest{TermID: "term-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestScheduleServiceResolveKeepsPriorAssignments(t *testing.T) {
	store := &stubScheduleStore{
		existing: &models.CommittedSchedule{
			TermID: "term-1",
			Assignments: []models.Assignment{
				{SectionID: "sec-1", TeacherID: "t-1", RoomID: "r-1", SlotID: "mon-9"},
			},
		},
	}
	svc := NewScheduleService(&stubCatalog{snapshot: smallSnapshot()}, store, &stubCache{}, config.SolverConfig{}, nil, nil)

	resp, err := svc.Resolve(context.Background(), dto.ResolveRequest{TermID: "term-1"})
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, "mon-9", resp.Assignments[0].SlotID)
}

func TestScheduleServiceGetFallsBackToStore(t *testing.T) {
	store := &stubScheduleStore{
		existing: &models.CommittedSchedule{
			TermID: "term-1",
			Assignments: []models.Assignment{
				{SectionID: "sec-1", TeacherID: "t-1", RoomID: "r-1", SlotID: "mon-9"},
			},
		},
	}
	cache := &stubCache{}
	svc := NewScheduleService(&stubCatalog{snapshot: smallSnapshot()}, store, cache, config.SolverConfig{}, nil, nil)

	resp, err := svc.Get(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.NotNil(t, cache.stored, "store hit populates the cache")
}

func TestScheduleServiceGetUnknownTerm(t *testing.T) {
	svc := NewScheduleService(&stubCatalog{snapshot: smallSnapshot()}, &stubScheduleStore{}, &stubCache{}, config.SolverConfig{}, nil, nil)

	_, err := svc.Get(context.Background(), "term-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleServiceCommitNotifiesListener(t *testing.T) {
	svc := NewScheduleService(&stubCatalog{snapshot: smallSnapshot()}, &stubScheduleStore{}, &stubCache{}, config.SolverConfig{}, nil, nil)
	var notified []string
	svc.OnCommit(func(termID string) { notified = append(notified, termID) })

	_, err := svc.Solve(context.Background(), dto.SolveRequest{TermID: "term-1"})
	require.NoError(t, err)
	assert.Empty(t, notified, "dry run must not notify")

	_, err = svc.Solve(context.Background(), dto.SolveRequest{TermID: "term-1", Commit: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"term-1"}, notified)
}
