package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

func TestScheduleRepositorySave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM schedule_assignments").
		WithArgs("term-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM schedule_unassigned").
		WithArgs("term-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schedule_assignments").
		WithArgs("term-1", "sec-1", "t-1", "r-1", "mon-9", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO schedule_unassigned").
		WithArgs("term-1", "sec-2", "NO_FREE_SLOT", "teacher and room contention", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Save(context.Background(), &models.CommittedSchedule{
		TermID: "term-1",
		Assignments: []models.Assignment{
			{SectionID: "sec-1", TeacherID: "t-1", RoomID: "r-1", SlotID: "mon-9"},
		},
		Unassigned: []models.UnassignedSection{
			{SectionID: "sec-2", Blocked: models.BlockNoFreeSlot, Detail: "teacher and room contention"},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryLoad(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("FROM schedule_assignments").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "teacher_id", "room_id", "slot_id"}).
			AddRow("sec-1", "t-1", "r-1", "mon-9"))
	mock.ExpectQuery("FROM schedule_unassigned").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "blocked_by", "detail"}))

	schedule, err := repo.Load(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, schedule.Assignments, 1)
	assert.Equal(t, "sec-1", schedule.Assignments[0].SectionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryLoadNeverSolved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("FROM schedule_assignments").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "teacher_id", "room_id", "slot_id"}))
	mock.ExpectQuery("FROM schedule_unassigned").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "blocked_by", "detail"}))

	_, err := repo.Load(context.Background(), "term-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
