package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCatalogRepositoryLoadSnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery("SELECT id, full_name, qualifications, max_weekly_minutes").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "qualifications", "max_weekly_minutes", "preferred_day_part"}).
			AddRow("t-1", "Asha Verma", pq.StringArray{"MATH"}, 1200, "MORNING"))
	mock.ExpectQuery("SELECT teacher_id, slot_id FROM teacher_unavailability").
		WithArgs(pq.Array([]string{"t-1"})).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "slot_id"}).
			AddRow("t-1", "fri-14"))
	mock.ExpectQuery("SELECT id, name, capacity, lab, distance_zone FROM rooms").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "lab", "distance_zone"}).
			AddRow("r-1", "Room 101", 32, false, 1))
	mock.ExpectQuery("SELECT id, day_of_week, start_minute, end_minute").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "day_of_week", "start_minute", "end_minute", "day_type"}).
			AddRow("mon-9", 1, 540, 600, ""))
	mock.ExpectQuery("SELECT id, name, required_qualifications, requires_lab FROM courses").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "required_qualifications", "requires_lab"}).
			AddRow("c-1", "Algebra", pq.StringArray{"MATH"}, false))
	mock.ExpectQuery("FROM sections s JOIN courses c").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "required_qualifications", "capacity", "requires_lab", "teacher_id", "room_id", "slot_id"}).
			AddRow("sec-1", "c-1", pq.StringArray{"MATH"}, 30, false, "", "", ""))
	mock.ExpectQuery("FROM fixed_assignments").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "teacher_id", "room_id", "slot_id"}))

	snapshot, err := repo.LoadSnapshot(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Teachers, 1)
	assert.Equal(t, []string{"fri-14"}, snapshot.Teachers[0].UnavailableSlots)
	assert.Len(t, snapshot.Rooms, 1)
	assert.Len(t, snapshot.Slots, 1)
	assert.Len(t, snapshot.Sections, 1)
	assert.Equal(t, pq.StringArray{"MATH"}, snapshot.Sections[0].RequiredQualifications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryLoadSnapshotEmptyCatalog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery("SELECT id, full_name, qualifications, max_weekly_minutes").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "qualifications", "max_weekly_minutes", "preferred_day_part"}))
	mock.ExpectQuery("SELECT id, name, capacity, lab, distance_zone FROM rooms").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "lab", "distance_zone"}))
	mock.ExpectQuery("SELECT id, day_of_week, start_minute, end_minute").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "day_of_week", "start_minute", "end_minute", "day_type"}))
	mock.ExpectQuery("SELECT id, name, required_qualifications, requires_lab FROM courses").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "required_qualifications", "requires_lab"}))
	mock.ExpectQuery("FROM sections s JOIN courses c").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "required_qualifications", "capacity", "requires_lab", "teacher_id", "room_id", "slot_id"}))
	mock.ExpectQuery("FROM fixed_assignments").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "teacher_id", "room_id", "slot_id"}))

	snapshot, err := repo.LoadSnapshot(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Empty(t, snapshot.Teachers)
	assert.Empty(t, snapshot.Sections)
	assert.NoError(t, mock.ExpectationsWereMet())
}
