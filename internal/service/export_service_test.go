package service

import (
	"context"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
)

func exportFixture() *ExportService {
	snapshot := &models.CatalogSnapshot{
		TermID: "term-1",
		Teachers: []models.Teacher{
			{ID: "t-1", FullName: "Asha Verma", Qualifications: pq.StringArray{"MATH"}},
		},
		Rooms: []models.Room{{ID: "r-1", Name: "Room 101", Capacity: 30}},
		Slots: []models.TimeSlot{{ID: "mon-9", DayOfWeek: 1, StartMinute: 540, EndMinute: 600}},
	}
	schedule := &models.CommittedSchedule{
		TermID: "term-1",
		Assignments: []models.Assignment{
			{SectionID: "sec-1", TeacherID: "t-1", RoomID: "r-1", SlotID: "mon-9"},
		},
		Unassigned: []models.UnassignedSection{
			{SectionID: "sec-2", Blocked: models.BlockNoFreeSlot},
		},
	}
	requests := &stubRequestStore{
		open: []models.EnrollmentRequest{
			{ID: "req-1", StudentID: "stu-1", SectionID: "sec-1", Status: models.RequestStatusApproved},
			{ID: "req-2", StudentID: "stu-2", SectionID: "sec-1", Status: models.RequestStatusWaitlisted, WaitlistPosition: 1},
		},
	}
	return NewExportService(&stubCatalog{snapshot: snapshot}, &stubScheduleStore{existing: schedule}, requests, nil)
}

func TestExportServiceScheduleCSV(t *testing.T) {
	svc := exportFixture()

	file, err := svc.Schedule(context.Background(), "term-1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	body := string(file.Payload)
	assert.Contains(t, body, "Asha Verma")
	assert.Contains(t, body, "MONDAY 09:00-10:00")
	assert.Contains(t, body, "NO_FREE_SLOT")
}

func TestExportServiceRosterPDF(t *testing.T) {
	svc := exportFixture()

	file, err := svc.Roster(context.Background(), "term-1", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.NotEmpty(t, file.Payload)
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := exportFixture()

	_, err := svc.Schedule(context.Background(), "term-1", "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceUnknownTerm(t *testing.T) {
	svc := NewExportService(&stubCatalog{snapshot: &models.CatalogSnapshot{}}, &stubScheduleStore{}, &stubRequestStore{}, nil)

	_, err := svc.Schedule(context.Background(), "term-1", FormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
