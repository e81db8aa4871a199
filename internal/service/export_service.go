package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders committed schedules and section rosters as CSV or
// PDF downloads.
type ExportService struct {
	catalog   catalogLoader
	schedules scheduleStore
	requests  requestStore
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(catalog catalogLoader, schedules scheduleStore, requests requestStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		catalog:   catalog,
		schedules: schedules,
		requests:  requests,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// Schedule renders the committed schedule for a term.
func (s *ExportService) Schedule(ctx context.Context, termID, format string) (*ExportFile, error) {
	schedule, snapshot, err := s.load(ctx, termID)
	if err != nil {
		return nil, err
	}

	teachers := make(map[string]string, len(snapshot.Teachers))
	for _, t := range snapshot.Teachers {
		teachers[t.ID] = t.FullName
	}
	rooms := make(map[string]string, len(snapshot.Rooms))
	for _, r := range snapshot.Rooms {
		rooms[r.ID] = r.Name
	}
	slots := make(map[string]models.TimeSlot, len(snapshot.Slots))
	for _, slot := range snapshot.Slots {
		slots[slot.ID] = slot
	}

	rows := make([]map[string]string, 0, len(schedule.Assignments)+len(schedule.Unassigned))
	for _, a := range schedule.Assignments {
		row := map[string]string{
			"Section": a.SectionID,
			"Teacher": teachers[a.TeacherID],
			"Room":    rooms[a.RoomID],
			"Status":  "ASSIGNED",
		}
		if slot, ok := slots[a.SlotID]; ok {
			row["Time"] = slot.Label()
		}
		rows = append(rows, row)
	}
	for _, u := range schedule.Unassigned {
		rows = append(rows, map[string]string{
			"Section": u.SectionID,
			"Status":  string(u.Blocked),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Section", "Teacher", "Room", "Time", "Status"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Schedule %s", termID)
	return s.render(dataset, title, fmt.Sprintf("schedule_%s", termID), format)
}

// Roster renders the approved roster and waitlist for one term's sections.
func (s *ExportService) Roster(ctx context.Context, termID, format string) (*ExportFile, error) {
	if _, _, err := s.load(ctx, termID); err != nil {
		return nil, err
	}
	open, err := s.requests.ListOpen(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load open requests")
	}

	rows := make([]map[string]string, 0, len(open))
	for _, req := range open {
		row := map[string]string{
			"Section": req.SectionID,
			"Student": req.StudentID,
			"Status":  string(req.Status),
		}
		if req.WaitlistPosition > 0 {
			row["Waitlist Position"] = fmt.Sprintf("%d", req.WaitlistPosition)
		}
		rows = append(rows, row)
	}

	dataset := export.Dataset{
		Headers: []string{"Section", "Student", "Status", "Waitlist Position"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Roster %s", termID)
	return s.render(dataset, title, fmt.Sprintf("roster_%s", termID), format)
}

func (s *ExportService) load(ctx context.Context, termID string) (*models.CommittedSchedule, *models.CatalogSnapshot, error) {
	if termID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}
	schedule, err := s.schedules.Load(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "term has no committed schedule")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load committed schedule")
	}
	snapshot, err := s.catalog.LoadSnapshot(ctx, termID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load catalog snapshot")
	}
	return schedule, snapshot, nil
}

func (s *ExportService) render(dataset export.Dataset, title, baseName, format string) (*ExportFile, error) {
	timestamp := time.Now().UTC().Format("20060102_150405")
	switch strings.ToLower(format) {
	case FormatCSV, "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv export")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s_%s.csv", baseName, timestamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case FormatPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf export")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s_%s.pdf", baseName, timestamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
