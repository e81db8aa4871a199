package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// ScheduleRepository persists committed schedules and the per-section
// infeasibility report that accompanies them.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Save replaces the committed schedule for a term in one transaction.
func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.CommittedSchedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save schedule: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_assignments WHERE term_id = $1`, schedule.TermID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_unassigned WHERE term_id = $1`, schedule.TermID); err != nil {
		return fmt.Errorf("clear unassigned report: %w", err)
	}

	now := time.Now().UTC()
	const insertAssignment = `INSERT INTO schedule_assignments (term_id, section_id, teacher_id, room_id, slot_id, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, a := range schedule.Assignments {
		if _, err := tx.ExecContext(ctx, insertAssignment, schedule.TermID, a.SectionID, a.TeacherID, a.RoomID, a.SlotID, now); err != nil {
			return fmt.Errorf("insert assignment %s: %w", a.SectionID, err)
		}
	}

	const insertUnassigned = `INSERT INTO schedule_unassigned (term_id, section_id, blocked_by, detail, reported_at)
		VALUES ($1, $2, $3, $4, $5)`
	for _, u := range schedule.Unassigned {
		if _, err := tx.ExecContext(ctx, insertUnassigned, schedule.TermID, u.SectionID, string(u.Blocked), u.Detail, now); err != nil {
			return fmt.Errorf("insert unassigned %s: %w", u.SectionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save schedule: %w", err)
	}
	return nil
}

// Load returns the committed schedule for a term, or sql.ErrNoRows when the
// term has never been solved.
func (r *ScheduleRepository) Load(ctx context.Context, termID string) (*models.CommittedSchedule, error) {
	schedule := &models.CommittedSchedule{TermID: termID}

	const assignmentQuery = `SELECT section_id, teacher_id, room_id, slot_id
		FROM schedule_assignments WHERE term_id = $1 ORDER BY section_id`
	if err := r.db.SelectContext(ctx, &schedule.Assignments, assignmentQuery, termID); err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}

	const unassignedQuery = `SELECT section_id, blocked_by, COALESCE(detail, '') AS detail
		FROM schedule_unassigned WHERE term_id = $1 ORDER BY section_id`
	if err := r.db.SelectContext(ctx, &schedule.Unassigned, unassignedQuery, termID); err != nil {
		return nil, fmt.Errorf("load unassigned report: %w", err)
	}

	if len(schedule.Assignments) == 0 && len(schedule.Unassigned) == 0 {
		return nil, sql.ErrNoRows
	}
	return schedule, nil
}
