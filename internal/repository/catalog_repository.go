package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// CatalogRepository loads the immutable catalog snapshot a solve pass runs
// against. It only reads; catalog mutation belongs to the upstream admin
// system.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// LoadSnapshot materialises every record a solve for the term may touch:
// teachers with qualifications and unavailability, rooms, slots, courses,
// sections and externally fixed assignments.
func (r *CatalogRepository) LoadSnapshot(ctx context.Context, termID string) (*models.CatalogSnapshot, error) {
	snapshot := &models.CatalogSnapshot{TermID: termID}

	const teacherQuery = `SELECT id, full_name, qualifications, max_weekly_minutes, COALESCE(preferred_day_part, '') AS preferred_day_part
		FROM teachers WHERE active = TRUE ORDER BY id`
	if err := r.db.SelectContext(ctx, &snapshot.Teachers, teacherQuery); err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}
	if err := r.loadUnavailability(ctx, snapshot.Teachers); err != nil {
		return nil, err
	}

	const roomQuery = `SELECT id, name, capacity, lab, distance_zone FROM rooms WHERE active = TRUE ORDER BY id`
	if err := r.db.SelectContext(ctx, &snapshot.Rooms, roomQuery); err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	const slotQuery = `SELECT id, day_of_week, start_minute, end_minute, COALESCE(day_type, '') AS day_type
		FROM time_slots WHERE term_id = $1 ORDER BY day_of_week, start_minute, id`
	if err := r.db.SelectContext(ctx, &snapshot.Slots, slotQuery, termID); err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}

	const courseQuery = `SELECT id, name, required_qualifications, requires_lab FROM courses ORDER BY id`
	if err := r.db.SelectContext(ctx, &snapshot.Courses, courseQuery); err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}

	const sectionQuery = `SELECT s.id, s.course_id, c.required_qualifications, s.capacity, c.requires_lab,
			COALESCE(s.teacher_id, '') AS teacher_id, COALESCE(s.room_id, '') AS room_id, COALESCE(s.slot_id, '') AS slot_id
		FROM sections s JOIN courses c ON c.id = s.course_id
		WHERE s.term_id = $1 ORDER BY s.id`
	if err := r.db.SelectContext(ctx, &snapshot.Sections, sectionQuery, termID); err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}

	const fixedQuery = `SELECT section_id, teacher_id, room_id, slot_id
		FROM fixed_assignments WHERE term_id = $1 ORDER BY section_id`
	if err := r.db.SelectContext(ctx, &snapshot.Fixed, fixedQuery, termID); err != nil {
		return nil, fmt.Errorf("load fixed assignments: %w", err)
	}

	return snapshot, nil
}

func (r *CatalogRepository) loadUnavailability(ctx context.Context, teachers []models.Teacher) error {
	if len(teachers) == 0 {
		return nil
	}
	ids := make([]string, len(teachers))
	for i, t := range teachers {
		ids[i] = t.ID
	}

	const query = `SELECT teacher_id, slot_id FROM teacher_unavailability WHERE teacher_id = ANY($1) ORDER BY teacher_id, slot_id`
	rows := []struct {
		TeacherID string `db:"teacher_id"`
		SlotID    string `db:"slot_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load teacher unavailability: %w", err)
	}

	bySlot := make(map[string][]string, len(teachers))
	for _, row := range rows {
		bySlot[row.TeacherID] = append(bySlot[row.TeacherID], row.SlotID)
	}
	for i := range teachers {
		teachers[i].UnavailableSlots = bySlot[teachers[i].ID]
	}
	return nil
}
