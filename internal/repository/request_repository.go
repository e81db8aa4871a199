package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// RequestRepository persists enrollment requests and allocator decisions.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs a RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a pending request.
func (r *RequestRepository) Create(ctx context.Context, req *models.EnrollmentRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Status = models.RequestStatusPending

	const query = `INSERT INTO enrollment_requests (id, student_id, section_id, preference_rank, priority_score, created_at, status)
		VALUES (:id, :student_id, :section_id, :preference_rank, :priority_score, :created_at, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create enrollment request: %w", err)
	}
	return nil
}

// FindByID fetches one request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	const query = `SELECT id, student_id, section_id, preference_rank, priority_score, created_at, status,
			COALESCE(reason, '') AS reason, COALESCE(waitlist_position, 0) AS waitlist_position
		FROM enrollment_requests WHERE id = $1`
	var req models.EnrollmentRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListOpen returns every non-terminal request for a term, ordered for
// deterministic ledger rebuilds.
func (r *RequestRepository) ListOpen(ctx context.Context, termID string) ([]models.EnrollmentRequest, error) {
	const query = `SELECT er.id, er.student_id, er.section_id, er.preference_rank, er.priority_score, er.created_at, er.status,
			COALESCE(er.reason, '') AS reason, COALESCE(er.waitlist_position, 0) AS waitlist_position
		FROM enrollment_requests er
		JOIN sections s ON s.id = er.section_id
		WHERE s.term_id = $1 AND er.status IN ('PENDING', 'APPROVED', 'WAITLISTED')
		ORDER BY er.created_at, er.id`
	var requests []models.EnrollmentRequest
	if err := r.db.SelectContext(ctx, &requests, query, termID); err != nil {
		return nil, fmt.Errorf("list open requests: %w", err)
	}
	return requests, nil
}

// ApplyDecisions writes a batch of allocator state transitions in one
// transaction, so a crashed pass never leaves a half-applied roster.
func (r *RequestRepository) ApplyDecisions(ctx context.Context, decisions []models.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply decisions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	const update = `UPDATE enrollment_requests SET status = $2, reason = NULLIF($3, ''), waitlist_position = NULLIF($4, 0), decided_at = $5 WHERE id = $1`
	const insertDecision = `INSERT INTO enrollment_decisions (request_id, student_id, section_id, status, reason, position, promoted_from, decided_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, 0), NULLIF($7, 0), $8)`

	for _, d := range decisions {
		if _, err := tx.ExecContext(ctx, update, d.RequestID, string(d.Status), string(d.Reason), d.Position, now); err != nil {
			return fmt.Errorf("update request %s: %w", d.RequestID, err)
		}
		if _, err := tx.ExecContext(ctx, insertDecision, d.RequestID, d.StudentID, d.SectionID, string(d.Status), string(d.Reason), d.Position, d.PromotedFrom, now); err != nil {
			return fmt.Errorf("record decision %s: %w", d.RequestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply decisions: %w", err)
	}
	return nil
}

// Waitlist returns the stored waitlist for a section in promotion order.
func (r *RequestRepository) Waitlist(ctx context.Context, sectionID string) ([]models.WaitlistEntry, error) {
	const query = `SELECT id AS request_id, student_id, section_id, waitlist_position AS position, priority_score, created_at
		FROM enrollment_requests
		WHERE section_id = $1 AND status = 'WAITLISTED'
		ORDER BY waitlist_position`
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, sectionID); err != nil {
		return nil, fmt.Errorf("load waitlist: %w", err)
	}
	return entries, nil
}
