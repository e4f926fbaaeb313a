package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/therapy-center-api/internal/models"
)

const sessionColumns = "id, student_id, therapist_id, date_time, duration_minutes, ends_at, session_type, status, notes, progress, created_at, updated_at"

// TherapySessionRepository persists therapy bookings.
type TherapySessionRepository struct {
	db *sqlx.DB
}

// NewTherapySessionRepository creates a new session repository.
func NewTherapySessionRepository(db *sqlx.DB) *TherapySessionRepository {
	return &TherapySessionRepository{db: db}
}

// FindByID loads a session by id.
func (r *TherapySessionRepository) FindByID(ctx context.Context, id string) (*models.TherapySession, error) {
	query := fmt.Sprintf("SELECT %s FROM therapy_sessions WHERE id = $1", sessionColumns)
	var session models.TherapySession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListScheduledByTherapist returns every session of the therapist that still occupies the calendar.
func (r *TherapySessionRepository) ListScheduledByTherapist(ctx context.Context, therapistID string) ([]models.TherapySession, error) {
	query := fmt.Sprintf("SELECT %s FROM therapy_sessions WHERE therapist_id = $1 AND status = $2 ORDER BY date_time ASC", sessionColumns)
	var sessions []models.TherapySession
	if err := r.db.SelectContext(ctx, &sessions, query, therapistID, models.SessionScheduled); err != nil {
		return nil, fmt.Errorf("list scheduled sessions: %w", err)
	}
	return sessions, nil
}

// ListUpcoming returns scheduled sessions starting at or after from.
func (r *TherapySessionRepository) ListUpcoming(ctx context.Context, therapistID string, from time.Time, limit int) ([]models.TherapySession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args := []interface{}{models.SessionScheduled, from}
	query := fmt.Sprintf("SELECT %s FROM therapy_sessions WHERE status = $1 AND date_time >= $2", sessionColumns)
	if therapistID != "" {
		query += " AND therapist_id = $3"
		args = append(args, therapistID)
	}
	query += fmt.Sprintf(" ORDER BY date_time ASC LIMIT %d", limit)

	var sessions []models.TherapySession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}
	return sessions, nil
}

// List returns sessions with optional filtering and pagination.
func (r *TherapySessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.TherapySession, int, error) {
	base, args := sessionFilterClause(filter)
	page, size := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date_time ASC LIMIT %d OFFSET %d", sessionColumns, base, size, offset)
	var sessions []models.TherapySession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// ListAll returns up to limit sessions matching filter without paging, for exports.
func (r *TherapySessionRepository) ListAll(ctx context.Context, filter models.SessionFilter, limit int) ([]models.TherapySession, error) {
	base, args := sessionFilterClause(filter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY date_time ASC LIMIT %d", sessionColumns, base, limit)
	var sessions []models.TherapySession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions for export: %w", err)
	}
	return sessions, nil
}

func sessionFilterClause(filter models.SessionFilter) (string, []interface{}) {
	base := "FROM therapy_sessions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TherapistID != "" {
		conditions = append(conditions, fmt.Sprintf("therapist_id = $%d", len(args)+1))
		args = append(args, filter.TherapistID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date_time >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date_time <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	return base, args
}

// Create stores a new session.
func (r *TherapySessionRepository) Create(ctx context.Context, session *models.TherapySession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Status == "" {
		session.Status = models.SessionScheduled
	}
	session.EndsAt = session.End()

	const query = `INSERT INTO therapy_sessions (id, student_id, therapist_id, date_time, duration_minutes, ends_at, session_type, status, notes, progress, created_at, updated_at) VALUES (:id, :student_id, :therapist_id, :date_time, :duration_minutes, :ends_at, :session_type, :status, :notes, :progress, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create therapy session: %w", translate(err))
	}
	return nil
}

// Update saves every mutable field of a session. The write only applies when
// the row still carries prevUpdatedAt, otherwise ErrStaleSession is returned.
func (r *TherapySessionRepository) Update(ctx context.Context, session *models.TherapySession, prevUpdatedAt time.Time) error {
	session.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	session.EndsAt = session.End()
	const query = `UPDATE therapy_sessions SET student_id = :student_id, therapist_id = :therapist_id, date_time = :date_time, duration_minutes = :duration_minutes, ends_at = :ends_at, session_type = :session_type, status = :status, notes = :notes, progress = :progress, updated_at = :updated_at WHERE id = :id AND updated_at = :prev_updated_at`
	arg := struct {
		*models.TherapySession
		PrevUpdatedAt time.Time `db:"prev_updated_at"`
	}{session, prevUpdatedAt}
	res, err := r.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("update therapy session: %w", translate(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update therapy session: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM therapy_sessions WHERE id = $1)`, session.ID); err != nil {
		return fmt.Errorf("update therapy session: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return ErrStaleSession
}

// UpdateStatus changes only the status column, used for soft cancellation.
func (r *TherapySessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE therapy_sessions SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC().Truncate(time.Microsecond), id)
	if err != nil {
		return fmt.Errorf("update therapy session status: %w", translate(err))
	}
	return expectAffected(res)
}
