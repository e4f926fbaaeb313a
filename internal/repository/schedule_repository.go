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
	"github.com/noah-isme/therapy-center-api/pkg/timeslot"
)

const scheduleColumns = "id, teacher_id, work_date, slots, is_holiday, holiday_reason, created_at, updated_at"

// ScheduleRepository provides persistence for teacher day schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("work_date >= $%d", len(args)+1))
		args = append(args, filter.From.Format(timeslot.DateLayout))
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("work_date <= $%d", len(args)+1))
		args = append(args, filter.To.Format(timeslot.DateLayout))
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY work_date ASC, teacher_id ASC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	for i := range schedules {
		normaliseSchedule(&schedules[i])
	}
	return schedules, total, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	normaliseSchedule(&sched)
	return &sched, nil
}

// FindByTeacherAndDate loads the schedule a teacher has for a calendar date.
func (r *ScheduleRepository) FindByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE teacher_id = $1 AND work_date = $2", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, teacherID, date.Format(timeslot.DateLayout)); err != nil {
		return nil, err
	}
	normaliseSchedule(&sched)
	return &sched, nil
}

// Create stores a new schedule record.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	if schedule.Slots == nil {
		schedule.Slots = models.TimeSlots{}
	}

	const query = `INSERT INTO schedules (id, teacher_id, work_date, slots, is_holiday, holiday_reason, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.TeacherID,
		schedule.Date.Format(timeslot.DateLayout),
		schedule.Slots,
		schedule.IsHoliday,
		schedule.HolidayReason,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create schedule: %w", translate(err))
	}
	return nil
}

// Update replaces the mutable fields of a schedule.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	if schedule.Slots == nil {
		schedule.Slots = models.TimeSlots{}
	}
	const query = `UPDATE schedules SET work_date = $1, slots = $2, is_holiday = $3, holiday_reason = $4, updated_at = $5 WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query,
		schedule.Date.Format(timeslot.DateLayout),
		schedule.Slots,
		schedule.IsHoliday,
		schedule.HolidayReason,
		schedule.UpdatedAt,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", translate(err))
	}
	return expectAffected(res)
}

// Delete removes a schedule by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return expectAffected(res)
}

func normaliseSchedule(s *models.Schedule) {
	s.Date = timeslot.NormaliseDate(s.Date)
	if s.Slots == nil {
		s.Slots = models.TimeSlots{}
	}
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
