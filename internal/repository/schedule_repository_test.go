package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/therapy-center-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var scheduleRowColumns = []string{"id", "teacher_id", "work_date", "slots", "is_holiday", "holiday_reason", "created_at", "updated_at"}

func TestScheduleRepositoryListFiltersByTeacherAndRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(scheduleRowColumns).
		AddRow("s1", "t1", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), []byte(`[{"start_time":"08:00","end_time":"09:00","activity":"therapy"}]`), false, "", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, work_date, slots, is_holiday, holiday_reason, created_at, updated_at FROM schedules WHERE 1=1 AND teacher_id = $1 AND work_date >= $2 AND work_date <= $3 ORDER BY work_date ASC, teacher_id ASC LIMIT 20 OFFSET 0")).
		WithArgs("t1", "2024-03-01", "2024-03-31").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedules WHERE 1=1 AND teacher_id = $1 AND work_date >= $2 AND work_date <= $3")).
		WithArgs("t1", "2024-03-01", "2024-03-31").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ScheduleFilter{TeacherID: "t1", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.ActivityTherapy, list[0].Slots[0].Activity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByTeacherAndDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	date := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE teacher_id = $1 AND work_date = $2")).
		WithArgs("t1", "2024-03-11").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).
			AddRow("s1", "t1", date.In(time.FixedZone("", 0)), []byte(`[]`), true, "Public holiday", time.Now(), time.Now()))

	sched, err := repo.FindByTeacherAndDate(context.Background(), "t1", date)
	require.NoError(t, err)
	assert.True(t, sched.IsHoliday)
	assert.Equal(t, date, sched.Date)
	assert.NotNil(t, sched.Slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateMapsDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WithArgs(sqlmock.AnyArg(), "t1", "2024-03-11", sqlmock.AnyArg(), false, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "schedules_teacher_date_key"})

	err := repo.Create(context.Background(), &models.Schedule{TeacherID: "t1", Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateSchedule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateSuccess(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WithArgs(sqlmock.AnyArg(), "t1", "2024-03-12", sqlmock.AnyArg(), false, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sched := &models.Schedule{TeacherID: "t1", Date: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(context.Background(), sched))
	assert.NotEmpty(t, sched.ID)
	assert.NotNil(t, sched.Slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateMapsDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET work_date = $1")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "schedules_teacher_date_key"})

	err := repo.Update(context.Background(), &models.Schedule{ID: "s1", TeacherID: "t1", Date: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)})
	assert.ErrorIs(t, err, ErrDuplicateSchedule)
}
