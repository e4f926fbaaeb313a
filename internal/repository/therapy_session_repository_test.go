package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/therapy-center-api/internal/models"
)

var sessionRowColumns = []string{"id", "student_id", "therapist_id", "date_time", "duration_minutes", "ends_at", "session_type", "status", "notes", "progress", "created_at", "updated_at"}

func TestTherapySessionRepositoryListScheduledByTherapist(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTherapySessionRepository(db)

	start := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(sessionRowColumns).
		AddRow("ts1", "st1", "t1", start, 60, start.Add(time.Hour), "speech", "scheduled", []byte(`{"before":"warm up"}`), nil, time.Now(), time.Now()).
		AddRow("ts2", "st2", "t1", start.Add(2*time.Hour), 30, start.Add(150*time.Minute), "", "scheduled", []byte(`{}`), []byte(`{"rating":5}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM therapy_sessions WHERE therapist_id = $1 AND status = $2 ORDER BY date_time ASC")).
		WithArgs("t1", "scheduled").
		WillReturnRows(rows)

	sessions, err := repo.ListScheduledByTherapist(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "warm up", sessions[0].Notes.Before)
	assert.Nil(t, sessions[0].Progress)
	require.NotNil(t, sessions[1].Progress)
	assert.Equal(t, 5, sessions[1].Progress.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapySessionRepositoryCreateMapsExclusionViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTherapySessionRepository(db)

	mock.ExpectExec("INSERT INTO therapy_sessions").
		WillReturnError(&pq.Error{Code: "23P01", Constraint: "therapy_sessions_no_overlap"})

	err := repo.Create(context.Background(), &models.TherapySession{
		StudentID:   "st1",
		TherapistID: "t1",
		DateTime:    time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC),
		Duration:    60,
	})
	assert.ErrorIs(t, err, ErrSessionOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapySessionRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTherapySessionRepository(db)

	mock.ExpectExec("INSERT INTO therapy_sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.TherapySession{StudentID: "st1", TherapistID: "t1", DateTime: time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC), Duration: 45}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionScheduled, session.Status)
	assert.Equal(t, session.DateTime.Add(45*time.Minute), session.EndsAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapySessionRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTherapySessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE therapy_sessions SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("cancelled", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.SessionCancelled)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func updateArgs(id string, prev time.Time) []driver.Value {
	args := make([]driver.Value, 0, 12)
	for i := 0; i < 10; i++ {
		args = append(args, sqlmock.AnyArg())
	}
	return append(args, id, prev)
}

func TestTherapySessionRepositoryUpdateGuardsUpdatedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTherapySessionRepository(db)

	prev := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	session := &models.TherapySession{ID: "a", StudentID: "st1", TherapistID: "t1", DateTime: time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC), Duration: 60, Status: models.SessionScheduled, UpdatedAt: prev}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND updated_at = ?")).
		WithArgs(updateArgs("a", prev)...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), session, prev))
	assert.True(t, session.UpdatedAt.After(prev))
	assert.Equal(t, session.DateTime.Add(time.Hour), session.EndsAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapySessionRepositoryUpdateStaleAndMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTherapySessionRepository(db)

	prev := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	exists := regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM therapy_sessions WHERE id = $1)")

	mock.ExpectExec("UPDATE therapy_sessions SET").
		WithArgs(updateArgs("a", prev)...).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Update(context.Background(), &models.TherapySession{ID: "a", Duration: 30}, prev)
	assert.ErrorIs(t, err, ErrStaleSession)

	mock.ExpectExec("UPDATE therapy_sessions SET").
		WithArgs(updateArgs("missing", prev)...).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err = repo.Update(context.Background(), &models.TherapySession{ID: "missing", Duration: 30}, prev)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapySessionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTherapySessionRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM therapy_sessions WHERE 1=1 AND therapist_id = $1 AND student_id = $2 AND date_time >= $3 ORDER BY date_time ASC LIMIT 20 OFFSET 0")).
		WithArgs("t1", "st1", from).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM therapy_sessions WHERE 1=1 AND therapist_id = $1 AND student_id = $2 AND date_time >= $3")).
		WithArgs("t1", "st1", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{TherapistID: "t1", StudentID: "st1", From: &from})
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAndStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "specialization", "email", "phone", "active", "created_at", "updated_at"}).
			AddRow("t1", "Ms. Rivera", "speech", "rivera@example.com", "", true, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1")).
		WithArgs("st1").
		WillReturnError(sql.ErrNoRows)

	teacher, err := NewTeacherRepository(db).FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, teacher.Active)

	_, err = NewStudentRepository(db).FindByID(context.Background(), "st1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
