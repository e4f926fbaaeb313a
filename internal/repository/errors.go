package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"

	scheduleTeacherDateConstraint = "schedules_teacher_date_key"
	sessionOverlapConstraint      = "therapy_sessions_no_overlap"
)

var (
	// ErrDuplicateSchedule is returned when a teacher already has a schedule for the date.
	ErrDuplicateSchedule = errors.New("schedule already exists for teacher and date")
	// ErrSessionOverlap is returned when the storage layer rejects an overlapping booking.
	ErrSessionOverlap = errors.New("therapist already has a scheduled session in this window")
	// ErrStaleSession is returned when a session changed after the caller read it.
	ErrStaleSession = errors.New("therapy session was modified since it was read")
)

// translate maps constraint violations onto the repository sentinels.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		if pqErr.Constraint == scheduleTeacherDateConstraint {
			return ErrDuplicateSchedule
		}
	case pqExclusionViolation:
		if pqErr.Constraint == "" || pqErr.Constraint == sessionOverlapConstraint {
			return ErrSessionOverlap
		}
	}
	return err
}
