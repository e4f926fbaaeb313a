package service

import (
	"context"
	"time"

	"github.com/noah-isme/therapy-center-api/internal/models"
	"github.com/noah-isme/therapy-center-api/pkg/timeslot"
)

type scheduledSessionLister interface {
	ListScheduledByTherapist(ctx context.Context, therapistID string) ([]models.TherapySession, error)
}

type scheduleLookup interface {
	FindForTeacherDate(ctx context.Context, teacherID string, date time.Time) (*models.Schedule, error)
}

// ConflictResolver decides whether a therapist can take a session in a time range.
type ConflictResolver struct {
	sessions  scheduledSessionLister
	schedules scheduleLookup
	location  *time.Location
}

// NewConflictResolver builds a resolver reading local dates in loc.
func NewConflictResolver(sessions scheduledSessionLister, schedules scheduleLookup, loc *time.Location) *ConflictResolver {
	if loc == nil {
		loc = time.Local
	}
	return &ConflictResolver{sessions: sessions, schedules: schedules, location: loc}
}

// FindConflict returns the first scheduled session of the therapist that
// overlaps [start, end), ignoring excludeID. Sessions that only touch the
// range at an endpoint do not conflict.
func (r *ConflictResolver) FindConflict(ctx context.Context, therapistID string, start, end time.Time, excludeID string) (*models.TherapySession, error) {
	sessions, err := r.sessions.ListScheduledByTherapist(ctx, therapistID)
	if err != nil {
		return nil, internalError(err, "failed to load therapist sessions")
	}
	for i := range sessions {
		existing := sessions[i]
		if existing.ID == excludeID && excludeID != "" {
			continue
		}
		if existing.Status != models.SessionScheduled {
			continue
		}
		if start.Before(existing.End()) && end.After(existing.DateTime) {
			return &existing, nil
		}
	}
	return nil, nil
}

// HasConflict reports whether the therapist is already booked within [start, end).
func (r *ConflictResolver) HasConflict(ctx context.Context, therapistID string, start, end time.Time, excludeID string) (bool, error) {
	hit, err := r.FindConflict(ctx, therapistID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return hit != nil, nil
}

// CheckAvailability verifies the therapist's schedule for the local date of
// start allows [start, end). A missing schedule leaves the therapist
// unconstrained.
func (r *ConflictResolver) CheckAvailability(ctx context.Context, therapistID string, start, end time.Time) error {
	date := timeslot.CalendarDate(start, r.location)
	schedule, err := r.schedules.FindForTeacherDate(ctx, therapistID, date)
	if err != nil {
		return err
	}
	if schedule == nil {
		return nil
	}
	if schedule.IsHoliday {
		return conflict(models.ConflictHoliday, "Therapist is on holiday that day", "", schedule.ID)
	}

	wanted := timeslot.Interval{
		Start: timeslot.FromTime(start.In(r.location)),
		End:   timeslot.FromTime(end.In(r.location)),
	}
	for _, slot := range schedule.Slots {
		if slot.Activity.Bookable() && timeslot.Covers(slot.Interval(), wanted) {
			return nil
		}
	}
	return conflict(models.ConflictNoSlot, "No available slot in therapist schedule for this time", "", schedule.ID)
}

// Check runs the double-booking check and then the schedule check.
func (r *ConflictResolver) Check(ctx context.Context, therapistID string, start, end time.Time, excludeID string) error {
	hit, err := r.FindConflict(ctx, therapistID, start, end, excludeID)
	if err != nil {
		return err
	}
	if hit != nil {
		return conflict(models.ConflictDoubleBooked, "Therapist has a conflicting session", hit.ID, "")
	}
	return r.CheckAvailability(ctx, therapistID, start, end)
}
