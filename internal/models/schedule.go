package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/therapy-center-api/pkg/timeslot"
)

// SlotActivity tags what a teacher does during a slot.
type SlotActivity string

const (
	ActivityClass   SlotActivity = "class"
	ActivityTherapy SlotActivity = "therapy"
	ActivityBreak   SlotActivity = "break"
	ActivityMeeting SlotActivity = "meeting"
	ActivityOther   SlotActivity = "other"
)

// Valid reports whether a is a known activity.
func (a SlotActivity) Valid() bool {
	switch a {
	case ActivityClass, ActivityTherapy, ActivityBreak, ActivityMeeting, ActivityOther:
		return true
	}
	return false
}

// Bookable reports whether a therapy session may be placed inside a slot of this activity.
func (a SlotActivity) Bookable() bool {
	switch a {
	case ActivityTherapy, ActivityOther, ActivityClass:
		return true
	}
	return false
}

// SlotRefKind names the entity a slot points at.
type SlotRefKind string

const (
	SlotRefClass          SlotRefKind = "Class"
	SlotRefTherapySession SlotRefKind = "TherapySession"
)

// SlotReference is a weak pointer from a slot to the class or session it hosts.
type SlotReference struct {
	Kind SlotRefKind `json:"kind" validate:"required"`
	ID   string      `json:"id" validate:"required"`
}

// Validate checks the reference kind and id.
func (r SlotReference) Validate() error {
	switch r.Kind {
	case SlotRefClass, SlotRefTherapySession:
		if r.ID == "" {
			return fmt.Errorf("%s reference requires an id", r.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown reference kind %q", r.Kind)
	}
}

// TimeSlot is one activity block inside a schedule.
type TimeSlot struct {
	StartTime string         `json:"start_time" validate:"required,hhmm"`
	EndTime   string         `json:"end_time" validate:"required,hhmm"`
	Activity  SlotActivity   `json:"activity" validate:"required"`
	RelatedTo *SlotReference `json:"related_to,omitempty"`
	Notes     string         `json:"notes,omitempty"`
}

// Interval returns the slot bounds.
func (s TimeSlot) Interval() timeslot.Interval {
	return timeslot.Interval{Start: s.StartTime, End: s.EndTime}
}

// TimeSlots is stored as a JSONB array preserving order.
type TimeSlots []TimeSlot

// Intervals returns the bounds of every slot in order.
func (s TimeSlots) Intervals() []timeslot.Interval {
	out := make([]timeslot.Interval, len(s))
	for i, slot := range s {
		out[i] = slot.Interval()
	}
	return out
}

// Value implements driver.Valuer.
func (s TimeSlots) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *TimeSlots) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = TimeSlots{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("time slots: unsupported source type")
	}
	var slots TimeSlots
	if err := json.Unmarshal(raw, &slots); err != nil {
		return fmt.Errorf("time slots: %w", err)
	}
	*s = slots
	return nil
}

// Schedule is one teacher's availability record for one calendar date.
type Schedule struct {
	ID            string    `db:"id" json:"id"`
	TeacherID     string    `db:"teacher_id" json:"teacher_id"`
	Date          time.Time `db:"work_date" json:"-"`
	Slots         TimeSlots `db:"slots" json:"slots"`
	IsHoliday     bool      `db:"is_holiday" json:"is_holiday"`
	HolidayReason string    `db:"holiday_reason" json:"holiday_reason,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type scheduleJSON struct {
	scheduleAlias
	Date string `json:"date"`
}

type scheduleAlias Schedule

// MarshalJSON renders the date as YYYY-MM-DD.
func (s Schedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(scheduleJSON{scheduleAlias: scheduleAlias(s), Date: s.Date.Format(timeslot.DateLayout)})
}

// UnmarshalJSON accepts the format produced by MarshalJSON.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var payload scheduleJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*s = Schedule(payload.scheduleAlias)
	if payload.Date != "" {
		date, err := timeslot.ParseDate(payload.Date)
		if err != nil {
			return fmt.Errorf("schedule date: %w", err)
		}
		s.Date = date
	}
	return nil
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	TeacherID string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
