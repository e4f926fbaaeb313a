package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SessionStatus tracks the lifecycle of a therapy session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionNoShow    SessionStatus = "no_show"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionCompleted, SessionCancelled, SessionNoShow:
		return true
	}
	return false
}

// SessionNotes captures the therapist's free text around a session.
type SessionNotes struct {
	Before   string `json:"before,omitempty"`
	During   string `json:"during,omitempty"`
	FollowUp string `json:"follow_up,omitempty"`
}

// Value implements driver.Valuer.
func (n SessionNotes) Value() (driver.Value, error) {
	return json.Marshal(n)
}

// Scan implements sql.Scanner.
func (n *SessionNotes) Scan(src interface{}) error {
	return scanJSON(src, n, "session notes")
}

// SessionProgress is the therapist's assessment after a session.
type SessionProgress struct {
	Rating   int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comments string `json:"comments,omitempty"`
}

// Value implements driver.Valuer.
func (p SessionProgress) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *SessionProgress) Scan(src interface{}) error {
	return scanJSON(src, p, "session progress")
}

func scanJSON(src interface{}, dest interface{}, label string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if err := json.Unmarshal(v, dest); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		return nil
	case string:
		if err := json.Unmarshal([]byte(v), dest); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		return nil
	default:
		return errors.New(label + ": unsupported source type")
	}
}

// TherapySession is a booked appointment between a student and a therapist.
type TherapySession struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	TherapistID string           `db:"therapist_id" json:"therapist_id"`
	DateTime    time.Time        `db:"date_time" json:"date_time"`
	Duration    int              `db:"duration_minutes" json:"duration"`
	EndsAt      time.Time        `db:"ends_at" json:"ends_at"`
	Type        string           `db:"session_type" json:"type,omitempty"`
	Status      SessionStatus    `db:"status" json:"status"`
	Notes       SessionNotes     `db:"notes" json:"notes"`
	Progress    *SessionProgress `db:"progress" json:"progress,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// End is the instant the session finishes.
func (s TherapySession) End() time.Time {
	return s.DateTime.Add(time.Duration(s.Duration) * time.Minute)
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	TherapistID string
	StudentID   string
	Status      SessionStatus
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}
