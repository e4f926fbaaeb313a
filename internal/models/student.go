package models

import "time"

// Student is a child enrolled at the center.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code,omitempty"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
