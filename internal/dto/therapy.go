package dto

import (
	"time"

	"github.com/noah-isme/therapy-center-api/internal/models"
)

// CreateSessionRequest books a therapy session.
type CreateSessionRequest struct {
	StudentID   string               `json:"student_id" validate:"required"`
	TherapistID string               `json:"therapist_id" validate:"required"`
	DateTime    *time.Time           `json:"date_time" validate:"required"`
	Duration    int                  `json:"duration" validate:"required,gt=0,max=1440"`
	Type        string               `json:"type"`
	Notes       *models.SessionNotes `json:"notes"`
}

// UpdateSessionRequest applies a partial update to a session.
type UpdateSessionRequest struct {
	StudentID   *string                 `json:"student_id" validate:"omitempty,min=1"`
	TherapistID *string                 `json:"therapist_id" validate:"omitempty,min=1"`
	DateTime    *time.Time              `json:"date_time"`
	Duration    *int                    `json:"duration" validate:"omitempty,gt=0,max=1440"`
	Type        *string                 `json:"type"`
	Status      *models.SessionStatus   `json:"status" validate:"omitempty,oneof=scheduled completed cancelled no_show"`
	Notes       *models.SessionNotes    `json:"notes"`
	Progress    *models.SessionProgress `json:"progress"`
}

// SessionQuery binds list and export filters from the query string.
type SessionQuery struct {
	TherapistID string `form:"therapist_id"`
	StudentID   string `form:"student_id"`
	Status      string `form:"status" validate:"omitempty,oneof=scheduled completed cancelled no_show"`
	From        string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	Format      string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
