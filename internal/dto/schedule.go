package dto

import "github.com/noah-isme/therapy-center-api/internal/models"

// CreateScheduleRequest describes the payload for creating a teacher's day schedule.
type CreateScheduleRequest struct {
	TeacherID     string            `json:"teacher_id" validate:"required"`
	Date          string            `json:"date" validate:"required,datetime=2006-01-02"`
	Slots         []models.TimeSlot `json:"slots" validate:"omitempty,dive"`
	IsHoliday     bool              `json:"is_holiday"`
	HolidayReason string            `json:"holiday_reason"`
}

// UpdateScheduleRequest carries the fields to change. A non-nil Slots replaces
// the whole slot list.
type UpdateScheduleRequest struct {
	Date          *string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Slots         []models.TimeSlot `json:"slots" validate:"omitempty,dive"`
	IsHoliday     *bool             `json:"is_holiday"`
	HolidayReason *string           `json:"holiday_reason"`
}

// ScheduleQuery binds list filters from the query string.
type ScheduleQuery struct {
	TeacherID string `form:"teacher_id"`
	From      string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}
