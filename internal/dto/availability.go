package dto

import "github.com/noah-isme/therapy-center-api/internal/models"

// AvailabilityWindow is a bookable stretch of a teacher's day.
type AvailabilityWindow struct {
	StartTime string              `json:"start_time"`
	EndTime   string              `json:"end_time"`
	Activity  models.SlotActivity `json:"activity"`
}

// AvailabilityResponse lists where a therapist can still be booked on a date.
type AvailabilityResponse struct {
	TeacherID     string               `json:"teacher_id"`
	Date          string               `json:"date"`
	IsHoliday     bool                 `json:"is_holiday"`
	HolidayReason string               `json:"holiday_reason,omitempty"`
	Unconstrained bool                 `json:"unconstrained"`
	Windows       []AvailabilityWindow `json:"windows"`
	Booked        []AvailabilityWindow `json:"booked"`
}
