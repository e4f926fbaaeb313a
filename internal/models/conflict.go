package models

// ConflictReason lets clients branch on why a request was rejected as a conflict.
type ConflictReason string

const (
	ConflictDuplicateSchedule ConflictReason = "DUPLICATE_SCHEDULE"
	ConflictOverlappingSlots  ConflictReason = "OVERLAPPING_SLOTS"
	ConflictDoubleBooked      ConflictReason = "THERAPIST_DOUBLE_BOOKED"
	ConflictHoliday           ConflictReason = "THERAPIST_ON_HOLIDAY"
	ConflictNoSlot            ConflictReason = "NO_AVAILABLE_SLOT"
	ConflictStaleSession      ConflictReason = "SESSION_MODIFIED"
)

// ConflictDetail is returned in the error details of a 409 response.
type ConflictDetail struct {
	Reason     ConflictReason `json:"reason"`
	Message    string         `json:"message"`
	SessionID  string         `json:"session_id,omitempty"`
	ScheduleID string         `json:"schedule_id,omitempty"`
}

// ConflictError wraps a ConflictDetail as an error.
type ConflictError struct {
	Detail ConflictDetail
}

// Error implements the error interface for conflict errors.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Detail.Message
}
