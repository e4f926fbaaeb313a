package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/therapy-center-api/internal/models"
	appErrors "github.com/noah-isme/therapy-center-api/pkg/errors"
	"github.com/noah-isme/therapy-center-api/pkg/timeslot"
)

const (
	msgMissingFields       = "missing required fields"
	msgInvalidSlotTime     = "invalid time format in slots (expected HH:MM)"
	msgSlotOrder           = "slot start_time must be before end_time"
	msgEmptySlots          = "slots must be a non-empty array"
	msgHolidayReason       = "holiday_reason is required when is_holiday is true"
	msgCrossingMidnight    = "session must not cross midnight"
	msgNonPositiveDuration = "session must end after it starts"
	msgStaleSession        = "therapy session was modified by another request, reload and retry"
)

// NewValidator returns a validator reporting json field names and aware of
// the hhmm tag.
func NewValidator() *validator.Validate {
	return prepareValidator(validator.New())
}

func prepareValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		v = validator.New()
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	// Registering a static function on a fresh validator cannot fail.
	_ = timeslot.RegisterValidation(v)
	return v
}

// validationError converts validator output into the API error shape.
func validationError(err error, fallback string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fallback)
	}

	message := fallback
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fmt.Sprintf("%s failed on %s", fieldPath(fe), fe.Tag()))
		switch fe.Tag() {
		case "hhmm":
			message = msgInvalidSlotTime
		case "required":
			if message == fallback {
				message = msgMissingFields
			}
		}
	}
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	appErr.Details = details
	return appErr
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func invalid(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func notFound(message string) error {
	return appErrors.Clone(appErrors.ErrNotFound, message)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// conflict builds a 409 carrying a machine readable reason.
func conflict(reason models.ConflictReason, message, sessionID, scheduleID string) error {
	detail := models.ConflictDetail{Reason: reason, Message: message, SessionID: sessionID, ScheduleID: scheduleID}
	appErr := appErrors.Wrap(&models.ConflictError{Detail: detail}, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
	appErr.Details = detail
	return appErr
}

// ConflictReasonOf extracts the conflict reason from err, if any.
func ConflictReasonOf(err error) (models.ConflictReason, bool) {
	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr.Detail.Reason, true
	}
	return "", false
}

// validateSlots checks slot bounds, activities, references and pairwise overlap.
func validateSlots(slots models.TimeSlots) error {
	for _, slot := range slots {
		if !timeslot.IsValidTime(slot.StartTime) || !timeslot.IsValidTime(slot.EndTime) {
			return invalid(msgInvalidSlotTime)
		}
		if slot.StartTime >= slot.EndTime {
			return invalid(msgSlotOrder)
		}
		if !slot.Activity.Valid() {
			return invalid(fmt.Sprintf("invalid slot activity %q", slot.Activity))
		}
		if slot.RelatedTo != nil {
			if err := slot.RelatedTo.Validate(); err != nil {
				return invalid("invalid slot reference: " + err.Error())
			}
		}
	}
	if timeslot.HasOverlappingSlots(slots.Intervals()) {
		return conflict(models.ConflictOverlappingSlots, "slots overlap", "", "")
	}
	return nil
}
