package scheduling

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports malformed input rejected before any storage
// access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ParseDay parses a "YYYY-MM-DD" date into UTC midnight.
func ParseDay(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &ValidationError{Field: field, Reason: "required"}
	}
	day, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return day, nil
}

// ValidateClock checks an "HH:MM" wall-clock string.
func ValidateClock(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "required"}
	}
	if !clockPattern.MatchString(value) {
		return &ValidationError{Field: field, Reason: "must be HH:MM (24-hour)"}
	}
	return nil
}

func validateID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return &ValidationError{Field: field, Reason: "required"}
	}
	return nil
}

func validateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "required"}
	}
	return nil
}

// ValidateSlots checks a submitted slot set: well-formed times,
// start before end, no duplicate start times.
func ValidateSlots(slots []Slot) error {
	if len(slots) == 0 {
		return &ValidationError{Field: "slots", Reason: "at least one slot is required"}
	}

	seen := make(map[string]bool, len(slots))
	for i, slot := range slots {
		if err := ValidateClock(fmt.Sprintf("slots[%d].start_time", i), slot.StartTime); err != nil {
			return err
		}
		if err := ValidateClock(fmt.Sprintf("slots[%d].end_time", i), slot.EndTime); err != nil {
			return err
		}

		start, _ := ClockMinutes(slot.StartTime)
		end, _ := ClockMinutes(slot.EndTime)
		if start >= end {
			return &ValidationError{
				Field:  fmt.Sprintf("slots[%d]", i),
				Reason: fmt.Sprintf("start time %s must be before end time %s", slot.StartTime, slot.EndTime),
			}
		}

		if seen[slot.StartTime] {
			return &ValidationError{
				Field:  fmt.Sprintf("slots[%d]", i),
				Reason: fmt.Sprintf("duplicate start time %s", slot.StartTime),
			}
		}
		seen[slot.StartTime] = true
	}
	return nil
}
