package scheduling

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

type UrgencyLevel string

const (
	UrgencyEmergency UrgencyLevel = "emergency"
	UrgencyUrgent    UrgencyLevel = "urgent"
	UrgencyRoutine   UrgencyLevel = "routine"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot is the smallest bookable unit of a doctor's day. Times are
// wall-clock "HH:MM" strings. IsBooked is true exactly when
// AppointmentID is set.
type Slot struct {
	StartTime     string
	EndTime       string
	IsBooked      bool
	AppointmentID *uuid.UUID
}

// AvailabilityDay is the full slot set a doctor has published for one
// calendar date. Day is normalized to UTC midnight; there is at most
// one AvailabilityDay per (DoctorID, Day).
type AvailabilityDay struct {
	DoctorID uuid.UUID
	Day      time.Time
	Slots    []Slot
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartsAt  time.Time // full UTC timestamp, Day + Time combined
	Day       time.Time // UTC midnight
	Time      string    // "HH:MM"
	Reason    string
	Status    AppointmentStatus
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Offer is a transient search result: one doctor, one day, a capped
// ordered list of free slots. Offers are never persisted.
type Offer struct {
	DoctorID   uuid.UUID
	DoctorName string
	Specialty  string
	Day        time.Time
	Slots      []Slot
}

// NormalizeDay truncates a timestamp to UTC midnight.
func NormalizeDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ClockMinutes converts an "HH:MM" string to minutes since midnight.
func ClockMinutes(clock string) (int, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock time %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed clock time %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed clock time %q", clock)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", clock)
	}
	return h*60 + m, nil
}

// CombineDayAndClock builds the full UTC timestamp for a slot on a day.
func CombineDayAndClock(day time.Time, clock string) (time.Time, error) {
	minutes, err := ClockMinutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDay(day).Add(time.Duration(minutes) * time.Minute), nil
}

// SortSlots orders slots ascending by start time. Slots with a start
// time that does not parse sort last.
func SortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, errA := ClockMinutes(slots[i].StartTime)
		b, errB := ClockMinutes(slots[j].StartTime)
		if errA != nil {
			return false
		}
		if errB != nil {
			return true
		}
		return a < b
	})
}
