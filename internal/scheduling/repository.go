package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound          = errors.New("doctor not found")
	ErrAvailabilityNotFound    = errors.New("no availability published for this doctor and date")
	ErrDoctorUnavailable       = errors.New("doctor not available on this date")
	ErrSlotUnavailable         = errors.New("time slot not available or already booked")
	ErrSlotContended           = errors.New("slot is currently being booked, please retry")
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrBookedSlotRemoval       = errors.New("cannot remove a slot with a confirmed appointment")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
)

// StoreError marks a transient persistence failure. It is kept
// distinct from business errors so callers can retry or surface a 503
// instead of a 4xx.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// Repository contains all DB interactions needed by the directory,
// calendar, matcher, and booking services.
type Repository interface {
	// Doctor directory
	CreateDoctor(ctx context.Context, doctor *Doctor) (*Doctor, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	FindDoctorsBySpecialty(ctx context.Context, specialty string) ([]Doctor, error)

	// Availability calendar
	GetAvailabilityDay(ctx context.Context, doctorID uuid.UUID, day time.Time) (*AvailabilityDay, error)
	ReplaceAvailabilityDay(ctx context.Context, availability *AvailabilityDay) (*AvailabilityDay, error)

	// Booking transaction: atomically claims the slot matching the
	// appointment's (doctor, day, time) and persists the appointment.
	// Fails with ErrSlotUnavailable when the slot is absent or booked.
	ClaimSlot(ctx context.Context, appointment *Appointment) (*Appointment, error)

	// Appointment lifecycle
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes string) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)
}
