package reminder

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type Kind string

const (
	KindAppointment Kind = "appointment"
	KindMedication  Kind = "medication"
	KindGeneral     Kind = "general"
)

// Reminder is an outbox row: a pending message scheduled for delivery
// some time before an appointment. Rows are written as a booking side
// effect and consumed by the reminder worker, so a delivery failure
// can be retried without ever touching the committed booking.
type Reminder struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Kind          Kind
	Message       string
	ContactMethod string // sms, call
	ScheduledAt   time.Time
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
