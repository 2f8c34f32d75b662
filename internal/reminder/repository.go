package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrReminderNotFound = errors.New("reminder not found")

// Repository contains all DB interactions needed by the scheduler and
// dispatcher.
type Repository interface {
	Insert(ctx context.Context, rem *Reminder) (*Reminder, error)

	// FindDue returns pending reminders whose scheduled time has
	// passed, oldest first, capped at limit.
	FindDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error)

	// UpdateStatus transitions a reminder from one status to another.
	// The conditional write keeps concurrent workers from dispatching
	// the same reminder twice.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Reminder, error)

	// CancelByAppointment marks all still-pending reminders for an
	// appointment as cancelled.
	CancelByAppointment(ctx context.Context, appointmentID uuid.UUID) error
}
