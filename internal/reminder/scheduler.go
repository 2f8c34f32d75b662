package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scheduler writes reminder outbox rows. It implements the
// ReminderScheduler interface the booking service consumes.
type Scheduler struct {
	repo Repository
	lead time.Duration // how long before the appointment the reminder fires
}

func NewScheduler(repo Repository, lead time.Duration) *Scheduler {
	return &Scheduler{repo: repo, lead: lead}
}

// ScheduleAppointmentReminder enqueues a pending reminder lead time
// before the appointment starts.
func (s *Scheduler) ScheduleAppointmentReminder(ctx context.Context, appointmentID uuid.UUID, startsAt time.Time, patientID uuid.UUID, doctorName, contactMethod string) error {
	startsAt = startsAt.UTC()

	message := fmt.Sprintf(
		"Hello, this is a reminder for your appointment with Dr. %s on %s at %s. Please be on time.",
		doctorName,
		startsAt.Format("Mon Jan 2 2006"),
		startsAt.Format("15:04"),
	)

	_, err := s.repo.Insert(ctx, &Reminder{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		PatientID:     patientID,
		Kind:          KindAppointment,
		Message:       message,
		ContactMethod: contactMethod,
		ScheduledAt:   startsAt.Add(-s.lead),
		Status:        StatusPending,
	})
	if err != nil {
		return fmt.Errorf("schedule reminder for appointment %s: %w", appointmentID, err)
	}
	return nil
}

// CancelAppointmentReminders drops pending reminders once their
// appointment is cancelled.
func (s *Scheduler) CancelAppointmentReminders(ctx context.Context, appointmentID uuid.UUID) error {
	return s.repo.CancelByAppointment(ctx, appointmentID)
}
