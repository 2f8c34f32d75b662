package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Notifier is the delivery channel for a reminder. The real SMS/voice
// gateway lives outside this service; the default implementation just
// logs what would have been sent.
type Notifier interface {
	Send(ctx context.Context, rem Reminder) error
}

type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, rem Reminder) error {
	log.Printf("reminder %s via %s to patient %s: %s", rem.ID, rem.ContactMethod, rem.PatientID, rem.Message)
	return nil
}

// Dispatcher delivers due pending reminders. It is intended to be
// called periodically by the reminder worker. Delivery is
// at-least-once: a crash between send and the status write means the
// next run sends again.
type Dispatcher struct {
	repo     Repository
	notifier Notifier
	batch    int
}

func NewDispatcher(repo Repository, notifier Notifier, batch int) *Dispatcher {
	if batch < 1 {
		batch = 100
	}
	return &Dispatcher{repo: repo, notifier: notifier, batch: batch}
}

// DispatchDue sends every due pending reminder and returns how many
// were delivered. The pending→sent transition is conditional, so two
// workers racing on the same batch cannot both record a send.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	due, err := d.repo.FindDue(ctx, now, d.batch)
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	sent := 0
	for _, rem := range due {
		if err := d.notifier.Send(ctx, rem); err != nil {
			log.Printf("failed to deliver reminder %s: %v", rem.ID, err)
			if _, err := d.repo.UpdateStatus(ctx, rem.ID, StatusPending, StatusFailed); err != nil && !errors.Is(err, ErrReminderNotFound) {
				log.Printf("failed to mark reminder %s as failed: %v", rem.ID, err)
			}
			continue
		}

		if _, err := d.repo.UpdateStatus(ctx, rem.ID, StatusPending, StatusSent); err != nil {
			if errors.Is(err, ErrReminderNotFound) {
				// Another worker got there first.
				continue
			}
			log.Printf("failed to mark reminder %s as sent: %v", rem.ID, err)
			continue
		}
		sent++
	}

	return sent, nil
}
