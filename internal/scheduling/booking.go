package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/medibridge/appointment-scheduling/internal/redis"
)

// DefaultContactMethod is used for reminders until patient contact
// preferences are owned by this service.
const DefaultContactMethod = "sms"

const lockRetryBackoff = 50 * time.Millisecond

// ReminderScheduler consumes booking events. Both methods are invoked
// best-effort: a failure is logged and never unwinds a committed
// booking or cancellation.
type ReminderScheduler interface {
	ScheduleAppointmentReminder(ctx context.Context, appointmentID uuid.UUID, startsAt time.Time, patientID uuid.UUID, doctorName, contactMethod string) error
	CancelAppointmentReminders(ctx context.Context, appointmentID uuid.UUID) error
}

// BookingService owns the slot claim transaction: it atomically
// transitions a slot from unbooked to booked with a linked confirmed
// appointment. Exactly one of any number of concurrent callers
// targeting the same slot succeeds; the rest fail with
// ErrSlotUnavailable.
type BookingService struct {
	repo        Repository
	locker      redisclient.DayLocker
	reminders   ReminderScheduler
	lockRetries int
}

func NewBookingService(repo Repository, locker redisclient.DayLocker, reminders ReminderScheduler, lockRetries int) *BookingService {
	if lockRetries < 1 {
		lockRetries = 1
	}
	return &BookingService{
		repo:        repo,
		locker:      locker,
		reminders:   reminders,
		lockRetries: lockRetries,
	}
}

// Book claims the (doctorID, date, timeOfDay) slot and creates a
// confirmed appointment. date is "YYYY-MM-DD", timeOfDay is "HH:MM".
func (s *BookingService) Book(ctx context.Context, patientID, doctorID uuid.UUID, date, timeOfDay, reason string) (*Appointment, error) {
	if err := validateID("patient_id", patientID); err != nil {
		return nil, err
	}
	if err := validateID("doctor_id", doctorID); err != nil {
		return nil, err
	}
	day, err := ParseDay("date", date)
	if err != nil {
		return nil, err
	}
	if err := ValidateClock("time", timeOfDay); err != nil {
		return nil, err
	}
	if err := validateRequired("reason", reason); err != nil {
		return nil, err
	}

	// The doctor must have published a calendar for the day at all;
	// a missing day is a different failure than a taken slot.
	if _, err := s.repo.GetAvailabilityDay(ctx, doctorID, day); err != nil {
		if errors.Is(err, ErrAvailabilityNotFound) {
			return nil, ErrDoctorUnavailable
		}
		return nil, fmt.Errorf("check availability: %w", err)
	}

	startsAt, err := CombineDayAndClock(day, timeOfDay)
	if err != nil {
		return nil, &ValidationError{Field: "time", Reason: err.Error()}
	}

	appointment := &Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  doctorID,
		StartsAt:  startsAt,
		Day:       day,
		Time:      timeOfDay,
		Reason:    reason,
		Status:    StatusConfirmed,
	}

	created, err := s.claimUnderLock(ctx, appointment)
	if err != nil {
		return nil, err
	}

	// Fire-and-forget: reminder scheduling must never fail a booking
	// that has already committed.
	s.scheduleReminder(ctx, created)

	return created, nil
}

// claimUnderLock serializes the claim per (doctor, day) and retries a
// bounded number of times when the day lock is contended.
func (s *BookingService) claimUnderLock(ctx context.Context, appointment *Appointment) (*Appointment, error) {
	var created *Appointment

	var err error
	for attempt := 0; attempt < s.lockRetries; attempt++ {
		err = s.locker.WithDayLock(ctx, appointment.DoctorID, appointment.Day, func(lockCtx context.Context) error {
			claimed, claimErr := s.repo.ClaimSlot(lockCtx, appointment)
			if claimErr != nil {
				return claimErr
			}
			created = claimed
			return nil
		})
		if !errors.Is(err, redisclient.ErrLockNotAcquired) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryBackoff):
		}
	}

	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return nil, ErrSlotContended
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *BookingService) scheduleReminder(ctx context.Context, appointment *Appointment) {
	doctorName := "your doctor"
	if doctor, err := s.repo.GetDoctorByID(ctx, appointment.DoctorID); err == nil {
		doctorName = doctor.Name
	} else {
		log.Printf("could not load doctor %s for reminder: %v", appointment.DoctorID, err)
	}

	err := s.reminders.ScheduleAppointmentReminder(
		ctx,
		appointment.ID,
		appointment.StartsAt,
		appointment.PatientID,
		doctorName,
		DefaultContactMethod,
	)
	if err != nil {
		log.Printf("failed to schedule reminder for appointment %s: %v", appointment.ID, err)
	}
}

// Cancel transitions a pending or confirmed appointment to cancelled
// and symmetrically unbooks its slot so it becomes claimable again.
func (s *BookingService) Cancel(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	if err := validateID("appointment_id", appointmentID); err != nil {
		return nil, err
	}

	cancelled, err := s.repo.CancelAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := s.reminders.CancelAppointmentReminders(ctx, appointmentID); err != nil {
		log.Printf("failed to cancel reminders for appointment %s: %v", appointmentID, err)
	}

	return cancelled, nil
}

// Complete marks a confirmed appointment as completed with the
// doctor's notes.
func (s *BookingService) Complete(ctx context.Context, appointmentID uuid.UUID, notes string) (*Appointment, error) {
	if err := validateID("appointment_id", appointmentID); err != nil {
		return nil, err
	}
	return s.repo.UpdateAppointmentStatus(ctx, appointmentID, StatusConfirmed, StatusCompleted, notes)
}

func (s *BookingService) Get(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	if err := validateID("appointment_id", appointmentID); err != nil {
		return nil, err
	}
	return s.repo.GetAppointmentByID(ctx, appointmentID)
}

func (s *BookingService) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	if err := validateID("patient_id", patientID); err != nil {
		return nil, err
	}
	return s.repo.ListAppointmentsByPatient(ctx, patientID)
}

func (s *BookingService) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	if err := validateID("doctor_id", doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListAppointmentsByDoctor(ctx, doctorID)
}
