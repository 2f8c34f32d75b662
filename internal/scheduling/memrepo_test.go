package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/medibridge/appointment-scheduling/internal/redis"
)

// memRepo is an in-memory Repository. ClaimSlot holds the same mutex
// as every other method, so its claim is atomic exactly like the
// Postgres transaction it stands in for.
type memRepo struct {
	mu           sync.Mutex
	doctors      map[uuid.UUID]Doctor
	days         map[string]*AvailabilityDay
	appointments map[uuid.UUID]Appointment

	getAvailabilityErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		doctors:      make(map[uuid.UUID]Doctor),
		days:         make(map[string]*AvailabilityDay),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func dayKey(doctorID uuid.UUID, day time.Time) string {
	return doctorID.String() + "|" + NormalizeDay(day).Format("2006-01-02")
}

func (r *memRepo) CreateDoctor(ctx context.Context, doctor *Doctor) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *doctor
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.doctors[stored.ID] = stored

	out := stored
	return &out, nil
}

func (r *memRepo) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doctor, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	out := doctor
	return &out, nil
}

func (r *memRepo) FindDoctorsBySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var doctors []Doctor
	for _, doctor := range r.doctors {
		if doctor.Specialty == specialty {
			doctors = append(doctors, doctor)
		}
	}
	return doctors, nil
}

func (r *memRepo) GetAvailabilityDay(ctx context.Context, doctorID uuid.UUID, day time.Time) (*AvailabilityDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getAvailabilityErr != nil {
		return nil, r.getAvailabilityErr
	}

	stored, ok := r.days[dayKey(doctorID, day)]
	if !ok {
		return nil, ErrAvailabilityNotFound
	}
	return copyDay(stored), nil
}

func (r *memRepo) ReplaceAvailabilityDay(ctx context.Context, availability *AvailabilityDay) (*AvailabilityDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.days[dayKey(availability.DoctorID, availability.Day)] = copyDay(availability)
	return copyDay(availability), nil
}

func (r *memRepo) ClaimSlot(ctx context.Context, appointment *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.days[dayKey(appointment.DoctorID, appointment.Day)]
	if !ok {
		return nil, ErrSlotUnavailable
	}

	claimed := false
	for i := range stored.Slots {
		if stored.Slots[i].StartTime != appointment.Time {
			continue
		}
		if stored.Slots[i].IsBooked {
			return nil, ErrSlotUnavailable
		}
		id := appointment.ID
		stored.Slots[i].IsBooked = true
		stored.Slots[i].AppointmentID = &id
		claimed = true
		break
	}
	if !claimed {
		return nil, ErrSlotUnavailable
	}

	created := *appointment
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	r.appointments[created.ID] = created

	out := created
	return &out, nil
}

func (r *memRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := appointment
	return &out, nil
}

func (r *memRepo) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if appointment.Status != StatusPending && appointment.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	appointment.Status = StatusCancelled
	appointment.UpdatedAt = time.Now().UTC()
	r.appointments[id] = appointment

	if stored, ok := r.days[dayKey(appointment.DoctorID, appointment.Day)]; ok {
		for i := range stored.Slots {
			if stored.Slots[i].AppointmentID != nil && *stored.Slots[i].AppointmentID == id {
				stored.Slots[i].IsBooked = false
				stored.Slots[i].AppointmentID = nil
			}
		}
	}

	out := appointment
	return &out, nil
}

func (r *memRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if appointment.Status != from {
		return nil, ErrInvalidStatusTransition
	}

	appointment.Status = to
	if notes != "" {
		appointment.Notes = notes
	}
	appointment.UpdatedAt = time.Now().UTC()
	r.appointments[id] = appointment

	out := appointment
	return &out, nil
}

func (r *memRepo) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var appointments []Appointment
	for _, appointment := range r.appointments {
		if appointment.PatientID == patientID {
			appointments = append(appointments, appointment)
		}
	}
	return appointments, nil
}

func (r *memRepo) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var appointments []Appointment
	for _, appointment := range r.appointments {
		if appointment.DoctorID == doctorID {
			appointments = append(appointments, appointment)
		}
	}
	return appointments, nil
}

func copyDay(day *AvailabilityDay) *AvailabilityDay {
	out := &AvailabilityDay{
		DoctorID: day.DoctorID,
		Day:      day.Day,
		Slots:    make([]Slot, len(day.Slots)),
	}
	copy(out.Slots, day.Slots)
	for i := range out.Slots {
		if out.Slots[i].AppointmentID != nil {
			id := *out.Slots[i].AppointmentID
			out.Slots[i].AppointmentID = &id
		}
	}
	return out
}

// mutexDayLocker serializes critical sections per (doctor, day) with
// plain mutexes. Unlike the Redis locker it blocks instead of failing,
// so concurrent bookings all get their turn at the slot.
type mutexDayLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutexDayLocker() *mutexDayLocker {
	return &mutexDayLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexDayLocker) WithDayLock(ctx context.Context, doctorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := dayKey(doctorID, day)

	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

// flakyDayLocker reports contention for the first n acquisitions, then
// delegates.
type flakyDayLocker struct {
	mu        sync.Mutex
	remaining int
	inner     redisclient.DayLocker
}

func (l *flakyDayLocker) WithDayLock(ctx context.Context, doctorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.remaining > 0 {
		l.remaining--
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.mu.Unlock()
	return l.inner.WithDayLock(ctx, doctorID, day, fn)
}

type scheduledReminder struct {
	AppointmentID uuid.UUID
	StartsAt      time.Time
	PatientID     uuid.UUID
	DoctorName    string
	ContactMethod string
}

// capturingReminders records every scheduler call so tests can assert
// on the booking side effect.
type capturingReminders struct {
	mu          sync.Mutex
	scheduled   []scheduledReminder
	cancelled   []uuid.UUID
	scheduleErr error
	cancelErr   error
}

func (c *capturingReminders) ScheduleAppointmentReminder(ctx context.Context, appointmentID uuid.UUID, startsAt time.Time, patientID uuid.UUID, doctorName, contactMethod string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduleErr != nil {
		return c.scheduleErr
	}
	c.scheduled = append(c.scheduled, scheduledReminder{
		AppointmentID: appointmentID,
		StartsAt:      startsAt,
		PatientID:     patientID,
		DoctorName:    doctorName,
		ContactMethod: contactMethod,
	})
	return nil
}

func (c *capturingReminders) CancelAppointmentReminders(ctx context.Context, appointmentID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelErr != nil {
		return c.cancelErr
	}
	c.cancelled = append(c.cancelled, appointmentID)
	return nil
}

func (c *capturingReminders) Scheduled() []scheduledReminder {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]scheduledReminder, len(c.scheduled))
	copy(out, c.scheduled)
	return out
}

func (c *capturingReminders) Cancelled() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uuid.UUID, len(c.cancelled))
	copy(out, c.cancelled)
	return out
}

// halfHourSlots builds unbooked slots from startHour (inclusive) to
// endHour (exclusive).
func halfHourSlots(startHour, endHour int) []Slot {
	var slots []Slot
	for minute := startHour * 60; minute < endHour*60; minute += 30 {
		slots = append(slots, Slot{
			StartTime: clockString(minute),
			EndTime:   clockString(minute + 30),
		})
	}
	return slots
}

func clockString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
