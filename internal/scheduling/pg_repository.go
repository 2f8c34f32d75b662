package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxDB is the subset of pgxpool.Pool the repository needs. Kept as an
// interface so tests can substitute pgxmock.
type PgxDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db PgxDB
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

// NewPgRepositoryWithDB allows injecting mocks for tests.
func NewPgRepositoryWithDB(db PgxDB) *PgRepository {
	return &PgRepository{db: db}
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, storeErr("scan doctor", err)
	}
	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartsAt,
		&a.Day,
		&a.Time,
		&a.Reason,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, storeErr("scan appointment", err)
	}
	a.StartsAt = a.StartsAt.UTC()
	a.Day = NormalizeDay(a.Day)
	return &a, nil
}

const appointmentColumns = `id, patient_id, doctor_id, starts_at, day, start_time, reason, status, notes, created_at, updated_at`

// Doctor directory

func (r *PgRepository) CreateDoctor(ctx context.Context, doctor *Doctor) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO doctors (id, name, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, specialty, created_at, updated_at
	`, doctor.ID, doctor.Name, doctor.Specialty)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) FindDoctorsBySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE specialty = $1
		ORDER BY name
	`, specialty)
	if err != nil {
		return nil, storeErr("find doctors by specialty", err)
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("find doctors by specialty", err)
	}
	return result, nil
}

// Availability calendar

func (r *PgRepository) GetAvailabilityDay(ctx context.Context, doctorID uuid.UUID, day time.Time) (*AvailabilityDay, error) {
	rows, err := r.db.Query(ctx, `
		SELECT start_time, end_time, is_booked, appointment_id
		FROM availability_slots
		WHERE doctor_id = $1 AND day = $2
		ORDER BY start_time
	`, doctorID, day)
	if err != nil {
		return nil, storeErr("load availability day", err)
	}
	defer rows.Close()

	availability := &AvailabilityDay{DoctorID: doctorID, Day: NormalizeDay(day)}
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.StartTime, &s.EndTime, &s.IsBooked, &s.AppointmentID); err != nil {
			return nil, storeErr("scan availability slot", err)
		}
		availability.Slots = append(availability.Slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("load availability day", err)
	}

	if len(availability.Slots) == 0 {
		return nil, ErrAvailabilityNotFound
	}
	return availability, nil
}

func (r *PgRepository) ReplaceAvailabilityDay(ctx context.Context, availability *AvailabilityDay) (*AvailabilityDay, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin replace availability", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE doctor_id = $1 AND day = $2
	`, availability.DoctorID, availability.Day)
	if err != nil {
		return nil, storeErr("clear availability day", err)
	}

	for _, slot := range availability.Slots {
		_, err = tx.Exec(ctx, `
			INSERT INTO availability_slots (doctor_id, day, start_time, end_time, is_booked, appointment_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, availability.DoctorID, availability.Day, slot.StartTime, slot.EndTime, slot.IsBooked, slot.AppointmentID)
		if err != nil {
			return nil, storeErr("insert availability slot", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit replace availability", err)
	}
	return availability, nil
}

// Booking transaction

// ClaimSlot inserts the confirmed appointment and flips its slot from
// unbooked to booked in one transaction. The conditional UPDATE on
// is_booked = FALSE is the serialization point: of any number of
// concurrent claims on the same slot row, exactly one sees a row to
// update.
func (r *PgRepository) ClaimSlot(ctx context.Context, appointment *Appointment) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin claim", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, starts_at, day, start_time, reason, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '', now(), now())
		RETURNING `+appointmentColumns+`
	`, appointment.ID, appointment.PatientID, appointment.DoctorID, appointment.StartsAt,
		appointment.Day, appointment.Time, appointment.Reason, appointment.Status)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE availability_slots
		SET is_booked = TRUE,
		    appointment_id = $1,
		    updated_at = now()
		WHERE doctor_id = $2
		  AND day = $3
		  AND start_time = $4
		  AND is_booked = FALSE
	`, created.ID, appointment.DoctorID, appointment.Day, appointment.Time)
	if err != nil {
		return nil, storeErr("claim slot", err)
	}
	if tag.RowsAffected() == 0 {
		// Rollback discards the appointment insert.
		return nil, ErrSlotUnavailable
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit claim", err)
	}
	return created, nil
}

// Appointment lifecycle

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// CancelAppointment flips a pending or confirmed appointment to
// cancelled and unbooks the slot that links back to it. Leaving the
// slot booked here would leak it as unavailable forever.
func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin cancel", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'confirmed')
		RETURNING `+appointmentColumns+`
	`, id)

	cancelled, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.classifyMissingUpdate(ctx, id)
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE availability_slots
		SET is_booked = FALSE,
		    appointment_id = NULL,
		    updated_at = now()
		WHERE appointment_id = $1
	`, id)
	if err != nil {
		return nil, storeErr("release slot", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit cancel", err)
	}
	return cancelled, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = COALESCE(NULLIF($3, ''), notes),
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+appointmentColumns+`
	`, id, to, notes, from)

	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.classifyMissingUpdate(ctx, id)
		}
		return nil, err
	}
	return updated, nil
}

// classifyMissingUpdate distinguishes "no such appointment" from "in a
// state the requested transition does not allow".
func (r *PgRepository) classifyMissingUpdate(ctx context.Context, id uuid.UUID) error {
	var status AppointmentStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAppointmentNotFound
	}
	if err != nil {
		return storeErr("load appointment status", err)
	}
	return ErrInvalidStatusTransition
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return r.listAppointments(ctx, `patient_id`, patientID)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return r.listAppointments(ctx, `doctor_id`, doctorID)
}

func (r *PgRepository) listAppointments(ctx context.Context, column string, id uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1
		ORDER BY starts_at DESC
	`, id)
	if err != nil {
		return nil, storeErr("list appointments", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list appointments", err)
	}
	return result, nil
}
