package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxDB is the subset of pgxpool.Pool the repository needs.
type PgxDB interface {
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

const reminderColumns = `id, appointment_id, patient_id, kind, message, contact_method, scheduled_at, status, created_at, updated_at`

func scanReminder(row pgx.Row) (*Reminder, error) {
	var rem Reminder
	err := row.Scan(
		&rem.ID,
		&rem.AppointmentID,
		&rem.PatientID,
		&rem.Kind,
		&rem.Message,
		&rem.ContactMethod,
		&rem.ScheduledAt,
		&rem.Status,
		&rem.CreatedAt,
		&rem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("scan reminder: %w", err)
	}
	return &rem, nil
}

func (r *PgRepository) Insert(ctx context.Context, rem *Reminder) (*Reminder, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO reminders (id, appointment_id, patient_id, kind, message, contact_method, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+reminderColumns+`
	`, rem.ID, rem.AppointmentID, rem.PatientID, rem.Kind, rem.Message, rem.ContactMethod, rem.ScheduledAt, rem.Status)
	return scanReminder(row)
}

func (r *PgRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = 'pending'
		  AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find due reminders: %w", err)
	}
	defer rows.Close()

	var result []Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find due reminders: %w", err)
	}
	return result, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Reminder, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE reminders
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+reminderColumns+`
	`, id, to, from)
	return scanReminder(row)
}

func (r *PgRepository) CancelByAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE reminders
		SET status = 'cancelled',
		    updated_at = now()
		WHERE appointment_id = $1
		  AND status = 'pending'
	`, appointmentID)
	if err != nil {
		return fmt.Errorf("cancel reminders for appointment %s: %w", appointmentID, err)
	}
	return nil
}
