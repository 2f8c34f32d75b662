package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPgRepositoryWithDB(mock), mock
}

func appointmentRow(a *Appointment) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "starts_at", "day", "start_time",
		"reason", "status", "notes", "created_at", "updated_at",
	}).AddRow(
		a.ID, a.PatientID, a.DoctorID, a.StartsAt, a.Day, a.Time,
		a.Reason, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt,
	)
}

func testAppointment() *Appointment {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	return &Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		StartsAt:  day.Add(9*time.Hour + 30*time.Minute),
		Day:       day,
		Time:      "09:30",
		Reason:    "checkup",
		Status:    StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPgClaimSlotCommitsWhenSlotFree(t *testing.T) {
	repo, mock := newMockRepo(t)
	appointment := testAppointment()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(appointment.ID, appointment.PatientID, appointment.DoctorID, appointment.StartsAt,
			appointment.Day, appointment.Time, appointment.Reason, appointment.Status).
		WillReturnRows(appointmentRow(appointment))
	mock.ExpectExec("UPDATE availability_slots").
		WithArgs(appointment.ID, appointment.DoctorID, appointment.Day, appointment.Time).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after commit is a no-op

	created, err := repo.ClaimSlot(context.Background(), appointment)
	require.NoError(t, err)
	assert.Equal(t, appointment.ID, created.ID)
	assert.Equal(t, StatusConfirmed, created.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgClaimSlotRollsBackWhenSlotTaken(t *testing.T) {
	repo, mock := newMockRepo(t)
	appointment := testAppointment()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(appointment.ID, appointment.PatientID, appointment.DoctorID, appointment.StartsAt,
			appointment.Day, appointment.Time, appointment.Reason, appointment.Status).
		WillReturnRows(appointmentRow(appointment))
	mock.ExpectExec("UPDATE availability_slots").
		WithArgs(appointment.ID, appointment.DoctorID, appointment.Day, appointment.Time).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := repo.ClaimSlot(context.Background(), appointment)
	require.ErrorIs(t, err, ErrSlotUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetAvailabilityDayEmptyIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	doctorID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT start_time, end_time, is_booked, appointment_id").
		WithArgs(doctorID, day).
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "end_time", "is_booked", "appointment_id"}))

	_, err := repo.GetAvailabilityDay(context.Background(), doctorID, day)
	require.ErrorIs(t, err, ErrAvailabilityNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetAvailabilityDayQueryFailureIsStoreError(t *testing.T) {
	repo, mock := newMockRepo(t)
	doctorID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT start_time, end_time, is_booked, appointment_id").
		WithArgs(doctorID, day).
		WillReturnError(assert.AnError)

	_, err := repo.GetAvailabilityDay(context.Background(), doctorID, day)
	require.Error(t, err)
	assert.True(t, IsStoreError(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgReplaceAvailabilityDay(t *testing.T) {
	repo, mock := newMockRepo(t)
	doctorID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	availability := &AvailabilityDay{
		DoctorID: doctorID,
		Day:      day,
		Slots: []Slot{
			{StartTime: "09:00", EndTime: "09:30"},
			{StartTime: "09:30", EndTime: "10:00"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM availability_slots").
		WithArgs(doctorID, day).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	for _, slot := range availability.Slots {
		mock.ExpectExec("INSERT INTO availability_slots").
			WithArgs(doctorID, day, slot.StartTime, slot.EndTime, slot.IsBooked, slot.AppointmentID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()
	mock.ExpectRollback()

	got, err := repo.ReplaceAvailabilityDay(context.Background(), availability)
	require.NoError(t, err)
	assert.Len(t, got.Slots, 2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCancelAppointmentReleasesSlot(t *testing.T) {
	repo, mock := newMockRepo(t)
	appointment := testAppointment()
	appointment.Status = StatusCancelled

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(appointment.ID).
		WillReturnRows(appointmentRow(appointment))
	mock.ExpectExec("UPDATE availability_slots").
		WithArgs(appointment.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	cancelled, err := repo.CancelAppointment(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCancelAppointmentWrongState(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	// The classifier re-reads the row outside the transaction.
	mock.ExpectQuery("SELECT status FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusCompleted))
	mock.ExpectRollback()

	_, err := repo.CancelAppointment(context.Background(), id)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestPgCancelAppointmentNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM appointments").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.CancelAppointment(context.Background(), id)
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestPgUpdateAppointmentStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	appointment := testAppointment()
	appointment.Status = StatusCompleted
	appointment.Notes = "prescribed rest"

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(appointment.ID, StatusCompleted, "prescribed rest", StatusConfirmed).
		WillReturnRows(appointmentRow(appointment))

	updated, err := repo.UpdateAppointmentStatus(context.Background(), appointment.ID, StatusConfirmed, StatusCompleted, "prescribed rest")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.Equal(t, "prescribed rest", updated.Notes)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetDoctorByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, name, specialty").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetDoctorByID(context.Background(), id)
	require.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestPgFindDoctorsBySpecialty(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, name, specialty").
		WithArgs("Cardiologist").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty", "created_at", "updated_at"}).
			AddRow(uuid.New(), "Alice Chen", "Cardiologist", now, now).
			AddRow(uuid.New(), "Bob Okafor", "Cardiologist", now, now))

	doctors, err := repo.FindDoctorsBySpecialty(context.Background(), "Cardiologist")
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Alice Chen", doctors[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}
