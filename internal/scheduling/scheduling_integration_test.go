package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Full in-process flow across directory, calendar, matcher, and
// booking, sharing one repository the way the server wires them.

type schedulingStack struct {
	repo     *memRepo
	matcher  *Matcher
	bookings *BookingService
	calendar *Calendar
}

func newSchedulingStack() *schedulingStack {
	repo := newMemRepo()
	locker := newMutexDayLocker()
	directory := NewDirectory(repo)
	calendar := NewCalendar(repo, locker)
	return &schedulingStack{
		repo:     repo,
		matcher:  NewMatcher(directory, calendar, 7, 120*time.Minute),
		bookings: NewBookingService(repo, locker, &capturingReminders{}, 3),
		calendar: calendar,
	}
}

func TestSearchThenCompetingBookings(t *testing.T) {
	stack := newSchedulingStack()
	ctx := context.Background()

	doctor, err := stack.repo.CreateDoctor(ctx, &Doctor{
		ID:        uuid.New(),
		Name:      "D",
		Specialty: "Cardiologist",
	})
	require.NoError(t, err)

	day := NormalizeDay(time.Now().UTC())
	_, err = stack.calendar.Put(ctx, doctor.ID, day, []Slot{
		{StartTime: "09:00", EndTime: "09:30"},
		{StartTime: "09:30", EndTime: "10:00"},
	})
	require.NoError(t, err)

	// A routine search preferring 09:15 sees one offer with both slots
	// ascending.
	preferredAt := day.Add(9*time.Hour + 15*time.Minute)
	offers, err := stack.matcher.FindAvailable(ctx, "Cardiologist", UrgencyRoutine, preferredAt, true)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, doctor.ID, offers[0].DoctorID)
	require.Len(t, offers[0].Slots, 2)
	assert.Equal(t, "09:00", offers[0].Slots[0].StartTime)
	assert.Equal(t, "09:30", offers[0].Slots[1].StartTime)

	// Patient A books 09:00; patient B then loses the same slot.
	date := day.Format("2006-01-02")
	_, err = stack.bookings.Book(ctx, uuid.New(), doctor.ID, date, "09:00", "palpitations")
	require.NoError(t, err)

	_, err = stack.bookings.Book(ctx, uuid.New(), doctor.ID, date, "09:00", "palpitations")
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookedSlotDisappearsFromSearch(t *testing.T) {
	stack := newSchedulingStack()
	ctx := context.Background()

	doctor, err := stack.repo.CreateDoctor(ctx, &Doctor{
		ID:        uuid.New(),
		Name:      "D",
		Specialty: "Cardiologist",
	})
	require.NoError(t, err)

	day := NormalizeDay(time.Now().UTC())
	_, err = stack.calendar.Put(ctx, doctor.ID, day, halfHourSlots(9, 10))
	require.NoError(t, err)

	_, err = stack.bookings.Book(ctx, uuid.New(), doctor.ID, day.Format("2006-01-02"), "09:00", "checkup")
	require.NoError(t, err)

	offers, err := stack.matcher.FindAvailable(ctx, "Cardiologist", UrgencyRoutine, day, false)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.Len(t, offers[0].Slots, 1)
	assert.Equal(t, "09:30", offers[0].Slots[0].StartTime)
}

func TestEmergencySearchWithNoFreeSlotsAnywhere(t *testing.T) {
	stack := newSchedulingStack()
	ctx := context.Background()

	_, err := stack.repo.CreateDoctor(ctx, &Doctor{
		ID:        uuid.New(),
		Name:      "D",
		Specialty: "Cardiologist",
	})
	require.NoError(t, err)

	offers, err := stack.matcher.FindAvailable(ctx, "Cardiologist", UrgencyEmergency, time.Now().UTC(), false)
	require.NoError(t, err)
	assert.Empty(t, offers)
}
