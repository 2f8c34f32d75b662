package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingNotifier struct {
	mu      sync.Mutex
	sent    []Reminder
	sendErr error
}

func (n *capturingNotifier) Send(ctx context.Context, rem Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, rem)
	return nil
}

func (n *capturingNotifier) Sent() []Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Reminder, len(n.sent))
	copy(out, n.sent)
	return out
}

func seedReminder(t *testing.T, repo *memRepo, scheduledAt time.Time) Reminder {
	t.Helper()
	rem, err := repo.Insert(context.Background(), &Reminder{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		PatientID:     uuid.New(),
		Kind:          KindAppointment,
		Message:       "be on time",
		ContactMethod: "sms",
		ScheduledAt:   scheduledAt,
		Status:        StatusPending,
	})
	require.NoError(t, err)
	return *rem
}

func TestDispatchDueSendsAndMarksSent(t *testing.T) {
	repo := newMemRepo()
	notifier := &capturingNotifier{}
	dispatcher := NewDispatcher(repo, notifier, 100)

	now := time.Now().UTC()
	due := seedReminder(t, repo, now.Add(-time.Minute))
	seedReminder(t, repo, now.Add(time.Hour)) // not due yet

	sent, err := dispatcher.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	delivered := notifier.Sent()
	require.Len(t, delivered, 1)
	assert.Equal(t, due.ID, delivered[0].ID)

	stored := repo.byAppointment(due.AppointmentID)
	require.Len(t, stored, 1)
	assert.Equal(t, StatusSent, stored[0].Status)
}

func TestDispatchDueIsIdempotentAcrossRuns(t *testing.T) {
	repo := newMemRepo()
	notifier := &capturingNotifier{}
	dispatcher := NewDispatcher(repo, notifier, 100)

	now := time.Now().UTC()
	seedReminder(t, repo, now.Add(-time.Minute))

	sent, err := dispatcher.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// A second run finds nothing pending.
	sent, err = dispatcher.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Len(t, notifier.Sent(), 1)
}

func TestDispatchDueDeliveryFailureMarksFailed(t *testing.T) {
	repo := newMemRepo()
	notifier := &capturingNotifier{sendErr: assert.AnError}
	dispatcher := NewDispatcher(repo, notifier, 100)

	now := time.Now().UTC()
	rem := seedReminder(t, repo, now.Add(-time.Minute))

	sent, err := dispatcher.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	stored := repo.byAppointment(rem.AppointmentID)
	require.Len(t, stored, 1)
	assert.Equal(t, StatusFailed, stored[0].Status)
}

// staleRepo returns a snapshot from FindDue even after another worker
// has already flipped the row, mimicking the window between the read
// and the conditional status write.
type staleRepo struct {
	*memRepo
	stale []Reminder
}

func (r *staleRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	return r.stale, nil
}

func TestDispatchDueSkipsRemindersClaimedByAnotherWorker(t *testing.T) {
	mem := newMemRepo()
	now := time.Now().UTC()
	rem := seedReminder(t, mem, now.Add(-time.Minute))

	repo := &staleRepo{memRepo: mem, stale: []Reminder{rem}}
	notifier := &capturingNotifier{}
	dispatcher := NewDispatcher(repo, notifier, 100)

	// Another worker wins the pending→sent race first.
	_, err := mem.UpdateStatus(context.Background(), rem.ID, StatusPending, StatusSent)
	require.NoError(t, err)

	// This dispatcher still attempts delivery but must not count a
	// send it could not record.
	sent, err := dispatcher.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestDispatchDueHonorsBatchLimit(t *testing.T) {
	repo := newMemRepo()
	notifier := &capturingNotifier{}
	dispatcher := NewDispatcher(repo, notifier, 2)

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedReminder(t, repo, now.Add(-time.Minute))
	}

	sent, err := dispatcher.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}
