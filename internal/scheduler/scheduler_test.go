package scheduler

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tellme/internal/sandbox"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingStore struct {
	mu    sync.Mutex
	calls int
}

func (c *countingStore) CompletePast(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 0
}

func (c *countingStore) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestScheduler_TickCompletesPastBookings(t *testing.T) {
	store := sandbox.NewStore()
	require.NoError(t, sandbox.Seed(store))
	offering := store.OfferingsBySlug("plumbing")[0]

	past, err := store.Book(1, sandbox.BookingInput{
		ServiceID: offering.Offering.ID, Date: "2025-03-10", StartTime: "09:00:00", EndTime: "10:00:00",
	})
	require.NoError(t, err)
	later, err := store.Book(1, sandbox.BookingInput{
		ServiceID: offering.Offering.ID, Date: "2025-03-10", StartTime: "15:00:00", EndTime: "16:00:00",
	})
	require.NoError(t, err)

	s := NewScheduler(store, time.Minute, quietLogger())
	s.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local) }

	assert.Equal(t, 1, s.tick())
	assert.Equal(t, 0, s.tick(), "completed bookings are not counted twice")

	statuses := map[int64]string{}
	for _, b := range store.Bookings(1) {
		statuses[b.ID] = b.Status
	}
	assert.Equal(t, "completed", statuses[past.ID])
	assert.Equal(t, "pending", statuses[later.ID])
}

func TestScheduler_StartStop(t *testing.T) {
	store := &countingStore{}
	s := NewScheduler(store, 5*time.Millisecond, quietLogger())

	done := make(chan struct{})
	go func() {
		s.Start()
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_StopTwice(t *testing.T) {
	s := NewScheduler(&countingStore{}, time.Minute, quietLogger())

	assert.NotPanics(t, func() {
		s.Stop()
		s.Stop()
	})
}
