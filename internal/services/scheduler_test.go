package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncRecorder struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
	err      error
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{calls: make(map[string]int)}
}

func (r *syncRecorder) run(ctx context.Context, userID, deviceID string) error {
	if r.inFlight.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.inFlight.Add(-1)

	time.Sleep(r.delay)

	r.mu.Lock()
	r.calls[deviceKey(userID, deviceID)]++
	r.mu.Unlock()
	return r.err
}

func (r *syncRecorder) count(userID, deviceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[deviceKey(userID, deviceID)]
}

func TestSchedulerFiresPeriodically(t *testing.T) {
	rec := newSyncRecorder()
	s := NewScheduler(rec.run, time.Millisecond)
	defer s.Stop()

	s.Schedule("u1", "device_fitbit", 5)
	assert.True(t, s.Scheduled("u1", "device_fitbit"))

	require.Eventually(t, func() bool {
		return rec.count("u1", "device_fitbit") >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerCancelStopsFiring(t *testing.T) {
	rec := newSyncRecorder()
	s := NewScheduler(rec.run, time.Millisecond)
	defer s.Stop()

	s.Schedule("u1", "device_fitbit", 2)
	require.Eventually(t, func() bool {
		return rec.count("u1", "device_fitbit") >= 1
	}, 2*time.Second, 2*time.Millisecond)

	assert.True(t, s.Cancel("u1", "device_fitbit"))
	assert.False(t, s.Scheduled("u1", "device_fitbit"))

	after := rec.count("u1", "device_fitbit")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.count("u1", "device_fitbit"), "no firing after cancel returns")

	assert.False(t, s.Cancel("u1", "device_fitbit"))
}

func TestSchedulerRescheduleReplacesTask(t *testing.T) {
	rec := newSyncRecorder()
	s := NewScheduler(rec.run, time.Millisecond)
	defer s.Stop()

	s.Schedule("u1", "device_fitbit", 1000)
	s.Schedule("u1", "device_fitbit", 2)
	assert.Equal(t, 1, s.Active())

	require.Eventually(t, func() bool {
		return rec.count("u1", "device_fitbit") >= 2
	}, 2*time.Second, 2*time.Millisecond)
}

func TestSchedulerSerializesPerDevice(t *testing.T) {
	rec := newSyncRecorder()
	rec.delay = 10 * time.Millisecond
	s := NewScheduler(rec.run, time.Millisecond)

	s.Schedule("u1", "device_fitbit", 1)
	require.Eventually(t, func() bool {
		return rec.count("u1", "device_fitbit") >= 3
	}, 2*time.Second, 2*time.Millisecond)
	s.Stop()

	assert.False(t, rec.overlap.Load(), "a slow sync never overlaps the next tick")
}

func TestSchedulerKeepsRunningAfterFailure(t *testing.T) {
	rec := newSyncRecorder()
	rec.err = errors.New("device out of range")
	s := NewScheduler(rec.run, time.Millisecond)
	defer s.Stop()

	s.Schedule("u1", "device_fitbit", 1)
	require.Eventually(t, func() bool {
		return rec.count("u1", "device_fitbit") >= 2
	}, 2*time.Second, 2*time.Millisecond)
}

func TestSchedulerStop(t *testing.T) {
	rec := newSyncRecorder()
	s := NewScheduler(rec.run, time.Millisecond)

	s.Schedule("u1", "a", 1)
	s.Schedule("u1", "b", 1)
	s.Schedule("u2", "a", 1)
	assert.Equal(t, 3, s.Active())

	s.Stop()
	assert.Equal(t, 0, s.Active())

	s.Schedule("u1", "a", 1)
	assert.Equal(t, 0, s.Active(), "schedule after stop is ignored")
}
