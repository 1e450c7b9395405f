package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/processor"
)

type fakeReconciler struct {
	mu      sync.Mutex
	lastRun string
	runDate string
	calls   int
}

func (f *fakeReconciler) Reconcile(_ context.Context, tc processor.TriggerContext) processor.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastRun = f.runDate
	return processor.Outcome{Status: processor.StatusAnnounced}
}

func (f *fakeReconciler) LastRunDate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRun
}

func newTestScheduler(t *testing.T, target Reconciler, now time.Time) *Scheduler {
	t.Helper()
	s, err := New(target, &config.Config{Location: time.UTC, DailyHour: 17, DailyMinute: 1})
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestStart_CatchUpAfterFireTime(t *testing.T) {
	target := &fakeReconciler{lastRun: "2026-10-18", runDate: "2026-10-19"}
	s := newTestScheduler(t, target, time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, target.calls)
}

func TestStart_NoCatchUpWhenAlreadyRan(t *testing.T) {
	target := &fakeReconciler{lastRun: "2026-10-19"}
	s := newTestScheduler(t, target, time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 0, target.calls)
}

func TestStart_NoCatchUpBeforeFireTime(t *testing.T) {
	target := &fakeReconciler{}
	s := newTestScheduler(t, target, time.Date(2026, 10, 19, 17, 0, 59, 0, time.UTC))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 0, target.calls)
}

func TestFire_OncePerDay(t *testing.T) {
	target := &fakeReconciler{runDate: "2026-10-19"}
	s := newTestScheduler(t, target, time.Date(2026, 10, 19, 17, 1, 0, 0, time.UTC))

	s.fire(context.Background())
	s.fire(context.Background())
	assert.Equal(t, 1, target.calls)

	s.now = func() time.Time { return time.Date(2026, 10, 20, 17, 1, 0, 0, time.UTC) }
	target.runDate = "2026-10-20"
	s.fire(context.Background())
	assert.Equal(t, 2, target.calls)
}

func TestFire_CancelledContext(t *testing.T) {
	target := &fakeReconciler{}
	s := newTestScheduler(t, target, time.Date(2026, 10, 19, 17, 1, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.fire(ctx)
	assert.Equal(t, 0, target.calls)
}

func TestNextRun(t *testing.T) {
	at := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)
	s, err := New(&fakeReconciler{lastRun: time.Now().UTC().Format(dateLayout)}, &config.Config{
		Location:    time.UTC,
		DailyHour:   at.Hour(),
		DailyMinute: at.Minute(),
	})
	require.NoError(t, err)
	defer s.Stop()

	_, err = s.NextRun()
	require.Error(t, err, "NextRun before Start should fail")

	require.NoError(t, s.Start(context.Background()))
	next, err := s.NextRun()
	require.NoError(t, err)
	assert.True(t, next.Equal(at), "next run %s, want %s", next, at)
}

func TestDailyTime(t *testing.T) {
	s := newTestScheduler(t, &fakeReconciler{}, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "17:01 UTC", s.DailyTime())
}
