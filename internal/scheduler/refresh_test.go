package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

type countingRefresher struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRefresher() *countingRefresher {
	return &countingRefresher{counts: make(map[string]int)}
}

func (r *countingRefresher) Refresh(_ context.Context, trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[trigger]++
}

func (r *countingRefresher) count(trigger string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[trigger]
}

func monterrey(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Monterrey")
	require.NoError(t, err)
	return loc
}

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func newTestScheduler(t *testing.T, hooks ...Hook) (*RefreshScheduler, *countingRefresher, *testingclock.FakeClock) {
	loc := monterrey(t)
	fakeClock := testingclock.NewFakeClock(time.Date(2026, 3, 1, 10, 30, 0, 0, loc))
	refresher := newCountingRefresher()

	s, err := New(refresher, Config{
		PollInterval:  5 * time.Minute,
		AlignInterval: time.Hour,
		Location:      loc,
		Clock:         fakeClock,
		Hooks:         hooks,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Stop()
		s.Wait()
	})
	return s, refresher, fakeClock
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Config{}, zerolog.Nop())
	assert.Error(t, err)

	refresher := newCountingRefresher()

	_, err = New(refresher, Config{AlignInterval: 7 * time.Minute}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(refresher, Config{AlignInterval: 5 * time.Hour}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(refresher, Config{PollInterval: -time.Second}, zerolog.Nop())
	assert.Error(t, err)

	s, err := New(refresher, Config{AlignInterval: 15 * time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.cfg.PollInterval)
	assert.Equal(t, "America/Monterrey", s.cfg.Location.String())
}

func TestNextBoundary(t *testing.T) {
	loc := monterrey(t)
	s, err := New(newCountingRefresher(), Config{Location: loc}, zerolog.Nop())
	require.NoError(t, err)

	next := s.NextBoundary(time.Date(2026, 3, 1, 10, 30, 15, 0, loc))
	assert.True(t, time.Date(2026, 3, 1, 11, 0, 0, 0, loc).Equal(next), "got %s", next)

	next = s.NextBoundary(time.Date(2026, 3, 1, 11, 0, 0, 0, loc))
	assert.True(t, time.Date(2026, 3, 1, 12, 0, 0, 0, loc).Equal(next), "boundary is strictly after, got %s", next)

	// an instant given in another zone still aligns to the Monterrey hour
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	next = s.NextBoundary(time.Date(2026, 3, 2, 0, 45, 0, 0, shanghai))
	assert.Equal(t, 0, next.In(loc).Minute())
	assert.Equal(t, 15*time.Minute, next.Sub(time.Date(2026, 3, 2, 0, 45, 0, 0, shanghai)))
}

func TestNextBoundary_DSTZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	s, err := New(newCountingRefresher(), Config{Location: ny}, zerolog.Nop())
	require.NoError(t, err)

	// 01:30 EST on the spring-forward night; the next wall-clock hour is 03:00 EDT
	from := time.Date(2026, 3, 8, 1, 30, 0, 0, ny)
	next := s.NextBoundary(from)
	assert.Equal(t, 30*time.Minute, next.Sub(from))
	assert.Equal(t, 0, next.In(ny).Minute())
}

func TestStart_FetchesOnceAndArmsTimers(t *testing.T) {
	s, refresher, _ := newTestScheduler(t)

	s.Start(context.Background())
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return refresher.count(TriggerMount) == 1 }, waitFor, tick)

	st := s.Status()
	assert.True(t, st.Running)
	assert.True(t, st.PollActive)
	assert.True(t, st.AlignPending)
	assert.False(t, st.HourlyActive)
	assert.Equal(t, 2, st.ActiveTimers)
	assert.Equal(t, 1, st.Starts)
	assert.True(t, time.Date(2026, 3, 1, 11, 0, 0, 0, monterrey(t)).Equal(st.NextAlignAt))
}

func TestPollTrigger(t *testing.T) {
	s, refresher, fakeClock := newTestScheduler(t)
	s.Start(context.Background())

	fakeClock.Step(5 * time.Minute)
	assert.Eventually(t, func() bool { return refresher.count(TriggerPoll) == 1 }, waitFor, tick)

	fakeClock.Step(5 * time.Minute)
	assert.Eventually(t, func() bool { return refresher.count(TriggerPoll) == 2 }, waitFor, tick)
	assert.Equal(t, 0, refresher.count(TriggerAlign))
}

func TestAlignThenHourly(t *testing.T) {
	s, refresher, fakeClock := newTestScheduler(t)
	s.Start(context.Background())

	fakeClock.Step(30 * time.Minute)

	assert.Eventually(t, func() bool { return refresher.count(TriggerAlign) == 1 }, waitFor, tick)
	assert.Eventually(t, func() bool {
		st := s.Status()
		return st.HourlyActive && !st.AlignPending
	}, waitFor, tick)

	st := s.Status()
	assert.True(t, st.PollActive)
	assert.Equal(t, 2, st.ActiveTimers)
	assert.True(t, st.NextAlignAt.IsZero())

	fakeClock.Step(time.Hour)
	assert.Eventually(t, func() bool { return refresher.count(TriggerHourly) == 1 }, waitFor, tick)
	assert.Equal(t, 1, refresher.count(TriggerAlign), "alignment timer is one-shot")
}

func TestRestart_ThreeFlipsLeaveOnePollAndOneHourlyTimer(t *testing.T) {
	s, refresher, fakeClock := newTestScheduler(t)
	s.Start(context.Background())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Restart(context.Background()))
	}

	assert.Eventually(t, func() bool { return refresher.count(TriggerRestart) == 3 }, waitFor, tick)
	assert.Equal(t, 1, refresher.count(TriggerMount))

	st := s.Status()
	assert.Equal(t, 4, st.Starts)
	assert.Equal(t, 2, st.ActiveTimers)
	assert.True(t, st.PollActive)
	assert.True(t, st.AlignPending)

	// a leaked ticker from an earlier lifecycle would fire here too
	fakeClock.Step(5 * time.Minute)
	assert.Eventually(t, func() bool { return refresher.count(TriggerPoll) == 1 }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, refresher.count(TriggerPoll))

	fakeClock.Step(25 * time.Minute)
	assert.Eventually(t, func() bool { return s.Status().HourlyActive }, waitFor, tick)

	st = s.Status()
	assert.True(t, st.PollActive)
	assert.True(t, st.HourlyActive)
	assert.False(t, st.AlignPending)
	assert.Equal(t, 2, st.ActiveTimers)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, refresher.count(TriggerAlign))

	fakeClock.Step(time.Hour)
	assert.Eventually(t, func() bool { return refresher.count(TriggerHourly) == 1 }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, refresher.count(TriggerHourly))
}

func TestRestart_WhenStopped(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	assert.ErrorIs(t, s.Restart(context.Background()), ErrStopped)
}

func TestRestart_ConcurrentCallsAllSucceed(t *testing.T) {
	s, refresher, _ := newTestScheduler(t)
	s.Start(context.Background())

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Restart(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Eventually(t, func() bool { return refresher.count(TriggerRestart) == callers }, waitFor, tick)

	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, callers+1, st.Starts)
	assert.Equal(t, 2, st.ActiveTimers)
}

func TestTriggerManual_LeavesTimersAlone(t *testing.T) {
	s, refresher, _ := newTestScheduler(t)

	s.TriggerManual()
	assert.Eventually(t, func() bool { return refresher.count(TriggerManual) == 1 }, waitFor, tick)
	assert.False(t, s.Status().Running)

	s.Start(context.Background())
	before := s.Status()
	s.TriggerManual()
	s.TriggerManual()
	assert.Eventually(t, func() bool { return refresher.count(TriggerManual) == 3 }, waitFor, tick)

	after := s.Status()
	assert.Equal(t, before.ActiveTimers, after.ActiveTimers)
	assert.True(t, before.NextAlignAt.Equal(after.NextAlignAt))
	assert.Equal(t, TriggerManual, after.LastTrigger)
}

func TestStop_ReleasesEverything(t *testing.T) {
	var mu sync.Mutex
	registered, released := 0, 0
	hook := func() func() {
		mu.Lock()
		registered++
		mu.Unlock()
		return func() {
			mu.Lock()
			released++
			mu.Unlock()
		}
	}

	s, refresher, fakeClock := newTestScheduler(t, hook)
	s.Start(context.Background())
	assert.Equal(t, 1, s.Status().Hooks)

	require.NoError(t, s.Restart(context.Background()))
	mu.Lock()
	assert.Equal(t, 2, registered)
	assert.Equal(t, 1, released)
	mu.Unlock()

	s.Stop()
	s.Stop()

	mu.Lock()
	assert.Equal(t, 2, released)
	mu.Unlock()

	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 0, st.ActiveTimers)
	assert.Equal(t, 0, st.Hooks)

	s.Wait()
	fakeClock.Step(2 * time.Hour)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, refresher.count(TriggerPoll))
	assert.Equal(t, 0, refresher.count(TriggerAlign))
	assert.Equal(t, 0, refresher.count(TriggerHourly))
}

func TestRefresh_DoesNotBlockTriggers(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	started := 0

	loc := monterrey(t)
	fakeClock := testingclock.NewFakeClock(time.Date(2026, 3, 1, 10, 30, 0, 0, loc))
	s, err := New(RefreshFunc(func(ctx context.Context, trigger string) {
		mu.Lock()
		started++
		mu.Unlock()
		<-release
	}), Config{Location: loc, Clock: fakeClock}, zerolog.Nop())
	require.NoError(t, err)

	s.Start(context.Background())
	s.TriggerManual()
	fakeClock.Step(5 * time.Minute)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return started == 3
	}, waitFor, tick)

	close(release)
	s.Stop()
	s.Wait()
}
