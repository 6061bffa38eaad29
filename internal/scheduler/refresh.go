// Package scheduler keeps the dashboard in step with the backend's batch
// cadence. A RefreshScheduler owns every timer of one view lifecycle: a
// fixed-period poll, a one-shot alignment to the next batch boundary in the
// batch timezone followed by a ticker at the batch interval, and manual
// triggers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"k8s.io/utils/clock"
)

// Triggers passed to the refresher
const (
	TriggerMount   = "mount"
	TriggerPoll    = "poll"
	TriggerAlign   = "align"
	TriggerHourly  = "hourly"
	TriggerManual  = "manual"
	TriggerRestart = "restart"
)

// Refresher performs one refresh. Implementations must be safe for
// concurrent calls; a new trigger never waits for an in-flight refresh.
type Refresher interface {
	Refresh(ctx context.Context, trigger string)
}

// RefreshFunc adapts a function to Refresher
type RefreshFunc func(ctx context.Context, trigger string)

// Refresh calls f
func (f RefreshFunc) Refresh(ctx context.Context, trigger string) { f(ctx, trigger) }

// Hook is registered for the duration of one lifecycle. It runs at Start and
// returns the release function that Stop calls.
type Hook func() (release func())

// Config configures a RefreshScheduler
type Config struct {
	PollInterval  time.Duration
	AlignInterval time.Duration
	Location      *time.Location
	Clock         clock.WithTicker
	Hooks         []Hook
}

// DefaultConfig returns the production cadence: poll every five minutes and
// realign on every hour in America/Monterrey
func DefaultConfig() Config {
	loc, err := time.LoadLocation("America/Monterrey")
	if err != nil {
		loc = time.UTC
	}
	return Config{
		PollInterval:  5 * time.Minute,
		AlignInterval: time.Hour,
		Location:      loc,
		Clock:         clock.RealClock{},
	}
}

// ErrStopped is returned by Restart when the scheduler was never started
var ErrStopped = errors.New("scheduler is not running")

// lifecycle holds every handle one Start acquires. All of it is released
// together by release.
type lifecycle struct {
	poll     clock.Ticker
	align    clock.Timer
	hourly   clock.Ticker
	releases []func()
	cancel   context.CancelFunc
	done     chan struct{}
	started  time.Time
	nextSync time.Time
}

func (l *lifecycle) release() {
	l.cancel()
	<-l.done
	if l.poll != nil {
		l.poll.Stop()
		l.poll = nil
	}
	if l.align != nil {
		l.align.Stop()
		l.align = nil
	}
	if l.hourly != nil {
		l.hourly.Stop()
		l.hourly = nil
	}
	for i := len(l.releases) - 1; i >= 0; i-- {
		l.releases[i]()
	}
	l.releases = nil
}

// Status is a snapshot of the scheduler state
type Status struct {
	Running         bool      `json:"running"`
	PollActive      bool      `json:"poll_active"`
	AlignPending    bool      `json:"align_pending"`
	HourlyActive    bool      `json:"hourly_active"`
	ActiveTimers    int       `json:"active_timers"`
	Hooks           int       `json:"hooks"`
	Starts          int       `json:"starts"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	NextAlignAt     time.Time `json:"next_align_at,omitempty"`
	LastTrigger     string    `json:"last_trigger,omitempty"`
	LastTriggeredAt time.Time `json:"last_triggered_at,omitempty"`
	PollInterval    string    `json:"poll_interval"`
	AlignInterval   string    `json:"align_interval"`
	Location        string    `json:"location"`
}

// RefreshScheduler runs the refresh triggers of one view
type RefreshScheduler struct {
	refresher Refresher
	cfg       Config
	boundary  cron.Schedule
	log       zerolog.Logger

	// restartMu serializes Restart so a concurrent one never sees the gap
	// between teardown and re-arm
	restartMu sync.Mutex

	mu          sync.Mutex
	current     *lifecycle
	baseCtx     context.Context
	starts      int
	lastTrigger string
	lastAt      time.Time

	inflight sync.WaitGroup
}

// New creates a scheduler. Zero config fields take the DefaultConfig values.
func New(refresher Refresher, cfg Config, log zerolog.Logger) (*RefreshScheduler, error) {
	if refresher == nil {
		return nil, errors.New("refresher is required")
	}
	def := DefaultConfig()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.AlignInterval == 0 {
		cfg.AlignInterval = def.AlignInterval
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}

	boundary, err := alignSchedule(cfg.AlignInterval, cfg.Location)
	if err != nil {
		return nil, err
	}

	return &RefreshScheduler{
		refresher: refresher,
		cfg:       cfg,
		boundary:  boundary,
		log:       log.With().Str("component", "refresh_scheduler").Logger(),
		baseCtx:   context.Background(),
	}, nil
}

// alignSchedule builds the cron schedule whose activations are the batch
// boundaries of interval in loc. Intervals must divide an hour or a day.
func alignSchedule(interval time.Duration, loc *time.Location) (cron.Schedule, error) {
	var spec string
	switch {
	case interval >= time.Hour && interval < 24*time.Hour && interval%time.Hour == 0 && 24%int(interval/time.Hour) == 0:
		spec = fmt.Sprintf("0 */%d * * *", int(interval/time.Hour))
	case interval >= time.Minute && interval < time.Hour && interval%time.Minute == 0 && 60%int(interval/time.Minute) == 0:
		spec = fmt.Sprintf("*/%d * * * *", int(interval/time.Minute))
	default:
		return nil, fmt.Errorf("align interval %s does not divide an hour or a day", interval)
	}
	schedule, err := cron.ParseStandard(fmt.Sprintf("CRON_TZ=%s %s", loc.String(), spec))
	if err != nil {
		return nil, fmt.Errorf("failed to parse align schedule: %w", err)
	}
	return schedule, nil
}

// NextBoundary returns the first batch boundary strictly after t
func (s *RefreshScheduler) NextBoundary(t time.Time) time.Time {
	return s.boundary.Next(t)
}

// Start arms the timers, registers the hooks and fetches once. Calling Start
// on a running scheduler is a no-op.
func (s *RefreshScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return
	}
	s.baseCtx = ctx
	l := s.arm(ctx)
	s.current = l
	s.starts++
	s.mu.Unlock()

	s.log.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Time("next_align", l.nextSync).
		Msg("Refresh scheduler started")

	s.fire(TriggerMount)
}

// arm acquires every handle of a lifecycle. Callers hold s.mu.
func (s *RefreshScheduler) arm(ctx context.Context) *lifecycle {
	now := s.cfg.Clock.Now()
	next := s.boundary.Next(now)

	loopCtx, cancel := context.WithCancel(ctx)
	l := &lifecycle{
		align:    s.cfg.Clock.NewTimer(next.Sub(now)),
		cancel:   cancel,
		done:     make(chan struct{}),
		started:  now,
		nextSync: next,
	}
	if s.cfg.PollInterval > 0 {
		l.poll = s.cfg.Clock.NewTicker(s.cfg.PollInterval)
	}
	for _, hook := range s.cfg.Hooks {
		if release := hook(); release != nil {
			l.releases = append(l.releases, release)
		}
	}

	go s.loop(loopCtx, l)
	return l
}

func (s *RefreshScheduler) loop(ctx context.Context, l *lifecycle) {
	defer close(l.done)

	var pollC <-chan time.Time
	if l.poll != nil {
		pollC = l.poll.C()
	}
	alignC := l.align.C()
	var hourlyC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollC:
			s.fire(TriggerPoll)
		case <-alignC:
			alignC = nil
			s.mu.Lock()
			if s.current != l {
				s.mu.Unlock()
				return
			}
			l.align = nil
			l.hourly = s.cfg.Clock.NewTicker(s.cfg.AlignInterval)
			hourlyC = l.hourly.C()
			s.mu.Unlock()

			s.log.Debug().Msg("Aligned to batch boundary")
			s.fire(TriggerAlign)
		case <-hourlyC:
			s.fire(TriggerHourly)
		}
	}
}

// fire launches one refresh without waiting for it
func (s *RefreshScheduler) fire(trigger string) {
	s.mu.Lock()
	ctx := s.baseCtx
	s.lastTrigger = trigger
	s.lastAt = s.cfg.Clock.Now()
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.refresher.Refresh(ctx, trigger)
	}()
}

// TriggerManual fires a refresh immediately. It cancels nothing and leaves
// the timers untouched.
func (s *RefreshScheduler) TriggerManual() {
	s.fire(TriggerManual)
}

// Stop releases every timer and hook of the running lifecycle. In-flight
// refreshes are not cancelled; use Wait to drain them.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	l := s.current
	s.current = nil
	s.mu.Unlock()

	if l == nil {
		return
	}
	l.release()
	s.log.Info().Msg("Refresh scheduler stopped")
}

// Restart tears the lifecycle down, recomputes the alignment, re-arms every
// timer and fetches once
func (s *RefreshScheduler) Restart(ctx context.Context) error {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()

	s.mu.Lock()
	l := s.current
	s.current = nil
	s.mu.Unlock()

	if l == nil {
		return ErrStopped
	}
	l.release()

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return nil
	}
	s.baseCtx = ctx
	next := s.arm(ctx)
	s.current = next
	s.starts++
	s.mu.Unlock()

	s.log.Info().Time("next_align", next.nextSync).Msg("Refresh scheduler restarted")
	s.fire(TriggerRestart)
	return nil
}

// Wait blocks until every launched refresh has returned
func (s *RefreshScheduler) Wait() {
	s.inflight.Wait()
}

// Status reports which timers are active
func (s *RefreshScheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Starts:          s.starts,
		LastTrigger:     s.lastTrigger,
		LastTriggeredAt: s.lastAt,
		PollInterval:    s.cfg.PollInterval.String(),
		AlignInterval:   s.cfg.AlignInterval.String(),
		Location:        s.cfg.Location.String(),
	}
	l := s.current
	if l == nil {
		return st
	}

	st.Running = true
	st.StartedAt = l.started
	st.PollActive = l.poll != nil
	st.AlignPending = l.align != nil
	st.HourlyActive = l.hourly != nil
	st.Hooks = len(l.releases)
	if st.AlignPending {
		st.NextAlignAt = l.nextSync
	}
	for _, active := range []bool{st.PollActive, st.AlignPending, st.HourlyActive} {
		if active {
			st.ActiveTimers++
		}
	}
	return st
}
