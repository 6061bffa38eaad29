// Package dashboard holds the state of the audit dashboard view: the last
// good overview snapshot, the view-level toggles and sort state, and the
// detail page fetch. Labels are derived on render; the backend's figures are
// shown as delivered.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/lmt-kanban/internal/clients/analytics"
	"github.com/aristath/lmt-kanban/internal/domain"
	"github.com/aristath/lmt-kanban/internal/events"
	"github.com/aristath/lmt-kanban/internal/modules/audit"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const moduleName = "dashboard"

// Backend is the subset of the analytics client the view reads from
type Backend interface {
	Summary(ctx context.Context, excludeCommon bool) (domain.KPISummary, error)
	Trend(ctx context.Context, limit int, excludeCommon bool) ([]domain.KPITrendPoint, error)
	AgingDistribution(ctx context.Context, excludeCommon bool) (domain.AgingDistribution, error)
	TopAlerts(ctx context.Context, excludeCommon bool) ([]domain.InventoryStatusRow, error)
	TopIssues(ctx context.Context) ([]domain.IssueRow, error)
	Batches(ctx context.Context) ([]domain.Batch, error)
	InventoryStatus(ctx context.Context, q analytics.DetailQuery) ([]domain.InventoryStatusRow, error)
	IssuesList(ctx context.Context, q analytics.DetailQuery) ([]domain.IssueRow, error)
}

// Emitter publishes view events
type Emitter interface {
	EmitTyped(module string, data events.EventData)
}

// Restarter restarts the refresh lifecycle
type Restarter interface {
	Restart(ctx context.Context) error
}

// Sort tables
const (
	TableAlerts = "alerts"
	TableIssues = "issues"
)

var (
	// ErrUnknownTable is returned for a sort on a table the overview does not have
	ErrUnknownTable = errors.New("unknown sort table")
	// ErrUnknownSortKey is returned for a column that is not sortable
	ErrUnknownSortKey = errors.New("unknown sort key")
)

// overviewAlertKeys are the sort keys of the overview alert list
var overviewAlertKeys = map[string]bool{"actual_inventory": true, "aging_days": true}

// Overview is one immutable, fully fetched overview batch
type Overview struct {
	CycleID       string                      `json:"cycle_id" msgpack:"cycle_id"`
	Trigger       string                      `json:"trigger" msgpack:"trigger"`
	FetchedAt     time.Time                   `json:"fetched_at" msgpack:"fetched_at"`
	ExcludeCommon bool                        `json:"exclude_common" msgpack:"exclude_common"`
	Summary       domain.KPISummary           `json:"summary" msgpack:"summary"`
	Trend         []domain.KPITrendPoint      `json:"trend" msgpack:"trend"`
	Aging         domain.AgingDistribution    `json:"aging" msgpack:"aging"`
	Alerts        []domain.InventoryStatusRow `json:"alerts" msgpack:"alerts"`
	Issues        []domain.IssueRow           `json:"issues" msgpack:"issues"`
}

// RefreshFailure describes the last failed fetch batch
type RefreshFailure struct {
	CycleID string    `json:"cycle_id" msgpack:"cycle_id"`
	Trigger string    `json:"trigger" msgpack:"trigger"`
	At      time.Time `json:"at" msgpack:"at"`
	Error   string    `json:"error" msgpack:"error"`
}

// Options configures a Service
type Options struct {
	Emitter          Emitter
	Metrics          *Metrics
	DisplayLocations []*time.Location
	TrendLimit       int
	// CommonMaterials is an optional local copy of the backend's shared-material set
	CommonMaterials map[string]bool
	Now             func() time.Time
}

// Service owns the single dashboard view of this process
type Service struct {
	backend Backend
	opts    Options
	log     zerolog.Logger

	snapshot    atomic.Pointer[Overview]
	lastFailure atomic.Pointer[RefreshFailure]
	inflight    atomic.Int32

	mu            sync.Mutex
	excludeCommon bool
	alertSort     audit.SortState
	issueSort     audit.SortState
	restarter     Restarter
	lifetime      context.Context
}

// NewService creates the view service
func NewService(backend Backend, opts Options, log zerolog.Logger) *Service {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.TrendLimit <= 0 {
		opts.TrendLimit = analytics.DefaultTrendLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		backend:   backend,
		opts:      opts,
		log:       log.With().Str("service", moduleName).Logger(),
		alertSort: audit.SortState{Key: "actual_inventory", Dir: audit.Descending},
		issueSort: audit.SortState{Key: "over_issue_qty", Dir: audit.Descending},
		lifetime:  context.Background(),
	}
}

// AttachScheduler wires the lifecycle the exclude-common toggle restarts.
// ctx outlives individual requests and becomes the base of later refreshes.
func (s *Service) AttachScheduler(ctx context.Context, r Restarter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restarter = r
	s.lifetime = ctx
}

// Snapshot returns the last good overview, or nil before the first success
func (s *Service) Snapshot() *Overview {
	return s.snapshot.Load()
}

// Loading reports whether any fetch batch is in flight
func (s *Service) Loading() bool {
	return s.inflight.Load() > 0
}

// LastFailure returns the most recent failed batch, if any
func (s *Service) LastFailure() *RefreshFailure {
	return s.lastFailure.Load()
}

// ExcludeCommon returns the current toggle
func (s *Service) ExcludeCommon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.excludeCommon
}

// SortStates returns the alert and issue sort states
func (s *Service) SortStates() (alerts, issues audit.SortState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alertSort, s.issueSort
}

// Refresh runs one overview fetch batch. Concurrent calls are independent
// and the last to resolve wins. A failure leaves the previous snapshot in place.
func (s *Service) Refresh(ctx context.Context, trigger string) {
	cycleID := uuid.NewString()
	exclude := s.ExcludeCommon()
	log := s.log.With().Str("cycle_id", cycleID).Str("trigger", trigger).Logger()

	s.inflight.Add(1)
	s.opts.Metrics.inflight.Inc()

	start := s.opts.Now()
	overview, err := s.fetchOverview(ctx, exclude)
	elapsed := s.opts.Now().Sub(start)
	s.opts.Metrics.refreshDuration.Observe(elapsed.Seconds())

	// Subscribers render synchronously; leave the loading count before emitting
	if err == nil {
		overview.CycleID = cycleID
		overview.Trigger = trigger
		overview.FetchedAt = s.opts.Now()
		s.snapshot.Store(overview)
	}
	s.inflight.Add(-1)
	s.opts.Metrics.inflight.Dec()

	if err != nil {
		s.opts.Metrics.refreshTotal.WithLabelValues("failure").Inc()
		failure := &RefreshFailure{CycleID: cycleID, Trigger: trigger, At: s.opts.Now(), Error: err.Error()}
		s.lastFailure.Store(failure)
		log.Warn().Err(err).Dur("duration", elapsed).Msg("Overview refresh failed, keeping previous snapshot")
		s.emit(&events.RefreshFailedData{CycleID: cycleID, Trigger: trigger, Error: err.Error()})
		return
	}

	s.opts.Metrics.refreshTotal.WithLabelValues("success").Inc()
	s.opts.Metrics.lastSuccess.Set(float64(overview.FetchedAt.Unix()))

	log.Info().
		Str("batch_id", overview.Summary.BatchID).
		Int("alerts", len(overview.Alerts)).
		Int("issues", len(overview.Issues)).
		Dur("duration", elapsed).
		Msg("Overview refreshed")

	s.emit(&events.ViewRefreshedData{
		CycleID:       cycleID,
		Trigger:       trigger,
		BatchID:       overview.Summary.BatchID,
		BatchTime:     overview.Summary.Timestamp,
		ExcludeCommon: exclude,
		DurationMs:    elapsed.Milliseconds(),
	})
}

// fetchOverview issues the five overview requests together. Any failure
// fails the whole batch.
func (s *Service) fetchOverview(ctx context.Context, exclude bool) (*Overview, error) {
	ov := &Overview{ExcludeCommon: exclude}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.backend.Summary(gctx, exclude)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		ov.Summary = summary
		return nil
	})
	g.Go(func() error {
		alerts, err := s.backend.TopAlerts(gctx, exclude)
		if err != nil {
			return fmt.Errorf("top alerts: %w", err)
		}
		ov.Alerts = alerts
		return nil
	})
	g.Go(func() error {
		issues, err := s.backend.TopIssues(gctx)
		if err != nil {
			return fmt.Errorf("top issues: %w", err)
		}
		ov.Issues = issues
		return nil
	})
	g.Go(func() error {
		trend, err := s.backend.Trend(gctx, s.opts.TrendLimit, exclude)
		if err != nil {
			return fmt.Errorf("trend: %w", err)
		}
		ov.Trend = trend
		return nil
	})
	g.Go(func() error {
		aging, err := s.backend.AgingDistribution(gctx, exclude)
		if err != nil {
			return fmt.Errorf("aging distribution: %w", err)
		}
		ov.Aging = aging
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}

// SetExcludeCommon changes the toggle. A change restarts the refresh
// lifecycle, which refetches with the new value. It reports whether the
// value changed.
func (s *Service) SetExcludeCommon(enabled bool) (bool, error) {
	s.mu.Lock()
	if s.excludeCommon == enabled {
		s.mu.Unlock()
		return false, nil
	}
	s.excludeCommon = enabled
	restarter, ctx := s.restarter, s.lifetime
	s.mu.Unlock()

	s.log.Info().Bool("exclude_common", enabled).Msg("Exclude-common toggled")
	s.emit(&events.FilterChangedData{Filter: "exclude_common", Value: strconv.FormatBool(enabled)})

	if restarter == nil {
		go s.Refresh(ctx, "toggle")
		return true, nil
	}
	if err := restarter.Restart(ctx); err != nil {
		return true, fmt.Errorf("failed to restart refresh scheduler: %w", err)
	}
	return true, nil
}

// ToggleSort applies a header click on the overview alert or issue list
func (s *Service) ToggleSort(table, key string) (audit.SortState, error) {
	s.mu.Lock()
	var next audit.SortState
	switch table {
	case TableAlerts:
		if !overviewAlertKeys[key] {
			s.mu.Unlock()
			return audit.SortState{}, fmt.Errorf("%w: %s", ErrUnknownSortKey, key)
		}
		s.alertSort = s.alertSort.Toggle(key)
		next = s.alertSort
	case TableIssues:
		if !audit.IssueSortable(key) {
			s.mu.Unlock()
			return audit.SortState{}, fmt.Errorf("%w: %s", ErrUnknownSortKey, key)
		}
		s.issueSort = s.issueSort.Toggle(key)
		next = s.issueSort
	default:
		s.mu.Unlock()
		return audit.SortState{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	s.mu.Unlock()

	s.emit(&events.FilterChangedData{Filter: "sort_" + table, Value: next.Key + ":" + next.Dir.String()})
	return next, nil
}

func (s *Service) emit(data events.EventData) {
	if s.opts.Emitter != nil {
		s.opts.Emitter.EmitTyped(moduleName, data)
	}
}
