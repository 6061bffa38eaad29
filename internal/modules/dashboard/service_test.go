package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/lmt-kanban/internal/events"
	"github.com/aristath/lmt-kanban/internal/modules/audit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(backend Backend, opts Options) *Service {
	return NewService(backend, opts, zerolog.Nop())
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRefresh_StoresSnapshotAndEmits(t *testing.T) {
	backend := sampleBackend()
	emitter := &recordingEmitter{}
	reg := prometheus.NewRegistry()
	svc := newTestService(backend, Options{Emitter: emitter, Metrics: NewMetrics(reg)})

	assert.Nil(t, svc.Snapshot())

	svc.Refresh(context.Background(), "mount")

	snap := svc.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "B-20260301-10", snap.Summary.BatchID)
	assert.Equal(t, "mount", snap.Trigger)
	assert.NotEmpty(t, snap.CycleID)
	assert.Len(t, snap.Alerts, 3)
	assert.Len(t, snap.Issues, 2)
	assert.Len(t, snap.Trend, 2)
	assert.Equal(t, 14, backend.trendLimit)
	assert.False(t, svc.Loading())

	assert.Equal(t, []events.EventType{events.ViewRefreshed}, emitter.types())
	assert.Equal(t, 1.0, counterValue(t, reg, "kanban_refresh_total", "success"))
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	backend := sampleBackend()
	emitter := &recordingEmitter{}
	reg := prometheus.NewRegistry()
	svc := newTestService(backend, Options{Emitter: emitter, Metrics: NewMetrics(reg)})

	svc.Refresh(context.Background(), "mount")
	first := svc.Snapshot()
	require.NotNil(t, first)

	backend.failSummary = true
	svc.Refresh(context.Background(), "poll")

	assert.Same(t, first, svc.Snapshot())
	failure := svc.LastFailure()
	require.NotNil(t, failure)
	assert.Equal(t, "poll", failure.Trigger)
	assert.Contains(t, failure.Error, "summary")
	assert.Equal(t, []events.EventType{events.ViewRefreshed, events.RefreshFailed}, emitter.types())
	assert.Equal(t, 1.0, counterValue(t, reg, "kanban_refresh_total", "failure"))
}

func TestRefresh_FirstFailureLeavesNoSnapshot(t *testing.T) {
	backend := sampleBackend()
	backend.failSummary = true
	svc := newTestService(backend, Options{})

	svc.Refresh(context.Background(), "mount")

	assert.Nil(t, svc.Snapshot())
	assert.NotNil(t, svc.LastFailure())
}

func TestRefresh_NotLoadingWhenEventsFire(t *testing.T) {
	var svc *Service
	var seen []bool
	svc = newTestService(sampleBackend(), Options{
		Emitter: emitterFunc(func(events.EventData) {
			seen = append(seen, svc.View("").Loading)
		}),
	})

	svc.Refresh(context.Background(), "mount")

	backend := sampleBackend()
	backend.failSummary = true
	svc.backend = backend
	svc.Refresh(context.Background(), "poll")

	assert.Equal(t, []bool{false, false}, seen)
	assert.False(t, svc.Loading())
}

func TestRefresh_SnapshotVisibleWhenViewRefreshedFires(t *testing.T) {
	var svc *Service
	var batchIDs []string
	svc = newTestService(sampleBackend(), Options{
		Emitter: emitterFunc(func(data events.EventData) {
			if data.EventType() == events.ViewRefreshed {
				batchIDs = append(batchIDs, svc.View("").BatchID)
			}
		}),
	})

	svc.Refresh(context.Background(), "mount")

	assert.Equal(t, []string{"B-20260301-10"}, batchIDs)
}

func TestSetExcludeCommon_RestartsScheduler(t *testing.T) {
	backend := sampleBackend()
	emitter := &recordingEmitter{}
	restarter := &countingRestarter{}
	svc := newTestService(backend, Options{Emitter: emitter})

	type ctxKey struct{}
	base := context.WithValue(context.Background(), ctxKey{}, "lifetime")
	svc.AttachScheduler(base, restarter)

	changed, err := svc.SetExcludeCommon(true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, svc.ExcludeCommon())
	assert.Equal(t, 1, restarter.calls)
	assert.Equal(t, "lifetime", restarter.ctx.Value(ctxKey{}))

	changed, err = svc.SetExcludeCommon(true)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, restarter.calls)

	assert.Equal(t, []events.EventType{events.FilterChanged}, emitter.types())
}

func TestSetExcludeCommon_ForwardsToBackend(t *testing.T) {
	backend := sampleBackend()
	svc := newTestService(backend, Options{})

	_, err := svc.SetExcludeCommon(true)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.excludeSeen) == 1 && backend.excludeSeen[0]
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap != nil && snap.ExcludeCommon
	}, time.Second, 5*time.Millisecond)
}

func TestToggleSort(t *testing.T) {
	svc := newTestService(sampleBackend(), Options{})

	alerts, issues := svc.SortStates()
	assert.Equal(t, audit.SortState{Key: "actual_inventory", Dir: audit.Descending}, alerts)
	assert.Equal(t, audit.SortState{Key: "over_issue_qty", Dir: audit.Descending}, issues)

	st, err := svc.ToggleSort(TableAlerts, "actual_inventory")
	require.NoError(t, err)
	assert.Equal(t, audit.Ascending, st.Dir)

	st, err = svc.ToggleSort(TableAlerts, "aging_days")
	require.NoError(t, err)
	assert.Equal(t, audit.SortState{Key: "aging_days", Dir: audit.Descending}, st)

	st, err = svc.ToggleSort(TableIssues, "over_vs_bom_rate")
	require.NoError(t, err)
	assert.Equal(t, "over_vs_bom_rate", st.Key)

	_, err = svc.ToggleSort(TableAlerts, "warehouse")
	assert.ErrorIs(t, err, ErrUnknownSortKey)

	_, err = svc.ToggleSort("batches", "actual_inventory")
	assert.ErrorIs(t, err, ErrUnknownTable)
}
