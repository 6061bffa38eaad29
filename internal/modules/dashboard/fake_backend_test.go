package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aristath/lmt-kanban/internal/clients/analytics"
	"github.com/aristath/lmt-kanban/internal/domain"
	"github.com/aristath/lmt-kanban/internal/events"
)

var errBackend = errors.New("backend down")

type fakeBackend struct {
	mu sync.Mutex

	summary   domain.KPISummary
	trend     []domain.KPITrendPoint
	aging     domain.AgingDistribution
	alerts    []domain.InventoryStatusRow
	issues    []domain.IssueRow
	batches   []domain.Batch
	inventory []domain.InventoryStatusRow
	issueList []domain.IssueRow

	failSummary bool
	failDetail  bool

	excludeSeen []bool
	detailSeen  []analytics.DetailQuery
	trendLimit  int
}

func (f *fakeBackend) Summary(_ context.Context, exclude bool) (domain.KPISummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excludeSeen = append(f.excludeSeen, exclude)
	if f.failSummary {
		return domain.KPISummary{}, errBackend
	}
	return f.summary, nil
}

func (f *fakeBackend) Trend(_ context.Context, limit int, _ bool) ([]domain.KPITrendPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trendLimit = limit
	return f.trend, nil
}

func (f *fakeBackend) AgingDistribution(context.Context, bool) (domain.AgingDistribution, error) {
	return f.aging, nil
}

func (f *fakeBackend) TopAlerts(context.Context, bool) ([]domain.InventoryStatusRow, error) {
	return f.alerts, nil
}

func (f *fakeBackend) TopIssues(context.Context) ([]domain.IssueRow, error) {
	return f.issues, nil
}

func (f *fakeBackend) Batches(context.Context) ([]domain.Batch, error) {
	return f.batches, nil
}

func (f *fakeBackend) InventoryStatus(_ context.Context, q analytics.DetailQuery) ([]domain.InventoryStatusRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailSeen = append(f.detailSeen, q)
	if f.failDetail {
		return nil, errBackend
	}
	return f.inventory, nil
}

func (f *fakeBackend) IssuesList(context.Context, analytics.DetailQuery) ([]domain.IssueRow, error) {
	return f.issueList, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.EventData
}

func (r *recordingEmitter) EmitTyped(_ string, data events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
}

func (r *recordingEmitter) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

type emitterFunc func(data events.EventData)

func (f emitterFunc) EmitTyped(_ string, data events.EventData) { f(data) }

type countingRestarter struct {
	mu    sync.Mutex
	calls int
	ctx   context.Context
}

func (c *countingRestarter) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.ctx = ctx
	return nil
}

func rate(v float64) *float64 { return &v }

func sampleBackend() *fakeBackend {
	return &fakeBackend{
		summary: domain.KPISummary{
			Timestamp:             time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC),
			BatchID:               "B-20260301-10",
			AlertGroupCount:       12,
			ConfirmedAlertCount:   7,
			UnmatchedCurrentCount: 3,
			LegacyCount:           4,
			OverIssueLines:        2,
			AvgAgingHours:         0,
		},
		trend: []domain.KPITrendPoint{
			{Timestamp: "02-28 10:00", AlertGroupCount: 10, ConfirmedAlertCount: 5, OverIssueLines: 1, AvgAgingHours: 30},
			{Timestamp: "03-01 10:00", AlertGroupCount: 12, ConfirmedAlertCount: 7, OverIssueLines: 2, AvgAgingHours: 42},
		},
		aging: domain.AgingDistribution{Le1: 2, D3To7: 1},
		alerts: []domain.InventoryStatusRow{
			{ShopOrder: "WO-2045", MaterialCode: "M-1", ActualInventory: 5, Unit: "PCS", AgingDays: 2, WoStatusLabel: domain.WorkOrderCompleted},
			{ShopOrder: "WO-1999", MaterialCode: "M-2", ActualInventory: 40.6, Unit: "KG", AgingDays: 20, WoStatusLabel: domain.WorkOrderCompleted},
			{ShopOrder: "WO-3000", MaterialCode: "M-3", ActualInventory: 12, Unit: "PCS", AgingDays: domain.UnknownAging},
		},
		issues: []domain.IssueRow{
			{DemandListNumber: "D1", MaterialCode: "M-1", OverIssueQty: 3, OverVsBOMRate: rate(60), PlanIssueDate: "2026-03-01T08:00:00"},
			{DemandListNumber: "D2", MaterialCode: "M-2", OverIssueQty: 9, OverVsBOMRate: nil},
		},
		batches: []domain.Batch{
			{BatchID: "B2", Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
			{BatchID: "B1", Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		},
		inventory: []domain.InventoryStatusRow{
			{ShopOrder: "WO-2045", MaterialCode: "M-1", ActualInventory: 5, AgingDays: 2, WoStatusLabel: domain.WorkOrderCurrent, BarcodeList: []string{"a", "b", "c", "d"}},
			{ShopOrder: "WO-2046", MaterialCode: "M-2", ActualInventory: 9, AgingDays: 10, WoStatusLabel: domain.WorkOrderCompleted, BarcodeCount: 4},
			{ShopOrder: "WO-2047", MaterialCode: "M-3", ActualInventory: 1, AgingDays: 10, WoStatusLabel: domain.WorkOrderCompleted, ReuseLabel: domain.ReuseUpcoming},
			{ShopOrder: "", MaterialCode: "M-4", ActualInventory: 3, AgingDays: domain.UnknownAging, IsLegacy: true, CommonMaterial: true},
		},
		issueList: []domain.IssueRow{
			{DemandListNumber: "D1", MaterialCode: "M-1", RelatedWO: "WO-2045", OverIssueQty: 2.5, DemandQty: 10, OverIssueRate: rate(25)},
			{DemandListNumber: "D2", MaterialCode: "M-2", RelatedWO: "WO-2046", OverIssueQty: -1},
			{DemandListNumber: "D3", MaterialCode: "M-3", RelatedWO: "WO-2047", OverIssueQty: 0.005},
		},
	}
}
