package dashboard

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/aristath/lmt-kanban/internal/clients/analytics"
	"github.com/aristath/lmt-kanban/internal/domain"
	"github.com/aristath/lmt-kanban/internal/modules/audit"
	"golang.org/x/sync/errgroup"
)

// Tab is the active detail table
type Tab string

const (
	TabAlert Tab = "alert"
	TabIssue Tab = "issue"
)

const emptyDetailMessage = "暂无数据"

var (
	defaultAlertSort = audit.SortState{Key: "actual_inventory", Dir: audit.Descending}
	defaultIssueSort = audit.SortState{Key: "over_issue_qty", Dir: audit.Descending}
)

// DetailRequest is the normalized detail page state
type DetailRequest struct {
	BatchID       string            `json:"batch_id" msgpack:"batch_id"`
	Query         string            `json:"q" msgpack:"q"`
	ExcludeCommon bool              `json:"exclude_common" msgpack:"exclude_common"`
	Tab           Tab               `json:"tab" msgpack:"tab"`
	Label         audit.LabelFilter `json:"label" msgpack:"label"`
	Aging         audit.AgingChip   `json:"aging" msgpack:"aging"`
	Direction     audit.Direction   `json:"direction" msgpack:"direction"`
	Sort          audit.SortState   `json:"sort" msgpack:"sort"`
}

// ParseDetailRequest reads the detail page state from query parameters.
// Unknown values fall back to their defaults. An aging chip selects the
// alert tab; filters that belong to the inactive tab are reset.
func ParseDetailRequest(v url.Values) DetailRequest {
	req := DetailRequest{
		BatchID:   v.Get("batch_id"),
		Query:     v.Get("q"),
		Tab:       TabAlert,
		Label:     audit.FilterAll,
		Aging:     audit.FilterAll,
		Direction: audit.FilterAll,
	}
	req.ExcludeCommon, _ = strconv.ParseBool(v.Get("exclude_common"))

	if Tab(v.Get("tab")) == TabIssue {
		req.Tab = TabIssue
	}
	if chip, ok := audit.ParseAgingChip(v.Get("aging")); ok && chip != audit.FilterAll {
		req.Tab = TabAlert
		req.Aging = chip
	}

	switch req.Tab {
	case TabAlert:
		if label, ok := audit.ParseLabelFilter(v.Get("label")); ok {
			req.Label = label
		}
		req.Sort = defaultAlertSort
		if key := v.Get("sort"); audit.InventorySortable(key) {
			req.Sort = audit.SortState{Key: key, Dir: audit.ParseSortDir(v.Get("dir"))}
		}
	case TabIssue:
		if dir, ok := audit.ParseDirection(v.Get("direction")); ok {
			req.Direction = dir
		}
		req.Sort = defaultIssueSort
		if key := v.Get("sort"); audit.IssueSortable(key) {
			req.Sort = audit.SortState{Key: key, Dir: audit.ParseSortDir(v.Get("dir"))}
		}
	}
	return req
}

// BatchOption is one entry of the batch picker
type BatchOption struct {
	domain.Batch
	Selected bool `json:"selected" msgpack:"selected"`
}

// Chip is one quick filter button
type Chip struct {
	Value  string `json:"value" msgpack:"value"`
	Label  string `json:"label" msgpack:"label"`
	Active bool   `json:"active" msgpack:"active"`
}

// TabView is one detail tab header
type TabView struct {
	Tab    Tab    `json:"tab" msgpack:"tab"`
	Label  string `json:"label" msgpack:"label"`
	Count  int    `json:"count" msgpack:"count"`
	Active bool   `json:"active" msgpack:"active"`
}

// AlertRow is one rendered line-side stock row
type AlertRow struct {
	ShopOrder       string               `json:"shop_order" msgpack:"shop_order"`
	MaterialCode    string               `json:"material_code" msgpack:"material_code"`
	MaterialDesc    string               `json:"material_desc" msgpack:"material_desc"`
	Warehouse       string               `json:"warehouse" msgpack:"warehouse"`
	ActualInventory string               `json:"actual_inventory" msgpack:"actual_inventory"`
	Unit            string               `json:"unit" msgpack:"unit"`
	Badge           audit.Badge          `json:"badge" msgpack:"badge"`
	AgingText       string               `json:"aging_text" msgpack:"aging_text"`
	AgingColor      string               `json:"aging_color,omitempty" msgpack:"aging_color,omitempty"`
	AgingBorder     string               `json:"aging_border,omitempty" msgpack:"aging_border,omitempty"`
	Barcodes        audit.BarcodePreview `json:"barcodes" msgpack:"barcodes"`
}

// IssueDetailRow is one rendered issuance line
type IssueDetailRow struct {
	DemandListNumber string `json:"demand_list_number" msgpack:"demand_list_number"`
	MaterialCode     string `json:"material_code" msgpack:"material_code"`
	RelatedWO        string `json:"related_wo" msgpack:"related_wo"`
	ProductionLine   string `json:"production_line" msgpack:"production_line"`
	PlanIssueDate    string `json:"plan_issue_date" msgpack:"plan_issue_date"`
	BOMDemandQty     string `json:"bom_demand_qty" msgpack:"bom_demand_qty"`
	DemandQty        string `json:"demand_qty" msgpack:"demand_qty"`
	ActualQty        string `json:"actual_qty" msgpack:"actual_qty"`
	OverIssueQty     string `json:"over_issue_qty" msgpack:"over_issue_qty"`
	DeviationTier    string `json:"deviation_tier" msgpack:"deviation_tier"`
	DeviationColor   string `json:"deviation_color" msgpack:"deviation_color"`
	OverIssueRate    string `json:"over_issue_rate" msgpack:"over_issue_rate"`
	OverVsBOMRate    string `json:"over_vs_bom_rate" msgpack:"over_vs_bom_rate"`
	RateColor        string `json:"rate_color" msgpack:"rate_color"`
}

// DetailView is the rendered detail page
type DetailView struct {
	Request   DetailRequest            `json:"request" msgpack:"request"`
	Batches   []BatchOption            `json:"batches" msgpack:"batches"`
	Tabs      []TabView                `json:"tabs" msgpack:"tabs"`
	Chips     map[string][]Chip        `json:"chips" msgpack:"chips"`
	Alerts    ListView[AlertRow]       `json:"alerts" msgpack:"alerts"`
	Issues    ListView[IssueDetailRow] `json:"issues" msgpack:"issues"`
	Distrib   domain.AgingDistribution `json:"aging_distribution" msgpack:"aging_distribution"`
	HasBatch  bool                     `json:"has_batch" msgpack:"has_batch"`
	BatchTime string                   `json:"batch_time,omitempty" msgpack:"batch_time,omitempty"`
}

var alertColumns = []string{"shop_order", "material_code", "material_desc", "warehouse", "actual_inventory", "unit", "aging_days"}

var issueColumns = []string{
	"demand_list_number", "material_code", "related_wo", "production_line", "plan_issue_date",
	"bom_demand_qty", "demand_qty", "actual_qty", "over_issue_qty", "over_issue_rate", "over_vs_bom_rate",
}

// Batches returns the batch picker, newest first as delivered
func (s *Service) Batches(ctx context.Context) ([]domain.Batch, error) {
	batches, err := s.backend.Batches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

// Detail fetches the two detail lists of the selected batch and applies the
// local filters and sort. An empty batch id selects the newest batch.
func (s *Service) Detail(ctx context.Context, req DetailRequest) (DetailView, error) {
	batches, err := s.Batches(ctx)
	if err != nil {
		s.opts.Metrics.detailTotal.WithLabelValues("failure").Inc()
		return DetailView{}, err
	}

	if req.BatchID == "" && len(batches) > 0 {
		req.BatchID = batches[0].BatchID
	}

	view := DetailView{Request: req, Batches: make([]BatchOption, 0, len(batches))}
	for _, b := range batches {
		selected := b.BatchID == req.BatchID
		view.Batches = append(view.Batches, BatchOption{Batch: b, Selected: selected})
		if selected {
			view.HasBatch = true
			if !b.Timestamp.IsZero() {
				view.BatchTime = b.Timestamp.Format("2006-01-02 15:04")
			}
		}
	}

	var (
		inventory []domain.InventoryStatusRow
		issues    []domain.IssueRow
	)
	if req.BatchID != "" {
		q := analytics.DetailQuery{BatchID: req.BatchID, Query: req.Query, ExcludeCommon: req.ExcludeCommon}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := s.backend.InventoryStatus(gctx, q)
			if err != nil {
				return fmt.Errorf("inventory status: %w", err)
			}
			inventory = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.backend.IssuesList(gctx, q)
			if err != nil {
				return fmt.Errorf("issues list: %w", err)
			}
			issues = rows
			return nil
		})
		if err := g.Wait(); err != nil {
			s.opts.Metrics.detailTotal.WithLabelValues("failure").Inc()
			s.log.Warn().Err(err).Str("batch_id", req.BatchID).Msg("Detail fetch failed")
			return DetailView{}, err
		}
	}
	s.opts.Metrics.detailTotal.WithLabelValues("success").Inc()

	view.Tabs = []TabView{
		{Tab: TabAlert, Label: fmt.Sprintf("离场审计（%d）", len(inventory)), Count: len(inventory), Active: req.Tab == TabAlert},
		{Tab: TabIssue, Label: fmt.Sprintf("进场审计（%d）", len(issues)), Count: len(issues), Active: req.Tab == TabIssue},
	}
	view.Chips = detailChips(req)
	view.Distrib = audit.DistributeRows(inventory)

	alertPred := audit.All(
		audit.ByLabel(req.Label),
		audit.ByAgingChip(req.Aging),
		audit.ByInventoryQuery(req.Query),
		audit.ExcludeCommon(req.ExcludeCommon, s.opts.CommonMaterials),
	)
	alertSort := defaultAlertSort
	if req.Tab == TabAlert {
		alertSort = req.Sort
	}
	alerts := audit.SortInventory(audit.Filter(inventory, alertPred), alertSort)
	view.Alerts = ListView[AlertRow]{
		Items:   mapSlice(alerts, alertRow),
		Sort:    alertSort,
		Markers: markers(alertSort, alertColumns...),
	}
	if len(view.Alerts.Items) == 0 {
		view.Alerts.Empty = emptyDetailMessage
	}

	issuePred := audit.All(
		audit.ByDirection(req.Direction),
		audit.ByIssueQuery(req.Query),
	)
	issueSort := defaultIssueSort
	if req.Tab == TabIssue {
		issueSort = req.Sort
	}
	filteredIssues := audit.SortIssues(audit.Filter(issues, issuePred), issueSort)
	view.Issues = ListView[IssueDetailRow]{
		Items:   mapSlice(filteredIssues, issueDetailRow),
		Sort:    issueSort,
		Markers: markers(issueSort, issueColumns...),
	}
	if len(view.Issues.Items) == 0 {
		view.Issues.Empty = emptyDetailMessage
	}

	return view, nil
}

func detailChips(req DetailRequest) map[string][]Chip {
	chip := func(value, label, active string) Chip {
		return Chip{Value: value, Label: label, Active: value == active}
	}
	label, aging, dir := string(req.Label), string(req.Aging), string(req.Direction)
	return map[string][]Chip{
		"label": {
			chip(audit.FilterAll, "全部状态", label),
			chip(string(audit.BadgeInProduction), "🟢 当前生产", label),
			chip(string(audit.BadgeAwaitingProd), "🔵 即将生产", label),
			chip(string(audit.BadgeAwaitingRetn), "🟠 已完工待退", label),
			chip(string(audit.BadgeReuseCurrent), "🔄 当前工单复用", label),
			chip(string(audit.BadgeReuseUpcoming), "🔄 下工单复用", label),
		},
		"aging": {
			chip(audit.FilterAll, "全部库龄", aging),
			chip(string(audit.ChipLe3), "≤3天", aging),
			chip(string(audit.ChipD3To7), "3-7天", aging),
			chip(string(audit.ChipD7To14), "7-14天", aging),
			chip(string(audit.ChipGt14), ">14天", aging),
		},
		"direction": {
			chip(audit.FilterAll, "全部", dir),
			chip(string(audit.DirectionOver), "仅超发", dir),
			chip(string(audit.DirectionUnder), "少发", dir),
		},
	}
}

func alertRow(r domain.InventoryStatusRow) AlertRow {
	row := AlertRow{
		ShopOrder:       r.ShopOrder,
		MaterialCode:    r.MaterialCode,
		MaterialDesc:    r.MaterialDesc,
		Warehouse:       r.Warehouse,
		ActualInventory: audit.FormatQuantity(r.ActualInventory, 2),
		Unit:            r.Unit,
		Badge:           audit.ResolveBadge(r),
		AgingText:       audit.FormatAgingDays(r.AgingDays),
		Barcodes:        audit.PreviewBarcodes(r.BarcodeList, r.BarcodeCount),
	}
	if b, ok := audit.BandForDays(r.AgingDays); ok {
		row.AgingColor = b.Color
		row.AgingBorder = b.Border
	}
	return row
}

func issueDetailRow(r domain.IssueRow) IssueDetailRow {
	dev := audit.DeviationTierOf(r.OverIssueQty)
	return IssueDetailRow{
		DemandListNumber: r.DemandListNumber,
		MaterialCode:     r.MaterialCode,
		RelatedWO:        r.RelatedWO,
		ProductionLine:   r.ProductionLine,
		PlanIssueDate:    planDate(r.PlanIssueDate),
		BOMDemandQty:     audit.FormatPositiveQuantity(r.BOMDemandQty, 2),
		DemandQty:        audit.FormatQuantity(r.DemandQty, 2),
		ActualQty:        audit.FormatQuantity(r.ActualQty, 2),
		OverIssueQty:     audit.FormatDeviation(r.OverIssueQty),
		DeviationTier:    string(dev),
		DeviationColor:   dev.Color(),
		OverIssueRate:    audit.FormatRate(r.OverIssueRate),
		OverVsBOMRate:    audit.FormatRate(r.OverVsBOMRate),
		RateColor:        audit.RateTierOf(r.OverVsBOMRate).Color(),
	}
}
