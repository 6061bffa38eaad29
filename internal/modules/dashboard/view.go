package dashboard

import (
	"strconv"
	"time"

	"github.com/aristath/lmt-kanban/internal/domain"
	"github.com/aristath/lmt-kanban/internal/modules/audit"
)

const (
	lastUpdatedLayout  = "2006/1/2 15:04:05"
	lastUpdatedLoading = "Loading..."

	emptyAlertsMessage = "暂无退料预警"
	emptyIssuesMessage = "暂无超发发料数据"
)

// ExcludeCommonLabel returns the toggle caption
func ExcludeCommonLabel(enabled bool) string {
	if enabled {
		return "已剔除通用物料"
	}
	return "含通用物料"
}

// Card is one KPI card
type Card struct {
	Key   string `json:"key" msgpack:"key"`
	Title string `json:"title" msgpack:"title"`
	Value string `json:"value" msgpack:"value"`
	Color string `json:"color" msgpack:"color"`
	Hint  string `json:"hint" msgpack:"hint"`
}

// ZoneTime is the batch time rendered in one display timezone
type ZoneTime struct {
	Zone string `json:"zone" msgpack:"zone"`
	Time string `json:"time" msgpack:"time"`
}

// AgingStrip is the distribution strip above the alert list
type AgingStrip struct {
	Total    int                  `json:"total" msgpack:"total"`
	Segments []audit.StripSegment `json:"segments" msgpack:"segments"`
}

// AlertCard is one entry of the top alert list
type AlertCard struct {
	ShopOrder    string      `json:"shop_order" msgpack:"shop_order"`
	MaterialCode string      `json:"material_code" msgpack:"material_code"`
	MaterialDesc string      `json:"material_desc" msgpack:"material_desc"`
	Warehouse    string      `json:"warehouse" msgpack:"warehouse"`
	Quantity     string      `json:"quantity" msgpack:"quantity"`
	AgingText    string      `json:"aging_text" msgpack:"aging_text"`
	AgingColor   string      `json:"aging_color,omitempty" msgpack:"aging_color,omitempty"`
	Badge        audit.Badge `json:"badge" msgpack:"badge"`
}

// IssueLine is one entry of the top issue list
type IssueLine struct {
	DemandListNumber string `json:"demand_list_number" msgpack:"demand_list_number"`
	MaterialCode     string `json:"material_code" msgpack:"material_code"`
	RelatedWO        string `json:"related_wo" msgpack:"related_wo"`
	ProductionLine   string `json:"production_line" msgpack:"production_line"`
	PlanIssueDate    string `json:"plan_issue_date" msgpack:"plan_issue_date"`
	DemandQty        string `json:"demand_qty" msgpack:"demand_qty"`
	ActualQty        string `json:"actual_qty" msgpack:"actual_qty"`
	OverIssueQty     string `json:"over_issue_qty" msgpack:"over_issue_qty"`
	OverVsBOMRate    string `json:"over_vs_bom_rate" msgpack:"over_vs_bom_rate"`
	RateTier         string `json:"rate_tier" msgpack:"rate_tier"`
	RateColor        string `json:"rate_color" msgpack:"rate_color"`
}

// ListView is a sorted list plus its header markers
type ListView[T any] struct {
	Items   []T               `json:"items" msgpack:"items"`
	Sort    audit.SortState   `json:"sort" msgpack:"sort"`
	Markers map[string]string `json:"markers" msgpack:"markers"`
	Empty   string            `json:"empty,omitempty" msgpack:"empty,omitempty"`
}

// OverviewView is the rendered overview page
type OverviewView struct {
	Loading            bool                `json:"loading" msgpack:"loading"`
	HasData            bool                `json:"has_data" msgpack:"has_data"`
	ExcludeCommon      bool                `json:"exclude_common" msgpack:"exclude_common"`
	ExcludeCommonLabel string              `json:"exclude_common_label" msgpack:"exclude_common_label"`
	BatchID            string              `json:"batch_id" msgpack:"batch_id"`
	LastUpdated        []ZoneTime          `json:"last_updated" msgpack:"last_updated"`
	Cards              []Card              `json:"cards" msgpack:"cards"`
	AgingStrip         *AgingStrip         `json:"aging_strip,omitempty" msgpack:"aging_strip,omitempty"`
	RiskTrend          Chart               `json:"risk_trend" msgpack:"risk_trend"`
	AgingTrend         Chart               `json:"aging_trend" msgpack:"aging_trend"`
	Alerts             ListView[AlertCard] `json:"alerts" msgpack:"alerts"`
	Issues             ListView[IssueLine] `json:"issues" msgpack:"issues"`
	LastFailure        *RefreshFailure     `json:"last_failure,omitempty" msgpack:"last_failure,omitempty"`
}

// View renders the overview from the current snapshot. query filters the
// top alert list locally.
func (s *Service) View(query string) OverviewView {
	snap := s.Snapshot()
	alertSort, issueSort := s.SortStates()
	exclude := s.ExcludeCommon()

	v := OverviewView{
		Loading:            s.Loading(),
		ExcludeCommon:      exclude,
		ExcludeCommonLabel: ExcludeCommonLabel(exclude),
		LastFailure:        s.LastFailure(),
	}

	var summary *domain.KPISummary
	if snap != nil && !snap.Summary.Empty() {
		summary = &snap.Summary
		v.HasData = true
		v.BatchID = summary.BatchID
	}

	v.Cards = buildCards(summary)
	v.LastUpdated = s.lastUpdated(summary)

	var (
		alerts []domain.InventoryStatusRow
		issues []domain.IssueRow
		trend  []domain.KPITrendPoint
	)
	if snap != nil {
		alerts, issues, trend = snap.Alerts, snap.Issues, snap.Trend
		if summary != nil {
			v.AgingStrip = buildStrip(snap.Aging)
		}
	}

	v.RiskTrend = RiskTrendChart(trend)
	v.AgingTrend = AgingTrendChart(trend)

	alerts = audit.Filter(alerts, audit.ByInventoryQuery(query))
	v.Alerts = ListView[AlertCard]{
		Items:   mapSlice(audit.SortInventory(alerts, alertSort), alertCard),
		Sort:    alertSort,
		Markers: markers(alertSort, "actual_inventory", "aging_days"),
	}
	if len(v.Alerts.Items) == 0 {
		v.Alerts.Empty = emptyAlertsMessage
	}

	v.Issues = ListView[IssueLine]{
		Items:   mapSlice(audit.SortIssues(issues, issueSort), issueLine),
		Sort:    issueSort,
		Markers: markers(issueSort, "demand_qty", "actual_qty", "over_issue_qty", "over_vs_bom_rate"),
	}
	if len(v.Issues.Items) == 0 {
		v.Issues.Empty = emptyIssuesMessage
	}

	return v
}

func buildCards(k *domain.KPISummary) []Card {
	count := func(f func(domain.KPISummary) int) string {
		if k == nil {
			return audit.Placeholder
		}
		return strconv.Itoa(f(*k))
	}
	hours := audit.Placeholder
	if k != nil {
		hours = audit.FormatHours(k.AvgAgingHours)
	}

	return []Card{
		{Key: "confirmed_alert_count", Title: "当期退料预警", Color: "red", Hint: "完工+已匹配+仍有库存",
			Value: count(func(s domain.KPISummary) int { return s.ConfirmedAlertCount })},
		{Key: "unmatched_current_count", Title: "工单范围外库存", Color: "orange", Hint: "接收≥2026但关联未完工或无工单",
			Value: count(func(s domain.KPISummary) int { return s.UnmatchedCurrentCount })},
		{Key: "legacy_count", Title: "历史遗留库存", Color: "gray", Hint: "接收<2026或无日期记录",
			Value: count(func(s domain.KPISummary) int { return s.LegacyCount })},
		{Key: "over_issue_lines", Title: "进场：超发预警", Color: "yellow", Hint: "实际发料超BOM需求",
			Value: count(func(s domain.KPISummary) int { return s.OverIssueLines })},
		{Key: "avg_aging_hours", Title: "当期平均库龄", Color: "purple", Hint: "基于当期退料预警池计算",
			Value: hours},
	}
}

func (s *Service) lastUpdated(k *domain.KPISummary) []ZoneTime {
	if k == nil || k.Timestamp.IsZero() {
		return []ZoneTime{{Time: lastUpdatedLoading}}
	}
	out := make([]ZoneTime, 0, len(s.opts.DisplayLocations))
	for _, loc := range s.opts.DisplayLocations {
		out = append(out, ZoneTime{Zone: loc.String(), Time: k.Timestamp.In(loc).Format(lastUpdatedLayout)})
	}
	if len(out) == 0 {
		out = append(out, ZoneTime{Zone: time.UTC.String(), Time: k.Timestamp.UTC().Format(lastUpdatedLayout)})
	}
	return out
}

func buildStrip(dist domain.AgingDistribution) *AgingStrip {
	total := dist.Total()
	if total == 0 {
		total = 1
	}
	segments := audit.Strip(dist)
	if segments == nil {
		segments = []audit.StripSegment{}
	}
	return &AgingStrip{Total: total, Segments: segments}
}

func alertCard(r domain.InventoryStatusRow) AlertCard {
	c := AlertCard{
		ShopOrder:    r.ShopOrder,
		MaterialCode: r.MaterialCode,
		MaterialDesc: r.MaterialDesc,
		Warehouse:    r.Warehouse,
		Quantity:     audit.FormatQuantity(r.ActualInventory, 0) + " " + r.Unit,
		AgingText:    audit.FormatAgingDaysShort(r.AgingDays),
		Badge:        audit.ResolveBadge(r),
	}
	if b, ok := audit.BandForDays(r.AgingDays); ok {
		c.AgingColor = b.Color
	}
	return c
}

func issueLine(r domain.IssueRow) IssueLine {
	tier := audit.RateTierOf(r.OverVsBOMRate)
	return IssueLine{
		DemandListNumber: r.DemandListNumber,
		MaterialCode:     r.MaterialCode,
		RelatedWO:        r.RelatedWO,
		ProductionLine:   r.ProductionLine,
		PlanIssueDate:    planDate(r.PlanIssueDate),
		DemandQty:        audit.FormatQuantity(r.DemandQty, 0),
		ActualQty:        audit.FormatQuantity(r.ActualQty, 0),
		OverIssueQty:     "+" + audit.FormatQuantity(r.OverIssueQty, 0),
		OverVsBOMRate:    audit.FormatRate(r.OverVsBOMRate),
		RateTier:         string(tier),
		RateColor:        tier.Color(),
	}
}

// planDate keeps the date part of a plan issue timestamp
func planDate(s string) string {
	if s == "" {
		return audit.Placeholder
	}
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func markers(s audit.SortState, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = s.Marker(k)
	}
	return out
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
