package analytics

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/lmt-kanban/internal/domain"
)

// flexFloat accepts a JSON number, a numeric string, a boolean or null
type flexFloat struct {
	value float64
	valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f.value, f.valid = v, true
	case 't':
		f.value, f.valid = 1, true
	case 'f':
		f.value, f.valid = 0, true
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil
		}
		f.value, f.valid = v, true
	}
	return nil
}

// finite reports whether the value was present and is a real number
func (f flexFloat) finite() bool {
	return f.valid && !math.IsNaN(f.value) && !math.IsInf(f.value, 0)
}

// Or returns the value, or def when absent or non-finite
func (f flexFloat) Or(def float64) float64 {
	if !f.finite() {
		return def
	}
	return f.value
}

// Int returns the value truncated to an int, zero when absent
func (f flexFloat) Int() int {
	return int(f.Or(0))
}

// Bool treats any non-zero value as true
func (f flexFloat) Bool() bool {
	return f.Or(0) != 0
}

// Ptr returns nil when absent or non-finite
func (f flexFloat) Ptr() *float64 {
	if !f.finite() {
		return nil
	}
	v := f.value
	return &v
}

// flexString accepts a JSON string, a number or null
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(data)
	return nil
}

// timestampLayouts are the forms a backend timestamp arrives in. Naive
// timestamps carry no offset and are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type wireSummary struct {
	Error                 *string    `json:"error"`
	BatchID               flexString `json:"batch_id"`
	Timestamp             flexString `json:"timestamp"`
	AlertGroupCount       flexFloat  `json:"alert_group_count"`
	HighRiskCount         flexFloat  `json:"high_risk_count"`
	OverIssueLines        flexFloat  `json:"over_issue_lines"`
	AvgAgingHours         flexFloat  `json:"avg_aging_hours"`
	ConfirmedAlertCount   flexFloat  `json:"confirmed_alert_count"`
	UnmatchedCurrentCount flexFloat  `json:"unmatched_current_count"`
	LegacyCount           flexFloat  `json:"legacy_count"`
}

func (w wireSummary) toDomain() domain.KPISummary {
	if w.Error != nil {
		return domain.KPISummary{}
	}
	ts, _ := parseTimestamp(string(w.Timestamp))
	return domain.KPISummary{
		Timestamp:             ts,
		BatchID:               string(w.BatchID),
		AlertGroupCount:       w.AlertGroupCount.Int(),
		HighRiskCount:         w.HighRiskCount.Int(),
		OverIssueLines:        w.OverIssueLines.Int(),
		AvgAgingHours:         w.AvgAgingHours.Or(0),
		ConfirmedAlertCount:   w.ConfirmedAlertCount.Int(),
		UnmatchedCurrentCount: w.UnmatchedCurrentCount.Int(),
		LegacyCount:           w.LegacyCount.Int(),
	}
}

type wireTrendPoint struct {
	Timestamp           flexString `json:"timestamp"`
	AlertGroupCount     flexFloat  `json:"alert_group_count"`
	HighRiskCount       flexFloat  `json:"high_risk_count"`
	ConfirmedAlertCount flexFloat  `json:"confirmed_alert_count"`
	OverIssueLines      flexFloat  `json:"over_issue_lines"`
	AvgAgingHours       flexFloat  `json:"avg_aging_hours"`
}

func (w wireTrendPoint) toDomain() domain.KPITrendPoint {
	return domain.KPITrendPoint{
		Timestamp:           string(w.Timestamp),
		AlertGroupCount:     w.AlertGroupCount.Int(),
		HighRiskCount:       w.HighRiskCount.Int(),
		ConfirmedAlertCount: w.ConfirmedAlertCount.Int(),
		OverIssueLines:      w.OverIssueLines.Int(),
		AvgAgingHours:       w.AvgAgingHours.Or(0),
	}
}

type wireDistribution struct {
	Le1     flexFloat `json:"le1"`
	D1To3   flexFloat `json:"d1_3"`
	D3To7   flexFloat `json:"d3_7"`
	D7To14  flexFloat `json:"d7_14"`
	D14To30 flexFloat `json:"d14_30"`
	Gt30    flexFloat `json:"gt30"`
}

func (w wireDistribution) toDomain() domain.AgingDistribution {
	clamp := func(f flexFloat) int {
		if n := f.Int(); n > 0 {
			return n
		}
		return 0
	}
	return domain.AgingDistribution{
		Le1:     clamp(w.Le1),
		D1To3:   clamp(w.D1To3),
		D3To7:   clamp(w.D3To7),
		D7To14:  clamp(w.D7To14),
		D14To30: clamp(w.D14To30),
		Gt30:    clamp(w.Gt30),
	}
}

type wireInventoryRow struct {
	ShopOrder       flexString   `json:"shop_order"`
	MaterialCode    flexString   `json:"material_code"`
	MaterialDesc    flexString   `json:"material_desc"`
	Warehouse       flexString   `json:"warehouse"`
	Unit            flexString   `json:"unit"`
	OrderStatus     flexString   `json:"order_status"`
	WoStatusLabel   flexString   `json:"wo_status_label"`
	ReuseLabel      flexString   `json:"reuse_label"`
	BarcodeList     []flexString `json:"barcode_list"`
	ActualInventory flexFloat    `json:"actual_inventory"`
	BarcodeCount    flexFloat    `json:"barcode_count"`
	AgingDays       flexFloat    `json:"aging_days"`
	TheoryRemain    flexFloat    `json:"theory_remain"`
	Deviation       flexFloat    `json:"deviation"`
	IsLegacy        flexFloat    `json:"is_legacy"`
	CommonMaterial  flexFloat    `json:"common_material"`
}

func (w wireInventoryRow) toDomain() domain.InventoryStatusRow {
	barcodes := make([]string, 0, len(w.BarcodeList))
	for _, b := range w.BarcodeList {
		if b != "" {
			barcodes = append(barcodes, string(b))
		}
	}

	status := domain.WorkOrderStatus(w.WoStatusLabel)
	if !status.Valid() {
		status = domain.WorkOrderNone
	}
	reuse := domain.ReuseLabel(w.ReuseLabel)
	if !reuse.Valid() {
		reuse = domain.ReuseNone
	}

	aging := w.AgingDays.Or(domain.UnknownAging)
	if aging < 0 {
		aging = domain.UnknownAging
	}

	return domain.InventoryStatusRow{
		ShopOrder:       string(w.ShopOrder),
		MaterialCode:    string(w.MaterialCode),
		MaterialDesc:    string(w.MaterialDesc),
		Warehouse:       string(w.Warehouse),
		Unit:            string(w.Unit),
		OrderStatus:     string(w.OrderStatus),
		WoStatusLabel:   status,
		ReuseLabel:      reuse,
		BarcodeList:     barcodes,
		ActualInventory: w.ActualInventory.Or(0),
		BarcodeCount:    w.BarcodeCount.Int(),
		AgingDays:       aging,
		TheoryRemain:    w.TheoryRemain.Or(0),
		Deviation:       w.Deviation.Or(0),
		IsLegacy:        w.IsLegacy.Bool(),
		CommonMaterial:  w.CommonMaterial.Bool(),
	}
}

type wireIssueRow struct {
	DemandListNumber flexString `json:"demand_list_number"`
	MaterialCode     flexString `json:"material_code"`
	RelatedWO        flexString `json:"related_wo"`
	ProductionLine   flexString `json:"production_line"`
	PlanIssueDate    flexString `json:"plan_issue_date"`
	DemandQty        flexFloat  `json:"demand_qty"`
	BOMDemandQty     flexFloat  `json:"bom_demand_qty"`
	ActualQty        flexFloat  `json:"actual_qty"`
	OverIssueQty     flexFloat  `json:"over_issue_qty"`
	OverIssueRate    flexFloat  `json:"over_issue_rate"`
	OverVsBOMRate    flexFloat  `json:"over_vs_bom_rate"`
}

// rateOver returns the rate, or nil when its denominator is zero. The backend
// stores a missing rate as 0.
func rateOver(rate flexFloat, denominator float64) *float64 {
	if denominator == 0 {
		return nil
	}
	return rate.Ptr()
}

func (w wireIssueRow) toDomain() domain.IssueRow {
	demand := w.DemandQty.Or(0)
	bom := w.BOMDemandQty.Or(0)
	return domain.IssueRow{
		DemandListNumber: string(w.DemandListNumber),
		MaterialCode:     string(w.MaterialCode),
		RelatedWO:        string(w.RelatedWO),
		ProductionLine:   string(w.ProductionLine),
		PlanIssueDate:    string(w.PlanIssueDate),
		DemandQty:        demand,
		BOMDemandQty:     bom,
		ActualQty:        w.ActualQty.Or(0),
		OverIssueQty:     w.OverIssueQty.Or(0),
		OverIssueRate:    rateOver(w.OverIssueRate, demand),
		OverVsBOMRate:    rateOver(w.OverVsBOMRate, bom),
	}
}

type wireBatch struct {
	BatchID   flexString `json:"batch_id"`
	Timestamp flexString `json:"timestamp"`
}

func mapRows[W any, D any](rows []W, convert func(W) D) []D {
	out := make([]D, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert(r))
	}
	return out
}
