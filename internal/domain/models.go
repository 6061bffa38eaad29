// Package domain provides core domain models and types.
package domain

import "time"

// WorkOrderStatus is the lifecycle label the backend attaches to a line-side stock row
type WorkOrderStatus string

const (
	WorkOrderCurrent   WorkOrderStatus = "current"
	WorkOrderUpcoming  WorkOrderStatus = "upcoming"
	WorkOrderCompleted WorkOrderStatus = "completed"
	// WorkOrderNone means the row matched no work order in the monitored window
	WorkOrderNone WorkOrderStatus = ""
)

// Valid reports whether s is one of the known labels (including none)
func (s WorkOrderStatus) Valid() bool {
	switch s {
	case WorkOrderCurrent, WorkOrderUpcoming, WorkOrderCompleted, WorkOrderNone:
		return true
	}
	return false
}

// ReuseLabel marks stock that can move to another work order instead of being returned
type ReuseLabel string

const (
	ReuseCurrent  ReuseLabel = "reuse_current"
	ReuseUpcoming ReuseLabel = "reuse_upcoming"
	ReuseNone     ReuseLabel = ""
)

// Valid reports whether l is one of the known labels (including none)
func (l ReuseLabel) Valid() bool {
	switch l {
	case ReuseCurrent, ReuseUpcoming, ReuseNone:
		return true
	}
	return false
}

// UnknownAging is the aging value used when a row has no known receipt date
const UnknownAging = -1.0

// Batch identifies one completed backend analytics run
type Batch struct {
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	BatchID   string    `json:"batch_id" msgpack:"batch_id"`
}

// KPISummary holds per-batch aggregates computed by the backend
type KPISummary struct {
	Timestamp             time.Time `json:"timestamp" msgpack:"timestamp"`
	BatchID               string    `json:"batch_id" msgpack:"batch_id"`
	AlertGroupCount       int       `json:"alert_group_count" msgpack:"alert_group_count"`
	HighRiskCount         int       `json:"high_risk_count" msgpack:"high_risk_count"`
	OverIssueLines        int       `json:"over_issue_lines" msgpack:"over_issue_lines"`
	AvgAgingHours         float64   `json:"avg_aging_hours" msgpack:"avg_aging_hours"`
	ConfirmedAlertCount   int       `json:"confirmed_alert_count" msgpack:"confirmed_alert_count"`
	UnmatchedCurrentCount int       `json:"unmatched_current_count" msgpack:"unmatched_current_count"`
	LegacyCount           int       `json:"legacy_count" msgpack:"legacy_count"`
}

// Empty reports whether the summary carries no batch (backend had no data yet)
func (k KPISummary) Empty() bool {
	return k.BatchID == ""
}

// AgingDistribution is the six-bucket aging histogram of the current alert pool (days)
type AgingDistribution struct {
	Le1     int `json:"le1" msgpack:"le1"`
	D1To3   int `json:"d1_3" msgpack:"d1_3"`
	D3To7   int `json:"d3_7" msgpack:"d3_7"`
	D7To14  int `json:"d7_14" msgpack:"d7_14"`
	D14To30 int `json:"d14_30" msgpack:"d14_30"`
	Gt30    int `json:"gt30" msgpack:"gt30"`
}

// Counts returns the bucket counts in band order
func (d AgingDistribution) Counts() [6]int {
	return [6]int{d.Le1, d.D1To3, d.D3To7, d.D7To14, d.D14To30, d.Gt30}
}

// Total returns the number of rows across all buckets
func (d AgingDistribution) Total() int {
	total := 0
	for _, c := range d.Counts() {
		total += c
	}
	return total
}

// AddAt increments the bucket at band index i. Out-of-range indexes are ignored.
func (d *AgingDistribution) AddAt(i int) {
	switch i {
	case 0:
		d.Le1++
	case 1:
		d.D1To3++
	case 2:
		d.D3To7++
	case 3:
		d.D7To14++
	case 4:
		d.D14To30++
	case 5:
		d.Gt30++
	}
}

// InventoryStatusRow is one (work order, material) combination with line-side stock
type InventoryStatusRow struct {
	ShopOrder       string          `json:"shop_order" msgpack:"shop_order"`
	MaterialCode    string          `json:"material_code" msgpack:"material_code"`
	MaterialDesc    string          `json:"material_desc" msgpack:"material_desc"`
	Warehouse       string          `json:"warehouse" msgpack:"warehouse"`
	Unit            string          `json:"unit" msgpack:"unit"`
	OrderStatus     string          `json:"order_status" msgpack:"order_status"`
	WoStatusLabel   WorkOrderStatus `json:"wo_status_label" msgpack:"wo_status_label"`
	ReuseLabel      ReuseLabel      `json:"reuse_label" msgpack:"reuse_label"`
	BarcodeList     []string        `json:"barcode_list" msgpack:"barcode_list"`
	ActualInventory float64         `json:"actual_inventory" msgpack:"actual_inventory"`
	BarcodeCount    int             `json:"barcode_count" msgpack:"barcode_count"`
	AgingDays       float64         `json:"aging_days" msgpack:"aging_days"` // negative when receipt date is unknown
	TheoryRemain    float64         `json:"theory_remain" msgpack:"theory_remain"`
	Deviation       float64         `json:"deviation" msgpack:"deviation"`
	IsLegacy        bool            `json:"is_legacy" msgpack:"is_legacy"`
	CommonMaterial  bool            `json:"common_material,omitempty" msgpack:"common_material,omitempty"`
}

// AgingKnown reports whether the row has a receipt date
func (r InventoryStatusRow) AgingKnown() bool {
	return r.AgingDays >= 0
}

// IssueRow is one issuance-instruction line
type IssueRow struct {
	DemandListNumber string   `json:"demand_list_number" msgpack:"demand_list_number"`
	MaterialCode     string   `json:"material_code" msgpack:"material_code"`
	RelatedWO        string   `json:"related_wo" msgpack:"related_wo"`
	ProductionLine   string   `json:"production_line" msgpack:"production_line"`
	PlanIssueDate    string   `json:"plan_issue_date" msgpack:"plan_issue_date"`
	DemandQty        float64  `json:"demand_qty" msgpack:"demand_qty"`
	BOMDemandQty     float64  `json:"bom_demand_qty" msgpack:"bom_demand_qty"`
	ActualQty        float64  `json:"actual_qty" msgpack:"actual_qty"`
	OverIssueQty     float64  `json:"over_issue_qty" msgpack:"over_issue_qty"`
	OverIssueRate    *float64 `json:"over_issue_rate" msgpack:"over_issue_rate"`   // nil when demand_qty is zero or absent
	OverVsBOMRate    *float64 `json:"over_vs_bom_rate" msgpack:"over_vs_bom_rate"` // nil when bom_demand_qty is zero or absent
}

// KPITrendPoint is one historical batch on the KPI trend charts
type KPITrendPoint struct {
	Timestamp           string  `json:"timestamp" msgpack:"timestamp"` // chart category label as delivered
	AlertGroupCount     int     `json:"alert_group_count" msgpack:"alert_group_count"`
	HighRiskCount       int     `json:"high_risk_count" msgpack:"high_risk_count"`
	ConfirmedAlertCount int     `json:"confirmed_alert_count" msgpack:"confirmed_alert_count"`
	OverIssueLines      int     `json:"over_issue_lines" msgpack:"over_issue_lines"`
	AvgAgingHours       float64 `json:"avg_aging_hours" msgpack:"avg_aging_hours"`
}
