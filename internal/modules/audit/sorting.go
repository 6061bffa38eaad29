package audit

import (
	"cmp"
	"slices"
	"strings"

	"github.com/aristath/lmt-kanban/internal/domain"
)

// SortDir is the sort direction
type SortDir int

const (
	Descending SortDir = -1
	Ascending  SortDir = 1
)

// String returns "asc" or "desc"
func (d SortDir) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Arrow returns the header marker for the direction
func (d SortDir) Arrow() string {
	if d == Ascending {
		return "↑"
	}
	return "↓"
}

// ParseSortDir parses "asc"/"desc"; anything else is descending
func ParseSortDir(s string) SortDir {
	if strings.EqualFold(s, "asc") {
		return Ascending
	}
	return Descending
}

// SortState is a single-key sort
type SortState struct {
	Key string  `json:"key" msgpack:"key"`
	Dir SortDir `json:"dir" msgpack:"dir"`
}

// Toggle returns the state after clicking key: the active key flips
// direction, a different key starts descending
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		if s.Dir == Ascending {
			return SortState{Key: key, Dir: Descending}
		}
		return SortState{Key: key, Dir: Ascending}
	}
	return SortState{Key: key, Dir: Descending}
}

// Marker returns the header marker for key under this state
func (s SortState) Marker(key string) string {
	if s.Key != key {
		return "↕"
	}
	return s.Dir.Arrow()
}

// sortField extracts one sortable column; exactly one of num or str is set
type sortField[T any] struct {
	num func(T) float64
	str func(T) string
}

func sortRows[T any](rows []T, fields map[string]sortField[T], s SortState) []T {
	out := slices.Clone(rows)
	f, ok := fields[s.Key]
	if !ok {
		return out
	}
	dir := s.Dir
	if dir != Ascending {
		dir = Descending
	}
	slices.SortStableFunc(out, func(a, b T) int {
		var c int
		if f.num != nil {
			c = cmp.Compare(f.num(a), f.num(b))
		} else {
			c = cmp.Compare(f.str(a), f.str(b))
		}
		return c * int(dir)
	})
	return out
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

var inventoryFields = map[string]sortField[domain.InventoryStatusRow]{
	"actual_inventory": {num: func(r domain.InventoryStatusRow) float64 { return r.ActualInventory }},
	"aging_days":       {num: func(r domain.InventoryStatusRow) float64 { return r.AgingDays }},
	"barcode_count":    {num: func(r domain.InventoryStatusRow) float64 { return float64(r.BarcodeCount) }},
	"theory_remain":    {num: func(r domain.InventoryStatusRow) float64 { return r.TheoryRemain }},
	"deviation":        {num: func(r domain.InventoryStatusRow) float64 { return r.Deviation }},
	"shop_order":       {str: func(r domain.InventoryStatusRow) string { return r.ShopOrder }},
	"material_code":    {str: func(r domain.InventoryStatusRow) string { return r.MaterialCode }},
	"material_desc":    {str: func(r domain.InventoryStatusRow) string { return r.MaterialDesc }},
	"warehouse":        {str: func(r domain.InventoryStatusRow) string { return r.Warehouse }},
	"unit":             {str: func(r domain.InventoryStatusRow) string { return r.Unit }},
	"order_status":     {str: func(r domain.InventoryStatusRow) string { return r.OrderStatus }},
	"wo_status_label":  {str: func(r domain.InventoryStatusRow) string { return string(r.WoStatusLabel) }},
}

var issueFields = map[string]sortField[domain.IssueRow]{
	"demand_qty":         {num: func(r domain.IssueRow) float64 { return r.DemandQty }},
	"bom_demand_qty":     {num: func(r domain.IssueRow) float64 { return r.BOMDemandQty }},
	"actual_qty":         {num: func(r domain.IssueRow) float64 { return r.ActualQty }},
	"over_issue_qty":     {num: func(r domain.IssueRow) float64 { return r.OverIssueQty }},
	"over_issue_rate":    {num: func(r domain.IssueRow) float64 { return valueOrZero(r.OverIssueRate) }},
	"over_vs_bom_rate":   {num: func(r domain.IssueRow) float64 { return valueOrZero(r.OverVsBOMRate) }},
	"demand_list_number": {str: func(r domain.IssueRow) string { return r.DemandListNumber }},
	"material_code":      {str: func(r domain.IssueRow) string { return r.MaterialCode }},
	"related_wo":         {str: func(r domain.IssueRow) string { return r.RelatedWO }},
	"production_line":    {str: func(r domain.IssueRow) string { return r.ProductionLine }},
	"plan_issue_date":    {str: func(r domain.IssueRow) string { return r.PlanIssueDate }},
}

// InventorySortable reports whether key is a sortable stock column
func InventorySortable(key string) bool {
	_, ok := inventoryFields[key]
	return ok
}

// IssueSortable reports whether key is a sortable issue column
func IssueSortable(key string) bool {
	_, ok := issueFields[key]
	return ok
}

// SortInventory returns a sorted copy of rows. Unknown keys leave the order unchanged.
func SortInventory(rows []domain.InventoryStatusRow, s SortState) []domain.InventoryStatusRow {
	return sortRows(rows, inventoryFields, s)
}

// SortIssues returns a sorted copy of rows. Nil rates sort as zero.
func SortIssues(rows []domain.IssueRow, s SortState) []domain.IssueRow {
	return sortRows(rows, issueFields, s)
}
