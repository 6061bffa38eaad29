package audit

import (
	"github.com/aristath/lmt-kanban/internal/domain"
	"github.com/aristath/lmt-kanban/internal/utils"
)

// Predicate is a pure boolean test over a row
type Predicate[T any] func(T) bool

// All combines predicates conjunctively. Nil predicates are skipped, so the
// combination is order-insensitive and an empty list accepts everything.
func All[T any](preds ...Predicate[T]) Predicate[T] {
	return func(row T) bool {
		for _, p := range preds {
			if p != nil && !p(row) {
				return false
			}
		}
		return true
	}
}

// Filter returns the rows accepted by p as a new slice
func Filter[T any](rows []T, p Predicate[T]) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if p == nil || p(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterAll is the "all" value shared by the chip filters
const FilterAll = "all"

// LabelFilter selects rows by resolved badge
type LabelFilter string

var labelFilters = map[LabelFilter]bool{
	FilterAll:                       true,
	LabelFilter(BadgeReuseCurrent):  true,
	LabelFilter(BadgeReuseUpcoming): true,
	LabelFilter(BadgeInProduction):  true,
	LabelFilter(BadgeAwaitingProd):  true,
	LabelFilter(BadgeAwaitingRetn):  true,
	LabelFilter(BadgeLegacy):        true,
	LabelFilter(BadgeOutOfScope):    true,
}

// ParseLabelFilter parses a label filter; empty input means all
func ParseLabelFilter(s string) (LabelFilter, bool) {
	if s == "" {
		return FilterAll, true
	}
	f := LabelFilter(s)
	return f, labelFilters[f]
}

// ByLabel matches rows whose resolved badge equals the filter. A completed
// row that carries a reuse label resolves to the reuse badge and is therefore
// not matched by the completed filter.
func ByLabel(f LabelFilter) Predicate[domain.InventoryStatusRow] {
	if f == "" || f == FilterAll {
		return nil
	}
	return func(r domain.InventoryStatusRow) bool {
		return ResolveBadge(r).Kind == BadgeKind(f)
	}
}

// AgingChip is one of the quick aging filters on the alert table
type AgingChip string

const (
	ChipLe3    AgingChip = "le3"
	ChipD3To7  AgingChip = "d3_7"
	ChipD7To14 AgingChip = "d7_14"
	ChipGt14   AgingChip = "gt14"
)

// ParseAgingChip parses a chip value; empty input means all
func ParseAgingChip(s string) (AgingChip, bool) {
	switch AgingChip(s) {
	case "", FilterAll:
		return FilterAll, true
	case ChipLe3, ChipD3To7, ChipD7To14, ChipGt14:
		return AgingChip(s), true
	}
	return FilterAll, false
}

// MatchAgingChip reports whether an aging value falls in the chip range.
// Unknown (negative) aging never matches a specific chip.
func MatchAgingChip(chip AgingChip, days float64) bool {
	if chip == "" || chip == FilterAll {
		return true
	}
	if _, ok := BandForDays(days); !ok {
		return false
	}
	switch chip {
	case ChipLe3:
		return days <= 3
	case ChipD3To7:
		return days > 3 && days <= 7
	case ChipD7To14:
		return days > 7 && days <= 14
	case ChipGt14:
		return days > 14
	}
	return false
}

// ByAgingChip filters inventory rows by aging chip
func ByAgingChip(chip AgingChip) Predicate[domain.InventoryStatusRow] {
	if chip == "" || chip == FilterAll {
		return nil
	}
	return func(r domain.InventoryStatusRow) bool {
		return MatchAgingChip(chip, r.AgingDays)
	}
}

// Direction selects over- or under-issued lines
type Direction string

const (
	DirectionOver  Direction = "over"
	DirectionUnder Direction = "under"
)

// ParseDirection parses an issue direction; empty input means all
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case "", FilterAll:
		return FilterAll, true
	case DirectionOver, DirectionUnder:
		return Direction(s), true
	}
	return FilterAll, false
}

// ByDirection filters issue rows by the sign of over_issue_qty outside the dead zone
func ByDirection(d Direction) Predicate[domain.IssueRow] {
	switch d {
	case DirectionOver:
		return func(r domain.IssueRow) bool { return DeviationTierOf(r.OverIssueQty) == DeviationOver }
	case DirectionUnder:
		return func(r domain.IssueRow) bool { return DeviationTierOf(r.OverIssueQty) == DeviationUnder }
	}
	return nil
}

// MatchInventoryQuery is the free-text match for stock rows: work order,
// material code or any barcode, case-insensitive substring
func MatchInventoryQuery(r domain.InventoryStatusRow, q string) bool {
	if q == "" {
		return true
	}
	if utils.AnyContainsFold(q, r.ShopOrder, r.MaterialCode) {
		return true
	}
	return utils.AnyContainsFold(q, r.BarcodeList...)
}

// MatchIssueQuery is the free-text match for issue rows: material code,
// demand-list number or related work order
func MatchIssueQuery(r domain.IssueRow, q string) bool {
	return utils.AnyContainsFold(q, r.MaterialCode, r.DemandListNumber, r.RelatedWO)
}

// ByInventoryQuery filters stock rows by free text
func ByInventoryQuery(q string) Predicate[domain.InventoryStatusRow] {
	if q == "" {
		return nil
	}
	return func(r domain.InventoryStatusRow) bool { return MatchInventoryQuery(r, q) }
}

// ByIssueQuery filters issue rows by free text
func ByIssueQuery(q string) Predicate[domain.IssueRow] {
	if q == "" {
		return nil
	}
	return func(r domain.IssueRow) bool { return MatchIssueQuery(r, q) }
}

// ExcludeCommon drops rows the backend flagged as shared across work orders,
// plus any material code in the optional local set
func ExcludeCommon(enabled bool, common map[string]bool) Predicate[domain.InventoryStatusRow] {
	if !enabled {
		return nil
	}
	return func(r domain.InventoryStatusRow) bool {
		return !r.CommonMaterial && !common[r.MaterialCode]
	}
}
