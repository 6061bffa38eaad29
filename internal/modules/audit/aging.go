// Package audit classifies material-flow audit rows into display categories.
//
// Everything here is pure: no I/O, no clocks, no panics. Rows missing a field
// degrade to the lowest-precedence or unknown bucket so a malformed record
// cannot break a list render.
package audit

import (
	"math"

	"github.com/aristath/lmt-kanban/internal/domain"
)

// BandKey identifies one aging band
type BandKey string

const (
	BandLe1     BandKey = "le1"
	BandD1To3   BandKey = "d1_3"
	BandD3To7   BandKey = "d3_7"
	BandD7To14  BandKey = "d7_14"
	BandD14To30 BandKey = "d14_30"
	BandGt30    BandKey = "gt30"
)

// Band is one of the six ordered, contiguous aging ranges
type Band struct {
	Key     BandKey `json:"key" msgpack:"key"`
	Label   string  `json:"label" msgpack:"label"` // day range, e.g. "3-7天"
	Title   string  `json:"title" msgpack:"title"` // severity wording
	Color   string  `json:"color" msgpack:"color"`
	Border  string  `json:"border" msgpack:"border"`
	MaxDays float64 `json:"-" msgpack:"-"` // inclusive upper edge
	Index   int     `json:"index" msgpack:"index"`
}

// bands is the single boundary table every aging surface goes through.
// Upper edges are inclusive; the last band is unbounded.
var bands = [6]Band{
	{Index: 0, Key: BandLe1, Label: "≤1天", Title: "健康", Color: "#15803d", Border: "#16a34a", MaxDays: 1},
	{Index: 1, Key: BandD1To3, Label: "1-3天", Title: "观察中", Color: "#65a30d", Border: "#84cc16", MaxDays: 3},
	{Index: 2, Key: BandD3To7, Label: "3-7天", Title: "开始关注", Color: "#d97706", Border: "#f59e0b", MaxDays: 7},
	{Index: 3, Key: BandD7To14, Label: "7-14天", Title: "需跟进", Color: "#c2410c", Border: "#ea580c", MaxDays: 14},
	{Index: 4, Key: BandD14To30, Label: "14-30天", Title: "滞留风险", Color: "#dc2626", Border: "#ef4444", MaxDays: 30},
	{Index: 5, Key: BandGt30, Label: ">30天", Title: "严重滞留", Color: "#7f1d1d", Border: "#991b1b", MaxDays: math.Inf(1)},
}

// Bands returns the ordered band table
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands[:])
	return out
}

// BandForDays returns the aging band for a day count.
// ok is false for negative or NaN input, which means the receipt date is unknown.
func BandForDays(days float64) (Band, bool) {
	if math.IsNaN(days) || days < 0 {
		return Band{}, false
	}
	for _, b := range bands {
		if days <= b.MaxDays {
			return b, true
		}
	}
	return bands[len(bands)-1], true
}

// BandForHours is BandForDays for an hour count (KPI and chart tooltips)
func BandForHours(hours float64) (Band, bool) {
	if math.IsNaN(hours) || hours < 0 {
		return Band{}, false
	}
	return BandForDays(hours / 24)
}

// Distribute buckets aging values into a distribution. Unknown values are skipped.
func Distribute(days []float64) domain.AgingDistribution {
	var dist domain.AgingDistribution
	for _, d := range days {
		if b, ok := BandForDays(d); ok {
			dist.AddAt(b.Index)
		}
	}
	return dist
}

// DistributeRows buckets the aging of inventory rows
func DistributeRows(rows []domain.InventoryStatusRow) domain.AgingDistribution {
	days := make([]float64, 0, len(rows))
	for _, r := range rows {
		days = append(days, r.AgingDays)
	}
	return Distribute(days)
}

// StripSegment is one non-empty segment of the aging distribution strip
type StripSegment struct {
	Band
	Count   int     `json:"count" msgpack:"count"`
	WidthPc float64 `json:"width_pct" msgpack:"width_pct"`
}

// minSegmentWidth keeps small buckets visible on the strip
const minSegmentWidth = 8.0

// Strip returns the non-empty bands of dist with their display widths in percent
func Strip(dist domain.AgingDistribution) []StripSegment {
	counts := dist.Counts()
	total := dist.Total()
	if total == 0 {
		return nil
	}

	segments := make([]StripSegment, 0, len(counts))
	for i, c := range counts {
		if c <= 0 {
			continue
		}
		width := float64(c) / float64(total) * 100
		if width < minSegmentWidth {
			width = minSegmentWidth
		}
		segments = append(segments, StripSegment{Band: bands[i], Count: c, WidthPc: width})
	}
	return segments
}
