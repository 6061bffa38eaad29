package audit

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Placeholder is rendered for absent values
const Placeholder = "-"

// barcodePreviewLimit is how many barcodes a table cell shows before collapsing
const barcodePreviewLimit = 3

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatQuantity renders a quantity with a fixed number of decimals
func FormatQuantity(v float64, places int32) string {
	if !finite(v) {
		return Placeholder
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatPositiveQuantity renders v, or the placeholder when v is not positive
// (BOM demand of zero means no BOM baseline)
func FormatPositiveQuantity(v float64, places int32) string {
	if !finite(v) || v <= 0 {
		return Placeholder
	}
	return FormatQuantity(v, places)
}

// FormatDeviation renders a signed quantity with two decimals and a + sign when positive
func FormatDeviation(v float64) string {
	if !finite(v) {
		return Placeholder
	}
	s := decimal.NewFromFloat(v).StringFixed(2)
	if v > 0 {
		return "+" + s
	}
	return s
}

// FormatRate renders a percentage with one decimal. Nil or non-finite rates
// render as the placeholder, never as 0% or NaN.
func FormatRate(rate *float64) string {
	if rate == nil || !finite(*rate) {
		return Placeholder
	}
	return decimal.NewFromFloat(*rate).StringFixed(1) + "%"
}

// FormatHours renders an hour figure. Zero is a recorded value and renders as "0 h".
func FormatHours(h float64) string {
	if !finite(h) {
		return Placeholder
	}
	return strconv.FormatFloat(h, 'f', -1, 64) + " h"
}

// FormatAgingDays renders the long aging badge text, e.g. "3.5d (开始关注)"
func FormatAgingDays(days float64) string {
	b, ok := BandForDays(days)
	if !ok {
		return Placeholder
	}
	return fmt.Sprintf("%sd (%s)", strconv.FormatFloat(days, 'f', -1, 64), b.Title)
}

// FormatAgingDaysShort renders the compact aging text, whole days, e.g. "3天"
func FormatAgingDaysShort(days float64) string {
	if _, ok := BandForDays(days); !ok {
		return Placeholder
	}
	return fmt.Sprintf("%d天", int64(math.Floor(days)))
}

// BarcodePreview is the collapsed barcode cell
type BarcodePreview struct {
	Shown  []string `json:"shown" msgpack:"shown"`
	Hidden []string `json:"hidden,omitempty" msgpack:"hidden,omitempty"`
	More   string   `json:"more,omitempty" msgpack:"more,omitempty"`
	Count  string   `json:"count,omitempty" msgpack:"count,omitempty"`
}

// PreviewBarcodes shows the first barcodes and summarises the rest. With no
// list it falls back to the barcode count.
func PreviewBarcodes(list []string, count int) BarcodePreview {
	if len(list) == 0 {
		return BarcodePreview{Shown: []string{}, Count: fmt.Sprintf("%d个", count)}
	}
	if len(list) <= barcodePreviewLimit {
		return BarcodePreview{Shown: list}
	}
	hidden := list[barcodePreviewLimit:]
	return BarcodePreview{
		Shown:  list[:barcodePreviewLimit],
		Hidden: hidden,
		More:   fmt.Sprintf("+%d 更多", len(hidden)),
	}
}
