package dashboard

import (
	"strconv"

	"github.com/aristath/lmt-kanban/internal/domain"
	"github.com/aristath/lmt-kanban/internal/modules/audit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series is one line on a trend chart
type Series struct {
	Key    string    `json:"key" msgpack:"key"`
	Name   string    `json:"name" msgpack:"name"`
	Color  string    `json:"color" msgpack:"color"`
	Values []float64 `json:"values" msgpack:"values"`
	// Tooltips has one entry per value
	Tooltips []Tooltip `json:"tooltips" msgpack:"tooltips"`
	Min      float64   `json:"min" msgpack:"min"`
	Max      float64   `json:"max" msgpack:"max"`
	Mean     float64   `json:"mean" msgpack:"mean"`
}

// Chart is a category chart over the trend timestamps
type Chart struct {
	Categories []string `json:"categories" msgpack:"categories"`
	Series     []Series `json:"series" msgpack:"series"`
	YMin       float64  `json:"y_min" msgpack:"y_min"`
	YMax       float64  `json:"y_max" msgpack:"y_max"`
	Unit       string   `json:"unit,omitempty" msgpack:"unit,omitempty"`
}

// Tooltip is the hover text of one chart point
type Tooltip struct {
	Label string `json:"label" msgpack:"label"`
	Band  string `json:"band,omitempty" msgpack:"band,omitempty"`
	Color string `json:"color,omitempty" msgpack:"color,omitempty"`
}

func countTooltip(v float64) Tooltip {
	return Tooltip{Label: strconv.FormatFloat(v, 'f', -1, 64)}
}

// hoursTooltip labels an aging figure and colours it by its aging band
func hoursTooltip(h float64) Tooltip {
	t := Tooltip{Label: audit.FormatHours(h)}
	if b, ok := audit.BandForHours(h); ok {
		t.Band = b.Title
		t.Color = b.Color
	}
	return t
}

func newSeries(key, name, color string, values []float64, tooltip func(float64) Tooltip) Series {
	s := Series{Key: key, Name: name, Color: color, Values: values, Tooltips: make([]Tooltip, 0, len(values))}
	for _, v := range values {
		s.Tooltips = append(s.Tooltips, tooltip(v))
	}
	if len(values) == 0 {
		s.Values = []float64{}
		return s
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean = stat.Mean(values, nil)
	return s
}

func newChart(categories []string, unit string, series ...Series) Chart {
	c := Chart{Categories: categories, Series: series, Unit: unit}
	first := true
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		if first || s.Min < c.YMin {
			c.YMin = s.Min
		}
		if first || s.Max > c.YMax {
			c.YMax = s.Max
		}
		first = false
	}
	if c.YMin > 0 {
		c.YMin = 0
	}
	return c
}

func trendColumn(points []domain.KPITrendPoint, get func(domain.KPITrendPoint) float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = get(p)
	}
	return out
}

// RiskTrendChart plots the three risk counts per batch
func RiskTrendChart(points []domain.KPITrendPoint) Chart {
	categories := make([]string, len(points))
	for i, p := range points {
		categories[i] = p.Timestamp
	}
	return newChart(categories, "",
		newSeries("alert_group_count", "退料预警总量", "#60a5fa",
			trendColumn(points, func(p domain.KPITrendPoint) float64 { return float64(p.AlertGroupCount) }), countTooltip),
		newSeries("confirmed_alert_count", "当期退料预警", "#f87171",
			trendColumn(points, func(p domain.KPITrendPoint) float64 { return float64(p.ConfirmedAlertCount) }), countTooltip),
		newSeries("over_issue_lines", "超发预警行数", "#fbbf24",
			trendColumn(points, func(p domain.KPITrendPoint) float64 { return float64(p.OverIssueLines) }), countTooltip),
	)
}

// AgingTrendChart plots the current-period average aging in hours
func AgingTrendChart(points []domain.KPITrendPoint) Chart {
	categories := make([]string, len(points))
	for i, p := range points {
		categories[i] = p.Timestamp
	}
	return newChart(categories, "h",
		newSeries("avg_aging_hours", "当期平均库龄", "#a855f7",
			trendColumn(points, func(p domain.KPITrendPoint) float64 { return p.AvgAgingHours }), hoursTooltip),
	)
}
