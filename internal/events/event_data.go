package events

import "time"

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ViewRefreshedData contains data for ViewRefreshed events
type ViewRefreshedData struct {
	CycleID       string    `json:"cycle_id"`
	Trigger       string    `json:"trigger"`
	BatchID       string    `json:"batch_id"`
	BatchTime     time.Time `json:"batch_time"`
	ExcludeCommon bool      `json:"exclude_common"`
	DurationMs    int64     `json:"duration_ms"`
}

// EventType returns the event type for ViewRefreshedData
func (d *ViewRefreshedData) EventType() EventType {
	return ViewRefreshed
}

// RefreshFailedData contains data for RefreshFailed events
type RefreshFailedData struct {
	CycleID string `json:"cycle_id"`
	Trigger string `json:"trigger"`
	Error   string `json:"error"`
}

// EventType returns the event type for RefreshFailedData
func (d *RefreshFailedData) EventType() EventType {
	return RefreshFailed
}

// FilterChangedData contains data for FilterChanged events
type FilterChangedData struct {
	Filter string `json:"filter"` // exclude_common, sort_alerts, sort_issues
	Value  string `json:"value"`
}

// EventType returns the event type for FilterChangedData
func (d *FilterChangedData) EventType() EventType {
	return FilterChanged
}
