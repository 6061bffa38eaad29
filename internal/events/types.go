// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	// ViewRefreshed fires after a fetch batch succeeded and the snapshot was swapped
	ViewRefreshed EventType = "VIEW_REFRESHED"
	// RefreshFailed fires when any fetch of a batch failed; the old snapshot stays
	RefreshFailed EventType = "REFRESH_FAILED"
	// FilterChanged fires when a view-level toggle or sort changed
	FilterChanged EventType = "FILTER_CHANGED"
)

// AllTypes lists every event type the view emits
func AllTypes() []EventType {
	return []EventType{ViewRefreshed, RefreshFailed, FilterChanged}
}
