package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewRefreshedData(t *testing.T) {
	data := ViewRefreshedData{
		CycleID:       "c-1",
		Trigger:       "poll",
		BatchID:       "20260101_080000",
		BatchTime:     time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		ExcludeCommon: true,
		DurationMs:    42,
	}

	jsonData, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"batch_id":"20260101_080000"`)
	assert.Contains(t, string(jsonData), `"exclude_common":true`)

	var unmarshaled ViewRefreshedData
	require.NoError(t, json.Unmarshal(jsonData, &unmarshaled))
	assert.Equal(t, data.CycleID, unmarshaled.CycleID)
	assert.Equal(t, data.DurationMs, unmarshaled.DurationMs)
	assert.True(t, data.BatchTime.Equal(unmarshaled.BatchTime))
	assert.Equal(t, ViewRefreshed, (&data).EventType())
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, RefreshFailed, (&RefreshFailedData{}).EventType())
	assert.Equal(t, FilterChanged, (&FilterChangedData{}).EventType())
	assert.ElementsMatch(t, []EventType{ViewRefreshed, RefreshFailed, FilterChanged}, AllTypes())
}

func TestEvent_GetTypedData(t *testing.T) {
	event := &Event{
		Type: RefreshFailed,
		Data: map[string]interface{}{"cycle_id": "c-2", "trigger": "manual", "error": "boom"},
	}

	typed, ok := event.GetTypedData().(*RefreshFailedData)
	require.True(t, ok)
	assert.Equal(t, "c-2", typed.CycleID)
	assert.Equal(t, "boom", typed.Error)

	assert.Nil(t, (&Event{Type: RefreshFailed}).GetTypedData())
	assert.Nil(t, (&Event{Type: "UNKNOWN", Data: map[string]interface{}{}}).GetTypedData())
}
