package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkOrderStatus_Valid(t *testing.T) {
	tests := []struct {
		status   WorkOrderStatus
		expected bool
	}{
		{WorkOrderCurrent, true},
		{WorkOrderUpcoming, true},
		{WorkOrderCompleted, true},
		{WorkOrderNone, true},
		{"cancelled", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.Valid())
		})
	}
}

func TestReuseLabel_Valid(t *testing.T) {
	assert.True(t, ReuseCurrent.Valid())
	assert.True(t, ReuseUpcoming.Valid())
	assert.True(t, ReuseNone.Valid())
	assert.False(t, ReuseLabel("reuse_later").Valid())
}

func TestKPISummary_Empty(t *testing.T) {
	assert.True(t, KPISummary{}.Empty())
	assert.False(t, KPISummary{BatchID: "20260101_080000"}.Empty())
}

func TestAgingDistribution_AddAtAndTotal(t *testing.T) {
	var d AgingDistribution
	for i := -1; i <= 6; i++ {
		d.AddAt(i)
	}
	d.AddAt(2)

	assert.Equal(t, [6]int{1, 1, 2, 1, 1, 1}, d.Counts())
	assert.Equal(t, 7, d.Total())
}

func TestInventoryStatusRow_AgingKnown(t *testing.T) {
	assert.True(t, InventoryStatusRow{AgingDays: 0}.AgingKnown())
	assert.True(t, InventoryStatusRow{AgingDays: 12.5}.AgingKnown())
	assert.False(t, InventoryStatusRow{AgingDays: UnknownAging}.AgingKnown())
}
