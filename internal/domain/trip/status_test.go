package trip

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtsops/gts-workflow/internal/domain/workflow"
)

// TestDecantSequenceIsGuarded tests that decant triggers only fire in order
func TestDecantSequenceIsGuarded(t *testing.T) {
	tests := []struct {
		name    string
		from    workflow.State
		trigger workflow.Trigger
		wantTo  workflow.State
		wantErr bool
	}{
		{name: "start from arrived", from: StatusArrived, trigger: TriggerStartDecant, wantTo: StatusStarted},
		{name: "start from created rejected", from: StatusCreated, trigger: TriggerStartDecant, wantErr: true},
		{name: "start from started rejected", from: StatusStarted, trigger: TriggerStartDecant, wantErr: true},
		{name: "end from started", from: StatusStarted, trigger: TriggerEndDecant, wantTo: StatusEnded},
		{name: "end from arrived rejected", from: StatusArrived, trigger: TriggerEndDecant, wantErr: true},
		{name: "confirm from ended", from: StatusEnded, trigger: TriggerConfirmDecant, wantTo: StatusConfirmed},
		{name: "confirm from confirmed rejected", from: StatusConfirmed, trigger: TriggerConfirmDecant, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMachine(tt.from)
			require.NoError(t, err)

			err = m.Fire(context.Background(), tt.trigger)
			if tt.wantErr {
				assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
				assert.Equal(t, tt.from, m.State())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTo, m.State())
		})
	}
}

// TestArrivalAndCompletionAreUnconditional tests the physical-world triggers
func TestArrivalAndCompletionAreUnconditional(t *testing.T) {
	for _, from := range AllStatuses {
		m, err := NewMachine(from)
		require.NoError(t, err)
		require.NoError(t, m.Fire(context.Background(), TriggerArrive), "arrive from %s", from)
		assert.Equal(t, StatusArrived, m.State())

		m, err = NewMachine(from)
		require.NoError(t, err)
		require.NoError(t, m.Fire(context.Background(), TriggerComplete), "complete from %s", from)
		assert.Equal(t, StatusCompleted, m.State())
	}
}

// TestCloneIsDeep tests that Clone isolates pointer fields
func TestCloneIsDeep(t *testing.T) {
	qty := 500.5
	orig := New("TRIP-001")
	orig.DeliveredQty = &qty
	orig.Pre = &ReadingSnapshot{Pressure: 9.1, Flow: 45.0, MFM: 12000}

	c := orig.Clone()
	*c.DeliveredQty = 999
	c.Pre.Pressure = 1.0

	assert.Equal(t, 500.5, *orig.DeliveredQty)
	assert.Equal(t, 9.1, orig.Pre.Pressure)
}
