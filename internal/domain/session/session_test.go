package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtsops/gts-workflow/internal/domain/workflow"
)

// TestSessionFlowIsLinear tests that every step requires the previous one
func TestSessionFlowIsLinear(t *testing.T) {
	m, err := NewMachine(StatusArrivalConfirmed)
	require.NoError(t, err)

	// Post reading and SAP posting are premature.
	assert.ErrorIs(t, m.Fire(context.Background(), TriggerRecordPost), workflow.ErrInvalidTransition)
	assert.ErrorIs(t, m.Fire(context.Background(), TriggerPostSAP), workflow.ErrInvalidTransition)

	require.NoError(t, m.Fire(context.Background(), TriggerRecordPre))
	assert.Equal(t, StatusPreReadingDone, m.State())

	// Pre cannot be replayed.
	assert.ErrorIs(t, m.Fire(context.Background(), TriggerRecordPre), workflow.ErrInvalidTransition)

	require.NoError(t, m.Fire(context.Background(), TriggerRecordPost))
	require.NoError(t, m.Fire(context.Background(), TriggerPostSAP))
	assert.Equal(t, StatusCompleted, m.State())

	// COMPLETED is terminal.
	assert.Empty(t, m.PermittedTriggers())
}

// TestNewSession tests initial session shape
func TestNewSession(t *testing.T) {
	sess := New("MS-TRIP-001-AB12CD34", "TKN-1", "TRIP-001", "driver-001", "MP09-AB-1234", "ms-op-001")

	assert.Equal(t, StatusArrivalConfirmed, sess.Status)
	assert.Equal(t, "TRIP-001", sess.TripID)
	assert.Nil(t, sess.PreReading)
	assert.Nil(t, sess.PostReading)
	assert.False(t, sess.CreatedAt.IsZero())
}
