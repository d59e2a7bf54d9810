package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPayloadAccessors tests typed payload reads with mismatched and
// missing keys
func TestPayloadAccessors(t *testing.T) {
	evt := NewSession(TypeSessionCompleted, "TRIP-001", "MS-1", map[string]any{
		"sapDocument": "SAP-1",
		"quantity":    500.3,
		"attempts":    2,
	})

	assert.Equal(t, "SAP-1", evt.PayloadString("sapDocument"))
	assert.Equal(t, 500.3, evt.PayloadFloat("quantity"))
	assert.Equal(t, 2.0, evt.PayloadFloat("attempts"))

	// Missing or mistyped keys fall back to zero values.
	assert.Equal(t, "", evt.PayloadString("quantity"))
	assert.Equal(t, 0.0, evt.PayloadFloat("sapDocument"))
	assert.Equal(t, 0.0, evt.PayloadFloat("missing"))

	assert.Equal(t, "MS-1", evt.SessionID)
	assert.NotEmpty(t, evt.ID)
	assert.True(t, evt.Type.IsValid())
}
