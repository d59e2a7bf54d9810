package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event emitted after a successful workflow
// transition. Events carry identifiers, never entity pointers, so handlers
// re-read state through the stores.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	TripID    string         `json:"trip_id"`
	SessionID string         `json:"session_id,omitempty"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// New creates a domain event with a generated id.
func New(eventType Type, tripID string, payload map[string]any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TripID:    tripID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewSession creates a session-scoped domain event.
func NewSession(eventType Type, tripID, sessionID string, payload map[string]any) *Event {
	e := New(eventType, tripID, payload)
	e.SessionID = sessionID
	return e
}

// PayloadString retrieves a string value from the payload.
func (e *Event) PayloadString(key string) string {
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PayloadFloat retrieves a float64 value from the payload.
func (e *Event) PayloadFloat(key string) float64 {
	if v, ok := e.Payload[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return 0
}
