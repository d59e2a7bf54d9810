package event

// Type identifies the type of domain event
type Type string

const (
	TypeTripAccepted      Type = "trip.accepted"
	TypeTripArrived       Type = "trip.arrived"
	TypeDecantStarted     Type = "trip.decant_started"
	TypeDecantEnded       Type = "trip.decant_ended"
	TypeDecantConfirmed   Type = "trip.decant_confirmed"
	TypeTripCompleted     Type = "trip.completed"
	TypeSessionCompleted  Type = "session.completed"
	TypeTokenRevoked      Type = "token.revoked"
	TypeEmergencyReported Type = "trip.emergency"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTripAccepted,
		TypeTripArrived,
		TypeDecantStarted,
		TypeDecantEnded,
		TypeDecantConfirmed,
		TypeTripCompleted,
		TypeSessionCompleted,
		TypeTokenRevoked,
		TypeEmergencyReported:
		return true
	default:
		return false
	}
}
