package session

import (
	"errors"
	"time"

	"github.com/gtsops/gts-workflow/internal/domain/workflow"
)

// MS session states. The flow is strictly linear: every step requires the
// previous one.
const (
	StatusArrivalConfirmed workflow.State = "ARRIVAL_CONFIRMED"
	StatusPreReadingDone   workflow.State = "PRE_READING_DONE"
	StatusPostReadingDone  workflow.State = "POST_READING_DONE"
	StatusCompleted        workflow.State = "COMPLETED"
)

// Triggers for session transitions.
const (
	TriggerRecordPre  workflow.Trigger = "RECORD_PRE_READING"
	TriggerRecordPost workflow.Trigger = "RECORD_POST_READING"
	TriggerPostSAP    workflow.Trigger = "POST_TO_SAP"
)

// ErrNotFound is returned when a session id is unknown
var ErrNotFound = errors.New("session not found")

var transitions = buildTransitions()

func buildTransitions() workflow.Builder {
	b := workflow.NewBuilder()
	b.Configure(StatusArrivalConfirmed).Permit(TriggerRecordPre, StatusPreReadingDone)
	b.Configure(StatusPreReadingDone).Permit(TriggerRecordPost, StatusPostReadingDone)
	b.Configure(StatusPostReadingDone).Permit(TriggerPostSAP, StatusCompleted)
	return b
}

// NewMachine returns a state machine positioned at the given session status.
func NewMachine(current workflow.State) (workflow.StateMachine, error) {
	return transitions.Build(current)
}

// Session tracks one truck visit at the Mother Station, from arrival
// confirmation through meter readings to the SAP posting. A session holds a
// back-reference to its token by id only; the token is re-validated against
// the store before every step.
type Session struct {
	ID          string         `json:"sessionId"`
	TokenID     string         `json:"token"`
	TripID      string         `json:"tripId"`
	DriverID    string         `json:"driverId"`
	TruckNumber string         `json:"truckNumber"`
	OperatorID  string         `json:"operatorId"`
	Status      workflow.State `json:"status"`

	PreReading  *float64 `json:"preReading"`
	PostReading *float64 `json:"postReading"`
	SAPDocument string   `json:"sapDocument,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`

	CreatedAt   time.Time  `json:"timestamp"`
	PreAt       *time.Time `json:"preTimestamp,omitempty"`
	PostAt      *time.Time `json:"postTimestamp,omitempty"`
	CompletedAt *time.Time `json:"completedTimestamp,omitempty"`
}

// New returns a session in the ARRIVAL_CONFIRMED state.
func New(id, tokenID, tripID, driverID, truckNumber, operatorID string) *Session {
	return &Session{
		ID:          id,
		TokenID:     tokenID,
		TripID:      tripID,
		DriverID:    driverID,
		TruckNumber: truckNumber,
		OperatorID:  operatorID,
		Status:      StatusArrivalConfirmed,
		CreatedAt:   time.Now(),
	}
}

// Clone returns a copy safe to hand out without the store lock.
func (s *Session) Clone() *Session {
	c := *s
	c.PreReading = cloneFloat(s.PreReading)
	c.PostReading = cloneFloat(s.PostReading)
	c.Quantity = cloneFloat(s.Quantity)
	c.PreAt = cloneTime(s.PreAt)
	c.PostAt = cloneTime(s.PostAt)
	c.CompletedAt = cloneTime(s.CompletedAt)
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
