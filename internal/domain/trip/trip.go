package trip

import (
	"errors"
	"time"

	"github.com/gtsops/gts-workflow/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when a trip id is unknown
	ErrNotFound = errors.New("trip not found")

	// ErrNotArrived is returned when a pre-decant snapshot is requested
	// before any arrival signal captured one
	ErrNotArrived = errors.New("trip not arrived yet")
)

// ReadingSnapshot captures the DBS instrument panel at a milestone: line
// pressure (bar), flow rate (kg/min) and the flow-meter totalizer value.
type ReadingSnapshot struct {
	Pressure float64   `json:"pressure"`
	Flow     float64   `json:"flow"`
	MFM      float64   `json:"mfm"`
	Time     time.Time `json:"time"`
}

// Trip is the record of one MS-to-DBS gas run. It is mutated in place by the
// milestone handlers and never deleted.
type Trip struct {
	ID         string         `json:"id"`
	Status     workflow.State `json:"status"`
	MSID       string         `json:"msId,omitempty"`
	Vehicle    string         `json:"vehicle,omitempty"`
	DriverName string         `json:"driver,omitempty"`
	DriverID   string         `json:"driverId,omitempty"`

	Pre          *ReadingSnapshot `json:"pre"`
	Post         *ReadingSnapshot `json:"post"`
	DeliveredQty *float64         `json:"deliveredQty"`
	OperatorSig  string           `json:"operatorSig,omitempty"`
	DriverSig    string           `json:"driverSig,omitempty"`

	// MSCompleted tracks the MS-side reading/posting flow, which progresses
	// independently of Status.
	MSCompleted   bool       `json:"msCompleted"`
	MSCompletedAt *time.Time `json:"msCompletedAt,omitempty"`

	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	ArrivedAt   *time.Time `json:"arrivedAt,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// New returns a trip in the CREATED state.
func New(id string) *Trip {
	return &Trip{ID: id, Status: StatusCreated}
}

// Clone returns a deep copy so callers can read a trip without holding the
// store lock.
func (t *Trip) Clone() *Trip {
	c := *t
	c.Pre = cloneSnapshot(t.Pre)
	c.Post = cloneSnapshot(t.Post)
	c.DeliveredQty = cloneFloat(t.DeliveredQty)
	c.MSCompletedAt = cloneTime(t.MSCompletedAt)
	c.AcceptedAt = cloneTime(t.AcceptedAt)
	c.ArrivedAt = cloneTime(t.ArrivedAt)
	c.StartTime = cloneTime(t.StartTime)
	c.EndTime = cloneTime(t.EndTime)
	c.ConfirmedAt = cloneTime(t.ConfirmedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

func cloneSnapshot(s *ReadingSnapshot) *ReadingSnapshot {
	if s == nil {
		return nil
	}
	c := *s
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
