package trip

import "github.com/gtsops/gts-workflow/internal/domain/workflow"

// Trip lifecycle states. The DBS-side decant flow moves a trip through these
// in order; arrival and completion are unguarded because they are driven by
// physical-world signals (gate sensor, driver confirmation) that the backend
// has no authority to reject.
const (
	StatusCreated   workflow.State = "CREATED"
	StatusAccepted  workflow.State = "ACCEPTED"
	StatusArrived   workflow.State = "ARRIVED"
	StatusStarted   workflow.State = "STARTED"
	StatusEnded     workflow.State = "ENDED"
	StatusConfirmed workflow.State = "CONFIRMED"
	StatusCompleted workflow.State = "COMPLETED"
)

// Triggers for trip transitions.
const (
	TriggerAccept         workflow.Trigger = "ACCEPT"
	TriggerArrive         workflow.Trigger = "ARRIVE"
	TriggerStartDecant    workflow.Trigger = "START_DECANT"
	TriggerEndDecant      workflow.Trigger = "END_DECANT"
	TriggerConfirmDecant  workflow.Trigger = "CONFIRM_DECANT"
	TriggerComplete       workflow.Trigger = "COMPLETE"
)

// AllStatuses lists every trip state in lifecycle order.
var AllStatuses = []workflow.State{
	StatusCreated,
	StatusAccepted,
	StatusArrived,
	StatusStarted,
	StatusEnded,
	StatusConfirmed,
	StatusCompleted,
}

var transitions = buildTransitions()

func buildTransitions() workflow.Builder {
	b := workflow.NewBuilder()

	for _, s := range AllStatuses {
		b.Configure(s).
			Permit(TriggerAccept, StatusAccepted).
			Permit(TriggerArrive, StatusArrived).
			Permit(TriggerComplete, StatusCompleted)
	}

	// Strictly guarded decant sequence.
	b.Configure(StatusArrived).Permit(TriggerStartDecant, StatusStarted)
	b.Configure(StatusStarted).Permit(TriggerEndDecant, StatusEnded)
	b.Configure(StatusEnded).Permit(TriggerConfirmDecant, StatusConfirmed)

	return b
}

// NewMachine returns a state machine positioned at the given trip status.
func NewMachine(current workflow.State) (workflow.StateMachine, error) {
	return transitions.Build(current)
}
