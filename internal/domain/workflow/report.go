package workflow

import "sync"

var (
	reportOnce    sync.Once
	reportBuilder StateMachineBuilder
)

func newReportBuilder() StateMachineBuilder {
	b := NewBuilder()

	// Reviewers and approvers may act on any open report. Approved and
	// Rejected have no outgoing transitions.
	for _, open := range []State{StatePending, StateReviewed} {
		b.Configure(open).
			Permit(TriggerForward, StateReviewed).
			Permit(TriggerRejectReview, StateRejected).
			Permit(TriggerRequestRevision, StatePending).
			Permit(TriggerApprove, StateApproved).
			Permit(TriggerRejectApproval, StateRejected)
	}
	b.Configure(StateApproved)
	b.Configure(StateRejected)

	return b
}

// NewReportMachine returns a state machine positioned at current.
// It returns ErrInvalidState for labels outside the four report states.
func NewReportMachine(current State) (StateMachine, error) {
	if !current.IsValid() {
		return nil, ErrInvalidState
	}
	reportOnce.Do(func() { reportBuilder = newReportBuilder() })
	return reportBuilder.Build(current), nil
}
