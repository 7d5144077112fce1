package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// Review stage
	TriggerForward         Trigger = "FORWARD"
	TriggerRejectReview    Trigger = "REJECT_REVIEW"
	TriggerRequestRevision Trigger = "REQUEST_REVISION"

	// Approval stage
	TriggerApprove        Trigger = "APPROVE"
	TriggerRejectApproval Trigger = "REJECT_APPROVAL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
