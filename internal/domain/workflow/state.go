package workflow

// State represents a report status in the approval lifecycle
type State string

const (
	StatePending  State = "Pending"
	StateReviewed State = "Reviewed"
	StateApproved State = "Approved"
	StateRejected State = "Rejected"
)

// IsTerminal returns true for Approved and Rejected, which have no way back
func (s State) IsTerminal() bool {
	return s == StateApproved || s == StateRejected
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is one of the four report statuses.
// Labels are case-sensitive.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateReviewed, StateApproved, StateRejected:
		return true
	}
	return false
}
