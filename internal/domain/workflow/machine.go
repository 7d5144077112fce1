package workflow

// StateMachine tracks the status of one report and validates its transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// Fire moves to the trigger's target state or returns ErrInvalidTransition
	Fire(trigger Trigger) error

	// PermittedTriggers returns the triggers allowed in the current state, sorted
	PermittedTriggers() []Trigger
}
