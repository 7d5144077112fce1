package workflow

import (
	"fmt"
	"strings"
)

// Action labels recognised by the review and approval stages
const (
	ActionReviewed = "Reviewed"
	ActionRejected = "Rejected"
	ActionApproved = "Approved"
)

// ReviewKind classifies a review action
type ReviewKind int

const (
	// ReviewForward sends the report on to an approver
	ReviewForward ReviewKind = iota
	// ReviewReject ends the workflow at the review stage
	ReviewReject
	// ReviewOther is any other label; the report goes back to Pending
	ReviewOther
)

// ReviewAction is a reviewer's decision. Labels other than "Reviewed" and
// "Rejected" are kept verbatim and treated as revision requests.
type ReviewAction struct {
	kind  ReviewKind
	label string
}

// ParseReviewAction classifies label. Matching is exact.
func ParseReviewAction(label string) (ReviewAction, error) {
	if strings.TrimSpace(label) == "" {
		return ReviewAction{}, ErrEmptyAction
	}

	switch label {
	case ActionReviewed:
		return ReviewAction{kind: ReviewForward, label: label}, nil
	case ActionRejected:
		return ReviewAction{kind: ReviewReject, label: label}, nil
	default:
		return ReviewAction{kind: ReviewOther, label: label}, nil
	}
}

// Kind returns the classification
func (a ReviewAction) Kind() ReviewKind { return a.kind }

// Label returns the label as submitted; it is what the history records
func (a ReviewAction) Label() string { return a.label }

// Trigger maps the action onto the state machine
func (a ReviewAction) Trigger() Trigger {
	switch a.kind {
	case ReviewForward:
		return TriggerForward
	case ReviewReject:
		return TriggerRejectReview
	default:
		return TriggerRequestRevision
	}
}

func (a ReviewAction) String() string {
	return fmt.Sprintf("review(%s)", a.label)
}

// ApproveDecision is the binary outcome of the approval stage
type ApproveDecision int

const (
	DecisionApproved ApproveDecision = iota
	DecisionRejected
)

// ApproveAction is an approver's decision. Only the exact label "Approved"
// approves; every other label rejects.
type ApproveAction struct {
	decision ApproveDecision
	label    string
}

// ParseApproveAction classifies label
func ParseApproveAction(label string) (ApproveAction, error) {
	if strings.TrimSpace(label) == "" {
		return ApproveAction{}, ErrEmptyAction
	}

	if label == ActionApproved {
		return ApproveAction{decision: DecisionApproved, label: label}, nil
	}
	return ApproveAction{decision: DecisionRejected, label: label}, nil
}

// Decision returns the binary outcome
func (a ApproveAction) Decision() ApproveDecision { return a.decision }

// Label returns the label as submitted
func (a ApproveAction) Label() string { return a.label }

// Trigger maps the action onto the state machine
func (a ApproveAction) Trigger() Trigger {
	if a.decision == DecisionApproved {
		return TriggerApprove
	}
	return TriggerRejectApproval
}

func (a ApproveAction) String() string {
	return fmt.Sprintf("approve(%s)", a.label)
}
