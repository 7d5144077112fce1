package event

import "slices"

// Type identifies the type of domain event
type Type string

const (
	TypeReportSubmitted         Type = "report.submitted"
	TypeReportForwarded         Type = "report.forwarded"
	TypeReportReviewRejected    Type = "report.review_rejected"
	TypeReportRevisionRequested Type = "report.revision_requested"
	TypeReportApproved          Type = "report.approved"
	TypeReportRejected          Type = "report.rejected"
	TypeReportUpdated           Type = "report.updated"
	TypeReportDeleted           Type = "report.deleted"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

var allTypes = []Type{
	TypeReportSubmitted,
	TypeReportForwarded,
	TypeReportReviewRejected,
	TypeReportRevisionRequested,
	TypeReportApproved,
	TypeReportRejected,
	TypeReportUpdated,
	TypeReportDeleted,
}

// Types returns every defined event type
func Types() []Type {
	return slices.Clone(allTypes)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	return slices.Contains(allTypes, t)
}
