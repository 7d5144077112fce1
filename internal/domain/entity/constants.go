package entity

import "strings"

// Status constants for Report
const (
	StatusPending  = "Pending"
	StatusReviewed = "Reviewed"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Role constants for User. Roles are stored lower-case.
const (
	RoleEmployee = "employee"
	RoleReviewer = "reviewer"
	RoleApprover = "approver"
	RoleAdmin    = "admin"
)

// Notification type labels
const (
	NotificationNewReport        = "New Report Submitted"
	NotificationReadyForApproval = "Report Ready for Approval"
	NotificationDecisionPrefix   = "Report "
)

// NormalizeStatus maps a status label in any letter case to its canonical
// form. The second return value is false for unknown labels.
func NormalizeStatus(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, true
	case "reviewed":
		return StatusReviewed, true
	case "approved":
		return StatusApproved, true
	case "rejected":
		return StatusRejected, true
	default:
		return "", false
	}
}

// DecisionNotificationType returns the notification type sent to a
// submitter once an approver has decided, e.g. "Report Approved".
func DecisionNotificationType(status string) string {
	return NotificationDecisionPrefix + status
}
