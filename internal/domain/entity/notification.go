package entity

import (
	"strings"
	"time"
)

// Notification is a stored delivery record for one recipient
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// UI categories for notification display
const (
	UICategorySuccess = "success"
	UICategoryError   = "error"
	UICategoryWarning = "warning"
	UICategoryInfo    = "info"
)

// NotificationView is the display shape of a notification
type NotificationView struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Read    bool      `json:"read"`
}

// UICategory derives the display category from a notification type label
func UICategory(notificationType string) string {
	t := strings.ToLower(notificationType)
	switch {
	case strings.Contains(t, "approved"):
		return UICategorySuccess
	case strings.Contains(t, "rejected"), strings.Contains(t, "revision"):
		return UICategoryError
	case strings.Contains(t, "new"), strings.Contains(t, "ready"):
		return UICategoryWarning
	default:
		return UICategoryInfo
	}
}

// DisplayTitle picks the payload title, then the report title, then the
// type label, then "Notification".
func DisplayTitle(notificationType string, p Payload) string {
	f := p.Fields()
	for _, candidate := range []string{f.Title, f.ReportTitle, notificationType} {
		if candidate != "" {
			return candidate
		}
	}
	return "Notification"
}

// DisplayMessage picks the payload message, then a per-variant template,
// then the JSON form of the payload.
func DisplayMessage(p Payload) string {
	f := p.Fields()
	if f.Message != "" {
		return f.Message
	}

	switch v := p.(type) {
	case *SubmissionPayload:
		return withReportTitle("New report submitted", f.ReportTitle)
	case *ReadyForApprovalPayload:
		return withReportTitle("Report ready for approval", f.ReportTitle)
	case *DecisionPayload:
		if v.Status != "" {
			if f.ReportTitle != "" {
				return f.ReportTitle + " " + v.Status
			}
			return v.Status
		}
		if v.Comments != "" {
			return v.Comments
		}
	}

	return PayloadJSON(p)
}

// NewNotificationView derives the display shape of n from its parsed payload
func NewNotificationView(n *Notification, p Payload) NotificationView {
	return NotificationView{
		ID:      n.ID,
		UserID:  n.UserID,
		Type:    UICategory(n.Type),
		Title:   DisplayTitle(n.Type, p),
		Message: DisplayMessage(p),
		Time:    n.CreatedAt,
		Read:    n.Read,
	}
}

func withReportTitle(prefix, title string) string {
	if title == "" {
		return prefix
	}
	return prefix + ": " + title
}
