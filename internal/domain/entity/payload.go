package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PayloadKind discriminates notification payload variants
type PayloadKind string

const (
	PayloadSubmission       PayloadKind = "submission"
	PayloadReadyForApproval PayloadKind = "ready_for_approval"
	PayloadDecision         PayloadKind = "decision"
	PayloadGeneric          PayloadKind = "generic"
)

// Payload is the structured body of a notification. The concrete type is
// chosen by the notification type label.
type Payload interface {
	Kind() PayloadKind
	Fields() *PayloadFields
}

// PayloadFields are the fields shared by every payload variant
type PayloadFields struct {
	ReportID    int64  `json:"reportId,omitempty"`
	ReportTitle string `json:"reportTitle"`
	Title       string `json:"title,omitempty"`
	Message     string `json:"message,omitempty"`
	ToEmail     string `json:"toEmail,omitempty"`

	// raw holds the decoded document when the payload was parsed from storage
	raw map[string]interface{}
}

// Fields returns the shared fields
func (f *PayloadFields) Fields() *PayloadFields { return f }

// SetReportTitle fills in the report title, keeping the raw document in sync
func (f *PayloadFields) SetReportTitle(title string) {
	f.ReportTitle = title
	if f.raw != nil {
		f.raw["reportTitle"] = title
	}
}

// SubmissionPayload accompanies "New Report Submitted"
type SubmissionPayload struct {
	PayloadFields
	From int64 `json:"from"`
}

func (p *SubmissionPayload) Kind() PayloadKind { return PayloadSubmission }

// ReadyForApprovalPayload accompanies "Report Ready for Approval"
type ReadyForApprovalPayload struct {
	PayloadFields
	From int64 `json:"from"`
}

func (p *ReadyForApprovalPayload) Kind() PayloadKind { return PayloadReadyForApproval }

// DecisionPayload accompanies "Report Approved" and "Report Rejected"
type DecisionPayload struct {
	PayloadFields
	Status   string `json:"status"`
	Comments string `json:"comments,omitempty"`
}

func (p *DecisionPayload) Kind() PayloadKind { return PayloadDecision }

// GenericPayload covers unknown types and malformed documents
type GenericPayload struct {
	PayloadFields
}

func (p *GenericPayload) Kind() PayloadKind { return PayloadGeneric }

// MarshalJSON emits the original document so unknown keys survive
func (p *GenericPayload) MarshalJSON() ([]byte, error) {
	if p.raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.raw)
}

// MarshalPayload encodes p for storage
func MarshalPayload(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return string(data), nil
}

// PayloadJSON renders p as JSON text, preferring the stored document
func PayloadJSON(p Payload) string {
	var data []byte
	var err error
	if raw := p.Fields().raw; raw != nil {
		data, err = json.Marshal(raw)
	} else {
		data, err = json.Marshal(p)
	}
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ParsePayload decodes a stored payload for the given notification type.
// It never fails: documents that cannot be decoded yield an empty payload
// of the matching variant.
func ParsePayload(notificationType, raw string) Payload {
	doc := decodeDocument(raw)

	fields := PayloadFields{
		ReportID:    int64Field(doc, "reportId"),
		ReportTitle: stringField(doc, "reportTitle"),
		Title:       stringField(doc, "title"),
		Message:     stringField(doc, "message"),
		ToEmail:     stringField(doc, "toEmail"),
		raw:         doc,
	}

	switch {
	case notificationType == NotificationNewReport:
		return &SubmissionPayload{PayloadFields: fields, From: int64Field(doc, "from")}
	case notificationType == NotificationReadyForApproval:
		return &ReadyForApprovalPayload{PayloadFields: fields, From: int64Field(doc, "from")}
	case strings.HasPrefix(notificationType, NotificationDecisionPrefix):
		return &DecisionPayload{
			PayloadFields: fields,
			Status:        stringField(doc, "status"),
			Comments:      stringField(doc, "comments"),
		}
	default:
		return &GenericPayload{PayloadFields: fields}
	}
}

// decodeDocument accepts a JSON object, or a JSON string holding one
func decodeDocument(raw string) map[string]interface{} {
	doc := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return doc
	}

	if err := json.Unmarshal([]byte(raw), &doc); err == nil && doc != nil {
		return doc
	}

	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		nested := map[string]interface{}{}
		if err := json.Unmarshal([]byte(inner), &nested); err == nil && nested != nil {
			return nested
		}
	}

	return map[string]interface{}{}
}

func stringField(doc map[string]interface{}, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func int64Field(doc map[string]interface{}, key string) int64 {
	switch v := doc[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
