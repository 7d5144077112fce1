package port

import (
	"time"

	"github.com/garyjia/reportdesk/internal/domain/entity"
)

// ReportView is the flattened shape returned by the queue projections
type ReportView struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Department    string  `json:"department"`
	Type          string  `json:"type"`
	DueDate       *string `json:"dueDate"`
	Status        string  `json:"status"`
	SubmittedDate string  `json:"submittedDate"`
	SubmittedBy   string  `json:"submittedBy"`
	FilePath      *string `json:"filePath"`
}

// ReportListItem is the full listing shape with review and approval metadata
type ReportListItem struct {
	ReportView
	ReviewedBy       *int64  `json:"reviewedBy"`
	ReviewedDate     *string `json:"reviewedDate"`
	ReviewComments   *string `json:"reviewComments"`
	ApprovedBy       *int64  `json:"approvedBy"`
	ApprovedDate     *string `json:"approvedDate"`
	ApprovalComments *string `json:"approvalComments"`
}

// NewReportView flattens a joined report row
func NewReportView(r *entity.ReportRecord) ReportView {
	submittedBy := ""
	if r.SubmitterName != nil {
		submittedBy = *r.SubmitterName
	}
	return ReportView{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Department:    r.DepartmentLabel(),
		Type:          r.TypeLabel(),
		DueDate:       r.DueDate,
		Status:        r.Status,
		SubmittedDate: formatTime(r.SubmittedAt),
		SubmittedBy:   submittedBy,
		FilePath:      r.FilePath,
	}
}

// NewReportListItem flattens a joined report row including workflow metadata
func NewReportListItem(r *entity.ReportRecord) ReportListItem {
	item := ReportListItem{
		ReportView:       NewReportView(r),
		ReviewedBy:       r.ReviewedBy,
		ReviewComments:   r.ReviewComments,
		ApprovedBy:       r.ApprovedBy,
		ApprovalComments: r.ApprovalComments,
	}
	if r.ReviewedAt != nil {
		s := formatTime(*r.ReviewedAt)
		item.ReviewedDate = &s
	}
	if r.ApprovedAt != nil {
		s := formatTime(*r.ApprovedAt)
		item.ApprovedDate = &s
	}
	return item
}

// TimeLayout is the wire format of timestamps in projected views
const TimeLayout = time.RFC3339

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}
