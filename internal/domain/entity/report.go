package entity

import (
	"strconv"
	"time"
)

// Report represents a submitted report moving through the approval workflow
type Report struct {
	ID               int64      `json:"id"`
	SubmittedBy      int64      `json:"user_id"`
	ReportTypeID     *int64     `json:"report_type_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	FilePath         *string    `json:"file_path"`
	Status           string     `json:"status"`
	DueDate          *string    `json:"due_date"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	ReviewedBy       *int64     `json:"reviewed_by"`
	ReviewedAt       *time.Time `json:"reviewed_at"`
	ReviewComments   *string    `json:"review_comments"`
	ApprovedBy       *int64     `json:"approved_by"`
	ApprovedAt       *time.Time `json:"approved_at"`
	ApprovalComments *string    `json:"approval_comments"`
	Version          int        `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DisplayTitle returns the title, or "#<id>" when the report has none
func (r *Report) DisplayTitle() string {
	return ReportDisplayTitle(r.ID, r.Title)
}

// ReportDisplayTitle returns title, or "#<id>" when title is empty
func ReportDisplayTitle(id int64, title string) string {
	if title != "" {
		return title
	}
	return "#" + strconv.FormatInt(id, 10)
}

// ReportRecord is a report joined with its submitter and report type
type ReportRecord struct {
	Report
	SubmitterName         *string
	SubmitterEmail        *string
	SubmitterDepartmentID *int64
	TypeName              *string
	TypeDepartmentID      *int64
	TypeDepartmentName    *string
}

// DepartmentLabel resolves the department shown for a report: the report
// type's department name, else the submitter's raw department id, else "".
func (r *ReportRecord) DepartmentLabel() string {
	if r.TypeDepartmentName != nil {
		return *r.TypeDepartmentName
	}
	if r.SubmitterDepartmentID != nil {
		return strconv.FormatInt(*r.SubmitterDepartmentID, 10)
	}
	return ""
}

// TypeLabel returns the report type name or ""
func (r *ReportRecord) TypeLabel() string {
	if r.TypeName != nil {
		return *r.TypeName
	}
	return ""
}

// ReportFilter narrows the full report listing
type ReportFilter struct {
	Status string // canonical status, empty for any
	Query  string // case-insensitive substring over title, description and submitter name
}
