// Package document renders reports into downloadable files.
package document

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/go-pdf/fpdf"
)

const (
	placeholder     = "-"
	displayTimeForm = "2006-01-02 15:04 MST"
)

// PDFRenderer renders the report metadata sheet as an A4 PDF.
// Only metadata is rendered, never the uploaded file itself.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDF renderer
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// ContentType returns the MIME type of rendered documents
func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// Render writes the metadata sheet for doc to w
func (r *PDFRenderer) Render(w io.Writer, doc *port.ReportDocument) error {
	rec := doc.Record
	title := rec.Title
	if title == "" {
		title = "Report #" + strconv.FormatInt(rec.ID, 10)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	line := func(text string) {
		pdf.MultiCell(0, 6, tr(text), "", "L", false)
	}
	heading := func(text string, size float64) {
		pdf.SetFont("Helvetica", "U", size)
		line(text)
		pdf.SetFont("Helvetica", "", 12)
	}

	heading(title, 20)
	pdf.Ln(4)

	submitter := strconv.FormatInt(rec.SubmittedBy, 10)
	if rec.SubmitterName != nil && *rec.SubmitterName != "" {
		submitter = *rec.SubmitterName
	}
	line("Submitted by: " + submitter)
	line("Submitted at: " + formatTime(&rec.SubmittedAt))
	if rec.DueDate != nil {
		line("Due date: " + *rec.DueDate)
	}
	line("Status: " + orPlaceholder(rec.Status))
	pdf.Ln(4)

	heading("Description:", 14)
	line(orPlaceholder(rec.Description))
	pdf.Ln(4)

	heading("Review / Approval:", 12)
	line("Reviewed by: " + actor(doc.ReviewerName, rec.ReviewedBy))
	line("Reviewed at: " + formatTime(rec.ReviewedAt))
	line("Review comments: " + orPlaceholder(deref(rec.ReviewComments)))
	pdf.Ln(4)
	line("Approved by: " + actor(doc.ApproverName, rec.ApprovedBy))
	line("Approved at: " + formatTime(rec.ApprovedAt))
	line("Approval comments: " + orPlaceholder(deref(rec.ApprovalComments)))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report pdf: %w", err)
	}
	return nil
}

func actor(name string, id *int64) string {
	if name != "" {
		return name
	}
	if id != nil {
		return strconv.FormatInt(*id, 10)
	}
	return placeholder
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return placeholder
	}
	return t.UTC().Format(displayTimeForm)
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ port.DocumentRenderer = (*PDFRenderer)(nil)
