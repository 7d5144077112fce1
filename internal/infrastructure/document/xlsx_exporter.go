package document

import (
	"fmt"
	"io"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/xuri/excelize/v2"
)

// ExportSheet is the name of the worksheet holding the listing
const ExportSheet = "Reports"

var exportHeader = []interface{}{
	"ID", "Title", "Description", "Department", "Type", "Due Date", "Status",
	"Submitted", "Submitted By", "Reviewed By", "Reviewed", "Review Comments",
	"Approved By", "Approved", "Approval Comments",
}

// XLSXExporter writes report listings as Excel workbooks
type XLSXExporter struct{}

// NewXLSXExporter creates an exporter
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// ContentType returns the MIME type of exported workbooks
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export writes rows to w as a single-sheet workbook
func (e *XLSXExporter) Export(w io.Writer, rows []port.ReportListItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(ExportSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, item := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		values := []interface{}{
			item.ID, item.Title, item.Description, item.Department, item.Type,
			str(item.DueDate), item.Status, item.SubmittedDate, item.SubmittedBy,
			id(item.ReviewedBy), str(item.ReviewedDate), str(item.ReviewComments),
			id(item.ApprovedBy), str(item.ApprovedDate), str(item.ApprovalComments),
		}
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ExportSheet, "B", "C", 32); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func str(s *string) interface{} {
	if s == nil {
		return ""
	}
	return *s
}

func id(v *int64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

var _ port.ReportExporter = (*XLSXExporter)(nil)
