package document

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/gen2brain/go-fitz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr[T any](v T) *T { return &v }

func sampleRecord() *entity.ReportRecord {
	submitted := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	return &entity.ReportRecord{
		Report: entity.Report{
			ID:             7,
			SubmittedBy:    4,
			Title:          "Q1 Budget",
			Description:    "Quarterly budget for Finance",
			Status:         entity.StatusReviewed,
			DueDate:        ptr("2025-03-31"),
			SubmittedAt:    submitted,
			ReviewedBy:     ptr(int64(2)),
			ReviewedAt:     ptr(submitted.Add(time.Hour)),
			ReviewComments: ptr("Figures reconciled"),
		},
		SubmitterName: ptr("Regular Employee"),
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	r := NewPDFRenderer()
	assert.Equal(t, "application/pdf", r.ContentType())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, &port.ReportDocument{Record: sampleRecord(), ReviewerName: "Dept Reviewer"}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	doc, err := fitz.NewFromMemory(buf.Bytes())
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 1, doc.NumPage())

	text, err := doc.Text(0)
	require.NoError(t, err)
	for _, want := range []string{
		"Q1 Budget",
		"Submitted by: Regular Employee",
		"Due date: 2025-03-31",
		"Status: Reviewed",
		"Reviewed by: Dept Reviewer",
		"Review comments: Figures reconciled",
		"Approved by: -",
	} {
		assert.Contains(t, text, want)
	}
}

func TestPDFRenderer_UntitledReport(t *testing.T) {
	rec := sampleRecord()
	rec.Title = ""
	rec.DueDate = nil
	rec.SubmitterName = nil

	var buf bytes.Buffer
	require.NoError(t, NewPDFRenderer().Render(&buf, &port.ReportDocument{Record: rec}))

	doc, err := fitz.NewFromMemory(buf.Bytes())
	require.NoError(t, err)
	defer doc.Close()

	text, err := doc.Text(0)
	require.NoError(t, err)
	assert.Contains(t, text, "Report #7")
	assert.Contains(t, text, "Submitted by: 4")
	assert.Contains(t, text, "Reviewed by: 2")
	assert.False(t, strings.Contains(text, "Due date:"))
}

func TestXLSXExporter_Export(t *testing.T) {
	e := NewXLSXExporter()

	items := []port.ReportListItem{
		port.NewReportListItem(sampleRecord()),
		{ReportView: port.ReportView{ID: 8, Title: "Fleet", Status: entity.StatusPending}},
	}

	var buf bytes.Buffer
	require.NoError(t, e.Export(&buf, items))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ExportSheet}, f.GetSheetList())

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Approval Comments", rows[0][len(rows[0])-1])
	assert.Equal(t, []string{"7", "Q1 Budget", "Quarterly budget for Finance"}, rows[1][:3])
	assert.Equal(t, "Reviewed", rows[1][6])
	assert.Equal(t, "Figures reconciled", rows[1][11])
	assert.Equal(t, "8", rows[2][0])
	assert.Equal(t, "Pending", rows[2][6])
}
