package port

import (
	"context"
	"io"

	"github.com/garyjia/reportdesk/internal/domain/entity"
)

// OutboundMessage is a notification rendered for an external channel
type OutboundMessage struct {
	To      string
	Subject string
	Body    string
}

// MessageSender delivers notifications outside the application
type MessageSender interface {
	Name() string
	Send(ctx context.Context, msg OutboundMessage) error
}

// DocumentRenderer renders the metadata sheet for a report
type DocumentRenderer interface {
	ContentType() string
	Render(w io.Writer, doc *ReportDocument) error
}

// ReportDocument is everything the metadata sheet shows
type ReportDocument struct {
	Record       *entity.ReportRecord
	ReviewerName string
	ApproverName string
}

// ReportExporter writes a report listing as a spreadsheet
type ReportExporter interface {
	ContentType() string
	Export(w io.Writer, rows []ReportListItem) error
}
