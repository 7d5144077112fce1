package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/garyjia/reportdesk/internal/application/apperr"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/garyjia/reportdesk/pkg/utils"
)

// ListQuery holds the raw listing filters from a request
type ListQuery struct {
	Status string
	Q      string
}

// Download is a rendered file ready to be served
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// QueryService serves the read-side projections of reports
type QueryService interface {
	List(ctx context.Context, q ListQuery) ([]port.ReportListItem, error)
	ReviewQueue(ctx context.Context, caller entity.Identity) ([]port.ReportView, error)
	ApprovalQueue(ctx context.Context, caller entity.Identity) ([]port.ReportView, error)
	Get(ctx context.Context, id int64) (*port.ReportView, error)
	Export(ctx context.Context, caller entity.Identity, q ListQuery) (*Download, error)
	Document(ctx context.Context, id int64) (*Download, error)
}

type queryServiceImpl struct {
	reportRepo    port.ReportRepository
	directoryRepo port.DirectoryRepository
	renderer      port.DocumentRenderer
	exporter      port.ReportExporter
	logger        Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(
	reportRepo port.ReportRepository,
	directoryRepo port.DirectoryRepository,
	renderer port.DocumentRenderer,
	exporter port.ReportExporter,
	logger Logger,
) QueryService {
	return &queryServiceImpl{
		reportRepo:    reportRepo,
		directoryRepo: directoryRepo,
		renderer:      renderer,
		exporter:      exporter,
		logger:        logger,
	}
}

// List returns every report matching q. Unknown status values are ignored.
func (s *queryServiceImpl) List(ctx context.Context, q ListQuery) ([]port.ReportListItem, error) {
	records, err := s.reportRepo.List(ctx, toFilter(q))
	if err != nil {
		s.logger.Error("Failed to list reports", "error", err, "status", q.Status, "q", q.Q)
		return nil, apperr.Internal(fmt.Errorf("list reports: %w", err))
	}

	items := make([]port.ReportListItem, 0, len(records))
	for _, r := range records {
		items = append(items, port.NewReportListItem(r))
	}
	return items, nil
}

// ReviewQueue returns Pending reports in the caller's department
func (s *queryServiceImpl) ReviewQueue(ctx context.Context, caller entity.Identity) ([]port.ReportView, error) {
	if !caller.HasRole(entity.RoleReviewer, entity.RoleAdmin) {
		return nil, apperr.Authorization("Forbidden")
	}

	records, err := s.reportRepo.ReviewQueue(ctx, caller.DepartmentID)
	if err != nil {
		s.logger.Error("Failed to load review queue", "error", err, "user_id", caller.UserID)
		return nil, apperr.Internal(fmt.Errorf("review queue: %w", err))
	}
	return toViews(records), nil
}

// ApprovalQueue returns every Reviewed report
func (s *queryServiceImpl) ApprovalQueue(ctx context.Context, caller entity.Identity) ([]port.ReportView, error) {
	if !caller.HasRole(entity.RoleApprover, entity.RoleAdmin) {
		return nil, apperr.Authorization("Forbidden")
	}

	records, err := s.reportRepo.ApprovalQueue(ctx)
	if err != nil {
		s.logger.Error("Failed to load approval queue", "error", err, "user_id", caller.UserID)
		return nil, apperr.Internal(fmt.Errorf("approval queue: %w", err))
	}
	return toViews(records), nil
}

// Get returns one report
func (s *queryServiceImpl) Get(ctx context.Context, id int64) (*port.ReportView, error) {
	record, err := s.reportRepo.GetRecord(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get report", "error", err, "report_id", id)
		return nil, apperr.Internal(fmt.Errorf("get report: %w", err))
	}
	if record == nil {
		return nil, apperr.NotFound("Not found")
	}

	view := port.NewReportView(record)
	return &view, nil
}

// Export renders the filtered listing as a spreadsheet
func (s *queryServiceImpl) Export(ctx context.Context, caller entity.Identity, q ListQuery) (*Download, error) {
	if !caller.HasRole(entity.RoleReviewer, entity.RoleApprover, entity.RoleAdmin) {
		return nil, apperr.Authorization("Forbidden")
	}

	items, err := s.List(ctx, q)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.exporter.Export(&buf, items); err != nil {
		s.logger.Error("Failed to export reports", "error", err, "rows", len(items))
		return nil, apperr.Internal(fmt.Errorf("export reports: %w", err))
	}

	s.logger.Info("Reports exported", "rows", len(items), "user_id", caller.UserID)
	return &Download{
		FileName:    "reports.xlsx",
		ContentType: s.exporter.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// Document renders the metadata sheet of one report
func (s *queryServiceImpl) Document(ctx context.Context, id int64) (*Download, error) {
	record, err := s.reportRepo.GetRecord(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get report", "error", err, "report_id", id)
		return nil, apperr.Internal(fmt.Errorf("get report: %w", err))
	}
	if record == nil {
		return nil, apperr.NotFound("Not found")
	}

	doc := &port.ReportDocument{
		Record:       record,
		ReviewerName: s.userName(ctx, record.ReviewedBy),
		ApproverName: s.userName(ctx, record.ApprovedBy),
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, doc); err != nil {
		s.logger.Error("Failed to render report", "error", err, "report_id", id)
		return nil, apperr.Internal(fmt.Errorf("render report: %w", err))
	}

	name := record.Title
	if name == "" {
		name = "report-" + strconv.FormatInt(id, 10)
	}
	return &Download{
		FileName:    utils.SanitizeFileName(name) + ".pdf",
		ContentType: s.renderer.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// userName resolves a display name for the sheet; lookup failures leave it
// blank and the renderer falls back to the id
func (s *queryServiceImpl) userName(ctx context.Context, id *int64) string {
	if id == nil {
		return ""
	}
	user, err := s.directoryRepo.GetUser(ctx, *id)
	if err != nil {
		s.logger.Error("Failed to look up user", "error", err, "user_id", *id)
		return ""
	}
	return user.DisplayName("")
}

func toFilter(q ListQuery) entity.ReportFilter {
	status, _ := entity.NormalizeStatus(q.Status)
	return entity.ReportFilter{Status: status, Query: q.Q}
}

func toViews(records []*entity.ReportRecord) []port.ReportView {
	views := make([]port.ReportView, 0, len(records))
	for _, r := range records {
		views = append(views, port.NewReportView(r))
	}
	return views
}
