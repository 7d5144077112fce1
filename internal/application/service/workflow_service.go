package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/reportdesk/internal/application/apperr"
	"github.com/garyjia/reportdesk/internal/application/dispatcher"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/garyjia/reportdesk/internal/domain/event"
	"github.com/garyjia/reportdesk/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

const dueDateLayout = "2006-01-02"

// Upload is an optional file attached to a submission
type Upload struct {
	Name   string
	Reader io.Reader
}

// SubmitInput carries a new report
type SubmitInput struct {
	Title       string
	Description string
	// ReportType is a numeric id or an exact type name; nil or blank means none
	ReportType *string
	DueDate    string
	File       *Upload
}

// UpdateInput carries the whitelisted columns of a report update
type UpdateInput struct {
	Title      port.Field[string]
	DueDate    port.Field[string]
	Status     port.Field[string]
	ReportType port.Field[string]
}

// TransitionResult is the outcome of a review or approval
type TransitionResult struct {
	ReportID int64  `json:"-"`
	Status   string `json:"status"`
}

// WorkflowService drives reports through submission, review and approval
type WorkflowService interface {
	Submit(ctx context.Context, actor entity.Identity, in SubmitInput) (*entity.Report, error)
	Review(ctx context.Context, actor entity.Identity, reportID int64, action, comments string) (*TransitionResult, error)
	Approve(ctx context.Context, actor entity.Identity, reportID int64, action, comments string) (*TransitionResult, error)
	Update(ctx context.Context, actor entity.Identity, reportID int64, in UpdateInput) (*entity.Report, error)
	Delete(ctx context.Context, actor entity.Identity, reportID int64) error
}

type workflowServiceImpl struct {
	reportRepo    port.ReportRepository
	historyRepo   port.HistoryRepository
	directoryRepo port.DirectoryRepository
	storage       port.FileStorage
	txManager     port.TransactionManager
	events        dispatcher.Dispatcher
	logger        Logger
	now           func() time.Time
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	reportRepo port.ReportRepository,
	historyRepo port.HistoryRepository,
	directoryRepo port.DirectoryRepository,
	storage port.FileStorage,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		reportRepo:    reportRepo,
		historyRepo:   historyRepo,
		directoryRepo: directoryRepo,
		storage:       storage,
		txManager:     txManager,
		events:        events,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Submit creates a Pending report and notifies the department's reviewer
func (s *workflowServiceImpl) Submit(ctx context.Context, actor entity.Identity, in SubmitInput) (*entity.Report, error) {
	if !actor.HasRole(entity.RoleEmployee, entity.RoleAdmin) {
		return nil, apperr.Authorization("Forbidden")
	}

	reportType, err := s.resolveReportType(ctx, in.ReportType)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &entity.Report{
		SubmittedBy: actor.UserID,
		Title:       in.Title,
		Description: in.Description,
		Status:      entity.StatusPending,
		DueDate:     parseDueDate(in.DueDate),
		SubmittedAt: now,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if reportType != nil {
		report.ReportTypeID = &reportType.ID
	}

	if in.File != nil && in.File.Reader != nil {
		path, err := s.storage.SaveUpload(ctx, in.File.Name, in.File.Reader)
		if err != nil {
			s.logger.Error("Failed to save upload", "error", err, "file_name", in.File.Name)
			return nil, apperr.Internal(fmt.Errorf("save upload: %w", err))
		}
		report.FilePath = &path
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		s.logger.Error("Failed to create report", "error", err, "user_id", actor.UserID)
		if report.FilePath != nil {
			if delErr := s.storage.Delete(ctx, *report.FilePath); delErr != nil {
				s.logger.Error("Failed to remove orphaned upload", "error", delErr, "path", *report.FilePath)
			}
		}
		return nil, apperr.Internal(fmt.Errorf("create report: %w", err))
	}

	s.logger.Info("Report submitted", "report_id", report.ID, "user_id", actor.UserID)

	payload := map[string]interface{}{
		event.KeyTitle:     report.Title,
		event.KeyActorName: actor.FullName,
	}
	if reportType != nil && reportType.DepartmentID != nil {
		payload[event.KeyDepartmentID] = *reportType.DepartmentID
	}
	s.publish(ctx, event.NewEvent(event.TypeReportSubmitted, report.ID, actor.UserID, payload))

	return report, nil
}

// Review records a reviewer's decision
func (s *workflowServiceImpl) Review(ctx context.Context, actor entity.Identity, reportID int64, label, comments string) (*TransitionResult, error) {
	if !actor.HasRole(entity.RoleReviewer, entity.RoleAdmin) {
		return nil, apperr.Authorization("Forbidden")
	}

	action, err := workflow.ParseReviewAction(label)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	now := s.now()
	changes := port.ReportChanges{ReviewComments: port.SetField(optionalString(comments))}
	if action.Kind() != workflow.ReviewOther {
		changes.ReviewedBy = port.SetValue(actor.UserID)
		changes.ReviewedAt = port.SetValue(now)
	}

	report, err := s.transition(ctx, actor, reportID, action.Trigger(), action.Label(), comments, changes)
	if err != nil {
		s.logger.Error("Failed to review report", "error", err, "report_id", reportID, "action", label)
		return nil, err
	}

	s.logger.Info("Report reviewed", "report_id", reportID, "action", label, "status", report.Status)

	eventType := event.TypeReportRevisionRequested
	switch action.Kind() {
	case workflow.ReviewForward:
		eventType = event.TypeReportForwarded
	case workflow.ReviewReject:
		eventType = event.TypeReportReviewRejected
	}
	s.publish(ctx, event.NewEvent(eventType, report.ID, actor.UserID, map[string]interface{}{
		event.KeyTitle:       report.Title,
		event.KeyActorName:   actor.FullName,
		event.KeySubmitterID: report.SubmittedBy,
		event.KeyStatus:      report.Status,
		event.KeyAction:      action.Label(),
		event.KeyComments:    comments,
	}))

	return &TransitionResult{ReportID: report.ID, Status: report.Status}, nil
}

// Approve records an approver's final decision
func (s *workflowServiceImpl) Approve(ctx context.Context, actor entity.Identity, reportID int64, label, comments string) (*TransitionResult, error) {
	if !actor.HasRole(entity.RoleApprover, entity.RoleAdmin) {
		return nil, apperr.Authorization("Forbidden")
	}

	action, err := workflow.ParseApproveAction(label)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	changes := port.ReportChanges{
		ApprovedBy:       port.SetValue(actor.UserID),
		ApprovedAt:       port.SetValue(s.now()),
		ApprovalComments: port.SetField(optionalString(comments)),
	}

	report, err := s.transition(ctx, actor, reportID, action.Trigger(), action.Label(), comments, changes)
	if err != nil {
		s.logger.Error("Failed to approve report", "error", err, "report_id", reportID, "action", label)
		return nil, err
	}

	s.logger.Info("Report decided", "report_id", reportID, "action", label, "status", report.Status)

	eventType := event.TypeReportRejected
	if action.Decision() == workflow.DecisionApproved {
		eventType = event.TypeReportApproved
	}
	s.publish(ctx, event.NewEvent(eventType, report.ID, actor.UserID, map[string]interface{}{
		event.KeyTitle:       report.Title,
		event.KeyActorName:   actor.FullName,
		event.KeySubmitterID: report.SubmittedBy,
		event.KeyStatus:      report.Status,
		event.KeyAction:      action.Label(),
		event.KeyComments:    comments,
	}))

	return &TransitionResult{ReportID: report.ID, Status: report.Status}, nil
}

// transition fires trigger on the stored report and persists the history
// row and the versioned write in one transaction
func (s *workflowServiceImpl) transition(
	ctx context.Context,
	actor entity.Identity,
	reportID int64,
	trigger workflow.Trigger,
	label, comments string,
	changes port.ReportChanges,
) (*entity.Report, error) {
	var updated *entity.Report

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.reportRepo.GetByID(txCtx, reportID)
		if err != nil {
			return apperr.Internal(fmt.Errorf("get report: %w", err))
		}
		if report == nil {
			return apperr.NotFound("Not found")
		}

		machine, err := workflow.NewReportMachine(workflow.State(report.Status))
		if err != nil {
			return apperr.Internal(fmt.Errorf("report %d has status %q: %w", reportID, report.Status, err))
		}
		if len(machine.PermittedTriggers()) == 0 {
			return apperr.Validation(fmt.Sprintf("Report is already %s", report.Status))
		}
		if err := machine.Fire(trigger); err != nil {
			return apperr.Validation(err.Error())
		}

		history := &entity.ReviewHistory{
			ReportID:   reportID,
			ReviewerID: actor.UserID,
			Action:     label,
			Comments:   optionalString(comments),
			CreatedAt:  s.now(),
		}
		if err := s.historyRepo.Append(txCtx, history); err != nil {
			return apperr.Internal(fmt.Errorf("append history: %w", err))
		}

		changes.Status = port.SetValue(machine.State().String())
		updated, err = s.reportRepo.UpdateVersioned(txCtx, reportID, report.Version, changes)
		if err != nil {
			return mapWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Update applies whitelisted column changes to a report
func (s *workflowServiceImpl) Update(ctx context.Context, actor entity.Identity, reportID int64, in UpdateInput) (*entity.Report, error) {
	if !actor.HasRole(entity.RoleEmployee, entity.RoleAdmin) {
		return nil, apperr.Authorization("Forbidden")
	}

	changes := port.ReportChanges{}
	if in.Title.Set {
		title := ""
		if in.Title.Value != nil {
			title = *in.Title.Value
		}
		changes.Title = port.SetValue(title)
	}
	if in.DueDate.Set {
		var due *string
		if in.DueDate.Value != nil {
			due = parseDueDate(*in.DueDate.Value)
		}
		changes.DueDate = port.SetField(due)
	}
	if in.Status.Set {
		if in.Status.Value == nil {
			return nil, apperr.Validation("Invalid status")
		}
		status, ok := entity.NormalizeStatus(*in.Status.Value)
		if !ok {
			return nil, apperr.Validation("Invalid status")
		}
		changes.Status = port.SetValue(status)
	}
	if in.ReportType.Set {
		reportType, err := s.resolveReportType(ctx, in.ReportType.Value)
		if err != nil {
			return nil, err
		}
		var typeID *int64
		if reportType != nil {
			typeID = &reportType.ID
		}
		changes.ReportTypeID = port.SetField(typeID)
	}

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		s.logger.Error("Failed to get report", "error", err, "report_id", reportID)
		return nil, apperr.Internal(fmt.Errorf("get report: %w", err))
	}
	if report == nil {
		return nil, apperr.NotFound("Not found")
	}

	updated, err := s.reportRepo.UpdateVersioned(ctx, reportID, report.Version, changes)
	if err != nil {
		s.logger.Error("Failed to update report", "error", err, "report_id", reportID)
		return nil, mapWriteError(err)
	}

	s.logger.Info("Report updated", "report_id", reportID, "user_id", actor.UserID)
	s.publish(ctx, event.NewEvent(event.TypeReportUpdated, reportID, actor.UserID, map[string]interface{}{
		event.KeyTitle:  updated.Title,
		event.KeyStatus: updated.Status,
	}))

	return updated, nil
}

// Delete removes a report and its history
func (s *workflowServiceImpl) Delete(ctx context.Context, actor entity.Identity, reportID int64) error {
	if !actor.HasRole(entity.RoleAdmin) {
		return apperr.Authorization("Forbidden")
	}

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		s.logger.Error("Failed to get report", "error", err, "report_id", reportID)
		return apperr.Internal(fmt.Errorf("get report: %w", err))
	}
	if report == nil {
		return apperr.NotFound("Not found")
	}

	if err := s.reportRepo.Delete(ctx, reportID); err != nil {
		s.logger.Error("Failed to delete report", "error", err, "report_id", reportID)
		return mapWriteError(err)
	}

	s.logger.Info("Report deleted", "report_id", reportID, "user_id", actor.UserID)

	payload := map[string]interface{}{event.KeyTitle: report.Title}
	if report.FilePath != nil {
		payload[event.KeyFilePath] = *report.FilePath
	}
	s.publish(ctx, event.NewEvent(event.TypeReportDeleted, reportID, actor.UserID, payload))

	return nil
}

// resolveReportType looks a type up by numeric id, then by exact name.
// A nil or blank reference resolves to no type.
func (s *workflowServiceImpl) resolveReportType(ctx context.Context, ref *string) (*entity.ReportType, error) {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*ref)

	var (
		reportType *entity.ReportType
		err        error
	)
	if id, convErr := strconv.ParseInt(value, 10, 64); convErr == nil {
		reportType, err = s.directoryRepo.GetReportType(ctx, id)
	} else {
		reportType, err = s.directoryRepo.FindReportTypeByName(ctx, value)
	}
	if err != nil {
		s.logger.Error("Failed to resolve report type", "error", err, "report_type", value)
		return nil, apperr.Internal(fmt.Errorf("resolve report type: %w", err))
	}
	if reportType == nil {
		return nil, apperr.Validation("Invalid report type")
	}
	return reportType, nil
}

// publish dispatches evt after the write has committed. Handler failures
// never reach the caller.
func (s *workflowServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Event handlers failed", "error", err, "event_type", evt.Type, "report_id", evt.ReportID)
	}
}

func mapWriteError(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, port.ErrVersionConflict):
		return apperr.Conflict("Report was modified by another request", err)
	case errors.Is(err, port.ErrNotFound):
		return apperr.NotFound("Not found")
	default:
		return apperr.Internal(err)
	}
}

// parseDueDate accepts YYYY-MM-DD or RFC 3339 and returns the date part.
// Anything else yields nil.
func parseDueDate(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(dueDateLayout, s); err == nil {
		out := t.Format(dueDateLayout)
		return &out
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		out := t.UTC().Format(dueDateLayout)
		return &out
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
