package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/reportdesk/internal/application/apperr"
	"github.com/garyjia/reportdesk/internal/application/dispatcher"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/garyjia/reportdesk/internal/domain/event"
)

// SubjectPrefix starts the subject line of every outbound notification
const SubjectPrefix = "ReportDesk: "

// NotificationScope controls which rows listing and mark-read touch
type NotificationScope string

const (
	// ScopeAll lists and marks every notification
	ScopeAll NotificationScope = "all"
	// ScopeRecipient restricts both to the caller's own notifications
	ScopeRecipient NotificationScope = "recipient"
)

// ParseNotificationScope maps a configured value to a scope. Empty means all.
func ParseNotificationScope(s string) (NotificationScope, error) {
	switch NotificationScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeRecipient:
		return ScopeRecipient, nil
	default:
		return "", fmt.Errorf("unknown notification scope: %s", s)
	}
}

// NotificationService stores and delivers workflow notifications
type NotificationService interface {
	// Register subscribes the notification handlers to workflow events
	Register(d dispatcher.Dispatcher)

	// List returns notifications in display shape, newest first. caller
	// may be nil when the request carried no token.
	List(ctx context.Context, caller *entity.Identity) ([]entity.NotificationView, error)

	// MarkAllRead flips unread notifications and returns how many changed
	MarkAllRead(ctx context.Context, caller *entity.Identity) (int64, error)
}

type notificationServiceImpl struct {
	reportRepo       port.ReportRepository
	notificationRepo port.NotificationRepository
	directoryRepo    port.DirectoryRepository
	senders          []port.MessageSender
	scope            NotificationScope
	logger           Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	reportRepo port.ReportRepository,
	notificationRepo port.NotificationRepository,
	directoryRepo port.DirectoryRepository,
	senders []port.MessageSender,
	scope NotificationScope,
	logger Logger,
) NotificationService {
	if scope == "" {
		scope = ScopeAll
	}
	return &notificationServiceImpl{
		reportRepo:       reportRepo,
		notificationRepo: notificationRepo,
		directoryRepo:    directoryRepo,
		senders:          senders,
		scope:            scope,
		logger:           logger,
	}
}

// Register subscribes the notification handlers to workflow events
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeReportSubmitted, "notify-reviewer", s.onSubmitted)
	d.SubscribeNamed(event.TypeReportForwarded, "notify-approver", s.onForwarded)
	d.SubscribeNamed(event.TypeReportApproved, "notify-submitter", s.onDecided)
	d.SubscribeNamed(event.TypeReportRejected, "notify-submitter", s.onDecided)
}

// onSubmitted tells the first reviewer of the report type's department
func (s *notificationServiceImpl) onSubmitted(ctx context.Context, evt *event.Event) error {
	if !evt.HasPayload(event.KeyDepartmentID) {
		s.logger.Info("Report has no department, skipping reviewer notification", "report_id", evt.ReportID)
		return nil
	}
	departmentID := evt.GetPayloadInt(event.KeyDepartmentID)

	reviewer, err := s.directoryRepo.FirstUserByRole(ctx, entity.RoleReviewer, &departmentID)
	if err != nil {
		return fmt.Errorf("find reviewer: %w", err)
	}
	if reviewer == nil {
		s.logger.Info("No reviewer for department", "report_id", evt.ReportID, "department_id", departmentID)
		return nil
	}

	title := evt.GetPayloadString(event.KeyTitle)
	payload := &entity.SubmissionPayload{
		PayloadFields: entity.PayloadFields{
			ReportID:    evt.ReportID,
			ReportTitle: title,
			Title:       entity.NotificationNewReport,
			Message: fmt.Sprintf("%s submitted a new report: %s",
				nameOr(evt.GetPayloadString(event.KeyActorName), "A user"),
				entity.ReportDisplayTitle(evt.ReportID, title)),
			ToEmail: reviewer.Email,
		},
		From: evt.ActorID,
	}
	return s.notify(ctx, reviewer.ID, entity.NotificationNewReport, payload)
}

// onForwarded tells the first approver in the organisation
func (s *notificationServiceImpl) onForwarded(ctx context.Context, evt *event.Event) error {
	approver, err := s.directoryRepo.FirstUserByRole(ctx, entity.RoleApprover, nil)
	if err != nil {
		return fmt.Errorf("find approver: %w", err)
	}
	if approver == nil {
		s.logger.Info("No approver configured", "report_id", evt.ReportID)
		return nil
	}

	title := evt.GetPayloadString(event.KeyTitle)
	payload := &entity.ReadyForApprovalPayload{
		PayloadFields: entity.PayloadFields{
			ReportID:    evt.ReportID,
			ReportTitle: title,
			Title:       entity.NotificationReadyForApproval,
			Message: fmt.Sprintf("%s forwarded report for approval: %s",
				nameOr(evt.GetPayloadString(event.KeyActorName), "A reviewer"),
				entity.ReportDisplayTitle(evt.ReportID, title)),
			ToEmail: approver.Email,
		},
		From: evt.ActorID,
	}
	return s.notify(ctx, approver.ID, entity.NotificationReadyForApproval, payload)
}

// onDecided tells the submitter about the final decision
func (s *notificationServiceImpl) onDecided(ctx context.Context, evt *event.Event) error {
	submitterID := evt.GetPayloadInt(event.KeySubmitterID)
	submitter, err := s.directoryRepo.GetUser(ctx, submitterID)
	if err != nil {
		return fmt.Errorf("get submitter: %w", err)
	}
	if submitter == nil {
		s.logger.Info("Submitter no longer exists", "report_id", evt.ReportID, "user_id", submitterID)
		return nil
	}

	status := evt.GetPayloadString(event.KeyStatus)
	title := evt.GetPayloadString(event.KeyTitle)
	notificationType := entity.DecisionNotificationType(status)
	payload := &entity.DecisionPayload{
		PayloadFields: entity.PayloadFields{
			ReportID:    evt.ReportID,
			ReportTitle: title,
			Title:       notificationType,
			Message: fmt.Sprintf("Your report %s status is now %s",
				entity.ReportDisplayTitle(evt.ReportID, title), status),
			ToEmail: submitter.Email,
		},
		Status:   status,
		Comments: evt.GetPayloadString(event.KeyComments),
	}
	return s.notify(ctx, submitter.ID, notificationType, payload)
}

// notify stores the notification and hands it to every delivery channel
func (s *notificationServiceImpl) notify(ctx context.Context, userID int64, notificationType string, payload entity.Payload) error {
	body, err := entity.MarshalPayload(payload)
	if err != nil {
		return err
	}

	n := &entity.Notification{
		UserID:  userID,
		Type:    notificationType,
		Payload: body,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	s.logger.Info("Notification created",
		"notification_id", n.ID,
		"user_id", userID,
		"type", notificationType,
	)

	s.deliver(ctx, notificationType, payload)
	return nil
}

// deliver sends payload to every channel. Failures are logged only.
func (s *notificationServiceImpl) deliver(ctx context.Context, notificationType string, payload entity.Payload) {
	to := payload.Fields().ToEmail
	if to == "" || len(s.senders) == 0 {
		return
	}

	msg := port.OutboundMessage{
		To:      to,
		Subject: SubjectPrefix + notificationType,
		Body:    entity.DisplayMessage(payload),
	}
	for _, sender := range s.senders {
		if err := sender.Send(ctx, msg); err != nil {
			s.logger.Error("Failed to deliver notification",
				"error", err,
				"channel", sender.Name(),
				"to", to,
				"type", notificationType,
			)
			continue
		}
		s.logger.Info("Notification delivered", "channel", sender.Name(), "to", to)
	}
}

// List returns notifications in display shape, newest first
func (s *notificationServiceImpl) List(ctx context.Context, caller *entity.Identity) ([]entity.NotificationView, error) {
	userID, err := s.scopeUser(caller)
	if err != nil {
		return nil, err
	}

	notifications, err := s.notificationRepo.List(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list notifications", "error", err)
		return nil, apperr.Internal(fmt.Errorf("list notifications: %w", err))
	}

	views := make([]entity.NotificationView, 0, len(notifications))
	for _, n := range notifications {
		payload := entity.ParsePayload(n.Type, n.Payload)
		s.backfillReportTitle(ctx, n, payload)
		views = append(views, entity.NewNotificationView(n, payload))
	}
	return views, nil
}

// backfillReportTitle fills a missing report title from the report row.
// Lookup errors are logged and the payload is left as is.
func (s *notificationServiceImpl) backfillReportTitle(ctx context.Context, n *entity.Notification, payload entity.Payload) {
	fields := payload.Fields()
	if fields.ReportTitle != "" || fields.ReportID == 0 {
		return
	}

	report, err := s.reportRepo.GetByID(ctx, fields.ReportID)
	if err != nil {
		s.logger.Error("Failed to look up report title",
			"error", err,
			"notification_id", n.ID,
			"report_id", fields.ReportID,
		)
		return
	}
	if report != nil && report.Title != "" {
		fields.SetReportTitle(report.Title)
	}
}

// MarkAllRead flips unread notifications
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, caller *entity.Identity) (int64, error) {
	userID, err := s.scopeUser(caller)
	if err != nil {
		return 0, err
	}

	n, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to mark notifications read", "error", err)
		return 0, apperr.Internal(fmt.Errorf("mark notifications read: %w", err))
	}

	s.logger.Info("Notifications marked read", "count", n, "scope", string(s.scope))
	return n, nil
}

func (s *notificationServiceImpl) scopeUser(caller *entity.Identity) (*int64, error) {
	if s.scope != ScopeRecipient {
		return nil, nil
	}
	if caller == nil {
		return nil, apperr.Authentication("Unauthorized")
	}
	id := caller.UserID
	return &id, nil
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
