package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
)

// Mock repositories
type mockReportRepo struct {
	createFunc          func(ctx context.Context, report *entity.Report) error
	getByIDFunc         func(ctx context.Context, id int64) (*entity.Report, error)
	getRecordFunc       func(ctx context.Context, id int64) (*entity.ReportRecord, error)
	listFunc            func(ctx context.Context, filter entity.ReportFilter) ([]*entity.ReportRecord, error)
	reviewQueueFunc     func(ctx context.Context, departmentID *int64) ([]*entity.ReportRecord, error)
	approvalQueueFunc   func(ctx context.Context) ([]*entity.ReportRecord, error)
	updateVersionedFunc func(ctx context.Context, id int64, expectedVersion int, changes port.ReportChanges) (*entity.Report, error)
	deleteFunc          func(ctx context.Context, id int64) error
}

func (m *mockReportRepo) Create(ctx context.Context, report *entity.Report) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, report)
	}
	report.ID = 1
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Report{ID: id, Title: "Q1 Budget", Status: entity.StatusPending, SubmittedBy: 5, Version: 1}, nil
}

func (m *mockReportRepo) GetRecord(ctx context.Context, id int64) (*entity.ReportRecord, error) {
	if m.getRecordFunc != nil {
		return m.getRecordFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockReportRepo) List(ctx context.Context, filter entity.ReportFilter) ([]*entity.ReportRecord, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.ReportRecord{}, nil
}

func (m *mockReportRepo) ReviewQueue(ctx context.Context, departmentID *int64) ([]*entity.ReportRecord, error) {
	if m.reviewQueueFunc != nil {
		return m.reviewQueueFunc(ctx, departmentID)
	}
	return []*entity.ReportRecord{}, nil
}

func (m *mockReportRepo) ApprovalQueue(ctx context.Context) ([]*entity.ReportRecord, error) {
	if m.approvalQueueFunc != nil {
		return m.approvalQueueFunc(ctx)
	}
	return []*entity.ReportRecord{}, nil
}

// UpdateVersioned applies the status change to a fresh report by default
func (m *mockReportRepo) UpdateVersioned(ctx context.Context, id int64, expectedVersion int, changes port.ReportChanges) (*entity.Report, error) {
	if m.updateVersionedFunc != nil {
		return m.updateVersionedFunc(ctx, id, expectedVersion, changes)
	}
	report := &entity.Report{ID: id, Title: "Q1 Budget", SubmittedBy: 5, Version: expectedVersion + 1}
	if changes.Status.Value != nil {
		report.Status = *changes.Status.Value
	}
	return report, nil
}

func (m *mockReportRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockHistoryRepo struct {
	mu         sync.Mutex
	appended   []*entity.ReviewHistory
	appendFunc func(ctx context.Context, h *entity.ReviewHistory) error
}

func (m *mockHistoryRepo) Append(ctx context.Context, h *entity.ReviewHistory) error {
	if m.appendFunc != nil {
		if err := m.appendFunc(ctx, h); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, h)
	return nil
}

func (m *mockHistoryRepo) ListByReport(ctx context.Context, reportID int64) ([]*entity.ReviewHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ReviewHistory
	for _, h := range m.appended {
		if h.ReportID == reportID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockNotificationRepo struct {
	mu              sync.Mutex
	created         []*entity.Notification
	createFunc      func(ctx context.Context, n *entity.Notification) error
	listFunc        func(ctx context.Context, userID *int64) ([]*entity.Notification, error)
	markAllReadFunc func(ctx context.Context, userID *int64) (int64, error)
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.created) + 1)
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, userID *int64) ([]*entity.Notification, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return []*entity.Notification{}, nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID *int64) (int64, error) {
	if m.markAllReadFunc != nil {
		return m.markAllReadFunc(ctx, userID)
	}
	return 0, nil
}

type mockDirectoryRepo struct {
	users       map[int64]*entity.User
	types       map[int64]*entity.ReportType
	getUserFunc func(ctx context.Context, id int64) (*entity.User, error)
}

func (m *mockDirectoryRepo) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, id)
	}
	return m.users[id], nil
}

func (m *mockDirectoryRepo) GetReportType(ctx context.Context, id int64) (*entity.ReportType, error) {
	return m.types[id], nil
}

func (m *mockDirectoryRepo) FindReportTypeByName(ctx context.Context, name string) (*entity.ReportType, error) {
	var found *entity.ReportType
	for _, t := range m.types {
		if t.Name == name && (found == nil || t.ID < found.ID) {
			found = t
		}
	}
	return found, nil
}

func (m *mockDirectoryRepo) FirstUserByRole(ctx context.Context, role string, departmentID *int64) (*entity.User, error) {
	var found *entity.User
	for _, u := range m.users {
		if u.Role != role {
			continue
		}
		if departmentID != nil && (u.DepartmentID == nil || *u.DepartmentID != *departmentID) {
			continue
		}
		if found == nil || u.ID < found.ID {
			found = u
		}
	}
	return found, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockStorage struct {
	saved      map[string][]byte
	deleted    []string
	saveErr    error
	deleteFunc func(ctx context.Context, path string) error
}

func (m *mockStorage) SaveUpload(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	path := fmt.Sprintf("uploads/%d-%s", len(m.saved)+1, originalName)
	m.saved[path] = data
	return path, nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	data, ok := m.saved[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return data, nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.saved[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, path)
	}
	delete(m.saved, path)
	m.deleted = append(m.deleted, path)
	return nil
}

type mockSender struct {
	name    string
	sent    []port.OutboundMessage
	sendErr error
}

func (m *mockSender) Name() string { return m.name }

func (m *mockSender) Send(ctx context.Context, msg port.OutboundMessage) error {
	m.sent = append(m.sent, msg)
	return m.sendErr
}

type mockRenderer struct {
	rendered *port.ReportDocument
}

func (m *mockRenderer) ContentType() string { return "application/pdf" }

func (m *mockRenderer) Render(w io.Writer, doc *port.ReportDocument) error {
	m.rendered = doc
	_, err := io.WriteString(w, "%PDF-")
	return err
}

type mockExporter struct {
	rows []port.ReportListItem
}

func (m *mockExporter) ContentType() string { return "application/octet-stream" }

func (m *mockExporter) Export(w io.Writer, rows []port.ReportListItem) error {
	m.rows = rows
	_, err := io.WriteString(w, "xlsx")
	return err
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func ptr[T any](v T) *T { return &v }

// directory seeds the users and types used across service tests
func directory() *mockDirectoryRepo {
	finance := int64(1)
	return &mockDirectoryRepo{
		users: map[int64]*entity.User{
			2: {ID: 2, Email: "reviewer@example.com", FullName: ptr("Dept Reviewer"), Role: entity.RoleReviewer, DepartmentID: &finance},
			3: {ID: 3, Email: "approver@example.com", FullName: ptr("COO Approver"), Role: entity.RoleApprover},
			5: {ID: 5, Email: "employee@example.com", FullName: ptr("Regular Employee"), Role: entity.RoleEmployee, DepartmentID: &finance},
		},
		types: map[int64]*entity.ReportType{
			1: {ID: 1, Name: "Monthly Financials", DepartmentID: &finance},
			2: {ID: 2, Name: "General"},
		},
	}
}

var (
	employee = entity.Identity{UserID: 5, Role: entity.RoleEmployee, Email: "employee@example.com", FullName: "Regular Employee"}
	reviewer = entity.Identity{UserID: 2, Role: entity.RoleReviewer, DepartmentID: ptr(int64(1)), FullName: "Dept Reviewer"}
	approver = entity.Identity{UserID: 3, Role: entity.RoleApprover, FullName: "COO Approver"}
	admin    = entity.Identity{UserID: 1, Role: entity.RoleAdmin, FullName: "Admin User"}
)
