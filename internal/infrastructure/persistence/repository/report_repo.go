package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/garyjia/reportdesk/pkg/database"
	"go.uber.org/zap"
)

const reportColumns = `
	r.id, r.user_id, r.report_type_id, r.title, r.description, r.file_path,
	r.status, r.due_date, r.submitted_at, r.reviewed_by, r.reviewed_at,
	r.review_comments, r.approved_by, r.approved_at, r.approval_comments,
	r.version, r.created_at, r.updated_at`

const recordSelect = `
	SELECT ` + reportColumns + `,
		u.full_name, u.email, u.department_id,
		rt.name, rt.department_id, d.name
	FROM reports r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN report_types rt ON rt.id = r.report_type_id
	LEFT JOIN departments d ON d.id = rt.department_id`

const recordOrder = ` ORDER BY r.created_at DESC, r.id DESC`

// ReportRepository implements port.ReportRepository
type ReportRepository struct {
	baseRepository
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{baseRepository{db: db, logger: logger}}
}

// Create inserts a report and fills in its ID
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	ts := now()
	if report.SubmittedAt.IsZero() {
		report.SubmittedAt = ts
	}
	if report.Status == "" {
		report.Status = entity.StatusPending
	}
	report.Version = 1
	report.CreatedAt = ts
	report.UpdatedAt = ts

	query := r.rebind(`
		INSERT INTO reports (
			user_id, report_type_id, title, description, file_path, status,
			due_date, submitted_at, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.getExecutor(ctx).QueryRowContext(ctx, query,
		report.SubmittedBy,
		nullable(report.ReportTypeID),
		report.Title,
		report.Description,
		nullable(report.FilePath),
		report.Status,
		nullable(report.DueDate),
		report.SubmittedAt,
		report.Version,
		report.CreatedAt,
		report.UpdatedAt,
	).Scan(&report.ID)
	if err != nil {
		r.logger.Error("Failed to create report", zap.Int64("user_id", report.SubmittedBy), zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// GetByID retrieves a report, or nil when it does not exist
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	query := r.rebind(`SELECT ` + reportColumns + ` FROM reports r WHERE r.id = ?`)

	report, err := scanReport(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// GetRecord retrieves a report joined with submitter and type, or nil
func (r *ReportRepository) GetRecord(ctx context.Context, id int64) (*entity.ReportRecord, error) {
	query := r.rebind(recordSelect + ` WHERE r.id = ?`)

	record, err := scanRecord(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report record: %w", err)
	}
	return record, nil
}

// List returns reports matching filter, newest first
func (r *ReportRepository) List(ctx context.Context, filter entity.ReportFilter) ([]*entity.ReportRecord, error) {
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		conds = append(conds, "r.status = ?")
		args = append(args, filter.Status)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := likePattern(q)
		lower := r.db.Dialect.Lower()
		conds = append(conds, fmt.Sprintf(`(%[1]s(r.title) LIKE ? ESCAPE '\'
			OR %[1]s(COALESCE(r.description, '')) LIKE ? ESCAPE '\'
			OR %[1]s(COALESCE(u.full_name, '')) LIKE ? ESCAPE '\')`, lower))
		args = append(args, pattern, pattern, pattern)
	}

	query := recordSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	return r.queryRecords(ctx, "list", query+recordOrder, args...)
}

// ReviewQueue returns Pending reports visible to a reviewer in departmentID
func (r *ReportRepository) ReviewQueue(ctx context.Context, departmentID *int64) ([]*entity.ReportRecord, error) {
	query := recordSelect + ` WHERE r.status = ?`
	args := []interface{}{entity.StatusPending}

	if departmentID != nil {
		query += ` AND (r.report_type_id IS NULL OR rt.department_id = ?)`
		args = append(args, *departmentID)
	}

	return r.queryRecords(ctx, "review queue", query+recordOrder, args...)
}

// ApprovalQueue returns every Reviewed report
func (r *ReportRepository) ApprovalQueue(ctx context.Context) ([]*entity.ReportRecord, error) {
	return r.queryRecords(ctx, "approval queue", recordSelect+` WHERE r.status = ?`+recordOrder, entity.StatusReviewed)
}

// UpdateVersioned applies changes guarded by the expected version
func (r *ReportRepository) UpdateVersioned(ctx context.Context, id int64, expectedVersion int, changes port.ReportChanges) (*entity.Report, error) {
	sets := []string{"version = version + 1", "updated_at = ?"}
	args := []interface{}{now()}

	assign := func(column string, set bool, value interface{}) {
		if set {
			sets = append(sets, column+" = ?")
			args = append(args, value)
		}
	}
	assign("title", changes.Title.Set, nullable(changes.Title.Value))
	assign("status", changes.Status.Set, nullable(changes.Status.Value))
	assign("due_date", changes.DueDate.Set, nullable(changes.DueDate.Value))
	assign("report_type_id", changes.ReportTypeID.Set, nullable(changes.ReportTypeID.Value))
	assign("reviewed_by", changes.ReviewedBy.Set, nullable(changes.ReviewedBy.Value))
	assign("reviewed_at", changes.ReviewedAt.Set, nullable(changes.ReviewedAt.Value))
	assign("review_comments", changes.ReviewComments.Set, nullable(changes.ReviewComments.Value))
	assign("approved_by", changes.ApprovedBy.Set, nullable(changes.ApprovedBy.Value))
	assign("approved_at", changes.ApprovedAt.Set, nullable(changes.ApprovedAt.Value))
	assign("approval_comments", changes.ApprovalComments.Set, nullable(changes.ApprovalComments.Value))

	query := r.rebind(`UPDATE reports SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND version = ?`)
	args = append(args, id, expectedVersion)

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update report", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, port.ErrNotFound
		}
		r.logger.Info("Report version conflict",
			zap.Int64("id", id),
			zap.Int("expected_version", expectedVersion),
			zap.Int("stored_version", current.Version))
		return nil, port.ErrVersionConflict
	}

	return r.GetByID(ctx, id)
}

// Delete hard-deletes a report; history rows cascade
func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, r.rebind(`DELETE FROM reports WHERE id = ?`), id)
	if err != nil {
		r.logger.Error("Failed to delete report", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) queryRecords(ctx context.Context, what, query string, args ...interface{}) ([]*entity.ReportRecord, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to query reports", zap.String("query", what), zap.Error(err))
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	records := []*entity.ReportRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

type reportRow struct {
	report           entity.Report
	reportTypeID     sql.NullInt64
	reviewedBy       sql.NullInt64
	approvedBy       sql.NullInt64
	filePath         sql.NullString
	dueDate          sql.NullString
	reviewComments   sql.NullString
	approvalComments sql.NullString
	reviewedAt       sql.NullTime
	approvedAt       sql.NullTime
}

func (row *reportRow) dest() []interface{} {
	rp := &row.report
	return []interface{}{
		&rp.ID, &rp.SubmittedBy, &row.reportTypeID, &rp.Title, &rp.Description, &row.filePath,
		&rp.Status, &row.dueDate, &rp.SubmittedAt, &row.reviewedBy, &row.reviewedAt,
		&row.reviewComments, &row.approvedBy, &row.approvedAt, &row.approvalComments,
		&rp.Version, &rp.CreatedAt, &rp.UpdatedAt,
	}
}

func (row *reportRow) finish() entity.Report {
	rp := row.report
	rp.ReportTypeID = int64Ptr(row.reportTypeID)
	rp.FilePath = stringPtr(row.filePath)
	rp.DueDate = stringPtr(row.dueDate)
	rp.ReviewedBy = int64Ptr(row.reviewedBy)
	rp.ReviewedAt = timePtr(row.reviewedAt)
	rp.ReviewComments = stringPtr(row.reviewComments)
	rp.ApprovedBy = int64Ptr(row.approvedBy)
	rp.ApprovedAt = timePtr(row.approvedAt)
	rp.ApprovalComments = stringPtr(row.approvalComments)
	return rp
}

func scanReport(s scanner) (*entity.Report, error) {
	var row reportRow
	if err := s.Scan(row.dest()...); err != nil {
		return nil, err
	}
	report := row.finish()
	return &report, nil
}

func scanRecord(s scanner) (*entity.ReportRecord, error) {
	var row reportRow
	var submitterName, submitterEmail, typeName, typeDeptName sql.NullString
	var submitterDept, typeDept sql.NullInt64

	dest := append(row.dest(), &submitterName, &submitterEmail, &submitterDept, &typeName, &typeDept, &typeDeptName)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	return &entity.ReportRecord{
		Report:                row.finish(),
		SubmitterName:         stringPtr(submitterName),
		SubmitterEmail:        stringPtr(submitterEmail),
		SubmitterDepartmentID: int64Ptr(submitterDept),
		TypeName:              stringPtr(typeName),
		TypeDepartmentID:      int64Ptr(typeDept),
		TypeDepartmentName:    stringPtr(typeDeptName),
	}, nil
}

var _ port.ReportRepository = (*ReportRepository)(nil)
