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

const userColumns = `id, email, full_name, role, department_id, created_at`

// DirectoryRepository implements port.DirectoryRepository over the
// users, departments and report_types tables
type DirectoryRepository struct {
	baseRepository
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *database.DB, logger *zap.Logger) port.DirectoryRepository {
	return &DirectoryRepository{baseRepository{db: db, logger: logger}}
}

// GetUser retrieves a user, or nil when it does not exist
func (r *DirectoryRepository) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	query := r.rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	user, err := scanUser(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FirstUserByRole returns the lowest-id user with role, or nil
func (r *DirectoryRepository) FirstUserByRole(ctx context.Context, role string, departmentID *int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(role) = ?`
	args := []interface{}{strings.ToLower(role)}
	if departmentID != nil {
		query += ` AND department_id = ?`
		args = append(args, *departmentID)
	}
	query += ` ORDER BY id ASC LIMIT 1`

	user, err := scanUser(r.getExecutor(ctx).QueryRowContext(ctx, r.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find user by role", zap.String("role", role), zap.Error(err))
		return nil, fmt.Errorf("failed to find user by role: %w", err)
	}
	return user, nil
}

// GetReportType retrieves a report type, or nil
func (r *DirectoryRepository) GetReportType(ctx context.Context, id int64) (*entity.ReportType, error) {
	query := r.rebind(`SELECT id, name, department_id, frequency FROM report_types WHERE id = ?`)
	return r.getReportType(ctx, query, id)
}

// FindReportTypeByName retrieves the lowest-id report type named exactly name, or nil
func (r *DirectoryRepository) FindReportTypeByName(ctx context.Context, name string) (*entity.ReportType, error) {
	query := r.rebind(`SELECT id, name, department_id, frequency FROM report_types WHERE name = ? ORDER BY id ASC LIMIT 1`)
	return r.getReportType(ctx, query, name)
}

func (r *DirectoryRepository) getReportType(ctx context.Context, query string, arg interface{}) (*entity.ReportType, error) {
	var rt entity.ReportType
	var deptID sql.NullInt64
	var frequency sql.NullString

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, arg).Scan(&rt.ID, &rt.Name, &deptID, &frequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report type", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get report type: %w", err)
	}

	rt.DepartmentID = int64Ptr(deptID)
	rt.Frequency = stringPtr(frequency)
	return &rt, nil
}

func scanUser(s scanner) (*entity.User, error) {
	var u entity.User
	var fullName sql.NullString
	var deptID sql.NullInt64
	if err := s.Scan(&u.ID, &u.Email, &fullName, &u.Role, &deptID, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.FullName = stringPtr(fullName)
	u.DepartmentID = int64Ptr(deptID)
	return &u, nil
}

var _ port.DirectoryRepository = (*DirectoryRepository)(nil)
