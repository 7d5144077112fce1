// Package seed writes directory reference data: departments, report types
// and users. The workflow core only reads these tables; seeding exists for
// local development and tests.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/reportdesk/pkg/database"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserSeed describes a user to create
type UserSeed struct {
	Email        string
	Password     string // hashed with bcrypt; empty leaves no usable password
	FullName     string
	Role         string
	DepartmentID *int64
}

// Seeder finds or creates directory rows
type Seeder struct {
	db     *database.DB
	logger *zap.Logger
}

// New creates a seeder
func New(db *database.DB, logger *zap.Logger) *Seeder {
	return &Seeder{db: db, logger: logger}
}

// Department returns the id of the department named name, creating it if needed
func (s *Seeder) Department(ctx context.Context, name string) (int64, error) {
	return s.findOrCreate(ctx,
		`SELECT id FROM departments WHERE name = ?`, []interface{}{name},
		`INSERT INTO departments (name) VALUES (?) RETURNING id`, []interface{}{name},
	)
}

// ReportType returns the id of the report type named name, creating it if needed
func (s *Seeder) ReportType(ctx context.Context, name string, departmentID *int64, frequency string) (int64, error) {
	var freq interface{}
	if frequency != "" {
		freq = frequency
	}
	return s.findOrCreate(ctx,
		`SELECT id FROM report_types WHERE name = ? ORDER BY id LIMIT 1`, []interface{}{name},
		`INSERT INTO report_types (name, department_id, frequency) VALUES (?, ?, ?) RETURNING id`,
		[]interface{}{name, optional(departmentID), freq},
	)
}

// User returns the id of the user with seed's email, creating it if needed
func (s *Seeder) User(ctx context.Context, seed UserSeed) (int64, error) {
	hash := ""
	if seed.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return 0, fmt.Errorf("failed to hash password: %w", err)
		}
		hash = string(hashed)
	}

	var fullName interface{}
	if seed.FullName != "" {
		fullName = seed.FullName
	}

	return s.findOrCreate(ctx,
		`SELECT id FROM users WHERE email = ?`, []interface{}{seed.Email},
		`INSERT INTO users (email, password_hash, full_name, role, department_id) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		[]interface{}{seed.Email, hash, fullName, strings.ToLower(seed.Role), optional(seed.DepartmentID)},
	)
}

// Run seeds the development dataset and returns the seeded user ids by
// email. It is safe to run repeatedly.
func (s *Seeder) Run(ctx context.Context) (map[string]int64, error) {
	for _, name := range []string{"Finance", "HR", "Operations", "IT"} {
		if _, err := s.Department(ctx, name); err != nil {
			return nil, err
		}
	}

	finance, err := s.Department(ctx, "Finance")
	if err != nil {
		return nil, err
	}

	if _, err := s.ReportType(ctx, "Monthly Financials", &finance, "monthly"); err != nil {
		return nil, err
	}

	users := []UserSeed{
		{Email: "admin@example.com", Password: "AdminPass123!", FullName: "Admin User", Role: "admin"},
		{Email: "reviewer@example.com", Password: "Reviewer123!", FullName: "Dept Reviewer", Role: "reviewer", DepartmentID: &finance},
		{Email: "approver@example.com", Password: "Approver123!", FullName: "COO Approver", Role: "approver"},
		{Email: "employee@example.com", Password: "Employee123!", FullName: "Regular Employee", Role: "employee", DepartmentID: &finance},
	}
	ids := make(map[string]int64, len(users))
	for _, u := range users {
		id, err := s.User(ctx, u)
		if err != nil {
			return nil, err
		}
		ids[u.Email] = id
		s.logger.Info("Seeded user", zap.String("email", u.Email), zap.Int64("id", id))
	}

	return ids, nil
}

func (s *Seeder) findOrCreate(ctx context.Context, lookup string, lookupArgs []interface{}, insert string, insertArgs []interface{}) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.db.Dialect.Rebind(lookup), lookupArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up seed row: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, s.db.Dialect.Rebind(insert), insertArgs...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert seed row: %w", err)
	}
	return id, nil
}

func optional(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
