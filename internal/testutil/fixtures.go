// Package testutil provides database setup shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/seed"
	"github.com/garyjia/reportdesk/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// NewSQLiteDB opens a migrated SQLite database in a temp directory
func NewSQLiteDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "reportdesk.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator, err := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.RunMigrations())

	return db
}

// Fixtures holds the ids of the seeded directory rows
type Fixtures struct {
	DB *database.DB

	FinanceID    int64
	OperationsID int64

	FinanceTypeID    int64 // "Monthly Financials"
	OperationsTypeID int64 // "Fleet Usage"
	UnscopedTypeID   int64 // "General", no department

	Admin              int64
	FinanceReviewer    int64
	OperationsReviewer int64
	Approver           int64
	Employee           int64
}

// SetupFixtures seeds two departments with one reviewer each, an approver,
// an admin and an employee. Users get no password.
func SetupFixtures(t *testing.T, db *database.DB) *Fixtures {
	t.Helper()

	ctx := context.Background()
	s := seed.New(db, zap.NewNop())
	f := &Fixtures{DB: db}

	var err error
	f.FinanceID, err = s.Department(ctx, "Finance")
	require.NoError(t, err)
	f.OperationsID, err = s.Department(ctx, "Operations")
	require.NoError(t, err)

	f.FinanceTypeID, err = s.ReportType(ctx, "Monthly Financials", &f.FinanceID, "monthly")
	require.NoError(t, err)
	f.OperationsTypeID, err = s.ReportType(ctx, "Fleet Usage", &f.OperationsID, "weekly")
	require.NoError(t, err)
	f.UnscopedTypeID, err = s.ReportType(ctx, "General", nil, "")
	require.NoError(t, err)

	users := []struct {
		dst  *int64
		user seed.UserSeed
	}{
		{&f.Admin, seed.UserSeed{Email: "admin@example.com", FullName: "Admin User", Role: "admin"}},
		{&f.FinanceReviewer, seed.UserSeed{Email: "reviewer@example.com", FullName: "Dept Reviewer", Role: "reviewer", DepartmentID: &f.FinanceID}},
		{&f.OperationsReviewer, seed.UserSeed{Email: "ops-reviewer@example.com", FullName: "Ops Reviewer", Role: "reviewer", DepartmentID: &f.OperationsID}},
		{&f.Approver, seed.UserSeed{Email: "approver@example.com", FullName: "COO Approver", Role: "approver"}},
		{&f.Employee, seed.UserSeed{Email: "employee@example.com", FullName: "Regular Employee", Role: "employee", DepartmentID: &f.FinanceID}},
	}
	for _, u := range users {
		*u.dst, err = s.User(ctx, u.user)
		require.NoError(t, err)
	}

	return f
}
