package repository

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/reportdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostgres_ReportLifecycle(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	f := testutil.SetupFixtures(t, db)
	logger := zap.NewNop()

	reports := NewReportRepository(db, logger)
	history := NewHistoryRepository(db, logger)
	notifications := NewNotificationRepository(db, logger)
	directory := NewDirectoryRepository(db, logger)
	txm := sqldb.NewDB(db.DB, logger)
	ctx := context.Background()

	report := createReport(t, reports, f.Employee, &f.FinanceTypeID, "Q1 Budget")

	reviewer, err := directory.FirstUserByRole(ctx, entity.RoleReviewer, &f.FinanceID)
	require.NoError(t, err)
	require.NotNil(t, reviewer)

	queue, err := reports.ReviewQueue(ctx, &f.FinanceID)
	require.NoError(t, err)
	assert.Equal(t, []int64{report.ID}, ids(queue))

	err = txm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := history.Append(ctx, &entity.ReviewHistory{ReportID: report.ID, ReviewerID: reviewer.ID, Action: "Reviewed"}); err != nil {
			return err
		}
		_, err := reports.UpdateVersioned(ctx, report.ID, report.Version, port.ReportChanges{
			Status:     port.SetValue(entity.StatusReviewed),
			ReviewedBy: port.SetValue(reviewer.ID),
			ReviewedAt: port.SetValue(time.Now().UTC()),
		})
		return err
	})
	require.NoError(t, err)

	// A second writer holding the old version loses and its history row is rolled back
	err = txm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := history.Append(ctx, &entity.ReviewHistory{ReportID: report.ID, ReviewerID: reviewer.ID, Action: "Rejected"}); err != nil {
			return err
		}
		_, err := reports.UpdateVersioned(ctx, report.ID, report.Version, port.ReportChanges{Status: port.SetValue(entity.StatusRejected)})
		return err
	})
	assert.ErrorIs(t, err, port.ErrVersionConflict)

	rows, err := history.ListByReport(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Reviewed", rows[0].Action)

	approvals, err := reports.ApprovalQueue(ctx)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, "Finance", approvals[0].DepartmentLabel())

	found, err := reports.List(ctx, entity.ReportFilter{Query: "q1"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, notifications.Create(ctx, &entity.Notification{UserID: f.Employee, Type: "Report Approved", Payload: `{"reportId":1}`}))
	n, err := notifications.MarkAllRead(ctx, &f.Employee)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
