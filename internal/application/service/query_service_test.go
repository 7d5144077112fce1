package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/reportdesk/internal/application/apperr"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id int64, title, status string) *entity.ReportRecord {
	return &entity.ReportRecord{
		Report: entity.Report{
			ID:          id,
			Title:       title,
			Status:      status,
			SubmittedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		SubmitterName: ptr("Regular Employee"),
	}
}

func newQueryService(reports *mockReportRepo) (QueryService, *mockRenderer, *mockExporter) {
	renderer := &mockRenderer{}
	exporter := &mockExporter{}
	return NewQueryService(reports, directory(), renderer, exporter, &mockLogger{}), renderer, exporter
}

func TestQueryService_List_NormalizesStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"pending", entity.StatusPending},
		{"REVIEWED", entity.StatusReviewed},
		{"", ""},
		{"archived", ""},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			var got entity.ReportFilter
			svc, _, _ := newQueryService(&mockReportRepo{
				listFunc: func(ctx context.Context, filter entity.ReportFilter) ([]*entity.ReportRecord, error) {
					got = filter
					return []*entity.ReportRecord{record(1, "Q1 Budget", entity.StatusPending)}, nil
				},
			})

			items, err := svc.List(context.Background(), ListQuery{Status: tt.status, Q: "budget"})
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, "budget", got.Query)
			assert.Equal(t, "Regular Employee", items[0].SubmittedBy)
			assert.Equal(t, "2024-03-01T09:00:00Z", items[0].SubmittedDate)
		})
	}
}

func TestQueryService_List_Error(t *testing.T) {
	svc, _, _ := newQueryService(&mockReportRepo{
		listFunc: func(ctx context.Context, filter entity.ReportFilter) ([]*entity.ReportRecord, error) {
			return nil, errors.New("connection reset")
		},
	})

	_, err := svc.List(context.Background(), ListQuery{})
	requireKind(t, err, apperr.KindInternal)
}

func TestQueryService_Queues(t *testing.T) {
	var gotDepartment *int64
	svc, _, _ := newQueryService(&mockReportRepo{
		reviewQueueFunc: func(ctx context.Context, departmentID *int64) ([]*entity.ReportRecord, error) {
			gotDepartment = departmentID
			return []*entity.ReportRecord{record(1, "Q1 Budget", entity.StatusPending)}, nil
		},
		approvalQueueFunc: func(ctx context.Context) ([]*entity.ReportRecord, error) {
			return []*entity.ReportRecord{record(2, "Fleet", entity.StatusReviewed)}, nil
		},
	})
	ctx := context.Background()

	views, err := svc.ReviewQueue(ctx, reviewer)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, gotDepartment)
	assert.Equal(t, int64(1), *gotDepartment)

	_, err = svc.ReviewQueue(ctx, admin)
	require.NoError(t, err)
	assert.Nil(t, gotDepartment)

	_, err = svc.ReviewQueue(ctx, approver)
	requireKind(t, err, apperr.KindAuthorization)

	views, err = svc.ApprovalQueue(ctx, approver)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Fleet", views[0].Title)

	_, err = svc.ApprovalQueue(ctx, reviewer)
	requireKind(t, err, apperr.KindAuthorization)
}

func TestQueryService_Get(t *testing.T) {
	svc, _, _ := newQueryService(&mockReportRepo{
		getRecordFunc: func(ctx context.Context, id int64) (*entity.ReportRecord, error) {
			if id == 1 {
				return record(1, "Q1 Budget", entity.StatusPending), nil
			}
			return nil, nil
		},
	})

	view, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Q1 Budget", view.Title)

	_, err = svc.Get(context.Background(), 2)
	requireKind(t, err, apperr.KindNotFound)
}

func TestQueryService_Export(t *testing.T) {
	svc, _, exporter := newQueryService(&mockReportRepo{
		listFunc: func(ctx context.Context, filter entity.ReportFilter) ([]*entity.ReportRecord, error) {
			return []*entity.ReportRecord{record(1, "Q1 Budget", entity.StatusPending), record(2, "Fleet", entity.StatusPending)}, nil
		},
	})

	_, err := svc.Export(context.Background(), employee, ListQuery{})
	requireKind(t, err, apperr.KindAuthorization)

	download, err := svc.Export(context.Background(), approver, ListQuery{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, "reports.xlsx", download.FileName)
	assert.Equal(t, []byte("xlsx"), download.Data)
	assert.Len(t, exporter.rows, 2)
}

func TestQueryService_Document(t *testing.T) {
	rec := record(7, "Q1 Budget: Final", entity.StatusApproved)
	rec.ReviewedBy = ptr(int64(2))
	rec.ApprovedBy = ptr(int64(99))

	svc, renderer, _ := newQueryService(&mockReportRepo{
		getRecordFunc: func(ctx context.Context, id int64) (*entity.ReportRecord, error) {
			return rec, nil
		},
	})

	download, err := svc.Document(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", download.ContentType)
	assert.Equal(t, "Q1_Budget__Final.pdf", download.FileName)
	assert.Equal(t, []byte("%PDF-"), download.Data)

	require.NotNil(t, renderer.rendered)
	assert.Equal(t, "Dept Reviewer", renderer.rendered.ReviewerName)
	assert.Equal(t, "", renderer.rendered.ApproverName, "unknown users fall back to the id")
}

func TestQueryService_Document_Untitled(t *testing.T) {
	svc, _, _ := newQueryService(&mockReportRepo{
		getRecordFunc: func(ctx context.Context, id int64) (*entity.ReportRecord, error) {
			return record(7, "", entity.StatusPending), nil
		},
	})

	download, err := svc.Document(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "report-7.pdf", download.FileName)
}
