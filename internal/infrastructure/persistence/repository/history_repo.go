package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/garyjia/reportdesk/pkg/database"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	baseRepository
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{baseRepository{db: db, logger: logger}}
}

// Append records one review or approval action
func (r *HistoryRepository) Append(ctx context.Context, h *entity.ReviewHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now()
	}

	query := r.rebind(`
		INSERT INTO review_history (report_id, reviewer_id, action, comments, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.getExecutor(ctx).QueryRowContext(ctx, query,
		h.ReportID,
		h.ReviewerID,
		h.Action,
		nullable(h.Comments),
		h.CreatedAt,
	).Scan(&h.ID)
	if err != nil {
		r.logger.Error("Failed to append review history",
			zap.Int64("report_id", h.ReportID),
			zap.String("action", h.Action),
			zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

// ListByReport returns the history of a report, oldest first
func (r *HistoryRepository) ListByReport(ctx context.Context, reportID int64) ([]*entity.ReviewHistory, error) {
	query := r.rebind(`
		SELECT id, report_id, reviewer_id, action, comments, created_at
		FROM review_history
		WHERE report_id = ?
		ORDER BY created_at ASC, id ASC
	`)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, reportID)
	if err != nil {
		r.logger.Error("Failed to list review history", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := []*entity.ReviewHistory{}
	for rows.Next() {
		var h entity.ReviewHistory
		var comments sql.NullString
		if err := rows.Scan(&h.ID, &h.ReportID, &h.ReviewerID, &h.Action, &comments, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.Comments = stringPtr(comments)
		records = append(records, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
