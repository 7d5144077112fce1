package repository

import (
	"context"
	"fmt"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
	"github.com/garyjia/reportdesk/pkg/database"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	baseRepository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{baseRepository{db: db, logger: logger}}
}

// Create stores a notification for one recipient
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	if n.Payload == "" {
		n.Payload = "{}"
	}

	query := r.rebind(`
		INSERT INTO notifications (user_id, type, payload, is_read, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.getExecutor(ctx).QueryRowContext(ctx, query,
		n.UserID,
		n.Type,
		n.Payload,
		n.Read,
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("user_id", n.UserID),
			zap.String("type", n.Type),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// List returns notifications newest first
func (r *NotificationRepository) List(ctx context.Context, userID *int64) ([]*entity.Notification, error) {
	query := `SELECT id, user_id, type, payload, is_read, created_at FROM notifications`
	var args []interface{}
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*entity.Notification{}
	for rows.Next() {
		var n entity.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkAllRead flips unread notifications and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID *int64) (int64, error) {
	query := `UPDATE notifications SET is_read = ? WHERE is_read = ?`
	args := []interface{}{true, false}
	if userID != nil {
		query += ` AND user_id = ?`
		args = append(args, *userID)
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, r.rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to mark notifications read", zap.Error(err))
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
