package service

import (
	"context"
	"fmt"

	"github.com/garyjia/reportdesk/internal/application/dispatcher"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/event"
)

// RegisterUploadCleanup removes a deleted report's uploaded file
func RegisterUploadCleanup(d dispatcher.Dispatcher, storage port.FileStorage, logger Logger) {
	d.SubscribeNamed(event.TypeReportDeleted, "remove-upload", func(ctx context.Context, evt *event.Event) error {
		path := evt.GetPayloadString(event.KeyFilePath)
		if path == "" || !storage.Exists(ctx, path) {
			return nil
		}
		if err := storage.Delete(ctx, path); err != nil {
			return fmt.Errorf("remove upload of report %d: %w", evt.ReportID, err)
		}
		logger.Info("Upload removed", "report_id", evt.ReportID, "path", path)
		return nil
	})
}
