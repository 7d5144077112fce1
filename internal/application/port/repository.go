package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/reportdesk/internal/domain/entity"
)

// ErrVersionConflict is returned by versioned writes when the stored
// version no longer matches the expected one
var ErrVersionConflict = errors.New("report version conflict")

// ErrNotFound is returned by writes addressing a row that does not exist
var ErrNotFound = errors.New("record not found")

// Field is an optional column assignment in a versioned write. A set
// field with a nil Value writes NULL.
type Field[T any] struct {
	Set   bool
	Value *T
}

// SetField assigns v, which may be nil
func SetField[T any](v *T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// SetValue assigns a non-null v
func SetValue[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// ReportChanges carries the columns a versioned write assigns. Unset
// fields keep their stored value.
type ReportChanges struct {
	Title            Field[string]
	Status           Field[string]
	DueDate          Field[string]
	ReportTypeID     Field[int64]
	ReviewedBy       Field[int64]
	ReviewedAt       Field[time.Time]
	ReviewComments   Field[string]
	ApprovedBy       Field[int64]
	ApprovedAt       Field[time.Time]
	ApprovalComments Field[string]
}

// ReportRepository defines persistence operations for Report
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id int64) (*entity.Report, error)
	GetRecord(ctx context.Context, id int64) (*entity.ReportRecord, error)

	// List returns every report matching filter, newest first
	List(ctx context.Context, filter entity.ReportFilter) ([]*entity.ReportRecord, error)

	// ReviewQueue returns Pending reports visible to a reviewer in departmentID.
	// A nil department sees every Pending report.
	ReviewQueue(ctx context.Context, departmentID *int64) ([]*entity.ReportRecord, error)

	// ApprovalQueue returns every Reviewed report
	ApprovalQueue(ctx context.Context) ([]*entity.ReportRecord, error)

	// UpdateVersioned applies changes only if the stored version equals
	// expectedVersion, bumping it by one. Returns ErrVersionConflict on a
	// stale version and ErrNotFound when the report is gone.
	UpdateVersioned(ctx context.Context, id int64, expectedVersion int, changes ReportChanges) (*entity.Report, error)

	// Delete hard-deletes a report. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id int64) error
}

// HistoryRepository defines persistence operations for ReviewHistory.
// History is append-only.
type HistoryRepository interface {
	Append(ctx context.Context, h *entity.ReviewHistory) error
	ListByReport(ctx context.Context, reportID int64) ([]*entity.ReviewHistory, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error

	// List returns notifications newest first, restricted to userID when set
	List(ctx context.Context, userID *int64) ([]*entity.Notification, error)

	// MarkAllRead flips every unread row, restricted to userID when set
	MarkAllRead(ctx context.Context, userID *int64) (int64, error)
}

// DirectoryRepository looks up users and reference data owned elsewhere
type DirectoryRepository interface {
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	GetReportType(ctx context.Context, id int64) (*entity.ReportType, error)
	FindReportTypeByName(ctx context.Context, name string) (*entity.ReportType, error)

	// FirstUserByRole returns the lowest-id user holding role, restricted
	// to departmentID when set. Returns nil, nil when nobody matches.
	FirstUserByRole(ctx context.Context, role string, departmentID *int64) (*entity.User, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
