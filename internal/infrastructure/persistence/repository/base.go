package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/reportdesk/pkg/database"
	"go.uber.org/zap"
)

// baseRepository holds what every repository needs
type baseRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// getExecutor returns appropriate executor (transaction or database)
func (r *baseRepository) getExecutor(ctx context.Context) sqldb.Executor {
	return sqldb.ExecutorFrom(ctx, r.db.DB)
}

// rebind adapts ? placeholders to the connection's dialect
func (r *baseRepository) rebind(query string) string {
	return r.db.Dialect.Rebind(query)
}

// now is the timestamp written by repositories; UTC keeps text ordering
// in SQLite consistent with time ordering.
func now() time.Time {
	return time.Now().UTC()
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullable[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}
