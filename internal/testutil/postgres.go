package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/reportdesk/pkg/database"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// NewPostgresDB starts a PostgreSQL container and returns a migrated
// connection to it. Skipped with -short or when Docker is unavailable.
func NewPostgresDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18",
		postgres.WithDatabase("reportdesk_test"),
		postgres.WithUsername("reportdesk_test"),
		postgres.WithPassword("reportdesk_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(database.Config{Driver: "postgres", DSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.WaitForDB(ctx, db, 5, 500*time.Millisecond))

	migrator, err := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.RunMigrations())

	return db
}
