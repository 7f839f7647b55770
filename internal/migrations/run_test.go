package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func getTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func getMigrationsPath(t *testing.T) string {
	projectRoot, err := filepath.Abs("../..")
	require.NoError(t, err)

	migrationsPath := filepath.Join(projectRoot, "migrations")
	t.Logf("Migrations path: %s", migrationsPath)
	return migrationsPath
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestRunMigrations(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	err := Run(db, getMigrationsPath(t))
	require.NoError(t, err)

	for _, table := range []string{"profiles", "poses", "flows", "flow_items"} {
		require.True(t, tableExists(t, db, table), "Table %q should exist", table)
	}

	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'flow_items'
			AND indexname = 'idx_flow_items_flow_position'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "Index should exist")

	var published int
	err = db.QueryRow("SELECT COUNT(*) FROM poses WHERE status = 'published'").Scan(&published)
	require.NoError(t, err)
	require.Positive(t, published, "Seed should publish catalog poses")
}

func TestMigrationIdempotency(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	migrationsPath := getMigrationsPath(t)

	require.NoError(t, Run(db, migrationsPath))
	require.NoError(t, Run(db, migrationsPath), "Running migrations twice should not fail")

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM poses WHERE slug = 'mountain'").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count, "Seed should not duplicate rows")
}

func TestFlowItemsCascadeOnFlowDelete(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	require.NoError(t, Run(db, getMigrationsPath(t)))

	var flowID string
	err := db.QueryRow(`INSERT INTO flows (user_id, title) VALUES ('user-1', 'Morning') RETURNING id`).Scan(&flowID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO flow_items (flow_id, pose_id, position, duration_seconds)
		VALUES ($1, '2b6f0cc9-4d0f-4a39-9c1e-1f3f6f1a0001', 0, 30)`, flowID)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM flows WHERE id = $1`, flowID)
	require.NoError(t, err)

	var items int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM flow_items WHERE flow_id = $1`, flowID).Scan(&items))
	require.Zero(t, items)
}
