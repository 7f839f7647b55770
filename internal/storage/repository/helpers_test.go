package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/flow-builder/internal/migrations"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// Позы из сид-миграции.
const (
	seedMountain = "2b6f0cc9-4d0f-4a39-9c1e-1f3f6f1a0001"
	seedDownDog  = "2b6f0cc9-4d0f-4a39-9c1e-1f3f6f1a0002"
	seedTree     = "2b6f0cc9-4d0f-4a39-9c1e-1f3f6f1a0005"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и накатывает миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory создаёт тестовые данные напрямую через хранилище.
type TestDataFactory struct {
	storage *Storage
}

func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

func (f *TestDataFactory) CreateFlow(t *testing.T, userID, title string, items ...models.FlowItem) string {
	t.Helper()
	id, err := f.storage.CreateFlow(context.Background(), models.Flow{
		UserID: userID,
		Title:  title,
		Style:  "custom",
		Level:  "all",
	})
	require.NoError(t, err)
	require.NoError(t, f.storage.InsertItems(context.Background(), id, items))
	return id
}

func (f *TestDataFactory) SetPoseStatus(t *testing.T, poseID string, status models.PoseStatus) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE poses SET status = $2 WHERE id = $1`, poseID, string(status))
	require.NoError(t, err)
}

func item(poseID string, position, duration int) models.FlowItem {
	return models.FlowItem{
		PoseID:          poseID,
		Position:        position,
		DurationSeconds: duration,
		Side:            models.SideBoth,
		Repetitions:     1,
	}
}
