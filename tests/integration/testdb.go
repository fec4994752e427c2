// Package integration runs the recipe stack against real PostgreSQL and
// Redis instances started with testcontainers. Every test skips under
// -short.
package integration

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/repoflow/backend/internal/infrastructure/config"
	"github.com/repoflow/backend/internal/infrastructure/migration"
	"github.com/repoflow/backend/internal/infrastructure/persistence"
	"github.com/repoflow/backend/migrations"
)

// TestDB is a PostgreSQL database in its own container.
type TestDB struct {
	Database *persistence.Database
	DSN      string
	t        *testing.T
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
}

// NewTestDB starts a fresh postgres container, applying the embedded
// migrations first when migrate is set. Everything is torn down with t.
func NewTestDB(t *testing.T, migrate bool) *TestDB {
	t.Helper()
	skipIfShort(t)
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("recipes_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "postgres container did not start")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	tdb := &TestDB{DSN: dsn, t: t}

	if migrate {
		m := tdb.NewMigrator()
		require.NoError(t, m.Up())
		require.NoError(t, m.Close())
	}

	logMode := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		logMode = gormlogger.Info
	}
	gdb, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	tdb.Database = &persistence.Database{DB: gdb, Driver: config.DriverPostgres}
	t.Cleanup(func() { _ = tdb.Database.Close() })

	return tdb
}

// NewMigrator returns a migrator over the embedded migrations.
func (tdb *TestDB) NewMigrator() *migration.Migrator {
	tdb.t.Helper()

	m, err := migration.Open(tdb.DSN, migrations.FS, zap.NewNop())
	require.NoError(tdb.t, err)
	return m
}

// TableExists reports whether name is a table in the public schema.
func (tdb *TestDB) TableExists(name string) bool {
	tdb.t.Helper()

	var n int64
	require.NoError(tdb.t, tdb.Database.DB.Raw(
		`SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?`, name,
	).Scan(&n).Error)
	return n > 0
}

// CleanTables empties recipes and restarts the id sequence.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	require.NoError(tdb.t, tdb.Database.DB.Exec("TRUNCATE TABLE recipes RESTART IDENTITY").Error)
}

// NewTestRedis starts a Redis container and returns a client connected
// to it.
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	skipIfShort(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "redis container did not start")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}
