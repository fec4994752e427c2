// Package testutil builds throwaway databases and recipe services for
// tests and drives gin handlers without a server.
package testutil

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	recipeapp "github.com/repoflow/backend/internal/application/recipe"
	"github.com/repoflow/backend/internal/infrastructure/config"
	"github.com/repoflow/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB is a postgres-dialect gorm handle whose statements are scripted
// through Mock.
type MockDB struct {
	DB   *gorm.DB
	Mock sqlmock.Sqlmock
}

// NewMockDB opens gorm over sqlmock. With monitorPings set, pings must be
// expected through Mock. The connection closes with the test.
func NewMockDB(t *testing.T, monitorPings bool) *MockDB {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	return &MockDB{DB: gdb, Mock: mock}
}

func (m *MockDB) Database() *persistence.Database {
	return &persistence.Database{DB: m.DB, Driver: config.DriverPostgres}
}

func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet())
}

// NewSQLiteDatabase opens and migrates an in-memory SQLite database that
// closes with the test.
func NewSQLiteDatabase(t *testing.T) *persistence.Database {
	t.Helper()

	db, err := persistence.Open(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())
	return db
}

// NewRecipeService is the recipe service over a fresh SQLite database.
func NewRecipeService(t *testing.T, opts ...recipeapp.ServiceOption) (*recipeapp.RecipeService, *persistence.Database) {
	t.Helper()

	db := NewSQLiteDatabase(t)
	return recipeapp.NewRecipeService(persistence.NewGormRecipeRepository(db.DB), opts...), db
}
