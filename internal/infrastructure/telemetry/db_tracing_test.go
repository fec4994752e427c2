package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRecipe struct {
	ID    int64  `gorm:"primaryKey"`
	Title string `gorm:"size:200"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRecipe{}))
	return db
}

func useRecordingTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestDBTracing_Initialize(t *testing.T) {
	t.Run("disabled registers nothing", func(t *testing.T) {
		db := setupTestDB(t)

		require.NoError(t, db.Use(NewDBTracing(DBTracingConfig{}, nil)))
		assert.Nil(t, db.Callback().Query().Get("db_tracing:after_query"))
	})

	t.Run("enabled records statement spans", func(t *testing.T) {
		sr := useRecordingTracer(t)
		db := setupTestDB(t)

		require.NoError(t, db.Use(NewDBTracing(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop())))
		require.NoError(t, db.Create(&tracedRecipe{Title: "Soup"}).Error)

		var rows []tracedRecipe
		require.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)

		assert.Len(t, rows, 1)
		assert.NotEmpty(t, sr.Ended())
		assert.NotNil(t, db.Callback().Query().Get("db_tracing:after_query"))
	})

	t.Run("registering twice fails", func(t *testing.T) {
		db := setupTestDB(t)
		plugin := NewDBTracing(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop())

		require.NoError(t, db.Use(plugin))
		assert.Error(t, db.Use(plugin))
	})
}

func TestDBTracing_Annotate(t *testing.T) {
	plugin := NewDBTracing(DBTracingConfig{Enabled: true, SlowQueryThresh: 50 * time.Millisecond}, nil)

	// RowsAffected lives on the embedded *gorm.DB, as in a real callback
	statement := func(ctx context.Context, err error) *gorm.DB {
		db := &gorm.DB{Config: &gorm.Config{}, RowsAffected: 2, Error: err}
		db.Statement = &gorm.Statement{DB: db, Context: ctx, Table: "recipes"}
		return db
	}

	t.Run("slow failing statement", func(t *testing.T) {
		sr := useRecordingTracer(t)
		ctx, span := StartSpan(context.Background(), "gorm.Query")
		ctx = context.WithValue(ctx, stmtStartKey{plugin.Name()}, time.Now().Add(-time.Second))

		plugin.annotate(statement(ctx, errors.New("connection reset")))
		span.End()

		got := sr.Ended()[0]
		assert.Contains(t, got.Attributes(), attribute.String("db.sql.table", "recipes"))
		assert.Contains(t, got.Attributes(), attribute.Int64("db.rows_affected", 2))
		assert.Contains(t, got.Attributes(), attribute.Bool("db.slow_query", true))
		assert.Equal(t, codes.Error, got.Status().Code)
		assert.Equal(t, "slow_query_warning", got.Events()[0].Name)
	})

	t.Run("not found is not an error", func(t *testing.T) {
		sr := useRecordingTracer(t)
		ctx, span := StartSpan(context.Background(), "gorm.Query")

		plugin.annotate(statement(ctx, gorm.ErrRecordNotFound))
		span.End()

		got := sr.Ended()[0]
		assert.Equal(t, codes.Unset, got.Status().Code)
		assert.NotContains(t, got.Attributes(), attribute.Bool("db.slow_query", true))
	})

	t.Run("no context", func(t *testing.T) {
		assert.NotPanics(t, func() { plugin.annotate(statement(nil, nil)) })
	})
}
