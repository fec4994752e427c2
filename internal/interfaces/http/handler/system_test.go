package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/repoflow/backend/internal/interfaces/http/dto"
	"github.com/repoflow/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("recipes-api", "1.0.0", nil)
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("ok without a database", func(t *testing.T) {
		h := NewSystemHandler("recipes-api", "1.0.0", nil)

		tc := testutil.RunHTTPTestCase(t, h.Health, testutil.HTTPTestCase{
			Path:           "/health",
			ExpectedStatus: http.StatusOK,
		})
		assert.JSONEq(t, `{"status":"ok"}`, tc.Recorder.Body.String())
	})

	t.Run("ok when the database answers", func(t *testing.T) {
		db := testutil.NewSQLiteDatabase(t)
		h := NewSystemHandler("recipes-api", "1.0.0", db)

		tc := testutil.RunHTTPTestCase(t, h.Health, testutil.HTTPTestCase{
			Path:           "/health",
			ExpectedStatus: http.StatusOK,
		})
		resp := testutil.JSONResponseAs[HealthResponse](t, tc)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Database)
		require.NotNil(t, resp.Pool)
		assert.Equal(t, 1, resp.Pool.MaxOpen)
	})

	t.Run("503 when the ping fails", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t, true)
		mockDB.Mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		h := NewSystemHandler("recipes-api", "1.0.0", mockDB.Database())

		tc := testutil.RunHTTPTestCase(t, h.Health, testutil.HTTPTestCase{
			Path:           "/health",
			ExpectedStatus: http.StatusServiceUnavailable,
		})
		resp := testutil.JSONResponseAs[HealthResponse](t, tc)
		assert.Equal(t, "unavailable", resp.Status)
		assert.Nil(t, resp.Pool)
		mockDB.ExpectationsWereMet(t)
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("recipes-api", "1.2.3", nil)

	tc := testutil.RunHTTPTestCase(t, h.GetSystemInfo, testutil.HTTPTestCase{
		Path:           "/api/v1/system/info",
		ExpectedStatus: http.StatusOK,
	})

	var resp dto.Response
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "recipes-api", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("recipes-api", "1.0.0", nil)

	tc := testutil.RunHTTPTestCase(t, h.Ping, testutil.HTTPTestCase{
		Path:           "/api/v1/system/ping",
		ExpectedStatus: http.StatusOK,
	})

	var resp struct {
		Success bool         `json:"success"`
		Data    PingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Data.Message)

	_, err := time.Parse(time.RFC3339, resp.Data.Timestamp)
	assert.NoError(t, err)
}
