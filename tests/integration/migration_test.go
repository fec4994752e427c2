package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_UpDown(t *testing.T) {
	testDB := NewTestDB(t, false)
	m := testDB.NewMigrator()
	t.Cleanup(func() { _ = m.Close() })

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
	assert.False(t, testDB.TableExists("recipes"))

	require.NoError(t, m.Up())
	version, dirty, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	assert.True(t, testDB.TableExists("recipes"))

	// a second Up is a no-op, not an error
	require.NoError(t, m.Up())

	var indexes int64
	require.NoError(t, testDB.Database.DB.Raw(
		`SELECT COUNT(*) FROM pg_indexes WHERE tablename = 'recipes' AND indexname = 'idx_recipes_created_at_id'`,
	).Scan(&indexes).Error)
	assert.Equal(t, int64(1), indexes)

	require.NoError(t, m.Down())
	assert.False(t, testDB.TableExists("recipes"))

	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, m.Steps(1))
	assert.True(t, testDB.TableExists("recipes"))
}
