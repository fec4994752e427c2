package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoflow/backend/migrations"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("-- test"), 0o644))
	}
}

func TestSlugify(t *testing.T) {
	for in, want := range map[string]string{
		"add recipe tags":   "add_recipe_tags",
		"Add-Recipe-Tags":   "add_recipe_tags",
		"ADD_RECIPE_TAGS":   "add_recipe_tags",
		"add__recipe__tags": "add_recipe_tags",
		"Index 2":           "index_2",
		"   spaces   ":      "spaces",
		"special!@#$chars":  "specialchars",
		"_leading":          "leading",
		"trailing_":         "trailing",
		"!!! --- ???":       "",
		"":                  "",
	} {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestScaffold(t *testing.T) {
	dir := t.TempDir()

	p, err := Scaffold(dir, "add recipe tags", "Tag table for recipes")
	require.NoError(t, err)

	assert.Equal(t, "000001", p.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_recipe_tags.up.sql"), p.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_recipe_tags.down.sql"), p.DownPath)

	up, err := os.ReadFile(p.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- add recipe tags\n")
	assert.Contains(t, string(up), "-- Tag table for recipes")

	down, err := os.ReadFile(p.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "-- add recipe tags (rollback)")
}

func TestScaffold_NextVersion(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "000001_create_recipes.up.sql", "000007_add_index.up.sql")

	p, err := Scaffold(dir, "next", "")
	require.NoError(t, err)
	assert.Equal(t, "000008", p.Version)

	up, err := os.ReadFile(p.UpPath)
	require.NoError(t, err)
	assert.NotContains(t, string(up), "-- \n")
}

func TestScaffold_Errors(t *testing.T) {
	t.Run("unusable name", func(t *testing.T) {
		_, err := Scaffold(t.TempDir(), "!!!", "")
		assert.ErrorContains(t, err, "no usable characters")
	})

	t.Run("non-numeric version on disk", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "init_schema.up.sql")

		_, err := Scaffold(dir, "next", "")
		assert.ErrorContains(t, err, "non-numeric version")
	})
}

func TestScaffold_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := Scaffold(nested, "test", "")
	require.NoError(t, err)
	assert.DirExists(t, nested)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"000003_add_tags.up.sql", "000003_add_tags.down.sql",
		"000001_create_recipes.up.sql", "000001_create_recipes.down.sql",
		"000002_add_index.up.sql", "000002_add_index.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	got, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_recipes", "000002_add_index", "000003_add_tags"}, got)

	got, err = List(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestShippedMigrations(t *testing.T) {
	got, err := List("../../../migrations")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "000001_create_recipes", got[0])

	for _, name := range []string{"000001_create_recipes.up.sql", "000001_create_recipes.down.sql"} {
		data, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "recipes")
	}
}
