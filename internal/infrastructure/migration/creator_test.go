package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add royalty index", "add_royalty_index"},
		{"Add-Royalty-Index", "add_royalty_index"},
		{"ADD_ROYALTY_INDEX", "add_royalty_index"},
		{"add__royalty__index", "add_royalty_index"},
		{"Add Jobs 123", "add_jobs_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add royalty index", "Index royalty reports by period")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)
	assert.Equal(t, "add_royalty_index", mf.Name)
	assert.Equal(t, "000001_add_royalty_index.up.sql", filepath.Base(mf.UpPath))
	assert.Equal(t, "000001_add_royalty_index.down.sql", filepath.Base(mf.DownPath))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Index royalty reports by period")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback of 000001_add_royalty_index")
}

func TestCreateMigration_NextSequence(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000001_create_procurement.up.sql", "000001_create_procurement.down.sql",
		"000007_create_jobs.up.sql", "000007_create_jobs.down.sql",
	)

	mf, err := CreateMigration(dir, "add column", "")
	require.NoError(t, err)
	assert.Equal(t, "000008", mf.Version)
	assert.Equal(t, "add column", mf.Description)
}

func TestCreateMigration_Errors(t *testing.T) {
	t.Run("unusable name", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!", "")
		assert.Error(t, err)
	})

	t.Run("unnumbered existing migration", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "init.up.sql")
		_, err := CreateMigration(dir, "next", "")
		assert.ErrorContains(t, err, "sequence number")
	})
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nestedPath, "test", "test migration")
	require.NoError(t, err)

	info, err := os.Stat(nestedPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000003_create_royalty_reports.up.sql", "000003_create_royalty_reports.down.sql",
		"000001_create_procurement.up.sql", "000001_create_procurement.down.sql",
		"000002_create_franchise_agreements.up.sql", "000002_create_franchise_agreements.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_create_procurement",
		"000002_create_franchise_agreements",
		"000003_create_royalty_reports",
	}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations("/nonexistent/path/to/migrations")
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestEmbedded(t *testing.T) {
	names, err := Embedded()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.True(t, strings.HasPrefix(names[0], "000001_"))
	assert.Contains(t, names, "000003_create_royalty_reports")
}
