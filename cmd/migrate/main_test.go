package main

import (
	"testing"
	"testing/fstest"

	"github.com/nabahah/riskscore/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionFromFile(t *testing.T) {
	tests := []struct {
		name    string
		want    int64
		wantErr bool
	}{
		{"001_risk_assessments.up.sql", 1, false},
		{"012_more.up.sql", 12, false},
		{"nounderscore.sql", 0, true},
		{"abc_init.up.sql", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := versionFromFile(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMigrationFiles_sortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.up.sql":   {Data: []byte("SELECT 2")},
		"001_a.up.sql":   {Data: []byte("SELECT 1")},
		"001_a.down.sql": {Data: []byte("SELECT 0")},
		"README.md":      {Data: []byte("docs")},
	}
	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.up.sql", "002_b.up.sql"}, files)
}

func TestLoadSteps_orderedByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"10_late.up.sql": {Data: []byte("SELECT 10")},
		"9_early.up.sql": {Data: []byte("SELECT 9")},
	}
	steps, err := loadSteps(fsys)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, int64(9), steps[0].version)
	assert.Equal(t, "SELECT 9", steps[0].sql)
	assert.Equal(t, int64(10), steps[1].version)
}

func TestLoadSteps_duplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.up.sql":  {Data: []byte("SELECT 1")},
		"0001_b.up.sql": {Data: []byte("SELECT 1")},
	}
	_, err := loadSteps(fsys)
	assert.ErrorContains(t, err, "share version 1")
}

func TestLoadSteps_embedded(t *testing.T) {
	steps, err := loadSteps(migrations.FS)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(steps), 2)
	assert.Equal(t, "001_risk_assessments.up.sql", steps[0].name)
	assert.Equal(t, "002_widen_feature_columns.up.sql", steps[1].name)
	assert.Contains(t, steps[1].sql, "BIGINT")
}
