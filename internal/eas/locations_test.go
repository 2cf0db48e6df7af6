package eas

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectory(t *testing.T) {
	dir, err := LoadDirectory(filepath.Join("testdata", "locations.yaml"))
	require.NoError(t, err)

	tests := []struct {
		name string
		code string
		want string
	}{
		{"county", "023005", "Cumberland, ME"},
		{"county with part digit", "123005", "Cumberland, ME"},
		{"whole state", "023000", "Maine"},
		{"other state", "048000", "Texas"},
		{"unknown county", "023999", "Unknown County/Area (023999)"},
		{"unknown state", "099000", "Unknown County/Area (099000)"},
		{"too short", "23005", "Unknown County/Area (23005)"},
		{"empty", "", "Unknown County/Area ()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dir.Resolve(tt.code))
		})
	}
}

func TestLoadDirectoryMissingFile(t *testing.T) {
	_, err := LoadDirectory(filepath.Join("testdata", "nope.yaml"))
	assert.Error(t, err)
}

func TestEmptyDirectory(t *testing.T) {
	dir := NewDirectory()
	assert.Equal(t, "Unknown County/Area (048113)", dir.Resolve("048113"))
}
