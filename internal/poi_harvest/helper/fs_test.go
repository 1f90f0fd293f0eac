package helper_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-harvest/internal/poi_harvest/helper"
)

func TestWriteAndReadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	require.NoError(t, helper.WriteJSON(path, map[string]int{"a": 1}))
	require.NoError(t, helper.WriteJSON(path, map[string]int{"a": 2}))

	var got map[string]int
	require.NoError(t, helper.ReadJSON(path, &got))
	assert.Equal(t, 2, got["a"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestReadJSONMissingFile(t *testing.T) {
	var v any
	err := helper.ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &v)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Paris":          "paris",
		"New York":       "new_york",
		"Rio de Janeiro": "rio_de_janeiro",
		"  Ha Noi ":      "ha_noi",
		"São Paulo":      "são_paulo",
		"Tel-Aviv!":      "tel_aviv",
	}
	for in, want := range cases {
		assert.Equal(t, want, helper.Slug(in), in)
	}
}

func TestTimestampedName(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 30, 5, 0, time.UTC)
	assert.Equal(t, "barcelona_pois_2025-03-01_12-30-05.json", helper.TimestampedName("barcelona_pois.json", at))
}
