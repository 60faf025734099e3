package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntryID(t *testing.T) {
	id := NewEntryID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, NewEntryID())
}

func TestConfigEntryAccessors(t *testing.T) {
	e := NewConfigEntry("yeelight", "bulb", "", map[string]any{
		"host":              "192.168.1.239",
		"nightlight_switch": true,
		"transition":        350,
		"save_on_change":    "true",
		"model":             nil,
	})
	e.Options["transition"] = float64(500)

	assert.Equal(t, SourceUser, e.Source)
	assert.Equal(t, "192.168.1.239", e.String("host"))
	assert.Equal(t, "", e.String("model"))
	assert.Equal(t, "", e.String("missing"))
	assert.True(t, e.Bool("nightlight_switch"))
	assert.True(t, e.Bool("save_on_change"))
	assert.False(t, e.Bool("missing"))
	// options win over data
	assert.Equal(t, 500, e.Int("transition", 0))
	assert.Equal(t, 7, e.Int("missing", 7))
}

func TestConfigEntryClone(t *testing.T) {
	e := NewConfigEntry("yeelight", "bulb", "", map[string]any{"host": "a"})
	c := e.Clone()
	c.Data["host"] = "b"
	assert.Equal(t, "a", e.String("host"))
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "entries.yaml")
	s := NewFileStore(path)

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	e := NewConfigEntry("yeelight", "bulb", SourceImport, map[string]any{
		"host":              "192.168.1.239",
		"nightlight_switch": true,
		"transition":        350,
	})
	e.UniqueID = "0x000000000015243f"
	e.State = StateLoaded
	require.NoError(t, s.Save([]*ConfigEntry{e}))

	loaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	got := loaded[0]
	assert.Equal(t, e.EntryID, got.EntryID)
	assert.Equal(t, "0x000000000015243f", got.UniqueID)
	assert.Equal(t, SourceImport, got.Source)
	assert.Equal(t, StateNotLoaded, got.State)
	assert.Equal(t, "192.168.1.239", got.String("host"))
	assert.True(t, got.Bool("nightlight_switch"))
	assert.Equal(t, 350, got.Int("transition", 0))
	assert.NotNil(t, got.Options)
}

func TestFileStore_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entries: [unterminated"), 0o600))
	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}
