package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRenderJSON(t *testing.T) {
	data, err := render(buildSpec("http://127.0.0.1:8155"), false)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/v1/entries")
	assert.Contains(t, paths, "/api/v1/lights/{entity_id}/state")
	assert.NotContains(t, paths, "/healthz")
}

func TestRenderYAML(t *testing.T) {
	data, err := render(buildSpec(""), true)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Contains(t, doc, "openapi")
	info, ok := doc["info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "yeelightd API", info["title"])
}
