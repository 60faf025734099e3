package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/yeelightd/internal/config"
)

func TestPreParse(t *testing.T) {
	configFile, level, format := preParse([]string{"light", "on", "desk", "--config", "/tmp/ctl.yaml", "-b", "40", "--log-level", "debug"})
	assert.Equal(t, "/tmp/ctl.yaml", configFile)
	assert.Equal(t, "debug", level)
	assert.Equal(t, config.LogFormatText, format)

	configFile, level, _ = preParse(nil)
	assert.Empty(t, configFile)
	assert.Equal(t, config.LogLevelWarn, level)
}

func TestSettingsFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yeelightctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  url: http://lights.lan:8155\n  key: s3cret\n"), 0o600))
	cfg, err := config.Load(config.ClientConfigFilename, path)
	require.NoError(t, err)

	s := settingsFrom(cfg)
	assert.Equal(t, "http://lights.lan:8155", s.APIURL)
	assert.Equal(t, "s3cret", s.APIKey)
}

func TestSettingsDefaults(t *testing.T) {
	cfg, err := config.Load(config.ClientConfigFilename, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	s := settingsFrom(cfg)
	assert.Equal(t, config.DefaultAPIURL, s.APIURL)
	assert.Empty(t, s.APIKey)
}
