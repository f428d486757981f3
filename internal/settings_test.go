package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "harbor-client-config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
Username: ada
ServerURL: https://chat.example.com
Channel: ops
EnableBell: true
MaxRetries: 5
RetryDelayMS: 250
`), 0666))

	prefs, err := readConfig(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "ada", prefs.Username)
	assert.Equal(t, "https://chat.example.com", prefs.ServerURL)
	assert.Equal(t, "ops", prefs.ResolvedChannel())
	assert.True(t, prefs.EnableBell)
	assert.Equal(t, 5, prefs.MaxRetries)
	assert.Equal(t, 250, prefs.RetryDelayMS)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := readConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestResolvedEventURL(t *testing.T) {
	s := &Settings{ServerURL: "https://chat.example.com/"}
	assert.Equal(t, "wss://chat.example.com/events", s.ResolvedEventURL())

	s = &Settings{ServerURL: "http://localhost:8080"}
	assert.Equal(t, "ws://localhost:8080/events", s.ResolvedEventURL())

	s = &Settings{ServerURL: "https://chat.example.com", EventURL: "wss://events.example.com/stream"}
	assert.Equal(t, "wss://events.example.com/stream", s.ResolvedEventURL())
}

func TestResolvedChannelDefault(t *testing.T) {
	s := &Settings{}
	assert.Equal(t, "general", s.ResolvedChannel())
}
