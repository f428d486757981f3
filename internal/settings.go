package internal

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds the client preferences persisted to the config file.
type Settings struct {
	Username     string `yaml:"Username"`
	ServerURL    string `yaml:"ServerURL"`
	EventURL     string `yaml:"EventURL"`
	Channel      string `yaml:"Channel"`
	DataDir      string `yaml:"DataDir"`
	EnableBell   bool   `yaml:"EnableBell"`
	EnableSounds bool   `yaml:"EnableSounds"`
	MaxRetries   int    `yaml:"MaxRetries"`
	RetryDelayMS int    `yaml:"RetryDelayMS"`
}

// ResolvedEventURL derives the websocket endpoint from ServerURL when no
// explicit EventURL is configured.
func (s *Settings) ResolvedEventURL() string {
	if s.EventURL != "" {
		return s.EventURL
	}
	url := s.ServerURL
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return strings.TrimSuffix(url, "/") + "/events"
}

// ResolvedDataDir returns the directory for client state files, defaulting
// to ~/.harbor.
func (s *Settings) ResolvedDataDir() string {
	if s.DataDir != "" {
		return s.DataDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".harbor")
}

// ResolvedChannel returns the channel to join, defaulting to "general".
func (s *Settings) ResolvedChannel() string {
	if s.Channel == "" {
		return "general"
	}
	return s.Channel
}

func readConfig(cfgPath string) (*Settings, error) {
	fh, err := os.Open(cfgPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = fh.Close()
	}()

	var prefs Settings
	decoder := yaml.NewDecoder(fh)
	if err := decoder.Decode(&prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}
