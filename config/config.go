// Package config loads and saves the engine's settings: sample rate,
// MIDI port names, the trigger channel, and where persisted songs
// live. It follows the same JSON-file-under-$HOME/.config convention
// the rest of this codebase's tooling uses.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the engine's saved settings.
type Config struct {
	SampleRate     float64 `json:"sampleRate,omitempty"`
	PeriodFrames   uint32  `json:"periodFrames,omitempty"`
	OutputPort     string  `json:"outputPort,omitempty"`
	InputPort      string  `json:"inputPort,omitempty"`
	TriggerChannel int     `json:"triggerChannel,omitempty"`
	DefaultTempo   float64 `json:"defaultTempo,omitempty"`
	SongPath       string  `json:"songPath,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:     44100,
		PeriodFrames:   256,
		OutputPort:     "",
		InputPort:      "",
		TriggerChannel: 15,
		DefaultTempo:   120,
		SongPath:       "song.json",
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "zynseq"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SongFilePath resolves SongPath relative to the config directory if
// it isn't already absolute.
func (c *Config) SongFilePath() (string, error) {
	if filepath.IsAbs(c.SongPath) {
		return c.SongPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.SongPath), nil
}
