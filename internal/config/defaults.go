package config

import (
	"os"
	"path/filepath"

	"video-matrix/internal/domain"
)

// appDir is the per-user directory holding settings and presets.
const appDir = ".video-matrix"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Transformations: []string{"md5", "crop", "mirror"},
		Topology:        "independent",
		CancelMode:      "never",
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		Params:          map[string]any{},
		Materials:       map[string]string{},
	}
}

// DefaultSettingsPath returns ~/.video-matrix/settings.json.
func DefaultSettingsPath() string {
	return filepath.Join(homeDir(), appDir, "settings.json")
}

// DefaultPresetDir returns ~/.video-matrix/presets.
func DefaultPresetDir() string {
	return filepath.Join(homeDir(), appDir, "presets")
}

// WithDefaults fills blank fields of cfg from DefaultSettings.
func WithDefaults(cfg domain.Settings) domain.Settings {
	def := DefaultSettings()
	if len(cfg.Transformations) == 0 {
		cfg.Transformations = def.Transformations
	}
	if cfg.Topology == "" {
		cfg.Topology = def.Topology
	}
	if cfg.CancelMode == "" {
		cfg.CancelMode = def.CancelMode
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = def.FFprobePath
	}
	if cfg.Params == nil {
		cfg.Params = def.Params
	}
	if cfg.Materials == nil {
		cfg.Materials = def.Materials
	}
	return cfg
}

func homeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return dir
}
