package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"video-matrix/internal/domain"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvFFmpeg    = "MATRIX_FFMPEG"
	EnvFFprobe   = "MATRIX_FFPROBE"
	EnvWorkers   = "MATRIX_WORKERS"
	EnvOutputDir = "MATRIX_OUTPUT_DIR"
	EnvTopology  = "MATRIX_TOPOLOGY"
	EnvHTTPAddr  = "MATRIX_HTTP_ADDR"

	// EnvAllowedOrigins is a comma-separated CORS origin list for the HTTP server.
	EnvAllowedOrigins = "MATRIX_ALLOWED_ORIGINS"
)

// DefaultHTTPAddr is the listen address when MATRIX_HTTP_ADDR is unset.
const DefaultHTTPAddr = ":8080"

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg fields from MATRIX_* variables read through lookup.
// A nil lookup reads the process environment.
func ApplyEnv(cfg domain.Settings, lookup func(string) (string, bool)) (domain.Settings, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvFFmpeg); ok {
		cfg.FFmpegPath = v
	}
	if v, ok := get(EnvFFprobe); ok {
		cfg.FFprobePath = v
	}
	if v, ok := get(EnvOutputDir); ok {
		cfg.OutputDir = v
	}
	if v, ok := get(EnvTopology); ok {
		cfg.Topology = v
	}
	if v, ok := get(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		cfg.Workers = n
	}
	return cfg, nil
}

// HTTPAddr returns MATRIX_HTTP_ADDR or DefaultHTTPAddr.
func HTTPAddr(lookup func(string) (string, bool)) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvHTTPAddr); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return DefaultHTTPAddr
}
