package config

import (
	"os"
	"path/filepath"
	"testing"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// TestApplyEnvOverrides checks MATRIX_* variables replace settings.
func TestApplyEnvOverrides(t *testing.T) {
	cfg, err := ApplyEnv(DefaultSettings(), mapLookup(map[string]string{
		EnvFFmpeg:    "/opt/bin/ffmpeg",
		EnvWorkers:   "3",
		EnvTopology:  "chained",
		EnvOutputDir: "  ",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.FFmpegPath != "/opt/bin/ffmpeg" || cfg.Workers != 3 || cfg.Topology != "chained" {
		t.Fatalf("settings = %+v", cfg)
	}
	if cfg.OutputDir != "" {
		t.Fatalf("blank variable should not override, got %q", cfg.OutputDir)
	}
	if cfg.FFprobePath != "ffprobe" {
		t.Fatalf("unset variable changed ffprobe path: %q", cfg.FFprobePath)
	}
}

// TestApplyEnvRejectsBadWorkers checks numeric parsing errors.
func TestApplyEnvRejectsBadWorkers(t *testing.T) {
	if _, err := ApplyEnv(DefaultSettings(), mapLookup(map[string]string{EnvWorkers: "many"})); err == nil {
		t.Fatal("expected parse error")
	}
}

// TestHTTPAddr checks the listen address fallback.
func TestHTTPAddr(t *testing.T) {
	if got := HTTPAddr(mapLookup(nil)); got != DefaultHTTPAddr {
		t.Fatalf("addr = %q, want default", got)
	}
	if got := HTTPAddr(mapLookup(map[string]string{EnvHTTPAddr: "127.0.0.1:9000"})); got != "127.0.0.1:9000" {
		t.Fatalf("addr = %q", got)
	}
}

// TestLoadEnvReadsFile checks .env values reach the process environment.
func TestLoadEnvReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("MATRIX_TEST_FROM_DOTENV=yes\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("MATRIX_TEST_FROM_DOTENV") })

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if os.Getenv("MATRIX_TEST_FROM_DOTENV") != "yes" {
		t.Fatal("expected variable loaded from file")
	}
}
