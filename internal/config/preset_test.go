package config

import (
	"os"
	"path/filepath"
	"testing"

	"video-matrix/internal/domain"
)

// TestPresetSaveLoad checks YAML persistence of a preset.
func TestPresetSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets", "social.yaml")
	want := Preset{
		Name:            "social",
		Transformations: []string{"rotate", "mirror", "md5"},
		Topology:        "chained",
		Params:          map[string]any{"rotate_angle": 1.0, "watermark": map[string]any{"opacity": 0.4}},
		Materials:       map[string]string{domain.MaterialWatermark: "/m/logo.png"},
	}

	if err := SavePreset(path, want); err != nil {
		t.Fatalf("SavePreset() error = %v", err)
	}
	got, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset() error = %v", err)
	}
	if got.Name != "social" || got.Topology != "chained" || len(got.Transformations) != 3 {
		t.Fatalf("preset = %+v", got)
	}
	nested, ok := got.Params["watermark"].(map[string]any)
	if !ok || nested["opacity"] != 0.4 {
		t.Fatalf("nested params = %#v", got.Params["watermark"])
	}
}

// TestLoadPresetDefaultsNameAndValidates checks name fallback and empty lists.
func TestLoadPresetDefaultsNameAndValidates(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "quick.yml")
	if err := os.WriteFile(good, []byte("transformations: [crop, bw]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bad := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(bad, []byte("name: empty\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p, err := LoadPreset(good)
	if err != nil {
		t.Fatalf("LoadPreset() error = %v", err)
	}
	if p.Name != "quick" {
		t.Fatalf("name = %q, want quick", p.Name)
	}
	if _, err := LoadPreset(bad); err == nil {
		t.Fatal("expected error for preset without transformations")
	}

	files, err := ListPresets(dir)
	if err != nil {
		t.Fatalf("ListPresets() error = %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "empty.yaml" {
		t.Fatalf("files = %v", files)
	}
}

// TestPresetApplyMerges checks preset values win over settings.
func TestPresetApplyMerges(t *testing.T) {
	cfg := DefaultSettings()
	cfg.Params = map[string]any{"rotate_angle": 1.5, "target_fps": 30}
	cfg.Materials = map[string]string{domain.MaterialMask: "/m/mask.png"}

	got := Preset{
		Transformations: []string{"rotate"},
		Params:          map[string]any{"rotate_angle": 3.0},
		Materials:       map[string]string{domain.MaterialWatermark: "/m/logo.png"},
	}.Apply(cfg)

	if got.Topology != "independent" {
		t.Fatalf("topology = %q, want unchanged", got.Topology)
	}
	if got.Params["rotate_angle"] != 3.0 || got.Params["target_fps"] != 30 {
		t.Fatalf("params = %v", got.Params)
	}
	if len(got.Materials) != 2 {
		t.Fatalf("materials = %v", got.Materials)
	}
	if cfg.Params["rotate_angle"] != 1.5 {
		t.Fatal("Apply must not mutate the input settings")
	}
}
