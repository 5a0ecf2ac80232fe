package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"video-matrix/internal/domain"
)

// Preset is a named, shareable selection of transformations and parameters.
type Preset struct {
	Name            string            `yaml:"name" json:"name"`
	Description     string            `yaml:"description,omitempty" json:"description,omitempty"`
	Transformations []string          `yaml:"transformations" json:"transformations"`
	Topology        string            `yaml:"topology,omitempty" json:"topology,omitempty"`
	Params          map[string]any    `yaml:"params,omitempty" json:"params,omitempty"`
	Materials       map[string]string `yaml:"materials,omitempty" json:"materials,omitempty"`
}

// LoadPreset reads a YAML preset file.
func LoadPreset(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("parse preset %s: %w", path, err)
	}
	if len(p.Transformations) == 0 {
		return Preset{}, fmt.Errorf("preset %s: no transformations", path)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// SavePreset writes p as YAML and creates parent directories.
func SavePreset(path string, p Preset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ListPresets returns the .yaml/.yml files in dir, sorted. A missing dir is empty.
func ListPresets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Apply overlays the preset on cfg. Params and materials are merged with the
// preset winning on conflicts.
func (p Preset) Apply(cfg domain.Settings) domain.Settings {
	cfg.Transformations = append([]string(nil), p.Transformations...)
	if p.Topology != "" {
		cfg.Topology = p.Topology
	}

	params := make(map[string]any, len(cfg.Params)+len(p.Params))
	for k, v := range cfg.Params {
		params[k] = v
	}
	for k, v := range p.Params {
		params[k] = v
	}
	cfg.Params = params

	materials := make(map[string]string, len(cfg.Materials)+len(p.Materials))
	for k, v := range cfg.Materials {
		materials[k] = v
	}
	for k, v := range p.Materials {
		materials[k] = v
	}
	cfg.Materials = materials
	return cfg
}

// PresetFromSettings captures the batch-relevant part of cfg.
func PresetFromSettings(name string, cfg domain.Settings) Preset {
	return Preset{
		Name:            name,
		Transformations: append([]string(nil), cfg.Transformations...),
		Topology:        cfg.Topology,
		Params:          cfg.Params,
		Materials:       cfg.Materials,
	}
}
