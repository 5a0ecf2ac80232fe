package bootstrap

import (
	"fmt"
	"path/filepath"
	"strings"

	"video-matrix/internal/actions"
	"video-matrix/internal/config"
	"video-matrix/internal/domain"
)

// TransformationGroupView is one display group with its transformations.
type TransformationGroupView struct {
	Group           domain.TransformationGroup    `json:"group"`
	Transformations []domain.TransformationOption `json:"transformations"`
}

var groupOrder = []domain.TransformationGroup{
	domain.GroupBasic,
	domain.GroupVisual,
	domain.GroupEffects,
	domain.GroupAudio,
	domain.GroupMaterials,
}

// GetTransformations returns every built-in transformation in display order.
func (a *App) GetTransformations() []domain.TransformationOption {
	return actions.Options()
}

// GetTransformationGroups returns transformations bucketed by group.
func (a *App) GetTransformationGroups() []TransformationGroupView {
	byGroup := actions.OptionsByGroup()
	views := make([]TransformationGroupView, 0, len(groupOrder))
	for _, group := range groupOrder {
		options := byGroup[group]
		if len(options) == 0 {
			continue
		}
		views = append(views, TransformationGroupView{Group: group, Transformations: options})
	}
	return views
}

// GetMaterialSlots returns the configurable material slot names.
func (a *App) GetMaterialSlots() []string {
	return append([]string(nil), domain.MaterialSlots...)
}

// ListPresets returns preset files found in the preset directory.
func (a *App) ListPresets() ([]string, error) {
	return config.ListPresets(a.PresetDir)
}

// ApplyPreset loads a preset file, merges it into persisted settings and saves them.
func (a *App) ApplyPreset(path string) (domain.Settings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.Settings{}, fmt.Errorf("preset path is required")
	}

	preset, err := config.LoadPreset(path)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load preset: %w", err)
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = preset.Apply(settings)
	settings.PresetPath = path

	return a.SaveSettings(settings)
}

// SavePresetAs writes the current selection as {PresetDir}/{name}.yaml.
func (a *App) SavePresetAs(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("preset name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("preset name must not contain path separators")
	}
	if a.PresetDir == "" {
		return "", fmt.Errorf("preset directory is not configured")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)
	if len(settings.Transformations) == 0 {
		return "", fmt.Errorf("no transformations selected")
	}

	path := filepath.Join(a.PresetDir, name+".yaml")
	if err := config.SavePreset(path, config.PresetFromSettings(name, settings)); err != nil {
		return "", fmt.Errorf("save preset: %w", err)
	}
	return path, nil
}
