package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// Loader handles loading and validation of image preset sets
type Loader struct {
	presetsDir string
}

// NewLoader creates a new preset loader. The directory is optional; when it
// is empty or absent, the embedded defaults are used as-is. Files in the
// directory override or extend the defaults per category.
func NewLoader(presetsDir string) *Loader {
	return &Loader{presetsDir: presetsDir}
}

// LoadAll returns the preset sets keyed by image category.
func (l *Loader) LoadAll() (map[string]PresetSet, error) {
	presets := make(map[string]PresetSet)
	if err := yaml.Unmarshal(defaultPresets, &presets); err != nil {
		return nil, fmt.Errorf("failed to parse embedded presets: %w", err)
	}

	if l.presetsDir == "" {
		return presets, l.validate(presets)
	}
	if _, err := os.Stat(l.presetsDir); os.IsNotExist(err) {
		return presets, l.validate(presets)
	}

	files, err := filepath.Glob(filepath.Join(l.presetsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(l.presetsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		overrides, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
		for category, set := range overrides {
			presets[category] = set
		}
		slog.Debug("Loaded image presets", "file", file)
	}

	return presets, l.validate(presets)
}

func (l *Loader) loadFile(path string) (map[string]PresetSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var presets map[string]PresetSet
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return presets, nil
}

func (l *Loader) validate(presets map[string]PresetSet) error {
	for _, category := range []string{CategoryTagImages, CategoryArticleImages, CategoryAuthorImages} {
		if len(presets[category]) == 0 {
			return fmt.Errorf("no presets configured for category %s", category)
		}
	}

	for category, set := range presets {
		for name, preset := range set {
			if preset.Width <= 0 || preset.Height <= 0 {
				return fmt.Errorf("preset %s/%s: width and height are required", category, name)
			}
			if preset.Format == "" {
				return fmt.Errorf("preset %s/%s: format is required", category, name)
			}
		}
	}

	return nil
}
