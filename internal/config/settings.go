package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds file-based application settings: the editable
// vocabulary the service exposes without a redeploy.
type Settings struct {
	// EventCategories are the accepted event category values.
	EventCategories []string `yaml:"event_categories"`
	// Interests are the selectable profile/community interests.
	Interests []string `yaml:"interests"`
	// StorageBucket is the bucket for content images.
	StorageBucket string `yaml:"storage_bucket"`
}

// DefaultSettings returns the built-in settings used when no file is
// configured.
func DefaultSettings() *Settings {
	return &Settings{
		EventCategories: []string{"música", "gastronomía", "deporte", "cultura", "naturaleza"},
		Interests:       []string{"música", "gastronomía", "deporte", "cultura", "naturaleza", "vida nocturna"},
		StorageBucket:   "content-images",
	}
}

// LoadSettings reads settings from a yaml file. A missing file falls
// back to the defaults; a malformed one is an error.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return settings, nil
}
