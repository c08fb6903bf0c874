package config

// Preset describes one derivative the transformation service should produce.
type Preset struct {
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
	Crop    string `yaml:"crop" json:"crop"`
	Gravity string `yaml:"gravity,omitempty" json:"gravity,omitempty"`
	Effect  string `yaml:"effect,omitempty" json:"effect,omitempty"`
	Quality int    `yaml:"quality" json:"quality"`
	Format  string `yaml:"format" json:"format"`
}

// PresetSet maps a preset name (viewport class) to its preset.
type PresetSet map[string]Preset

// Image categories with configured preset sets. The category doubles as the
// first path segment under which derivatives are stored.
const (
	CategoryTagImages     = "tagImages"
	CategoryArticleImages = "articleImages"
	CategoryAuthorImages  = "authorImages"
)
