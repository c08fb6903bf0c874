package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAll_EmbeddedDefaults(t *testing.T) {
	loader := NewLoader("")

	presets, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	for _, category := range []string{CategoryTagImages, CategoryArticleImages, CategoryAuthorImages} {
		if len(presets[category]) == 0 {
			t.Errorf("Expected presets for category %s", category)
		}
	}

	tagMobile := presets[CategoryTagImages]["mobile"]
	if tagMobile.Width != 150 || tagMobile.Height != 112 {
		t.Errorf("Expected tag mobile preset 150x112, got %dx%d", tagMobile.Width, tagMobile.Height)
	}
	if tagMobile.Effect != "grayscale" {
		t.Errorf("Expected grayscale effect on tag images, got %q", tagMobile.Effect)
	}

	articleDesktop := presets[CategoryArticleImages]["desktop"]
	if articleDesktop.Width != 704 || articleDesktop.Height != 394 {
		t.Errorf("Expected article desktop preset 704x394, got %dx%d", articleDesktop.Width, articleDesktop.Height)
	}
	if articleDesktop.Effect != "" {
		t.Errorf("Expected no effect on article images, got %q", articleDesktop.Effect)
	}

	if len(presets[CategoryAuthorImages]) != 2 {
		t.Errorf("Expected author images to carry mobile presets only, got %d", len(presets[CategoryAuthorImages]))
	}
}

func TestLoadAll_MissingDirFallsBackToDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "absent"))

	presets, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(presets[CategoryTagImages]) == 0 {
		t.Error("Expected embedded defaults for a missing overrides directory")
	}
}

func TestLoadAll_OverridesReplaceCategory(t *testing.T) {
	dir := t.TempDir()
	override := `
tagImages:
  square:
    width: 400
    height: 400
    crop: fill
    quality: 90
    format: webp
`
	if err := os.WriteFile(filepath.Join(dir, "tags.yaml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir)
	presets, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	set := presets[CategoryTagImages]
	if len(set) != 1 {
		t.Fatalf("Expected override to replace the whole category, got %d presets", len(set))
	}
	square := set["square"]
	if square.Width != 400 || square.Format != "webp" {
		t.Errorf("Unexpected override preset: %+v", square)
	}

	// Untouched categories keep their defaults.
	if len(presets[CategoryArticleImages]) != 4 {
		t.Errorf("Expected article defaults untouched, got %d presets", len(presets[CategoryArticleImages]))
	}
}

func TestLoadAll_InvalidPresetRejected(t *testing.T) {
	dir := t.TempDir()
	override := `
tagImages:
  broken:
    width: 0
    height: 100
    format: jpg
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir)
	if _, err := loader.LoadAll(); err == nil {
		t.Error("Expected validation error for zero width")
	}
}

func TestLoadAll_MissingFormatRejected(t *testing.T) {
	dir := t.TempDir()
	override := `
authorImages:
  plain:
    width: 100
    height: 100
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir)
	if _, err := loader.LoadAll(); err == nil {
		t.Error("Expected validation error for missing format")
	}
}
