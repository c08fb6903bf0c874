package syncer

import "testing"

func TestSluggify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"Ångström Über Alles", "angstrom-uber-alles"},
		{"Crème brûlée", "creme-brulee"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"Multiple---dashes!!!", "multiple-dashes"},
		{"123 Numbers", "123-numbers"},
		{"ALL CAPS", "all-caps"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := Sluggify(tt.input); got != tt.expected {
			t.Errorf("Sluggify(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestConvertQueueTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Politics", "Politics"},
		{"News > Politics", "Politics"},
		{"News > World > Politics", "World, Politics"},
		{"News > World > Europe > Politics", "Europe, Politics"},
		{"  News  >  Politics  ", "Politics"},
	}

	for _, tt := range tests {
		if got := ConvertQueueTitle(tt.input); got != tt.expected {
			t.Errorf("ConvertQueueTitle(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}
