package projection_test

import (
	"testing"

	"weft/internal/projection"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		cleaned  string
		want     projection.Format
	}{
		{"template suffix stripped", "config.json.weft", "", projection.FormatJSON},
		{"yml extension", "deploy.yml", "", projection.FormatYAML},
		{"markdown extension", "README.md.weft", "", projection.FormatMarkdown},
		{"html extension", "page.html", "", projection.FormatHTML},
		{"txt extension", "notes.txt", "", projection.FormatText},
		{"extension wins over content", "data.json", "not json at all", projection.FormatJSON},

		{"json object sniffed", "", `{"a": 1}`, projection.FormatJSON},
		{"json array sniffed", "", `[1, 2]`, projection.FormatJSON},
		{"xml declaration", "", `<?xml version="1.0"?><root/>`, projection.FormatXML},
		{"doctype html", "", "<!DOCTYPE html><html></html>", projection.FormatHTML},
		{"bare html tag", "", "<html><body></body></html>", projection.FormatHTML},
		{"yaml mapping", "", "name: demo\nitems:\n  - 1\n", projection.FormatYAML},
		{"yaml sequence", "", "- one\n- two\n", projection.FormatYAML},
		{"toml assignment", "", "title = \"demo\"\n", projection.FormatTOML},
		{"markdown heading", "", "# Heading\n\nbody text\n", projection.FormatMarkdown},
		{"markdown link", "", "see [the docs](https://example.com)\n", projection.FormatMarkdown},
		{"plain prose", "", "just a few plain words", projection.FormatText},
		{"empty input", "", "", projection.FormatText},
		{"suffix only", "x.weft", "plain words here", projection.FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := projection.DetectFormat(tt.filename, tt.cleaned); got != tt.want {
				t.Fatalf("DetectFormat(%q, %q) = %q, want %q", tt.filename, tt.cleaned, got, tt.want)
			}
		})
	}
}
