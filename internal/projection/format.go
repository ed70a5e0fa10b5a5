package projection

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names the host format a cleaned document should be linted as.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatHTML     Format = "html"
	FormatXML      Format = "xml"
	FormatTOML     Format = "toml"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// KnownFormat maps a user-supplied name onto a Format.
func KnownFormat(name string) (Format, bool) {
	switch Format(strings.ToLower(name)) {
	case FormatJSON, FormatYAML, FormatHTML, FormatXML, FormatTOML,
		FormatMarkdown, FormatText:
		return Format(strings.ToLower(name)), true
	}
	switch strings.ToLower(name) {
	case "yml":
		return FormatYAML, true
	case "md":
		return FormatMarkdown, true
	case "txt":
		return FormatText, true
	}
	return "", false
}

// DetectFormat guesses the host format of a document. The template suffix is
// stripped first, so "config.json.weft" resolves through its inner extension.
// When the filename gives no answer the cleaned content is sniffed, which is
// why detection runs after cleaning: raw tag syntax would spoil every parse
// probe below.
func DetectFormat(filename, cleaned string) Format {
	name := strings.TrimSuffix(filename, ".weft")
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".html", ".htm":
		return FormatHTML
	case ".xml":
		return FormatXML
	case ".toml":
		return FormatTOML
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt":
		return FormatText
	}
	return sniffFormat(cleaned)
}

func sniffFormat(cleaned string) Format {
	body := strings.TrimSpace(cleaned)
	if body == "" {
		return FormatText
	}

	if body[0] == '{' || body[0] == '[' {
		if json.Valid([]byte(body)) {
			return FormatJSON
		}
	}

	if body[0] == '<' {
		lower := strings.ToLower(body)
		if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
			return FormatHTML
		}
		return FormatXML
	}

	// YAML accepts nearly any prose as a bare scalar, so only a mapping or
	// sequence at the top level counts as a YAML document.
	var y any
	if yaml.Unmarshal([]byte(body), &y) == nil {
		switch y.(type) {
		case map[string]any, []any:
			return FormatYAML
		}
	}

	var tm map[string]any
	if toml.Unmarshal([]byte(body), &tm) == nil && len(tm) > 0 {
		return FormatTOML
	}

	if looksLikeMarkdown(body) {
		return FormatMarkdown
	}
	return FormatText
}

func looksLikeMarkdown(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "# "),
			strings.HasPrefix(trimmed, "## "),
			strings.HasPrefix(trimmed, "### "),
			strings.HasPrefix(trimmed, "```"),
			strings.HasPrefix(trimmed, "> "),
			strings.HasPrefix(trimmed, "!["):
			return true
		}
		if strings.Contains(trimmed, "[") && strings.Contains(trimmed, "](") {
			return true
		}
	}
	return false
}
