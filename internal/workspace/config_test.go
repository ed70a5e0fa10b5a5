package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"weft/internal/diag"
	"weft/internal/projection"
	"weft/internal/token"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const fullConfig = `
[engine]
required = ">=0.1, <2.0"

[delimiters]
statement = ["<%", "%>"]
expression = ["<<", ">>"]
trim = "~"

[schema]
"docs/cfg.json.weft" = "schemas/cfg.schema.json"
"notes.yaml.weft" = "schemas/notes.schema.json"

[lint]
debounce_ms = 100
timeout_cap_ms = 2000

[lint.linters.markdown]
command = "markdownlint-lsp"
args = ["--stdio"]

[cache]
dir = ".weft-cache"
`

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, fullConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path() != path || cfg.Root() != dir {
		t.Fatalf("Path/Root = %q/%q, want %q/%q", cfg.Path(), cfg.Root(), path, dir)
	}

	dc, err := cfg.DelimiterConfig()
	if err != nil {
		t.Fatalf("DelimiterConfig: %v", err)
	}
	if dc.Statement.Open != "<%" || dc.Expression.Close != ">>" || dc.TrimMark != '~' {
		t.Fatalf("delimiters not applied: %+v", dc)
	}
	if dc.Comment != token.Default().Comment {
		t.Fatalf("unset comment pair = %+v, want the default", dc.Comment)
	}

	schema, ok := cfg.SchemaFor(filepath.Join(dir, "docs", "cfg.json.weft"))
	if !ok || schema != filepath.Join(dir, "schemas", "cfg.schema.json") {
		t.Fatalf("SchemaFor = %q ok=%v, want the bound schema path", schema, ok)
	}

	lc, ok := cfg.LinterFor(projection.FormatMarkdown)
	if !ok || lc.Command != "markdownlint-lsp" || len(lc.Args) != 1 {
		t.Fatalf("LinterFor(markdown) = %+v ok=%v", lc, ok)
	}
	if _, ok := cfg.LinterFor(projection.FormatJSON); ok {
		t.Fatal("LinterFor(json) found a linter that was never configured")
	}

	if cfg.Debounce() != 100*time.Millisecond || cfg.TimeoutCap() != 2*time.Second {
		t.Fatalf("Debounce/TimeoutCap = %v/%v", cfg.Debounce(), cfg.TimeoutCap())
	}
	if cfg.CacheDir() != filepath.Join(dir, ".weft-cache") {
		t.Fatalf("CacheDir = %q", cfg.CacheDir())
	}
}

func TestLoad_InvalidConfigs(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		code    diag.Code
		mention string
	}{
		{"engine too new", "[engine]\nrequired = \">=99.0\"\n", diag.ConfEngineVersion, "does not satisfy"},
		{"engine constraint malformed", "[engine]\nrequired = \"not@a@constraint\"\n", diag.ConfInvalid, "required"},
		{"unknown key", "[lnit]\ndebounce_ms = 5\n", diag.ConfInvalid, "lnit"},
		{"odd delimiter pair", "[delimiters]\nstatement = [\"<%\"]\n", diag.ConfInvalid, "statement"},
		{"duplicate open marker", "[delimiters]\nexpression = [\"{%\", \"}}\"]\n", diag.ConfInvalid, "open marker"},
		{"trim too long", "[delimiters]\ntrim = \"~~\"\n", diag.ConfInvalid, "trim"},
		{"negative debounce", "[lint]\ndebounce_ms = -5\n", diag.ConfInvalid, "debounce_ms"},
		{"linter without command", "[lint.linters.json]\nargs = [\"--stdio\"]\n", diag.ConfInvalid, "command"},
		{"broken toml", "debounce_ms = [unclosed\n", diag.ConfInvalid, "TOML"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load accepted an invalid config")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not a ConfigError", err)
			}
			if ce.Code != tc.code {
				t.Fatalf("code = %d, want %d (%v)", ce.Code, tc.code, err)
			}
			if !strings.Contains(err.Error(), tc.mention) {
				t.Fatalf("error %q does not mention %q", err, tc.mention)
			}
		})
	}
}

func TestFindConfig_WalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindConfig(nested)
	if err != nil || !ok || got != want {
		t.Fatalf("FindConfig(%q) = %q ok=%v err=%v, want %q", nested, got, ok, err, want)
	}
}

func TestDiscover_DefaultsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Path() != "" {
		t.Fatalf("defaults have Path %q, want empty", cfg.Path())
	}
	dc, err := cfg.DelimiterConfig()
	if err != nil || dc != token.Default() {
		t.Fatalf("default DelimiterConfig = %+v err=%v", dc, err)
	}
	if cfg.Debounce() != 0 || cfg.TimeoutCap() != 0 || cfg.CacheDir() != "" {
		t.Fatal("defaults must leave debounce, timeout cap and cache unset")
	}
	if _, ok := cfg.SchemaFor("anything.weft"); ok {
		t.Fatal("defaults bound a schema out of nowhere")
	}
}

func TestSchemaFor_BasenameFallback(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Schema: map[string]string{
			"notes.yaml.weft": "schemas/notes.schema.json",
		},
		root: dir,
	}

	got, ok := cfg.SchemaFor(filepath.Join(dir, "deep", "nested", "notes.yaml.weft"))
	if !ok || got != filepath.Join(dir, "schemas", "notes.schema.json") {
		t.Fatalf("SchemaFor = %q ok=%v, want basename binding to apply", got, ok)
	}
	if _, ok := cfg.SchemaFor(filepath.Join(dir, "other.weft")); ok {
		t.Fatal("SchemaFor matched an unbound document")
	}
}
