// Package workspace loads weft.toml, the per-project configuration binding
// documents to schemas, host formats to delegated linters, and the project
// to a compatible engine version.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	semver "github.com/Masterminds/semver/v3"

	"weft/internal/diag"
	"weft/internal/projection"
	"weft/internal/token"
	"weft/internal/version"
)

// ConfigFileName is what Discover looks for while walking up.
const ConfigFileName = "weft.toml"

// ConfigError is a configuration problem carrying the diagnostic code under
// which callers publish it.
type ConfigError struct {
	Path string
	Code diag.Code
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

func confErr(path string, code diag.Code, format string, args ...any) error {
	return &ConfigError{Path: path, Code: code, Msg: fmt.Sprintf(format, args...)}
}

type Config struct {
	Engine     EngineConfig      `toml:"engine"`
	Delimiters DelimitersConfig  `toml:"delimiters"`
	Schema     map[string]string `toml:"schema"`
	Lint       LintConfig        `toml:"lint"`
	Cache      CacheConfig       `toml:"cache"`

	path string
	root string
}

type EngineConfig struct {
	// Required is a semver constraint the running engine must satisfy.
	Required string `toml:"required"`
}

// DelimitersConfig overrides marker pairs as [open, close] arrays. Unset
// pairs keep the default markers.
type DelimitersConfig struct {
	Statement  []string `toml:"statement"`
	Expression []string `toml:"expression"`
	Comment    []string `toml:"comment"`
	Trim       string   `toml:"trim"`
}

type LintConfig struct {
	DebounceMS   int                     `toml:"debounce_ms"`
	TimeoutCapMS int                     `toml:"timeout_cap_ms"`
	Linters      map[string]LinterConfig `toml:"linters"`
}

// LinterConfig is one delegated linter command, keyed by host format.
type LinterConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type CacheConfig struct {
	Dir string `toml:"dir"`
}

// FindConfig walks up from startDir to locate weft.toml.
func FindConfig(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest config above startDir, or the built-in defaults
// rooted at startDir when no weft.toml exists.
func Discover(startDir string) (*Config, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(startDir), nil
	}
	return Load(path)
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Config{root: dir}
}

// Load parses and validates one weft.toml.
func Load(configPath string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(configPath, &cfg)
	if err != nil {
		return nil, confErr(configPath, diag.ConfInvalid, "failed to parse TOML: %v", err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return nil, confErr(configPath, diag.ConfInvalid, "unknown key %q", undec[0].String())
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, confErr(configPath, diag.ConfInvalid, "failed to resolve path: %v", err)
	}
	cfg.path = abs
	cfg.root = filepath.Dir(abs)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if req := c.Engine.Required; req != "" {
		con, err := semver.NewConstraint(req)
		if err != nil {
			return confErr(c.path, diag.ConfInvalid, "[engine] required %q: %v", req, err)
		}
		if err := checkEngine(con); err != nil {
			return confErr(c.path, diag.ConfEngineVersion, "%v", err)
		}
	}
	if _, err := c.DelimiterConfig(); err != nil {
		return err
	}
	if c.Lint.DebounceMS < 0 {
		return confErr(c.path, diag.ConfInvalid, "[lint] debounce_ms must not be negative")
	}
	if c.Lint.TimeoutCapMS < 0 {
		return confErr(c.path, diag.ConfInvalid, "[lint] timeout_cap_ms must not be negative")
	}
	for format, lc := range c.Lint.Linters {
		if strings.TrimSpace(lc.Command) == "" {
			return confErr(c.path, diag.ConfInvalid, "[lint.linters.%s] command must be set", format)
		}
	}
	return nil
}

// checkEngine compares the constraint against the release part of the
// running version, so 0.1.0-dev still satisfies >=0.1 during development.
func checkEngine(con *semver.Constraints) error {
	sv, err := semver.NewVersion(version.Version)
	if err != nil {
		return fmt.Errorf("engine version %q is not valid semver: %v", version.Version, err)
	}
	release := semver.New(sv.Major(), sv.Minor(), sv.Patch(), "", "")
	if !con.Check(release) {
		return fmt.Errorf("engine %s does not satisfy required %q", version.Version, con.String())
	}
	return nil
}

// Path returns where the config was loaded from, empty for defaults.
func (c *Config) Path() string { return c.path }

// Root returns the directory the config governs.
func (c *Config) Root() string { return c.root }

// DelimiterConfig merges the [delimiters] section over the defaults and
// validates the result.
func (c *Config) DelimiterConfig() (token.DelimiterConfig, error) {
	out := token.Default()
	set := func(name string, pair []string, dst *token.Delimiters) error {
		if len(pair) == 0 {
			return nil
		}
		if len(pair) != 2 {
			return confErr(c.path, diag.ConfInvalid, "[delimiters] %s needs exactly [open, close]", name)
		}
		dst.Open, dst.Close = pair[0], pair[1]
		return nil
	}
	if err := set("statement", c.Delimiters.Statement, &out.Statement); err != nil {
		return token.DelimiterConfig{}, err
	}
	if err := set("expression", c.Delimiters.Expression, &out.Expression); err != nil {
		return token.DelimiterConfig{}, err
	}
	if err := set("comment", c.Delimiters.Comment, &out.Comment); err != nil {
		return token.DelimiterConfig{}, err
	}
	if t := c.Delimiters.Trim; t != "" {
		if len(t) != 1 {
			return token.DelimiterConfig{}, confErr(c.path, diag.ConfInvalid, "[delimiters] trim must be a single character")
		}
		out.TrimMark = t[0]
	}
	if err := out.Validate(); err != nil {
		return token.DelimiterConfig{}, confErr(c.path, diag.ConfInvalid, "[delimiters] %v", err)
	}
	return out, nil
}

// SchemaFor resolves the schema bound to a document. Bindings are tried as
// root-relative paths first, then as the raw path, then by bare file name.
// The returned path is absolute.
func (c *Config) SchemaFor(docPath string) (string, bool) {
	if len(c.Schema) == 0 {
		return "", false
	}
	keys := make([]string, 0, 3)
	if abs, err := filepath.Abs(docPath); err == nil {
		if rel, err := filepath.Rel(c.root, abs); err == nil {
			keys = append(keys, filepath.ToSlash(rel))
		}
	}
	slashed := filepath.ToSlash(docPath)
	keys = append(keys, slashed, path.Base(slashed))

	for _, key := range keys {
		target, ok := c.Schema[key]
		if !ok {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(c.root, filepath.FromSlash(target))
		}
		return target, true
	}
	return "", false
}

// LinterFor returns the delegated linter command for a detected format.
func (c *Config) LinterFor(format projection.Format) (LinterConfig, bool) {
	lc, ok := c.Lint.Linters[string(format)]
	if !ok || lc.Command == "" {
		return LinterConfig{}, false
	}
	return lc, true
}

// Debounce returns the configured edit debounce, zero when unset.
func (c *Config) Debounce() time.Duration {
	if c.Lint.DebounceMS <= 0 {
		return 0
	}
	return time.Duration(c.Lint.DebounceMS) * time.Millisecond
}

// TimeoutCap returns the per-call delegate ceiling, zero when unset.
func (c *Config) TimeoutCap() time.Duration {
	if c.Lint.TimeoutCapMS <= 0 {
		return 0
	}
	return time.Duration(c.Lint.TimeoutCapMS) * time.Millisecond
}

// CacheDir returns the delegated-lint cache directory resolved against the
// config root, or empty when caching is disabled.
func (c *Config) CacheDir() string {
	d := c.Cache.Dir
	if d == "" {
		return ""
	}
	if !filepath.IsAbs(d) {
		d = filepath.Join(c.root, d)
	}
	return d
}
