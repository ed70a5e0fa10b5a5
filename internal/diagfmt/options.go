package diagfmt

// PathMode selects how file paths are rendered in output.
type PathMode uint8

const (
	// PathModeAuto keeps short or relative paths as-is and shortens long
	// absolute ones.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always renders absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// Mode returns the source.File.FormatPath mode string.
func (m PathMode) Mode() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	default:
		return "auto"
	}
}

// ParsePathMode maps a flag value to a PathMode. Unknown names report false.
func ParsePathMode(s string) (PathMode, bool) {
	switch s {
	case "", "auto":
		return PathModeAuto, true
	case "absolute", "abs":
		return PathModeAbsolute, true
	case "relative", "rel":
		return PathModeRelative, true
	case "basename", "base":
		return PathModeBasename, true
	}
	return PathModeAuto, false
}

// PrettyOpts configures human-readable diagnostic output.
type PrettyOpts struct {
	Color       bool
	Context     int8 // extra source lines around the primary line
	PathMode    PathMode
	Width       uint8 // maximum rendered source line width, 0 for unlimited
	ShowNotes   bool
	ShowFixes   bool
	ShowPreview bool // render before/after lines under each fix edit
}

// JSONOpts configures JSON diagnostic output.
type JSONOpts struct {
	IncludePositions bool // add 1-based line/col to every location
	PathMode         PathMode
	Max              int // output truncation; the bag itself is untouched
	IncludeNotes     bool
	IncludeFixes     bool
	IncludePreviews  bool
}

// SarifRunMeta describes the tool run recorded in SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}
