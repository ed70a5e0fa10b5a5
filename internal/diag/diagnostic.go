package diag

import (
	"weft/internal/source"
)

// SourceEngine tags diagnostics produced by the engine itself. Delegated
// linters report under their own names.
const SourceEngine = "weft"

type Note struct {
	Span source.Span
	Msg  string
}

type FixEdit struct {
	Span    source.Span
	NewText string
}

type Fix struct {
	Title string
	Edits []FixEdit
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Source   string
	Notes    []Note
	Fixes    []Fix
}

// IsEngine reports whether the diagnostic came from the engine rather than a
// delegated linter. An empty Source counts as engine.
func (d Diagnostic) IsEngine() bool {
	return d.Source == "" || d.Source == SourceEngine
}
