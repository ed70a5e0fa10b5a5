package diag

import (
	"strings"

	"weft/internal/source"
)

// SuppressPrefix introduces a suppression directive inside a comment tag:
// `{# weft-ignore UNDEFINED_VARIABLE #}`.
const SuppressPrefix = "weft-ignore"

// Suppression silences one diagnostic ID over a byte range of the document.
// Ranges are computed by the collector (the directive's line plus the next
// line, widened to a whole block when one opens there); this package only
// does the matching.
type Suppression struct {
	ID   string
	Span source.Span
}

// ParseSuppression extracts the directive from a comment body, if present.
// The returned ID may be unknown; the collector decides whether to warn.
func ParseSuppression(comment string) (id string, ok bool) {
	body := strings.TrimSpace(comment)
	rest, found := strings.CutPrefix(body, SuppressPrefix)
	if !found {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	// one ID per directive; anything after the first word is commentary
	fields := strings.Fields(rest)
	return fields[0], true
}

// ApplySuppressions drops diagnostics whose primary span starts inside a
// matching suppression range. Checks still ran; only the report is filtered,
// so unrelated diagnostics on the same line survive.
func ApplySuppressions(items []Diagnostic, sups []Suppression) []Diagnostic {
	if len(sups) == 0 || len(items) == 0 {
		return items
	}
	out := make([]Diagnostic, 0, len(items))
	for _, d := range items {
		if !suppressed(d, sups) {
			out = append(out, d)
		}
	}
	return out
}

func suppressed(d Diagnostic, sups []Suppression) bool {
	id := d.Code.ID()
	for _, s := range sups {
		if s.ID != id {
			continue
		}
		if s.Span.File == d.Primary.File && s.Span.Contains(d.Primary.Start) {
			return true
		}
	}
	return false
}
