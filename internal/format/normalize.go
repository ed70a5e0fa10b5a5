// Package format normalizes the spacing inside template tags without
// touching the surrounding host-format text.
//
// The pass is edit based: it collects byte-range replacements against the
// original content and splices them in one walk, so everything outside a
// tag's edge padding survives byte for byte. Tag interiors, string
// literals, and multiline content are never rewritten.
package format

import (
	"weft/internal/source"
	"weft/internal/token"
)

type edit struct {
	start uint32
	end   uint32
	text  string
}

// Normalize returns a copy of the file content with the space between each
// tag's delimiters and its content set to exactly one. Tags whose content
// is empty or all whitespace keep their bytes, and so do unterminated tags
// folded back into text.
func Normalize(sf *source.File, toks []token.Token) []byte {
	if sf == nil {
		return nil
	}

	var edits []edit
	for _, t := range toks {
		if !t.IsTag() {
			continue
		}
		lead := token.TrimmedPrefixLen(t.Raw)
		if lead == len(t.Raw) {
			continue
		}
		trail := token.TrimmedSuffixLen(t.Raw)
		if lead != 1 || t.Raw[0] != ' ' {
			edits = append(edits, edit{start: t.Inner.Start, end: t.Inner.Start + uint32(lead), text: " "})
		}
		if trail != 1 || t.Raw[len(t.Raw)-1] != ' ' {
			edits = append(edits, edit{start: t.Inner.End - uint32(trail), end: t.Inner.End, text: " "})
		}
	}
	if len(edits) == 0 {
		return append([]byte(nil), sf.Content...)
	}

	// Tokens come in document order and tag ranges never overlap, so the
	// edits are already sorted and disjoint.
	out := make([]byte, 0, len(sf.Content)+2*len(edits))
	pos := uint32(0)
	for _, e := range edits {
		out = append(out, sf.Content[pos:e.start]...)
		out = append(out, e.text...)
		pos = e.end
	}
	out = append(out, sf.Content[pos:]...)
	return out
}
