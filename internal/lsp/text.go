package lsp

import (
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// applyChanges folds a didChange batch into the held text. A change without
// a range replaces the whole document; ranged changes splice at UTF-16
// positions, clamped so a confused client cannot push us out of bounds.
func applyChanges(text string, changes []protocol.TextDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == (protocol.Range{}) {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := offsetForPosition(text, change.Range.End)
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// offsetForPosition maps an LSP position to a byte offset. Positions past
// the end of a line stop at the line break; lines past the end of the
// document stop at its end.
func offsetForPosition(text string, pos protocol.Position) int {
	line := uint32(0)
	i := 0
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(text)
	}
	units := uint32(0)
	for i < len(text) && text[i] != '\n' {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := uint32(1)
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
		if units == pos.Character {
			break
		}
	}
	return i
}
