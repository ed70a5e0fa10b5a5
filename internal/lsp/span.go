package lsp

import (
	"unicode/utf8"

	"fortio.org/safecast"
	"go.lsp.dev/protocol"

	"weft/internal/source"
)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return ^uint32(0)
	}
	return v
}

// positionForOffsetUTF16 maps a byte offset into text to an LSP position,
// counting the column in UTF-16 code units the way clients do.
func positionForOffsetUTF16(text string, offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	line := 0
	lineStart := 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	units := 0
	for i := lineStart; i < offset; {
		r, size := utf8.DecodeRuneInString(text[i:offset])
		if i+size > offset {
			break
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		i += size
	}
	return protocol.Position{Line: safeUint32(line), Character: safeUint32(units)}
}

// rangeForSpan converts an engine span, which is byte offsets into text,
// into an LSP range.
func rangeForSpan(text string, span source.Span) protocol.Range {
	return protocol.Range{
		Start: positionForOffsetUTF16(text, int(span.Start)),
		End:   positionForOffsetUTF16(text, int(span.End)),
	}
}
