package source

import (
	"fmt"

	"fortio.org/safecast"
)

// LineIndex maps between byte offsets and 0-based line/column positions for
// one fixed text. Built once per content; columns count bytes.
type LineIndex struct {
	newlines []uint32 // offsets of '\n'
	size     uint32
}

func NewLineIndex(content []byte) *LineIndex {
	size, err := safecast.Conv[uint32](len(content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	nl := make([]uint32, 0, 16)
	for i, b := range content {
		if b == '\n' {
			nl = append(nl, uint32(i))
		}
	}
	return &LineIndex{newlines: nl, size: size}
}

// Size returns the indexed text length in bytes.
func (x *LineIndex) Size() uint32 {
	return x.size
}

// LineCount returns the number of lines. Text after the final newline counts
// as a line even when empty, so the count is always at least 1.
func (x *LineIndex) LineCount() uint32 {
	n, err := safecast.Conv[uint32](len(x.newlines))
	if err != nil {
		panic(fmt.Errorf("newline count overflow: %w", err))
	}
	return n + 1
}

// PosAt converts a byte offset into a line/column. Offsets past the end of
// the text clamp to the final position.
func (x *LineIndex) PosAt(off uint32) LineCol {
	if off > x.size {
		off = x.size
	}
	// count newlines strictly before off
	lo, hi := 0, len(x.newlines)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if x.newlines[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if lo == 0 {
		return LineCol{Line: 0, Col: off}
	}
	return LineCol{Line: uint32(lo), Col: off - (x.newlines[lo-1] + 1)}
}

// OffsetAt converts a line/column back into a byte offset. Columns past the
// end of the line clamp to the position of its newline (or EOF on the last
// line); lines past the end clamp to EOF.
func (x *LineIndex) OffsetAt(lc LineCol) uint32 {
	start, end := x.LineSpan(lc.Line)
	off := start + lc.Col
	if off > end {
		return end
	}
	return off
}

// LineSpan returns the byte range [start, end) of the given 0-based line,
// excluding its newline. Lines past the end collapse to [size, size).
func (x *LineIndex) LineSpan(line uint32) (start, end uint32) {
	n := uint32(len(x.newlines))
	if line > n {
		return x.size, x.size
	}
	if line > 0 {
		start = x.newlines[line-1] + 1
	}
	if line < n {
		end = x.newlines[line]
	} else {
		end = x.size
	}
	return start, end
}
