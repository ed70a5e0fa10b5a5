package lsp

import (
	"testing"

	"weft/internal/source"
)

func TestPositionForOffsetUTF16(t *testing.T) {
	// "é" is an e with a combining accent, one unit each;
	// the emoji is a surrogate pair.
	text := "key: é\U0001f642\nnext: 1\n"
	cases := []struct {
		offset int
		line   uint32
		char   uint32
	}{
		{0, 0, 0},
		{5, 0, 5},
		{8, 0, 7},
		{12, 0, 9},
		{13, 1, 0},
		{19, 1, 6},
		{100, 2, 0},
	}
	for _, tc := range cases {
		got := positionForOffsetUTF16(text, tc.offset)
		if got.Line != tc.line || got.Character != tc.char {
			t.Errorf("offset %d = %d:%d, want %d:%d", tc.offset, got.Line, got.Character, tc.line, tc.char)
		}
	}
}

func TestRangeForSpanRoundTrip(t *testing.T) {
	text := "a\U0001f642b {{ x }}\n"
	span := source.Span{Start: 10, End: 11}
	r := rangeForSpan(text, span)
	if r.Start.Line != 0 || r.Start.Character != 8 {
		t.Fatalf("start = %d:%d, want 0:8", r.Start.Line, r.Start.Character)
	}
	if r.End.Line != 0 || r.End.Character != 9 {
		t.Fatalf("end = %d:%d, want 0:9", r.End.Line, r.End.Character)
	}
	if got := offsetForPosition(text, r.Start); got != 10 {
		t.Fatalf("round trip start = %d, want 10", got)
	}
	if got := offsetForPosition(text, r.End); got != 11 {
		t.Fatalf("round trip end = %d, want 11", got)
	}
}

func TestSafeUint32(t *testing.T) {
	if got := safeUint32(-3); got != 0 {
		t.Errorf("negative = %d, want 0", got)
	}
	if got := safeUint32(42); got != 42 {
		t.Errorf("small = %d, want 42", got)
	}
	if got := safeUint32(1 << 40); got != ^uint32(0) {
		t.Errorf("overflow = %d, want the uint32 maximum", got)
	}
}
