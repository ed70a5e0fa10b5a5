package lsp

import (
	"testing"

	"go.lsp.dev/protocol"
)

func TestApplyChangesFullReplace(t *testing.T) {
	got := applyChanges("old", []protocol.TextDocumentContentChangeEvent{{Text: "new text"}})
	if got != "new text" {
		t.Fatalf("got %q, want the replacement", got)
	}
}

func TestApplyChangesSplice(t *testing.T) {
	text := `{"a": {{ title }}}` + "\n"
	changes := []protocol.TextDocumentContentChangeEvent{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 9},
			End:   protocol.Position{Line: 0, Character: 14},
		},
		Text: "name",
	}}
	got := applyChanges(text, changes)
	want := `{"a": {{ name }}}` + "\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyChangesSequential(t *testing.T) {
	changes := []protocol.TextDocumentContentChangeEvent{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 1},
				End:   protocol.Position{Line: 0, Character: 1},
			},
			Text: "X",
		},
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 3},
				End:   protocol.Position{Line: 0, Character: 3},
			},
			Text: "Y",
		},
	}
	// Each change applies to the text produced by the previous one.
	if got := applyChanges("ab", changes); got != "aXbY" {
		t.Fatalf("got %q, want aXbY", got)
	}
}

func TestApplyChangesClampsOutOfRange(t *testing.T) {
	changes := []protocol.TextDocumentContentChangeEvent{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 9, Character: 0},
			End:   protocol.Position{Line: 9, Character: 5},
		},
		Text: "!",
	}}
	if got := applyChanges("ab", changes); got != "ab!" {
		t.Fatalf("got %q, want the edit appended at the end", got)
	}
}

func TestOffsetForPosition(t *testing.T) {
	text := "a\U0001f642b\nsecond"
	cases := []struct {
		name string
		pos  protocol.Position
		want int
	}{
		{"start", protocol.Position{Line: 0, Character: 0}, 0},
		{"after emoji", protocol.Position{Line: 0, Character: 3}, 5},
		{"second line", protocol.Position{Line: 1, Character: 2}, 9},
		{"past line end", protocol.Position{Line: 0, Character: 99}, 6},
		{"past last line", protocol.Position{Line: 7, Character: 0}, len(text)},
	}
	for _, tc := range cases {
		if got := offsetForPosition(text, tc.pos); got != tc.want {
			t.Errorf("%s: offset = %d, want %d", tc.name, got, tc.want)
		}
	}
}
