package diag

import (
	"testing"

	"weft/internal/source"
)

func TestParseSuppression(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		id      string
		ok      bool
	}{
		{"plain directive", "weft-ignore UNDEFINED_VARIABLE", "UNDEFINED_VARIABLE", true},
		{"padded", "  weft-ignore TYPE_MISMATCH  ", "TYPE_MISMATCH", true},
		{"with trailing commentary", "weft-ignore UNKNOWN_FILTER legacy data", "UNKNOWN_FILTER", true},
		{"no id", "weft-ignore", "", false},
		{"ordinary comment", "just words", "", false},
		{"prefix must match", "weft-ignored FOO", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ParseSuppression(tt.comment)
			if id != tt.id || ok != tt.ok {
				t.Errorf("ParseSuppression(%q) = (%q, %v), want (%q, %v)",
					tt.comment, id, ok, tt.id, tt.ok)
			}
		})
	}
}

func TestApplySuppressions(t *testing.T) {
	inRange := NewError(SemaUndefinedVariable, source.Span{File: 0, Start: 15, End: 20}, "in range")
	outOfRange := NewError(SemaUndefinedVariable, source.Span{File: 0, Start: 90, End: 95}, "out of range")
	otherCode := NewError(SemaTypeMismatch, source.Span{File: 0, Start: 16, End: 18}, "other code")
	otherFile := NewError(SemaUndefinedVariable, source.Span{File: 1, Start: 15, End: 20}, "other file")

	sups := []Suppression{
		{ID: "UNDEFINED_VARIABLE", Span: source.Span{File: 0, Start: 10, End: 40}},
	}

	got := ApplySuppressions([]Diagnostic{inRange, outOfRange, otherCode, otherFile}, sups)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, d := range got {
		if d.Message == "in range" {
			t.Error("suppressed diagnostic survived")
		}
	}
}

func TestApplySuppressions_SharedCanonicalID(t *testing.T) {
	// UNCLOSED_BLOCK is reported under two numeric codes; a single directive
	// must silence either one.
	fromLexer := NewError(LexUnclosedBlock, source.Span{File: 0, Start: 5, End: 7}, "lex")
	fromParser := NewError(SynUnclosedBlock, source.Span{File: 0, Start: 6, End: 8}, "parse")

	sups := []Suppression{
		{ID: "UNCLOSED_BLOCK", Span: source.Span{File: 0, Start: 0, End: 50}},
	}

	if got := ApplySuppressions([]Diagnostic{fromLexer, fromParser}, sups); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestApplySuppressions_NoDirectives(t *testing.T) {
	items := []Diagnostic{NewError(SemaTypeMismatch, source.Span{}, "x")}
	if got := ApplySuppressions(items, nil); len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}
