package diag

import (
	"strings"
	"testing"

	"weft/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("tmp/config.json.weft", []byte("line one\nline two\n"))

	diags := []Diagnostic{
		NewError(SemaUndefinedVariable, source.Span{File: id, Start: 9, End: 13}, "variable 'x' is not defined"),
		New(SevWarning, SemaTruthyCondition, source.Span{File: id, Start: 0, End: 4}, "condition is\nnot boolean"),
	}

	got := FormatGoldenDiagnostics(diags, fs, false)
	want := strings.Join([]string{
		"warning TRUTHY_CONDITION config.json.weft:1:1 condition is not boolean",
		"error UNDEFINED_VARIABLE config.json.weft:2:1 variable 'x' is not defined",
	}, "\n")
	if got != want {
		t.Errorf("golden output:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatGoldenDiagnostics_Notes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.weft", []byte("abc\ndef\n"))

	d := NewError(SemaShadowedVariable, source.Span{File: id, Start: 4, End: 7}, "shadows outer binding").
		WithNote(source.Span{File: id, Start: 0, End: 3}, "declared here")

	got := FormatGoldenDiagnostics([]Diagnostic{d}, fs, true)
	if !strings.Contains(got, "note SHADOWED_VARIABLE doc.weft:1:1 declared here") {
		t.Errorf("missing note line in:\n%s", got)
	}
}

func TestFormatGoldenDiagnostics_Empty(t *testing.T) {
	fs := source.NewFileSet()
	if got := FormatGoldenDiagnostics(nil, fs, true); got != "" {
		t.Errorf("empty input produced %q", got)
	}
	if got := FormatGoldenDiagnostics([]Diagnostic{{}}, nil, true); got != "" {
		t.Errorf("nil fileset produced %q", got)
	}
}

func TestFormatShortDiagnostics_RelativePaths(t *testing.T) {
	fs := source.NewFileSetWithBase("/work")
	id := fs.AddVirtual("/work/site/page.json.weft", []byte("{{ title }}\n"))

	diags := []Diagnostic{
		NewError(SemaUndefinedVariable, source.Span{File: id, Start: 3, End: 8}, "variable 'title' is not defined"),
	}

	got := FormatShortDiagnostics(diags, fs, false)
	want := "error UNDEFINED_VARIABLE site/page.json.weft:1:4 variable 'title' is not defined"
	if got != want {
		t.Errorf("short output:\n%s\nwant:\n%s", got, want)
	}
}

func TestCodeIDs(t *testing.T) {
	tests := []struct {
		code Code
		id   string
	}{
		{LexUnclosedBlock, "UNCLOSED_BLOCK"},
		{SynUnclosedBlock, "UNCLOSED_BLOCK"},
		{SemaUndefinedVariable, "UNDEFINED_VARIABLE"},
		{SemaTypeMismatch, "TYPE_MISMATCH"},
		{SemaInvalidOperation, "INVALID_OPERATION"},
		{SemaSchemaViolation, "SCHEMA_VIOLATION"},
		{SemaIncludeCycle, "INCLUDE_CYCLE"},
		{InternalError, "INTERNAL_ERROR"},
		{Code(1234), "WEFT1234"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.id {
			t.Errorf("Code(%d).ID() = %q, want %q", tt.code, got, tt.id)
		}
	}

	if !KnownID("UNCLOSED_BLOCK") {
		t.Error("UNCLOSED_BLOCK should be known")
	}
	if KnownID("NOT_A_CODE") {
		t.Error("NOT_A_CODE should be unknown")
	}
}
