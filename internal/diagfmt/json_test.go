package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"weft/internal/diag"
	"weft/internal/source"
)

func decodeJSON(t *testing.T, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) (DiagnosticsOutput, string) {
	t.Helper()
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("round-trip: %v\n%s", err, buf.String())
	}
	return out, buf.String()
}

func TestJSONShape(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.json.weft", []byte(`{"a": {{ title }}}`))

	span := source.Span{File: id, Start: 6, End: 17}
	d := diag.NewError(diag.SemaUndefinedVariable, span, `unknown name "title"`).
		WithNote(source.Span{File: id, Start: 0, End: 1}, "document starts here").
		WithFix("replace with an empty string", diag.FixEdit{Span: span, NewText: `""`})

	opts := JSONOpts{
		IncludePositions: true,
		PathMode:         PathModeBasename,
		IncludeNotes:     true,
		IncludeFixes:     true,
		IncludePreviews:  true,
	}
	out, _ := decodeJSON(t, singleDiag(d), fs, opts)

	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d, diagnostics = %d", out.Count, len(out.Diagnostics))
	}
	dj := out.Diagnostics[0]
	if dj.Severity != "ERROR" || dj.Code != "UNDEFINED_VARIABLE" {
		t.Errorf("severity/code = %s/%s", dj.Severity, dj.Code)
	}
	if dj.Source != "" {
		t.Errorf("engine diagnostics must not carry a source, got %q", dj.Source)
	}
	loc := dj.Location
	if loc.File != "doc.json.weft" || loc.StartByte != 6 || loc.EndByte != 17 {
		t.Errorf("location = %+v", loc)
	}
	if loc.StartLine != 1 || loc.StartCol != 7 || loc.EndLine != 1 || loc.EndCol != 18 {
		t.Errorf("positions = %+v", loc)
	}

	if len(dj.Notes) != 1 || dj.Notes[0].Message != "document starts here" {
		t.Fatalf("notes = %+v", dj.Notes)
	}
	if dj.Notes[0].Location.StartLine != 1 {
		t.Errorf("note location = %+v", dj.Notes[0].Location)
	}

	if len(dj.Fixes) != 1 || dj.Fixes[0].Title != "replace with an empty string" {
		t.Fatalf("fixes = %+v", dj.Fixes)
	}
	edit := dj.Fixes[0].Edits[0]
	if edit.NewText != `""` {
		t.Errorf("edit new_text = %q", edit.NewText)
	}
	if len(edit.BeforeLines) != 1 || edit.BeforeLines[0] != `{"a": {{ title }}}` {
		t.Errorf("before lines = %v", edit.BeforeLines)
	}
	if len(edit.AfterLines) != 1 || edit.AfterLines[0] != `{"a": ""}` {
		t.Errorf("after lines = %v", edit.AfterLines)
	}
}

func TestJSONSourceOnlyForDelegated(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.json.weft", []byte(`{"a": 1}`))

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaTypeMismatch,
		source.Span{File: id, Start: 0, End: 1}, "expected string"))
	bag.Add(diag.New(diag.SevWarning, diag.UnknownCode,
		source.Span{File: id, Start: 2, End: 5}, "duplicate key").
		WithSource("jsonlint"))

	out, raw := decodeJSON(t, bag, fs, JSONOpts{PathMode: PathModeBasename})
	if out.Diagnostics[0].Source != "" {
		t.Errorf("engine diagnostic gained a source: %q", out.Diagnostics[0].Source)
	}
	if out.Diagnostics[1].Source != "jsonlint" {
		t.Errorf("delegated diagnostic lost its source: %+v", out.Diagnostics[1])
	}
	if strings.Count(raw, `"source"`) != 1 {
		t.Errorf("source key should appear once:\n%s", raw)
	}
}

func TestJSONMaxTruncatesOutput(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.weft", []byte("{{ a }}{{ b }}{{ c }}"))

	bag := diag.NewBag(10)
	for i := 0; i < 3; i++ {
		off := uint32(i * 7)
		bag.Add(diag.NewError(diag.SemaUndefinedVariable,
			source.Span{File: id, Start: off, End: off + 7}, "unknown name"))
	}

	out, _ := decodeJSON(t, bag, fs, JSONOpts{Max: 2})
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Errorf("count = %d, diagnostics = %d", out.Count, len(out.Diagnostics))
	}
	if bag.Len() != 3 {
		t.Errorf("truncation must not touch the bag, len = %d", bag.Len())
	}
}

func TestJSONEmptyBagIsArray(t *testing.T) {
	fs := source.NewFileSet()
	_, raw := decodeJSON(t, diag.NewBag(10), fs, JSONOpts{})

	if !strings.Contains(raw, `"diagnostics": []`) {
		t.Errorf("empty report should render an empty array:\n%s", raw)
	}
	if !strings.Contains(raw, `"count": 0`) {
		t.Errorf("empty report should render count 0:\n%s", raw)
	}
}

func TestJSONPositionsOptIn(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.weft", []byte("{{ a }}"))
	bag := singleDiag(diag.NewError(diag.SemaUndefinedVariable,
		source.Span{File: id, Start: 0, End: 7}, `unknown name "a"`))

	_, raw := decodeJSON(t, bag, fs, JSONOpts{})
	if strings.Contains(raw, "start_line") {
		t.Errorf("positions must be opt-in:\n%s", raw)
	}
	if !strings.Contains(raw, `"start_byte": 0`) {
		t.Errorf("byte offsets are always present:\n%s", raw)
	}
}
