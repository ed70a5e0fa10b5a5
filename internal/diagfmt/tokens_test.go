package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"weft/internal/lexer"
	"weft/internal/source"
	"weft/internal/token"
)

func lexDoc(t *testing.T, text string) ([]token.Token, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.weft", []byte(text))
	toks := lexer.Tokenize(fs.Get(id), lexer.Options{Config: token.Default()})
	return toks, fs
}

func TestFormatTokensPretty(t *testing.T) {
	toks, fs := lexDoc(t, "a {{ x }} b")

	var buf bytes.Buffer
	if err := FormatTokensPretty(&buf, toks, fs); err != nil {
		t.Fatalf("FormatTokensPretty: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`1: text`,
		`"a " at 1:1-1:3`,
		`2: expression`,
		`" x " at 1:3-1:10`,
		`3: text`,
		`" b" at 1:10-1:12`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTokensPrettyTrimMarkers(t *testing.T) {
	toks, fs := lexDoc(t, "x {%- if a -%} y")

	var buf bytes.Buffer
	if err := FormatTokensPretty(&buf, toks, fs); err != nil {
		t.Fatalf("FormatTokensPretty: %v", err)
	}
	if !strings.Contains(buf.String(), "(trim both)") {
		t.Errorf("trim markers not reported:\n%s", buf.String())
	}
}

func TestFormatTokensPrettyClipsLongText(t *testing.T) {
	toks, fs := lexDoc(t, strings.Repeat("y", 60))

	var buf bytes.Buffer
	if err := FormatTokensPretty(&buf, toks, fs); err != nil {
		t.Fatalf("FormatTokensPretty: %v", err)
	}
	if !strings.Contains(buf.String(), "...") {
		t.Errorf("long raw text should be clipped:\n%s", buf.String())
	}
}

func TestFormatTokensJSON(t *testing.T) {
	toks, _ := lexDoc(t, "a {{ x }} b")

	var buf bytes.Buffer
	if err := FormatTokensJSON(&buf, toks); err != nil {
		t.Fatalf("FormatTokensJSON: %v", err)
	}

	var out []TokenOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("round-trip: %v\n%s", err, buf.String())
	}
	if len(out) != 3 {
		t.Fatalf("tokens = %d, want 3", len(out))
	}

	kinds := []string{out[0].Kind, out[1].Kind, out[2].Kind}
	if kinds[0] != "text" || kinds[1] != "expression" || kinds[2] != "text" {
		t.Errorf("kinds = %v", kinds)
	}
	if out[1].Raw != " x " {
		t.Errorf("raw = %q", out[1].Raw)
	}
	if out[1].Span.Start != 2 || out[1].Span.End != 9 {
		t.Errorf("span = %+v", out[1].Span)
	}
	if out[1].Inner.Start != 4 || out[1].Inner.End != 7 {
		t.Errorf("inner = %+v", out[1].Inner)
	}
	if out[1].TrimLeft || out[1].TrimRight {
		t.Errorf("unexpected trim flags: %+v", out[1])
	}
}
