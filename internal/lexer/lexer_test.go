package lexer_test

import (
	"fmt"
	"testing"

	"weft/internal/diag"
	"weft/internal/lexer"
	"weft/internal/source"
	"weft/internal/token"
)

// testReporter collects every diagnostic the tokenizer emits.
type testReporter struct {
	diagnostics []diag.Diagnostic
}

func (r *testReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note, fixes []diag.Fix) {
	r.diagnostics = append(r.diagnostics, diag.Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Primary:  primary,
		Notes:    notes,
		Fixes:    fixes,
	})
}

func (r *testReporter) ErrorCount() int {
	count := 0
	for _, d := range r.diagnostics {
		if d.Severity == diag.SevError {
			count++
		}
	}
	return count
}

func (r *testReporter) Messages() []string {
	messages := make([]string, 0, len(r.diagnostics))
	for _, d := range r.diagnostics {
		messages = append(messages, fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message))
	}
	return messages
}

func tokenizeString(t *testing.T, input string, cfg token.DelimiterConfig) ([]token.Token, *testReporter) {
	t.Helper()
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.weft", []byte(input))
	reporter := &testReporter{}
	toks := lexer.Tokenize(fs.Get(fileID), lexer.Options{Config: cfg, Reporter: reporter})
	checkPartition(t, input, toks)
	return toks, reporter
}

// checkPartition asserts the fundamental tokenizer invariant: spans cover the
// input exactly, in order, with no gaps or overlaps.
func checkPartition(t *testing.T, input string, toks []token.Token) {
	t.Helper()
	if len(toks) == 0 {
		t.Fatal("tokenizer returned no tokens")
	}
	expect := uint32(0)
	for i, tok := range toks {
		if tok.Span.Start != expect {
			t.Fatalf("token %d starts at %d, want %d (gap or overlap)", i, tok.Span.Start, expect)
		}
		expect = tok.Span.End
	}
	if expect != uint32(len(input)) {
		t.Fatalf("tokens end at %d, want %d", expect, len(input))
	}
}

func expectKinds(t *testing.T, input string, expected []token.Kind) []token.Token {
	t.Helper()
	toks, reporter := tokenizeString(t, input, token.Default())
	if len(toks) != len(expected) {
		t.Fatalf("got %d tokens, want %d\ninput: %q\nerrors: %v",
			len(toks), len(expected), input, reporter.Messages())
	}
	for i, tok := range toks {
		if tok.Kind != expected[i] {
			t.Errorf("token %d: got %v, want %v (raw: %q)", i, tok.Kind, expected[i], tok.Raw)
		}
	}
	return toks
}

func TestTokenize_PlainTextOnly(t *testing.T) {
	inputs := []string{
		"hello world",
		"no delimiters here { } % #",
		"multi\nline\ntext",
	}
	for _, input := range inputs {
		toks, reporter := tokenizeString(t, input, token.Default())
		if len(toks) != 1 {
			t.Errorf("%q: got %d tokens, want exactly 1", input, len(toks))
			continue
		}
		if toks[0].Kind != token.Text || toks[0].Raw != input {
			t.Errorf("%q: token = %v %q", input, toks[0].Kind, toks[0].Raw)
		}
		if reporter.ErrorCount() != 0 {
			t.Errorf("%q: unexpected errors %v", input, reporter.Messages())
		}
	}
}

func TestTokenize_EmptyInput(t *testing.T) {
	toks, _ := tokenizeString(t, "", token.Default())
	if len(toks) != 1 || toks[0].Kind != token.Text || !toks[0].Span.Empty() {
		t.Errorf("empty input: got %+v, want one empty Text token", toks)
	}
}

func TestTokenize_ExpressionInText(t *testing.T) {
	toks := expectKinds(t, "Hello {{ name }}!", []token.Kind{token.Text, token.Expression, token.Text})

	if toks[0].Raw != "Hello " {
		t.Errorf("leading text = %q", toks[0].Raw)
	}
	if toks[1].Raw != " name " {
		t.Errorf("expression raw = %q, want inner content without delimiters", toks[1].Raw)
	}
	if toks[1].Span.Start != 6 || toks[1].Span.End != 16 {
		t.Errorf("expression span = %v, want 6-16 covering the full tag", toks[1].Span)
	}
	if toks[1].Inner.Start != 8 || toks[1].Inner.End != 14 {
		t.Errorf("expression inner = %v, want 8-14 covering the raw content", toks[1].Inner)
	}
	if toks[2].Raw != "!" {
		t.Errorf("trailing text = %q", toks[2].Raw)
	}
}

func TestTokenize_AllKinds(t *testing.T) {
	expectKinds(t, "a{% if x %}b{{ x }}c{# note #}d",
		[]token.Kind{
			token.Text, token.Statement, token.Text, token.Expression,
			token.Text, token.Comment, token.Text,
		})
}

func TestTokenize_AdjacentTags(t *testing.T) {
	toks := expectKinds(t, "{{a}}{{b}}", []token.Kind{token.Expression, token.Expression})
	if toks[0].Raw != "a" || toks[1].Raw != "b" {
		t.Errorf("raws = %q, %q", toks[0].Raw, toks[1].Raw)
	}
}

func TestTokenize_TrimMarkers(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		raw       string
		trimLeft  bool
		trimRight bool
	}{
		{"both sides", "{%- if x -%}", " if x ", true, true},
		{"left only", "{{- x }}", " x ", true, false},
		{"right only", "{{ x -}}", " x ", false, true},
		{"no trim", "{{ x }}", " x ", false, false},
		{"trim mark inside content", "{{ a - b }}", " a - b ", false, false},
		{"left trim with empty body", "{{-}}", "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, reporter := tokenizeString(t, tt.input, token.Default())
			if reporter.ErrorCount() != 0 {
				t.Fatalf("errors: %v", reporter.Messages())
			}
			if len(toks) != 1 {
				t.Fatalf("got %d tokens, want 1", len(toks))
			}
			tok := toks[0]
			if tok.Raw != tt.raw {
				t.Errorf("raw = %q, want %q", tok.Raw, tt.raw)
			}
			if tok.TrimLeft != tt.trimLeft || tok.TrimRight != tt.trimRight {
				t.Errorf("trim = (%v, %v), want (%v, %v)",
					tok.TrimLeft, tok.TrimRight, tt.trimLeft, tt.trimRight)
			}
			if tok.Span.Len() != uint32(len(tt.input)) {
				t.Errorf("span must cover trim markers and delimiters, got %v", tok.Span)
			}
		})
	}
}

func TestTokenize_MultiLineTag(t *testing.T) {
	input := "{% if\n  user.active\n%}"
	toks, reporter := tokenizeString(t, input, token.Default())
	if reporter.ErrorCount() != 0 {
		t.Fatalf("errors: %v", reporter.Messages())
	}
	if len(toks) != 1 || toks[0].Kind != token.Statement {
		t.Fatalf("tokens = %+v", toks)
	}
	if toks[0].Raw != " if\n  user.active\n" {
		t.Errorf("raw = %q", toks[0].Raw)
	}
}

func TestTokenize_UnterminatedTag(t *testing.T) {
	toks, reporter := tokenizeString(t, "Hello {% if x", token.Default())

	if reporter.ErrorCount() != 1 {
		t.Fatalf("got %d errors, want exactly 1: %v", reporter.ErrorCount(), reporter.Messages())
	}
	d := reporter.diagnostics[0]
	if d.Code != diag.LexUnclosedBlock {
		t.Errorf("code = %v, want LexUnclosedBlock", d.Code)
	}
	if d.Primary.Start != 6 {
		t.Errorf("diagnostic anchored at %d, want the opening marker at 6", d.Primary.Start)
	}

	// the failed opener folds back into text
	if len(toks) != 1 || toks[0].Kind != token.Text || toks[0].Raw != "Hello {% if x" {
		t.Errorf("tokens = %+v, want one Text token with the raw input", toks)
	}
}

func TestTokenize_RecoversAfterUnterminatedTag(t *testing.T) {
	toks, reporter := tokenizeString(t, "a {% b {{ x }} c", token.Default())

	if reporter.ErrorCount() != 1 {
		t.Fatalf("got %d errors, want 1: %v", reporter.ErrorCount(), reporter.Messages())
	}
	// later delimiters must still match after the failed opener
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []token.Kind{token.Text, token.Expression, token.Text}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
	if toks[0].Raw != "a {% b " {
		t.Errorf("folded text = %q", toks[0].Raw)
	}
}

func TestTokenize_CommentSwallowsOtherDelimiters(t *testing.T) {
	toks, reporter := tokenizeString(t, "{# has {{ and {% inside #}", token.Default())
	if reporter.ErrorCount() != 0 {
		t.Fatalf("errors: %v", reporter.Messages())
	}
	if len(toks) != 1 || toks[0].Kind != token.Comment {
		t.Fatalf("tokens = %+v", toks)
	}
}

func TestTokenize_NonGreedyClose(t *testing.T) {
	// nesting inside the same channel is not supported; the scan stops at
	// the first close marker
	toks, _ := tokenizeString(t, "{{ a }} b }}", token.Default())
	if toks[0].Raw != " a " {
		t.Errorf("raw = %q, want scan to stop at the first close", toks[0].Raw)
	}
	if toks[1].Kind != token.Text || toks[1].Raw != " b }}" {
		t.Errorf("trailing = %v %q", toks[1].Kind, toks[1].Raw)
	}
}

func TestTokenize_CustomDelimitersLongestMatch(t *testing.T) {
	cfg := token.DelimiterConfig{
		Statement:  token.Delimiters{Open: "<%", Close: "%>"},
		Expression: token.Delimiters{Open: "<%=", Close: "%>"},
		Comment:    token.Delimiters{Open: "<%#", Close: "%>"},
		TrimMark:   '-',
	}

	toks, reporter := tokenizeString(t, "<%= x %><% if y %><%# z %>", cfg)
	if reporter.ErrorCount() != 0 {
		t.Fatalf("errors: %v", reporter.Messages())
	}
	want := []token.Kind{token.Expression, token.Statement, token.Comment}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v (longest open marker must win)", i, toks[i].Kind, k)
		}
	}
}

func TestTokenize_InvalidConfig(t *testing.T) {
	cfg := token.Default()
	cfg.Expression.Open = ""

	toks, reporter := tokenizeString(t, "{{ x }}", cfg)
	if reporter.ErrorCount() != 1 {
		t.Fatalf("got %d errors, want 1", reporter.ErrorCount())
	}
	if reporter.diagnostics[0].Code != diag.LexInvalidDelimiters {
		t.Errorf("code = %v", reporter.diagnostics[0].Code)
	}
	if len(toks) != 1 || toks[0].Kind != token.Text {
		t.Errorf("invalid config must fall back to one Text token, got %+v", toks)
	}
}

func TestTokenize_NilReporterDoesNotPanic(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.weft", []byte("{% broken"))
	toks := lexer.Tokenize(fs.Get(fileID), lexer.Options{Config: token.Default()})
	if len(toks) != 1 {
		t.Errorf("tokens = %+v", toks)
	}
}
