package eval

// Renderer tests: statements, scoping, includes, and schema validation.

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/lexer"
	"weft/internal/parser"
	"weft/internal/schema"
	"weft/internal/source"
	"weft/internal/token"
)

func parseDoc(t *testing.T, input string) *ast.Document {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.json.weft", []byte(input)))
	bag := diag.NewBag(100)
	rep := diag.BagReporter{Bag: bag}
	toks := lexer.Tokenize(file, lexer.Options{Config: token.Default(), Reporter: rep})
	doc := parser.Parse(toks, parser.Options{MaxErrors: 100, Reporter: rep})
	if bag.Len() != 0 {
		var lines []string
		for _, d := range bag.Items() {
			lines = append(lines, fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message))
		}
		t.Fatalf("fixture does not parse cleanly: %s", strings.Join(lines, "; "))
	}
	return doc
}

// render evaluates input against data and returns the output, failing the
// test on any render error.
func render(t *testing.T, input string, data map[string]any, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, parseDoc(t, input), data, opts); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

// renderErr evaluates input expecting a render fault.
func renderErr(t *testing.T, input string, data map[string]any, opts Options) *Error {
	t.Helper()
	var buf bytes.Buffer
	err := Render(&buf, parseDoc(t, input), data, opts)
	if err == nil {
		t.Fatalf("render succeeded with %q, want error", buf.String())
	}
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("error type = %T (%v)", err, err)
	}
	return re
}

type mapResolver map[string]*ast.Document

func (m mapResolver) Resolve(name string) (*ast.Document, bool) {
	doc, ok := m[name]
	return doc, ok
}

func TestRender_TextPassesThrough(t *testing.T) {
	got := render(t, `{"plain": true}`, nil, Options{})
	if got != `{"plain": true}` {
		t.Errorf("output = %q", got)
	}
}

func TestRender_NilDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, nil, nil, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestRender_OutputPath(t *testing.T) {
	data := map[string]any{"user": map[string]any{"name": "Ada"}}
	got := render(t, `{"name": "{{ user.name }}"}`, data, Options{})
	if got != `{"name": "Ada"}` {
		t.Errorf("output = %q", got)
	}
}

func TestRender_MissingPathRendersEmpty(t *testing.T) {
	got := render(t, `[{{ missing }}|{{ user.gone }}]`, map[string]any{"user": map[string]any{}}, Options{})
	if got != `[|]` {
		t.Errorf("output = %q", got)
	}
}

func TestRender_NumberFormatting(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{1.0, "1"},
		{1.5, "1.5"},
		{3, "3"},      // YAML decodes integers as int
		{-0.25, "-0.25"},
	}
	for _, tt := range tests {
		got := render(t, `{{ n }}`, map[string]any{"n": tt.v}, Options{})
		if got != tt.want {
			t.Errorf("render(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestRender_IfTruthiness(t *testing.T) {
	tests := []struct {
		cond any
		want string
	}{
		{true, "yes"},
		{false, "no"},
		{"", "no"},
		{"x", "yes"},
		{0, "no"},
		{2.5, "yes"},
		{nil, "no"},
		{[]any{}, "no"},
		{[]any{1}, "yes"},
	}
	for _, tt := range tests {
		got := render(t, `{% if c %}yes{% else %}no{% end %}`, map[string]any{"c": tt.cond}, Options{})
		if got != tt.want {
			t.Errorf("cond %v: output = %q, want %q", tt.cond, got, tt.want)
		}
	}
}

func TestRender_ElifChain(t *testing.T) {
	input := `{% if n > 10 %}big{% elif n > 5 %}mid{% else %}small{% end %}`
	for _, tt := range []struct {
		n    float64
		want string
	}{{20, "big"}, {7, "mid"}, {1, "small"}} {
		got := render(t, input, map[string]any{"n": tt.n}, Options{})
		if got != tt.want {
			t.Errorf("n=%v: output = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRender_ForLoopRecord(t *testing.T) {
	input := `{% for x in items %}{{ loop.index }}:{{ x }}{% if not loop.last %},{% end %}{% end %}`
	data := map[string]any{"items": []any{"a", "b", "c"}}
	got := render(t, input, data, Options{})
	if got != "0:a,1:b,2:c" {
		t.Errorf("output = %q", got)
	}

	got = render(t, `{% for x in items %}{% if loop.first %}[{{ loop.length }}] {% end %}{{ x }}{% end %}`,
		data, Options{})
	if got != "[3] abc" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_ForEmptyArray(t *testing.T) {
	got := render(t, `a{% for x in items %}{{ x }}{% end %}b`, map[string]any{"items": []any{}}, Options{})
	if got != "ab" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_ForScopeEndsPerIteration(t *testing.T) {
	// y is bound inside the body scope; it does not survive the loop.
	input := `{% for x in items %}{% set y = x %}{{ y }}{% end %}{{ y }}`
	got := render(t, input, map[string]any{"items": []any{"a"}}, Options{})
	if got != "a" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_NonArrayIterationFails(t *testing.T) {
	input := `{% for x in title %}x{% end %}`
	re := renderErr(t, input, map[string]any{"title": "s"}, Options{})
	if !strings.Contains(re.Msg, "cannot iterate string") {
		t.Errorf("message = %q", re.Msg)
	}
	if got := input[re.Span.Start:re.Span.End]; got != "title" {
		t.Errorf("error span covers %q, want %q", got, "title")
	}
}

func TestRender_SetVisibleToSiblings(t *testing.T) {
	got := render(t, `{% set g = "hi" %}{{ g }} {{ g | upper }}`, nil, Options{})
	if got != "hi HI" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_SetScopedToBlock(t *testing.T) {
	got := render(t, `{% if true %}{% set inner = "x" %}{{ inner }}{% end %}[{{ inner }}]`, nil, Options{})
	if got != "x[]" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_SetShadowsData(t *testing.T) {
	got := render(t, `{% set user = "local" %}{{ user }}`, map[string]any{"user": "data"}, Options{})
	if got != "local" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_Operators(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`{{ 1 + 2 }}`, "3"},
		{`{{ "a" + "b" }}`, "ab"},
		{`{{ 7 % 3 }}`, "1"},
		{`{{ 2 * 3 - 1 }}`, "5"},
		{`{{ -n }}`, "-4"},
		{`{{ 1 < 2 }}`, "true"},
		{`{{ "b" < "a" }}`, "false"},
		{`{{ 1 == 1.0 }}`, "true"},
		{`{{ n != 4 }}`, "false"},
		{`{{ 2 in nums }}`, "true"},
		{`{{ 9 in nums }}`, "false"},
		{`{{ "ex" in "text" }}`, "true"},
		{`{{ "name" in user }}`, "true"},
		{`{{ not "" }}`, "true"},
	}
	data := map[string]any{
		"n":    4,
		"nums": []any{1, 2, 3},
		"user": map[string]any{"name": "Ada"},
	}
	for _, tt := range tests {
		if got := render(t, tt.src, data, Options{}); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestRender_AndOrYieldOperands(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`{{ "" or "fallback" }}`, "fallback"},
		{`{{ "x" or "fallback" }}`, "x"},
		{`{{ "x" and "y" }}`, "y"},
		{`{{ 0 and "y" }}`, "0"},
	}
	for _, tt := range tests {
		if got := render(t, tt.src, nil, Options{}); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestRender_OperatorFaults(t *testing.T) {
	tests := []struct {
		src  string
		frag string
	}{
		{`{{ 1 / 0 }}`, "division by zero"},
		{`{{ 5 % 0 }}`, "division by zero"},
		{`{{ "a" + 1 }}`, "two numbers or two strings"},
		{`{{ true - 1 }}`, "number operands"},
		{`{{ -"s" }}`, "needs a number"},
		{`{{ 1 < "a" }}`, "cannot order"},
		{`{{ 1 in 2 }}`, "container"},
	}
	for _, tt := range tests {
		re := renderErr(t, tt.src, nil, Options{})
		if !strings.Contains(re.Msg, tt.frag) {
			t.Errorf("%s error = %q, want fragment %q", tt.src, re.Msg, tt.frag)
		}
	}
}

func TestRender_TrimMarks(t *testing.T) {
	got := render(t, "a {%- if t %} b {%- end %}", map[string]any{"t": true}, Options{})
	if got != "a b" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_Include(t *testing.T) {
	docs := mapResolver{"header": parseDoc(t, `H:{{ site }};`)}
	got := render(t, `{% include "header" %}body`, map[string]any{"site": "w"},
		Options{Resolver: docs})
	if got != "H:w;body" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_IncludeSeesCallerBindings(t *testing.T) {
	docs := mapResolver{"part": parseDoc(t, `{{ g }}`)}
	got := render(t, `{% set g = "v" %}{% include "part" %}`, nil, Options{Resolver: docs})
	if got != "v" {
		t.Errorf("output = %q", got)
	}
}

func TestRender_IncludeCycleFails(t *testing.T) {
	docs := mapResolver{}
	docs["a"] = parseDoc(t, `{% include "a" %}`)
	re := renderErr(t, `{% include "a" %}`, nil, Options{Resolver: docs})
	if !strings.Contains(re.Msg, "include cycle") || !strings.Contains(re.Msg, "a -> a") {
		t.Errorf("message = %q", re.Msg)
	}
}

func TestRender_IncludeDepthCap(t *testing.T) {
	docs := mapResolver{
		"b": parseDoc(t, `{% include "c" %}`),
		"c": parseDoc(t, `leaf`),
	}
	re := renderErr(t, `{% include "b" %}`, nil, Options{Resolver: docs, MaxDepth: 1})
	if !strings.Contains(re.Msg, "deeper than 1") {
		t.Errorf("message = %q", re.Msg)
	}
}

func TestRender_IncludeNeedsResolver(t *testing.T) {
	re := renderErr(t, `{% include "x" %}`, nil, Options{})
	if !strings.Contains(re.Msg, "resolver") {
		t.Errorf("message = %q", re.Msg)
	}
}

func TestRender_IncludeUnresolved(t *testing.T) {
	re := renderErr(t, `{% include "ghost" %}`, nil, Options{Resolver: mapResolver{}})
	if !strings.Contains(re.Msg, `"ghost"`) {
		t.Errorf("message = %q", re.Msg)
	}
}

const renderSchema = `{
  "type": "object",
  "properties": {
    "code": {"type": "string", "pattern": "^[A-Z]+$"},
    "user": {"type": "object", "properties": {"name": {"type": "string"}}}
  }
}`

func mustSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(src), schema.FormatJSON, schema.OriginInline, "")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func TestRender_SchemaViolationReported(t *testing.T) {
	bag := diag.NewBag(10)
	opts := Options{Schema: mustSchema(t, renderSchema), Reporter: diag.BagReporter{Bag: bag}}
	got := render(t, `{{ code }}`, map[string]any{"code": "abc"}, opts)
	if got != "abc" {
		t.Errorf("output = %q; violations must not block rendering", got)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaSchemaViolation {
		t.Fatalf("diagnostics: %d", bag.Len())
	}
	if msg := bag.Items()[0].Message; !strings.Contains(msg, "pattern") {
		t.Errorf("message = %q", msg)
	}
}

func TestRender_AbsentValueNotValidated(t *testing.T) {
	bag := diag.NewBag(10)
	opts := Options{Schema: mustSchema(t, renderSchema), Reporter: diag.BagReporter{Bag: bag}}
	if got := render(t, `{{ user.name }}`, map[string]any{}, opts); got != "" {
		t.Errorf("output = %q", got)
	}
	if bag.Len() != 0 {
		t.Errorf("absent values must not be validated, got %d diagnostics", bag.Len())
	}
}

func TestRender_NullWhereStringDeclared(t *testing.T) {
	bag := diag.NewBag(10)
	opts := Options{Schema: mustSchema(t, renderSchema), Reporter: diag.BagReporter{Bag: bag}}
	got := render(t, `[{{ code }}]`, map[string]any{"code": nil}, opts)
	if got != "[]" {
		t.Errorf("output = %q", got)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaSchemaViolation {
		t.Fatalf("want one SCHEMA_VIOLATION, got %d", bag.Len())
	}
}

func TestRender_LocalBindingNotValidated(t *testing.T) {
	// A set binding shadowing a schema name is the author's value, not
	// host data; it is not checked against the schema.
	bag := diag.NewBag(10)
	opts := Options{Schema: mustSchema(t, renderSchema), Reporter: diag.BagReporter{Bag: bag}}
	got := render(t, `{% set code = "abc" %}{{ code }}`, nil, opts)
	if got != "abc" {
		t.Errorf("output = %q", got)
	}
	if bag.Len() != 0 {
		t.Errorf("local bindings must not be validated, got %d diagnostics", bag.Len())
	}
}

func TestRender_TextSerializer(t *testing.T) {
	var buf bytes.Buffer
	var s Serializer = TextSerializer{}
	doc := parseDoc(t, `n={{ n }}`)
	if err := s.Serialize(&buf, doc, map[string]any{"n": 7}); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if buf.String() != "n=7" {
		t.Errorf("output = %q", buf.String())
	}
}
