package sema

// Checker tests over statements, scopes, and end-to-end scenarios.

import (
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

// userSchema declares {user: {name string, active boolean}} plus a few
// extras the operator tests lean on.
const userSchema = `{
  "type": "object",
  "properties": {
    "user": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "active": {"type": "boolean"}
      }
    },
    "items": {"type": "array", "items": {"type": "number"}},
    "tags": {"type": "array", "items": {"type": "string"}},
    "title": {"type": "string"},
    "count": {"type": "number"},
    "status": {"type": "string", "enum": ["open", "closed"]},
    "code": {"type": "string", "pattern": "^[A-Z]+$"},
    "note": {"anyOf": [{"type": "string"}, {"type": "null"}]}
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

func parseDoc(t *testing.T, input string) (*ast.Document, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.json.weft", []byte(input)))
	bag := diag.NewBag(100)
	rep := diag.BagReporter{Bag: bag}
	toks := lexer.Tokenize(file, lexer.Options{Config: token.Default(), Reporter: rep})
	doc := parser.Parse(toks, parser.Options{MaxErrors: 100, Reporter: rep})
	return doc, bag
}

// checkString parses input, fails the test on syntax errors, then checks
// it against the schema (empty schemaSrc means none).
func checkString(t *testing.T, input, schemaSrc string, opts Options) *diag.Bag {
	t.Helper()
	doc, parseBag := parseDoc(t, input)
	if parseBag.Len() != 0 {
		t.Fatalf("input does not parse cleanly: %s", summary(parseBag))
	}
	if schemaSrc != "" {
		opts.Schema = mustSchema(t, schemaSrc)
	}
	bag := diag.NewBag(100)
	opts.Reporter = diag.BagReporter{Bag: bag}
	Check(doc, opts)
	return bag
}

func summary(bag *diag.Bag) string {
	items := bag.Items()
	if len(items) == 0 {
		return "<none>"
	}
	lines := make([]string, len(items))
	for i, d := range items {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}

func codeCount(bag *diag.Bag, code diag.Code) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Code == code {
			n++
		}
	}
	return n
}

func wantOnly(t *testing.T, bag *diag.Bag, code diag.Code, frag string) {
	t.Helper()
	if bag.Len() != 1 {
		t.Fatalf("want exactly one diagnostic, got: %s", summary(bag))
	}
	d := bag.Items()[0]
	if d.Code != code {
		t.Fatalf("code = %s, want %s (%s)", d.Code.ID(), code.ID(), d.Message)
	}
	if !strings.Contains(d.Message, frag) {
		t.Fatalf("message = %q, want fragment %q", d.Message, frag)
	}
}

func wantClean(t *testing.T, bag *diag.Bag) {
	t.Helper()
	if bag.Len() != 0 {
		t.Fatalf("want no diagnostics, got: %s", summary(bag))
	}
}

func TestCheck_ScenarioA(t *testing.T) {
	bag := checkString(t, `{"name": {{ user.name }}}`, userSchema, Options{})
	wantClean(t, bag)
}

func TestCheck_ScenarioB(t *testing.T) {
	bag := checkString(t, `{{ user.email }}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaUndefinedVariable, `"email"`)
}

func TestCheck_ScenarioB_Span(t *testing.T) {
	input := `{{ user.email }}`
	bag := checkString(t, input, userSchema, Options{})
	if bag.Len() != 1 {
		t.Fatalf("diagnostics: %s", summary(bag))
	}
	sp := bag.Items()[0].Primary
	if got := input[sp.Start:sp.End]; got != "email" {
		t.Fatalf("primary span covers %q, want %q", got, "email")
	}
}

func TestCheck_NilDocumentNeverRuns(t *testing.T) {
	bag := diag.NewBag(10)
	Check(nil, Options{Reporter: diag.BagReporter{Bag: bag}, Schema: mustSchema(t, userSchema)})
	wantClean(t, bag)
}

func TestCheck_ScenarioC_NoSemanticNoise(t *testing.T) {
	// The unclosed block makes the parse yield no tree; sema must add
	// nothing on top of the parser's sole diagnostic.
	doc, parseBag := parseDoc(t, `{% if user.active %}hi`)
	if doc != nil {
		t.Fatalf("expected nil document")
	}
	if parseBag.Len() != 1 {
		t.Fatalf("parser diagnostics: %s", summary(parseBag))
	}
	bag := diag.NewBag(10)
	Check(doc, Options{Reporter: diag.BagReporter{Bag: bag}, Schema: mustSchema(t, userSchema)})
	wantClean(t, bag)
}

func TestCheck_UndefinedRootName(t *testing.T) {
	bag := checkString(t, `{{ missing }}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaUndefinedVariable, `"missing"`)
}

func TestCheck_NoSchemaNoNameChecks(t *testing.T) {
	bag := checkString(t, `{{ anything.at.all }}`, "", Options{})
	wantClean(t, bag)
}

func TestCheck_UndefinedReportedOncePerPath(t *testing.T) {
	// The failing segment poisons the rest of the path silently.
	bag := checkString(t, `{{ user.email.domain }}`, userSchema, Options{})
	if got := codeCount(bag, diag.SemaUndefinedVariable); got != 1 {
		t.Fatalf("UNDEFINED_VARIABLE count = %d, diagnostics: %s", got, summary(bag))
	}
}

func TestCheck_MemberOfScalar(t *testing.T) {
	bag := checkString(t, `{{ title.length }}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaUndefinedVariable, `"length"`)
}

func TestCheck_SetBindsForSiblings(t *testing.T) {
	bag := checkString(t, `{% set greeting = "hi" %}{{ greeting }}`, userSchema, Options{})
	wantClean(t, bag)
}

func TestCheck_SetUnused(t *testing.T) {
	bag := checkString(t, `{% set greeting = "hi" %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaUnusedVariable, `"greeting"`)
	if bag.Items()[0].Severity != diag.SevHint {
		t.Fatalf("unused binding should be a hint, got %v", bag.Items()[0].Severity)
	}
}

func TestCheck_SetShadowsSchema(t *testing.T) {
	bag := checkString(t, `{% set user = "x" %}{{ user }}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaShadowedVariable, `"user"`)
}

func TestCheck_BlockScopeEnds(t *testing.T) {
	// A set inside the if body is not visible after the block.
	input := `{% if user.active %}{% set inner = 1 %}{{ inner }}{% end %}{{ inner }}`
	bag := checkString(t, input, userSchema, Options{})
	wantOnly(t, bag, diag.SemaUndefinedVariable, `"inner"`)
}

func TestCheck_ForTypesLoopVar(t *testing.T) {
	// items is array<number>, so item + 1 is fine and item | upper is not.
	bag := checkString(t, `{% for item in items %}{{ item + 1 }}{% end %}`, userSchema, Options{})
	wantClean(t, bag)

	bag = checkString(t, `{% for item in items %}{{ item | upper }}{% end %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaTypeMismatch, `"upper"`)
}

func TestCheck_ForLoopRecord(t *testing.T) {
	input := `{% for item in items %}{{ loop.index }}{{ loop.first }}{{ loop.length }}{{ item }}{% end %}`
	bag := checkString(t, input, userSchema, Options{})
	wantClean(t, bag)

	bag = checkString(t, `{% for item in items %}{{ loop.radius }}{{ item }}{% end %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaUndefinedVariable, `"radius"`)
}

func TestCheck_ForNonArray(t *testing.T) {
	bag := checkString(t, `{% for x in title %}{{ x }}{% end %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaInvalidOperation, "cannot iterate string")
}

func TestCheck_ForUnusedLoopVar(t *testing.T) {
	bag := checkString(t, `{% for item in items %}static{% end %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaUnusedVariable, `"item"`)
}

func TestCheck_NestedLoopShadowWarns(t *testing.T) {
	input := `{% for item in items %}{% for item in tags %}{{ item }}{% end %}{{ item }}{% end %}`
	bag := checkString(t, input, userSchema, Options{})
	wantOnly(t, bag, diag.SemaShadowedVariable, `"item"`)
}

func TestCheck_TruthyCondition(t *testing.T) {
	bag := checkString(t, `{% if user.name %}x{% end %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaTruthyCondition, "string")
	if bag.Items()[0].Severity != diag.SevWarning {
		t.Fatalf("truthy condition should be a warning, got %v", bag.Items()[0].Severity)
	}
}

func TestCheck_BooleanConditionClean(t *testing.T) {
	bag := checkString(t, `{% if user.active %}x{% elif count > 3 %}y{% else %}z{% end %}`, userSchema, Options{})
	wantClean(t, bag)
}

func TestCheck_UnionConditionWarns(t *testing.T) {
	// note is string|null: non-boolean, so the truthiness warning applies.
	bag := checkString(t, `{% if note %}x{% end %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaTruthyCondition, "coerced")
}

func TestCheck_UnknownConditionSilent(t *testing.T) {
	// No schema means the condition type is unknown; no warning fires.
	bag := checkString(t, `{% if whatever %}x{% end %}`, "", Options{})
	wantClean(t, bag)
}

func TestCheck_RecoveredHeaderTolerated(t *testing.T) {
	// A failed block header leaves Cond nil; sema still checks the body.
	doc, parseBag := parseDoc(t, `{% if + %}{{ user.email }}{% end %}`)
	if doc == nil {
		t.Fatalf("document should survive header recovery")
	}
	if parseBag.Len() != 1 {
		t.Fatalf("parser diagnostics: %s", summary(parseBag))
	}
	bag := diag.NewBag(100)
	Check(doc, Options{Reporter: diag.BagReporter{Bag: bag}, Schema: mustSchema(t, userSchema)})
	wantOnly(t, bag, diag.SemaUndefinedVariable, `"email"`)
}

func TestCheck_SchemaViolationEnum(t *testing.T) {
	bag := checkString(t, `{% if status == "limbo" %}x{% end %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaSchemaViolation, `"limbo"`)
}

func TestCheck_SchemaViolationPattern(t *testing.T) {
	bag := checkString(t, `{% if code == "abc" %}x{% end %}`, userSchema, Options{})
	wantOnly(t, bag, diag.SemaSchemaViolation, "pattern")
}

func TestCheck_ConstraintSatisfiedClean(t *testing.T) {
	bag := checkString(t, `{% if status == "open" %}x{% end %}`, userSchema, Options{})
	wantClean(t, bag)
}

func TestCheck_NilReporter(t *testing.T) {
	doc, _ := parseDoc(t, `{{ user.email }}{% for x in title %}{{ x }}{% end %}`)
	Check(doc, Options{Schema: mustSchema(t, userSchema)}) // must not panic
}
