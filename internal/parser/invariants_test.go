package parser

// Span well-formedness over representative documents, including ones that
// lean on recovery.

import (
	"testing"

	"weft/internal/diag"
	"weft/internal/lexer"
	"weft/internal/source"
	"weft/internal/testkit"
	"weft/internal/token"
)

func TestParse_SpanInvariants(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		`{"name": {{ user.name }}}`,
		"{% if a %}x{% elif b %}y{% else %}z{% endif %}",
		"{% for item in items %}{{ item | upper }}{% endfor %}",
		`{% set g = "hi" %}{{ g }}{% include "p.weft" %}`,
		"{%- if ok -%}trim{%- endif -%}",
		"{{ 1 + 2 * -3 }}{{ [1, 2, 3] }}{{ not a and b }}",
		"before {% if broken %}no end",
		"{% endfor %}{{ }}{% set %} after",
	}
	for _, input := range inputs {
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("spans.json.weft", []byte(input)))
		bag := diag.NewBag(100)
		rep := diag.BagReporter{Bag: bag}
		toks := lexer.Tokenize(file, lexer.Options{Config: token.Default(), Reporter: rep})
		doc := Parse(toks, Options{MaxErrors: 100, Reporter: rep})
		if doc == nil {
			continue
		}
		if err := testkit.CheckSpanInvariants(doc, file); err != nil {
			t.Errorf("input %q: %v", input, err)
		}
	}
}
