package format

import (
	"bytes"
	"testing"

	"weft/internal/lexer"
	"weft/internal/source"
	"weft/internal/token"
)

func normalizeString(t *testing.T, input string) []byte {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("fmt.json.weft", []byte(input)))
	toks := lexer.Tokenize(file, lexer.Options{Config: token.Default()})
	return Normalize(file, toks)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"tight expression", `{{x}}`, `{{ x }}`},
		{"tight statements", `{%if a%}x{%endif%}`, `{% if a %}x{% endif %}`},
		{"extra padding", `{{   spaced  }}`, `{{ spaced }}`},
		{"comment", `{#note#}`, `{# note #}`},
		{"trim markers kept", `{{-x-}}`, `{{- x -}}`},
		{"already canonical", `{% for item in items %}{{ item }}{% endfor %}`, `{% for item in items %}{{ item }}{% endfor %}`},
		{"host text untouched", `hello {not a tag} world`, `hello {not a tag} world`},
		{"interior spacing kept", `{{ a|first }}`, `{{ a|first }}`},
		{"multiline interior kept", "{% if a\n   and b %}x{% endif %}", "{% if a\n   and b %}x{% endif %}"},
		{"newline edge flattened", "{{ x\n}}", "{{ x }}"},
		{"empty tag kept", `{%%}`, `{%%}`},
		{"whitespace only tag kept", `{%   %}`, `{%   %}`},
		{"unterminated tail kept", `text {{ tail`, `text {{ tail`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeString(t, tc.input)
			if string(got) != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	input := `{{x}} and {%if a%}{{  b | upper }}{%endif%} {#c#}`
	once := normalizeString(t, string(normalizeString(t, input)))
	twice := normalizeString(t, string(once))
	if !bytes.Equal(once, twice) {
		t.Fatalf("second pass changed the output: %q -> %q", once, twice)
	}
}

func TestNormalizeNilFile(t *testing.T) {
	if got := Normalize(nil, nil); got != nil {
		t.Fatalf("Normalize(nil) = %q, want nil", got)
	}
}
