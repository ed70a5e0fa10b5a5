package lexer

import (
	"testing"

	"weft/internal/token"
)

func TestMatcherCacheReuse(t *testing.T) {
	ResetMatchers()

	cfg := token.Default()
	first := compiledMatcher(cfg)
	second := compiledMatcher(cfg)
	if first != second {
		t.Error("same config must reuse the compiled matcher")
	}

	other := cfg
	other.TrimMark = '~'
	if compiledMatcher(other) == first {
		t.Error("different config must compile its own matcher")
	}
}

func TestMatcherReset(t *testing.T) {
	ResetMatchers()
	cfg := token.Default()
	before := compiledMatcher(cfg)
	ResetMatchers()
	after := compiledMatcher(cfg)
	if before == after {
		t.Error("reset must drop compiled matchers")
	}
}

func TestMatcherLongestFirstOrder(t *testing.T) {
	cfg := token.DelimiterConfig{
		Statement:  token.Delimiters{Open: "<%", Close: "%>"},
		Expression: token.Delimiters{Open: "<%=", Close: "%>"},
		Comment:    token.Delimiters{Open: "<%#", Close: "%>"},
		TrimMark:   '-',
	}
	m := compileMatcher(cfg)

	o, ok := m.matchAt([]byte("<%= x"), 0)
	if !ok || o.kind != token.Expression {
		t.Errorf("matchAt(<%%=) = (%v, %v), want the three-byte expression opener", o.kind, ok)
	}
	o, ok = m.matchAt([]byte("<% x"), 0)
	if !ok || o.kind != token.Statement {
		t.Errorf("matchAt(<%%) = (%v, %v), want statement", o.kind, ok)
	}
	if _, ok := m.matchAt([]byte("z"), 0); ok {
		t.Error("matchAt must reject non-opener bytes")
	}
}
