package token

import (
	"weft/internal/source"
)

// Token is one region of the template document. Span covers the whole
// delimited range including delimiters and trim markers; Raw holds only the
// inner content and Inner is its absolute extent, so positions inside a tag
// map back to the document without knowing the delimiter widths. For Text
// tokens Inner equals Span.
type Token struct {
	Kind      Kind
	Span      source.Span
	Inner     source.Span
	Raw       string
	TrimLeft  bool // open marker carried the trim mark
	TrimRight bool // close marker carried the trim mark
}

// IsTag reports whether the token is a delimited region rather than text.
func (t Token) IsTag() bool { return t.Kind != Text }

// TagToken is one lexical unit inside a Statement or Expression region.
type TagToken struct {
	Kind TagKind
	Span source.Span
	Text string
}

// IsLiteral reports whether the token is a literal value.
func (t TagToken) IsLiteral() bool {
	switch t.Kind {
	case TagNumber, TagString, TagTrue, TagFalse, TagNull:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is a statement or operator keyword.
func (t TagToken) IsKeyword() bool {
	switch t.Kind {
	case TagKwIf, TagKwElif, TagKwElse, TagKwFor, TagKwIn, TagKwSet,
		TagKwInclude, TagKwEnd, TagKwAnd, TagKwOr, TagKwNot:
		return true
	default:
		return false
	}
}

// IsIdent reports whether the token is an identifier.
func (t TagToken) IsIdent() bool { return t.Kind == TagIdent }
