package parser

import (
	"fmt"
	"strings"

	"weft/internal/source"
	"weft/internal/token"
)

// scanError is a lexical fault inside one tag region. The scanner records
// faults instead of reporting them so the parser can route everything
// through one reporting path and one error budget.
type scanError struct {
	Span source.Span
	Msg  string
}

// scanTag lexes raw tag content into tag tokens with absolute document
// spans. base is the document offset of content[0]. The stream always ends
// with a zero-width TagEOF; lexical faults additionally surface as
// TagInvalid tokens so the grammar stops at the right place without
// reporting twice.
func scanTag(content string, file source.FileID, base uint32) ([]token.TagToken, []scanError) {
	s := tagScanner{src: content, file: file, base: base}
	for s.pos < len(s.src) {
		s.next()
	}
	s.emit(token.TagEOF, len(s.src), len(s.src), "")
	return s.toks, s.errs
}

type tagScanner struct {
	src  string
	file source.FileID
	base uint32
	pos  int
	toks []token.TagToken
	errs []scanError
}

func (s *tagScanner) span(start, end int) source.Span {
	return source.Span{
		File:  s.file,
		Start: s.base + uint32(start),
		End:   s.base + uint32(end),
	}
}

func (s *tagScanner) emit(kind token.TagKind, start, end int, text string) {
	s.toks = append(s.toks, token.TagToken{Kind: kind, Span: s.span(start, end), Text: text})
}

func (s *tagScanner) fail(start, end int, msg string) {
	s.errs = append(s.errs, scanError{Span: s.span(start, end), Msg: msg})
	s.emit(token.TagInvalid, start, end, s.src[start:end])
}

// next consumes one token worth of input. Tags may span multiple lines, so
// newlines count as plain spacing.
func (s *tagScanner) next() {
	c := s.src[s.pos]
	switch {
	case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		s.pos++
	case isIdentStart(c):
		s.scanIdent()
	case c >= '0' && c <= '9':
		s.scanNumber()
	case c == '"' || c == '\'':
		s.scanString(c)
	default:
		s.scanOperator()
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (s *tagScanner) scanIdent() {
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	word := s.src[start:s.pos]
	if kind, ok := token.LookupKeyword(word); ok {
		s.emit(kind, start, s.pos, word)
		return
	}
	s.emit(token.TagIdent, start, s.pos, word)
}

// scanNumber accepts decimal literals with an optional fraction. A dot not
// followed by a digit is left for the path grammar, so `items.0` scans as
// ident, dot, number rather than a malformed literal.
func (s *tagScanner) scanNumber() {
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
		s.pos++
	}
	if s.pos+1 < len(s.src) && s.src[s.pos] == '.' && s.src[s.pos+1] >= '0' && s.src[s.pos+1] <= '9' {
		s.pos++
		for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
			s.pos++
		}
	}
	s.emit(token.TagNumber, start, s.pos, s.src[start:s.pos])
}

// scanString consumes a quoted literal and stores the decoded value in the
// token text. Both quote styles work; escapes cover the closing quote,
// backslash, and the usual whitespace shorthands.
func (s *tagScanner) scanString(quote byte) {
	start := s.pos
	s.pos++
	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case quote:
			s.pos++
			s.emit(token.TagString, start, s.pos, b.String())
			return
		case '\\':
			if s.pos+1 >= len(s.src) {
				s.pos = len(s.src)
				s.fail(start, s.pos, "unterminated string literal")
				return
			}
			esc := s.src[s.pos+1]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				s.errs = append(s.errs, scanError{
					Span: s.span(s.pos, s.pos+2),
					Msg:  fmt.Sprintf("unknown escape \\%c in string literal", esc),
				})
				b.WriteByte(esc)
			}
			s.pos += 2
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	s.fail(start, s.pos, "unterminated string literal")
}

func (s *tagScanner) scanOperator() {
	start := s.pos
	two := ""
	if s.pos+2 <= len(s.src) {
		two = s.src[s.pos : s.pos+2]
	}
	switch two {
	case "==":
		s.pos += 2
		s.emit(token.TagEqEq, start, s.pos, two)
		return
	case "!=":
		s.pos += 2
		s.emit(token.TagBangEq, start, s.pos, two)
		return
	case "<=":
		s.pos += 2
		s.emit(token.TagLtEq, start, s.pos, two)
		return
	case ">=":
		s.pos += 2
		s.emit(token.TagGtEq, start, s.pos, two)
		return
	}

	var kind token.TagKind
	switch s.src[s.pos] {
	case '+':
		kind = token.TagPlus
	case '-':
		kind = token.TagMinus
	case '*':
		kind = token.TagStar
	case '/':
		kind = token.TagSlash
	case '%':
		kind = token.TagPercent
	case '<':
		kind = token.TagLt
	case '>':
		kind = token.TagGt
	case '=':
		kind = token.TagAssign
	case '|':
		kind = token.TagPipe
	case '.':
		kind = token.TagDot
	case ',':
		kind = token.TagComma
	case '(':
		kind = token.TagLParen
	case ')':
		kind = token.TagRParen
	case '[':
		kind = token.TagLBracket
	case ']':
		kind = token.TagRBracket
	default:
		s.pos++
		s.fail(start, s.pos, fmt.Sprintf("unexpected character %q in tag", s.src[start:s.pos]))
		return
	}
	s.pos++
	s.emit(kind, start, s.pos, s.src[start:s.pos])
}
