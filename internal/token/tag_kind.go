package token

// TagKind categorizes a token inside a tag region.
type TagKind uint8

const (
	// TagInvalid indicates an erroneous tag token.
	TagInvalid TagKind = iota
	// TagEOF marks the end of a tag region.
	TagEOF

	// TagIdent represents an identifier.
	TagIdent
	// TagNumber represents a numeric literal.
	TagNumber
	// TagString represents a quoted string literal.
	TagString
	// TagTrue represents the 'true' literal.
	TagTrue
	// TagFalse represents the 'false' literal.
	TagFalse
	// TagNull represents the 'null' literal.
	TagNull

	// TagKwIf represents the 'if' keyword.
	TagKwIf // if
	// TagKwElif represents the 'elif' keyword.
	TagKwElif // elif
	// TagKwElse represents the 'else' keyword.
	TagKwElse // else
	// TagKwFor represents the 'for' keyword.
	TagKwFor // for
	// TagKwIn represents the 'in' keyword.
	TagKwIn // in
	// TagKwSet represents the 'set' keyword.
	TagKwSet // set
	// TagKwInclude represents the 'include' keyword.
	TagKwInclude // include
	// TagKwEnd represents the 'end' keyword.
	TagKwEnd // end
	// TagKwAnd represents the 'and' operator keyword.
	TagKwAnd // and
	// TagKwOr represents the 'or' operator keyword.
	TagKwOr // or
	// TagKwNot represents the 'not' operator keyword.
	TagKwNot // not

	// TagPlus represents '+'.
	TagPlus // +
	// TagMinus represents '-'.
	TagMinus // -
	// TagStar represents '*'.
	TagStar // *
	// TagSlash represents '/'.
	TagSlash // /
	// TagPercent represents '%'.
	TagPercent // %
	// TagEqEq represents '=='.
	TagEqEq // ==
	// TagBangEq represents '!='.
	TagBangEq // !=
	// TagLt represents '<'.
	TagLt // <
	// TagLtEq represents '<='.
	TagLtEq // <=
	// TagGt represents '>'.
	TagGt // >
	// TagGtEq represents '>='.
	TagGtEq // >=
	// TagAssign represents '='.
	TagAssign // =
	// TagPipe represents the filter separator '|'.
	TagPipe // |
	// TagDot represents '.'.
	TagDot // .
	// TagComma represents ','.
	TagComma // ,
	// TagLParen represents '('.
	TagLParen // (
	// TagRParen represents ')'.
	TagRParen // )
	// TagLBracket represents '['.
	TagLBracket // [
	// TagRBracket represents ']'.
	TagRBracket // ]
)

var tagKindNames = [...]string{
	TagInvalid:   "invalid",
	TagEOF:       "eof",
	TagIdent:     "ident",
	TagNumber:    "number",
	TagString:    "string",
	TagTrue:      "true",
	TagFalse:     "false",
	TagNull:      "null",
	TagKwIf:      "if",
	TagKwElif:    "elif",
	TagKwElse:    "else",
	TagKwFor:     "for",
	TagKwIn:      "in",
	TagKwSet:     "set",
	TagKwInclude: "include",
	TagKwEnd:     "end",
	TagKwAnd:     "and",
	TagKwOr:      "or",
	TagKwNot:     "not",
	TagPlus:      "+",
	TagMinus:     "-",
	TagStar:      "*",
	TagSlash:     "/",
	TagPercent:   "%",
	TagEqEq:      "==",
	TagBangEq:    "!=",
	TagLt:        "<",
	TagLtEq:      "<=",
	TagGt:        ">",
	TagGtEq:      ">=",
	TagAssign:    "=",
	TagPipe:      "|",
	TagDot:       ".",
	TagComma:     ",",
	TagLParen:    "(",
	TagRParen:    ")",
	TagLBracket:  "[",
	TagRBracket:  "]",
}

func (k TagKind) String() string {
	if int(k) < len(tagKindNames) {
		return tagKindNames[k]
	}
	return "unknown"
}
