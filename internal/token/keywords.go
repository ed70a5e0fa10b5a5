package token

var keywords = map[string]TagKind{
	"if":      TagKwIf,
	"elif":    TagKwElif,
	"else":    TagKwElse,
	"for":     TagKwFor,
	"in":      TagKwIn,
	"set":     TagKwSet,
	"include": TagKwInclude,
	"end":     TagKwEnd,
	"and":     TagKwAnd,
	"or":      TagKwOr,
	"not":     TagKwNot,
	"true":    TagTrue,
	"false":   TagFalse,
	"null":    TagNull,
}

// LookupKeyword maps an identifier to its keyword kind, if it is one.
// Keywords are case sensitive; only lowercase spellings are recognized.
func LookupKeyword(ident string) (TagKind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
