package token

// Kind categorizes a region of the template document.
type Kind uint8

const (
	// Text is literal host-format content between tags.
	Text Kind = iota
	// Statement is a control region, `{% ... %}` under default delimiters.
	Statement
	// Expression is an output region, `{{ ... }}` under default delimiters.
	Expression
	// Comment is a comment region, `{# ... #}` under default delimiters.
	Comment
)

var kindNames = [...]string{
	Text:       "text",
	Statement:  "statement",
	Expression: "expression",
	Comment:    "comment",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}
