package ast

import (
	"weft/internal/source"
)

// Document is the root block of one parsed template.
type Document struct {
	Children []Node
	Loc      source.Span
}

func (n *Document) Span() source.Span { return n.Loc }
func (n *Document) node()             {}

// Text is literal host-format content copied through untouched.
type Text struct {
	Content string
	Loc     source.Span
}

func (n *Text) Span() source.Span { return n.Loc }
func (n *Text) node()             {}

// Output is an expression tag: a base expression piped through zero or more
// filters, rendered into the host document.
type Output struct {
	Base    Expr
	Filters []FilterCall
	Tag     Tag
}

func (n *Output) Span() source.Span { return n.Tag.Loc }
func (n *Output) node()             {}

// FilterCall is one step of an Output filter chain, applied left to right.
type FilterCall struct {
	Name Ident
	Args []Expr
	Loc  source.Span
}

// If is a conditional block. `else if` parses into the same Elifs list as
// `elif`; the two surface forms are indistinguishable past this point.
type If struct {
	Tag    Tag
	Cond   Expr
	Body   []Node
	Elifs  []ElifClause
	Else   *ElseClause
	EndTag Tag
	Loc    source.Span
}

func (n *If) Span() source.Span { return n.Loc }
func (n *If) node()             {}

type ElifClause struct {
	Tag  Tag
	Cond Expr
	Body []Node
}

type ElseClause struct {
	Tag  Tag
	Body []Node
}

// For is an iteration block binding Var for each element of Iter.
type For struct {
	Tag    Tag
	Var    Ident
	Iter   Expr
	Body   []Node
	EndTag Tag
	Loc    source.Span
}

func (n *For) Span() source.Span { return n.Loc }
func (n *For) node()             {}

// Set binds a name in the current scope; visible to subsequent siblings.
type Set struct {
	Tag   Tag
	Name  Ident
	Value Expr
}

func (n *Set) Span() source.Span { return n.Tag.Loc }
func (n *Set) node()             {}

// Include splices another template by name. Resolution happens in the
// checker and the renderer, never at parse time.
type Include struct {
	Tag     Tag
	Name    string
	NameLoc source.Span
}

func (n *Include) Span() source.Span { return n.Tag.Loc }
func (n *Include) node()             {}
