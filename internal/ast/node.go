// Package ast defines the typed syntax tree for weft templates.
//
// The node set is closed: Node and Expr are sealed interfaces, so a kind
// switch over their implementations is exhaustive and adding a node type
// breaks every consumer at compile time rather than silently at runtime.
// Every node carries the source span of the region it was parsed from;
// parents own their children and the tree is acyclic by construction.
// Include nodes reference other documents by name only, never by pointer.
package ast

import (
	"weft/internal/source"
)

// Node is one element of the template tree.
type Node interface {
	Span() source.Span
	node()
}

// Expr is one element of the expression sub-language inside tags.
type Expr interface {
	Node
	expr()
}

// Ident is a name with its location. Used for loop variables, set targets,
// filter names, and path segments; bare value references are Path exprs.
type Ident struct {
	Name string
	Loc  source.Span
}

// Tag records the source extent and trim marks of one delimited tag. The
// renderer and the projection layer both consult the trim flags, so they
// survive parsing verbatim.
type Tag struct {
	Loc       source.Span
	TrimLeft  bool
	TrimRight bool
}

// Zero reports whether the tag was never filled in (a recovered block with
// no end tag).
func (t Tag) Zero() bool {
	return t == Tag{}
}
