package ast

import (
	"strings"

	"weft/internal/source"
)

// Path is a dotted value reference: `user.name` has segments [user, name].
// A bare identifier is a single-segment path.
type Path struct {
	Segments []Ident
	Loc      source.Span
}

func (n *Path) Span() source.Span { return n.Loc }
func (n *Path) node()             {}
func (n *Path) expr()             {}

// String joins the segments for messages: "user.name".
func (n *Path) String() string {
	parts := make([]string, len(n.Segments))
	for i, s := range n.Segments {
		parts[i] = s.Name
	}
	return strings.Join(parts, ".")
}

type StringLit struct {
	Value string
	Loc   source.Span
}

func (n *StringLit) Span() source.Span { return n.Loc }
func (n *StringLit) node()             {}
func (n *StringLit) expr()             {}

type NumberLit struct {
	Value float64
	Raw   string
	Loc   source.Span
}

func (n *NumberLit) Span() source.Span { return n.Loc }
func (n *NumberLit) node()             {}
func (n *NumberLit) expr()             {}

type BoolLit struct {
	Value bool
	Loc   source.Span
}

func (n *BoolLit) Span() source.Span { return n.Loc }
func (n *BoolLit) node()             {}
func (n *BoolLit) expr()             {}

type NullLit struct {
	Loc source.Span
}

func (n *NullLit) Span() source.Span { return n.Loc }
func (n *NullLit) node()             {}
func (n *NullLit) expr()             {}

// ListLit is a bracketed literal: `[1, 2, 3]`.
type ListLit struct {
	Items []Expr
	Loc   source.Span
}

func (n *ListLit) Span() source.Span { return n.Loc }
func (n *ListLit) node()             {}
func (n *ListLit) expr()             {}

type UnaryOp uint8

const (
	// OpNot is boolean negation, `not x`.
	OpNot UnaryOp = iota
	// OpNeg is arithmetic negation, `-x`.
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "not"
	case OpNeg:
		return "-"
	}
	return "?"
}

type Unary struct {
	Op  UnaryOp
	X   Expr
	Loc source.Span
}

func (n *Unary) Span() source.Span { return n.Loc }
func (n *Unary) node()             {}
func (n *Unary) expr()             {}

type BinaryOp uint8

const (
	OpAdd BinaryOp = iota // +
	OpSub                 // -
	OpMul                 // *
	OpDiv                 // /
	OpMod                 // %
	OpEq                  // ==
	OpNe                  // !=
	OpLt                  // <
	OpLe                  // <=
	OpGt                  // >
	OpGe                  // >=
	OpAnd                 // and
	OpOr                  // or
	OpIn                  // in
)

var binaryOpNames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "and",
	OpOr:  "or",
	OpIn:  "in",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports whether the operator yields a boolean from two
// comparable operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// IsLogical reports whether the operator combines booleans.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsArithmetic reports whether the operator computes a number (or, for
// OpAdd, a string concatenation).
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	default:
		return false
	}
}

type Binary struct {
	Op   BinaryOp
	X, Y Expr
	Loc  source.Span
}

func (n *Binary) Span() source.Span { return n.Loc }
func (n *Binary) node()             {}
func (n *Binary) expr()             {}
