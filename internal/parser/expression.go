package parser

import (
	"fmt"
	"strconv"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/token"
)

// Binding strength, loosest first. `not` sits between the boolean
// connectives and the comparisons, so `not a == b` negates the comparison
// while `not a and b` negates only a.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAdd
	precMul
)

func binaryPrec(k token.TagKind) (int, ast.BinaryOp, bool) {
	switch k {
	case token.TagKwOr:
		return precOr, ast.OpOr, true
	case token.TagKwAnd:
		return precAnd, ast.OpAnd, true
	case token.TagEqEq:
		return precCompare, ast.OpEq, true
	case token.TagBangEq:
		return precCompare, ast.OpNe, true
	case token.TagLt:
		return precCompare, ast.OpLt, true
	case token.TagLtEq:
		return precCompare, ast.OpLe, true
	case token.TagGt:
		return precCompare, ast.OpGt, true
	case token.TagGtEq:
		return precCompare, ast.OpGe, true
	case token.TagKwIn:
		return precCompare, ast.OpIn, true
	case token.TagPlus:
		return precAdd, ast.OpAdd, true
	case token.TagMinus:
		return precAdd, ast.OpSub, true
	case token.TagStar:
		return precMul, ast.OpMul, true
	case token.TagSlash:
		return precMul, ast.OpDiv, true
	case token.TagPercent:
		return precMul, ast.OpMod, true
	}
	return 0, 0, false
}

// parseExpr parses one expression from the current tag.
func (p *Parser) parseExpr() (ast.Expr, bool) {
	return p.parseBinary(0)
}

// parseBinary climbs the binary operator tiers. Every tier is left
// associative, so the right operand parses one level tighter.
func (p *Parser) parseBinary(minPrec int) (ast.Expr, bool) {
	left, ok := p.parseOperand(minPrec)
	if !ok {
		return nil, false
	}
	for {
		prec, op, isBin := binaryPrec(p.tagPeek().Kind)
		if !isBin || prec < minPrec {
			return left, true
		}
		p.tagAdvance()
		right, ok := p.parseBinary(prec + 1)
		if !ok {
			return nil, false
		}
		left = &ast.Binary{Op: op, X: left, Y: right, Loc: left.Span().Cover(right.Span())}
	}
}

// parseOperand handles the prefix `not` tier and hands the rest down.
func (p *Parser) parseOperand(minPrec int) (ast.Expr, bool) {
	if minPrec <= precNot && p.tagAt(token.TagKwNot) {
		tok := p.tagAdvance()
		x, ok := p.parseBinary(precNot)
		if !ok {
			return nil, false
		}
		return &ast.Unary{Op: ast.OpNot, X: x, Loc: tok.Span.Cover(x.Span())}, true
	}
	return p.parseUnary()
}

func (p *Parser) parseUnary() (ast.Expr, bool) {
	if p.tagAt(token.TagMinus) {
		tok := p.tagAdvance()
		x, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		return &ast.Unary{Op: ast.OpNeg, X: x, Loc: tok.Span.Cover(x.Span())}, true
	}
	return p.parsePostfix()
}

// parsePostfix extends a primary with dotted segments. Only name paths dot;
// member access on arbitrary values is not part of the language. Numeric
// segments are allowed for tuple indexing and validated semantically.
func (p *Parser) parsePostfix() (ast.Expr, bool) {
	x, ok := p.parsePrimary()
	if !ok {
		return nil, false
	}
	for p.tagAt(token.TagDot) {
		dot := p.tagAdvance()
		seg := p.tagPeek()
		if seg.Kind != token.TagIdent && seg.Kind != token.TagNumber {
			p.report(diag.SynMalformedExpression, diag.SevError, p.diagSpan(),
				`expected a name or index after "."`)
			return nil, false
		}
		p.tagAdvance()
		path, isPath := x.(*ast.Path)
		if !isPath {
			p.report(diag.SynMalformedExpression, diag.SevError, dot.Span.Cover(seg.Span),
				"dotted access is only valid on a name path")
			return nil, false
		}
		path.Segments = append(path.Segments, ast.Ident{Name: seg.Text, Loc: seg.Span})
		path.Loc = path.Loc.Cover(seg.Span)
	}
	return x, true
}

func (p *Parser) parsePrimary() (ast.Expr, bool) {
	tok := p.tagPeek()
	switch tok.Kind {
	case token.TagIdent:
		p.tagAdvance()
		return &ast.Path{Segments: []ast.Ident{{Name: tok.Text, Loc: tok.Span}}, Loc: tok.Span}, true
	case token.TagNumber:
		p.tagAdvance()
		val, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.report(diag.SynMalformedExpression, diag.SevError, tok.Span,
				fmt.Sprintf("invalid number literal %q", tok.Text))
			return nil, false
		}
		return &ast.NumberLit{Value: val, Raw: tok.Text, Loc: tok.Span}, true
	case token.TagString:
		p.tagAdvance()
		return &ast.StringLit{Value: tok.Text, Loc: tok.Span}, true
	case token.TagTrue, token.TagFalse:
		p.tagAdvance()
		return &ast.BoolLit{Value: tok.Kind == token.TagTrue, Loc: tok.Span}, true
	case token.TagNull:
		p.tagAdvance()
		return &ast.NullLit{Loc: tok.Span}, true
	case token.TagLParen:
		p.tagAdvance()
		x, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.tagExpect(token.TagRParen, diag.SynMalformedExpression, `expected ")" to close the group`); !ok {
			return nil, false
		}
		return x, true
	case token.TagLBracket:
		return p.parseList()
	case token.TagInvalid:
		// reported by the scanner when the tag was set
		p.tagAdvance()
		return nil, false
	case token.TagEOF:
		p.err(diag.SynMalformedExpression, "expected an expression")
		return nil, false
	default:
		p.report(diag.SynMalformedExpression, diag.SevError, tok.Span,
			fmt.Sprintf("expected an expression, got %q", tok.Text))
		p.tagAdvance()
		return nil, false
	}
}

// parseList parses a bracketed literal. A trailing comma before the closing
// bracket is allowed.
func (p *Parser) parseList() (ast.Expr, bool) {
	open := p.tagAdvance()
	n := &ast.ListLit{}
	for !p.tagAt(token.TagRBracket) {
		item, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		n.Items = append(n.Items, item)
		if !p.tagAt(token.TagComma) {
			break
		}
		p.tagAdvance()
	}
	cl, ok := p.tagExpect(token.TagRBracket, diag.SynMalformedExpression, `expected "]" to close the list`)
	if !ok {
		return nil, false
	}
	n.Loc = open.Span.Cover(cl.Span)
	return n, true
}

// parseFilterChain parses `| name(args...)` steps after a base expression.
// Steps apply left to right at evaluation time; whether a name exists is a
// semantic question, not a syntactic one.
func (p *Parser) parseFilterChain() ([]ast.FilterCall, bool) {
	var filters []ast.FilterCall
	for p.tagAt(token.TagPipe) {
		pipe := p.tagAdvance()
		name, ok := p.tagExpect(token.TagIdent, diag.SynMalformedExpression, `expected a filter name after "|"`)
		if !ok {
			p.skipTag()
			return filters, false
		}
		f := ast.FilterCall{
			Name: ast.Ident{Name: name.Text, Loc: name.Span},
			Loc:  pipe.Span.Cover(name.Span),
		}
		if p.tagAt(token.TagLParen) {
			p.tagAdvance()
			if !p.tagAt(token.TagRParen) {
				for {
					arg, argOK := p.parseExpr()
					if !argOK {
						p.skipTag()
						return filters, false
					}
					f.Args = append(f.Args, arg)
					if !p.tagAt(token.TagComma) {
						break
					}
					p.tagAdvance()
				}
			}
			rp, closeOK := p.tagExpect(token.TagRParen, diag.SynMalformedExpression, `expected ")" to close the filter arguments`)
			if !closeOK {
				filters = append(filters, f)
				p.skipTag()
				return filters, false
			}
			f.Loc = f.Loc.Cover(rp.Span)
		}
		filters = append(filters, f)
	}
	return filters, true
}
