package parser

import (
	"fmt"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/token"
)

func tagOf(reg token.Token) ast.Tag {
	return ast.Tag{Loc: reg.Span, TrimLeft: reg.TrimLeft, TrimRight: reg.TrimRight}
}

// parseStatement dispatches one scanned statement region. Stop keywords
// never reach here; parseNodes returns them to the enclosing block parser,
// so an end, else, or elif seen here is stray by definition.
func (p *Parser) parseStatement(head tagHead) (ast.Node, bool) {
	switch head.kw {
	case token.TagKwIf:
		return p.parseIf(head)
	case token.TagKwFor:
		return p.parseFor(head)
	case token.TagKwSet:
		return p.parseSet(head)
	case token.TagKwInclude:
		return p.parseInclude(head)
	case token.TagKwEnd:
		p.report(diag.SynStrayEnd, diag.SevError, head.region.Span, "end tag without an open block")
		return nil, false
	case token.TagKwElse:
		p.report(diag.SynStrayElse, diag.SevError, head.region.Span, "else tag without a matching if")
		return nil, false
	case token.TagKwElif:
		p.report(diag.SynStrayElse, diag.SevError, head.region.Span, "elif tag without a matching if")
		return nil, false
	case token.TagEOF:
		p.report(diag.SynEmptyTag, diag.SevError, head.region.Span, "statement tag is empty")
		return nil, false
	case token.TagInvalid:
		// the scanner reported this one when the tag was set
		p.skipTag()
		return nil, false
	default:
		tok := p.tagPeek()
		p.report(diag.SynUnexpectedToken, diag.SevError, tok.Span,
			fmt.Sprintf("expected a statement keyword, got %q", tok.Text))
		p.skipTag()
		return nil, false
	}
}

// parseIf parses an if chain. `else if` heads fold into the same Elifs list
// as `elif`, so the two spellings are indistinguishable downstream. A failed
// condition leaves Cond nil but the block is still built, keeping body
// diagnostics reachable in the same pass.
func (p *Parser) parseIf(head tagHead) (ast.Node, bool) {
	n := &ast.If{Tag: tagOf(head.region)}
	n.Cond = p.condAfterKeyword(head, "if condition")

	var stop tagHead
	var ok bool
	n.Body, stop, ok = p.parseNodes(token.TagKwElif, token.TagKwElse, token.TagKwEnd)
	if !ok {
		return p.unclosed("if", head)
	}

	for stop.kw == token.TagKwElif || (stop.kw == token.TagKwElse && p.tagAt(token.TagKwIf)) {
		clause := ast.ElifClause{Tag: tagOf(stop.region)}
		what := "elif condition"
		if stop.kw == token.TagKwElse {
			p.tagAdvance() // the `if` of `else if`
			what = "else if condition"
		}
		clause.Cond = p.condAfterKeyword(stop, what)
		clause.Body, stop, ok = p.parseNodes(token.TagKwElif, token.TagKwElse, token.TagKwEnd)
		n.Elifs = append(n.Elifs, clause)
		if !ok {
			return p.unclosed("if", head)
		}
	}

	if stop.kw == token.TagKwElse {
		p.finishTag("else")
		els := &ast.ElseClause{Tag: tagOf(stop.region)}
		els.Body, stop, ok = p.parseNodes(token.TagKwEnd)
		n.Else = els
		if !ok {
			return p.unclosed("if", head)
		}
	}

	p.finishTag("end")
	n.EndTag = tagOf(stop.region)
	n.Loc = head.region.Span.Cover(stop.region.Span)
	return n, true
}

func (p *Parser) parseFor(head tagHead) (ast.Node, bool) {
	n := &ast.For{Tag: tagOf(head.region)}
	if tok, ok := p.tagExpect(token.TagIdent, diag.SynMalformedExpression, "for tag needs a loop variable name"); ok {
		n.Var = ast.Ident{Name: tok.Text, Loc: tok.Span}
		if _, ok := p.tagExpect(token.TagKwIn, diag.SynMalformedExpression, `expected "in" after the loop variable`); ok {
			n.Iter = p.condAfterKeyword(head, "loop iterable")
		} else {
			p.skipTag()
		}
	} else {
		p.skipTag()
	}

	body, stop, ok := p.parseNodes(token.TagKwEnd)
	n.Body = body
	if !ok {
		return p.unclosed("for", head)
	}
	p.finishTag("end")
	n.EndTag = tagOf(stop.region)
	n.Loc = head.region.Span.Cover(stop.region.Span)
	return n, true
}

func (p *Parser) parseSet(head tagHead) (ast.Node, bool) {
	n := &ast.Set{Tag: tagOf(head.region)}
	tok, ok := p.tagExpect(token.TagIdent, diag.SynMalformedExpression, "set tag needs a variable name")
	if !ok {
		p.skipTag()
		return nil, false
	}
	n.Name = ast.Ident{Name: tok.Text, Loc: tok.Span}
	if _, ok := p.tagExpect(token.TagAssign, diag.SynMalformedExpression, `expected "=" after the variable name`); !ok {
		p.skipTag()
		return nil, false
	}
	value, ok := p.parseExpr()
	if !ok {
		p.skipTag()
		return nil, false
	}
	n.Value = value
	p.finishTag("assignment")
	return n, true
}

// parseInclude captures the template name only. Resolving it to a document
// happens in semantic analysis, which tracks the include chain for cycles.
func (p *Parser) parseInclude(head tagHead) (ast.Node, bool) {
	n := &ast.Include{Tag: tagOf(head.region)}
	tok := p.tagPeek()
	switch tok.Kind {
	case token.TagString, token.TagIdent:
		p.tagAdvance()
		n.Name = tok.Text
		n.NameLoc = tok.Span
	default:
		p.err(diag.SynMalformedExpression, "include tag needs a template name, quoted or bare")
		p.skipTag()
		return nil, false
	}
	p.finishTag("include name")
	return n, true
}

// parseOutput parses one expression region: a base expression piped through
// zero or more filters. A malformed filter chain keeps the node with the
// steps parsed so far; only a broken base drops it.
func (p *Parser) parseOutput(reg token.Token) (ast.Node, bool) {
	p.setTag(reg)
	if p.tagAt(token.TagEOF) {
		p.report(diag.SynEmptyTag, diag.SevError, reg.Span, "expression tag is empty")
		return nil, false
	}
	base, ok := p.parseExpr()
	if !ok {
		p.skipTag()
		return nil, false
	}
	n := &ast.Output{Base: base, Tag: tagOf(reg)}
	n.Filters, ok = p.parseFilterChain()
	if ok {
		p.finishTag("expression")
	}
	return n, true
}

// condAfterKeyword parses the expression a statement keyword requires,
// tolerating a missing or broken one by returning nil.
func (p *Parser) condAfterKeyword(head tagHead, what string) ast.Expr {
	if p.tagAt(token.TagEOF) {
		p.report(diag.SynMalformedExpression, diag.SevError, head.region.Span, what+" is missing")
		return nil
	}
	expr, ok := p.parseExpr()
	if !ok {
		p.skipTag()
		return nil
	}
	p.finishTag(what)
	return expr
}

// finishTag reports content left in the current tag past its grammar.
// TagInvalid leftovers were already reported by the scanner and stay silent.
func (p *Parser) finishTag(what string) {
	tok := p.tagPeek()
	if tok.Kind == token.TagEOF {
		return
	}
	if tok.Kind != token.TagInvalid {
		p.report(diag.SynUnexpectedToken, diag.SevError, tok.Span,
			fmt.Sprintf("unexpected %q after %s", tok.Text, what))
	}
	p.skipTag()
}

// unclosed reports the single diagnostic for a block that never saw its end
// tag, anchored at the opening tag. The open subtree is dropped; diagnostics
// already reported from inside it stand.
func (p *Parser) unclosed(kind string, head tagHead) (ast.Node, bool) {
	p.report(diag.SynUnclosedBlock, diag.SevError, head.region.Span,
		fmt.Sprintf("%s block is never closed; expected an end tag before end of input", kind))
	return nil, false
}
