package parser

import (
	"slices"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/source"
	"weft/internal/token"
)

// Options configures one parse run.
type Options struct {
	MaxErrors     uint // 0 means unlimited
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough reports whether the error budget is spent.
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

// Parser holds the state for one document. Statement headers never
// interleave, so a single current-tag register is enough: by the time a
// block body is parsed, the opening tag has been fully consumed.
type Parser struct {
	regions  []token.Token
	pos      int
	opts     Options
	lastSpan source.Span

	tag    []token.TagToken
	tagPos int
}

// Parse builds the document tree from the region token stream. Diagnostics
// go to the reporter in opts. The result is nil only when nothing parsed
// successfully and at least one error was reported; callers use that to
// short-circuit semantic analysis instead of checking a broken tree.
func Parse(tokens []token.Token, opts Options) *ast.Document {
	p := &Parser{regions: tokens, opts: opts}
	startErrors := opts.CurrentErrors
	children, _, _ := p.parseNodes()
	if len(children) == 0 && p.opts.CurrentErrors > startErrors {
		return nil
	}
	doc := &ast.Document{Children: children}
	if len(tokens) > 0 {
		doc.Loc = tokens[0].Span.Cover(tokens[len(tokens)-1].Span)
	}
	return doc
}

// tagHead is one freshly scanned statement region: the region token plus the
// kind of its first tag token. For keyword heads the keyword is already
// consumed; anything else is left in place for the dispatcher to look at.
type tagHead struct {
	region token.Token
	kw     token.TagKind
}

// parseNodes parses sibling nodes until a statement region opens with one of
// the stop keywords, or the region stream ends. On a stop the scanned header
// stays current so the caller keeps parsing the clause from after the
// keyword. Zero-length text regions carry no content and produce no node.
func (p *Parser) parseNodes(stops ...token.TagKind) ([]ast.Node, tagHead, bool) {
	var children []ast.Node
	for p.pos < len(p.regions) {
		reg := p.regions[p.pos]
		switch reg.Kind {
		case token.Text:
			content := p.trimText(reg)
			p.pos++
			if content != "" {
				children = append(children, &ast.Text{Content: content, Loc: reg.Span})
			}
		case token.Comment:
			// suppression directives are collected separately
			p.pos++
		case token.Expression:
			p.pos++
			if n, ok := p.parseOutput(reg); ok {
				children = append(children, n)
			}
		case token.Statement:
			head := p.scanStatement()
			if slices.Contains(stops, head.kw) {
				return children, head, true
			}
			if n, ok := p.parseStatement(head); ok {
				children = append(children, n)
			}
		}
	}
	return children, tagHead{}, false
}

// trimText applies neighboring trim marks to a text region's content. A
// tag closing with the trim mark eats the whitespace after it; one opening
// with the mark eats the whitespace before it. Comments participate even
// though they produce no node, and the span keeps the original extent. The
// projection layer applies the same helpers to the token stream, so the
// rendered text and the cleaned view agree byte for byte.
func (p *Parser) trimText(reg token.Token) string {
	content := reg.Raw
	if i := p.pos - 1; i >= 0 && p.regions[i].IsTag() && p.regions[i].TrimRight {
		content = content[token.TrimmedPrefixLen(content):]
	}
	if i := p.pos + 1; i < len(p.regions) && p.regions[i].IsTag() && p.regions[i].TrimLeft {
		content = content[:len(content)-token.TrimmedSuffixLen(content)]
	}
	return content
}

// scanStatement consumes the statement region at the cursor, scans its
// content, and classifies the head.
func (p *Parser) scanStatement() tagHead {
	reg := p.regions[p.pos]
	p.pos++
	p.setTag(reg)

	head := tagHead{region: reg, kw: p.tagPeek().Kind}
	switch head.kw {
	case token.TagKwIf, token.TagKwElif, token.TagKwElse, token.TagKwFor,
		token.TagKwSet, token.TagKwInclude, token.TagKwEnd:
		p.tagAdvance()
	}
	return head
}

// setTag makes reg's content the current tag. Scanner faults are reported
// here, once, through the parser's budgeted path; the TagInvalid tokens they
// leave behind are not reported again downstream.
func (p *Parser) setTag(reg token.Token) {
	toks, errs := scanTag(reg.Raw, reg.Span.File, reg.Inner.Start)
	for _, e := range errs {
		p.report(diag.SynMalformedExpression, diag.SevError, e.Span, e.Msg)
	}
	p.tag = toks
	p.tagPos = 0
}

func (p *Parser) tagPeek() token.TagToken {
	if p.tagPos < len(p.tag) {
		return p.tag[p.tagPos]
	}
	if n := len(p.tag); n > 0 {
		return p.tag[n-1]
	}
	return token.TagToken{Kind: token.TagEOF}
}

func (p *Parser) tagAt(k token.TagKind) bool {
	return p.tagPeek().Kind == k
}

func (p *Parser) tagAdvance() token.TagToken {
	tok := p.tagPeek()
	if tok.Kind != token.TagEOF {
		p.tagPos++
		p.lastSpan = tok.Span
	}
	return tok
}

// skipTag parks the cursor on the tag's EOF token, abandoning whatever is
// left; the next region is the resynchronization point.
func (p *Parser) skipTag() {
	if n := len(p.tag); n > 0 {
		p.tagPos = n - 1
	}
}

// tagExpect consumes the wanted token or reports with the best available
// anchor and stays put.
func (p *Parser) tagExpect(k token.TagKind, code diag.Code, msg string) (token.TagToken, bool) {
	if p.tagAt(k) {
		return p.tagAdvance(), true
	}
	sp := p.diagSpan()
	p.report(code, diag.SevError, sp, msg)
	return token.TagToken{Kind: token.TagInvalid, Span: sp}, false
}

// diagSpan picks an anchor for a diagnostic at the current tag position.
// The scanner gives TagEOF a zero-width span at the end of the tag content,
// so the usual case needs no correction.
func (p *Parser) diagSpan() source.Span {
	sp := p.tagPeek().Span
	if sp == (source.Span{}) && p.lastSpan.End > 0 {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return sp
}

func (p *Parser) err(code diag.Code, msg string) bool {
	return p.report(code, diag.SevError, p.diagSpan(), msg)
}

// report routes every parser diagnostic through the error budget. Once the
// budget is spent nothing more is emitted, errors and warnings alike.
func (p *Parser) report(code diag.Code, sev diag.Severity, sp source.Span, msg string) bool {
	if p.opts.Reporter == nil {
		if sev == diag.SevError {
			p.opts.CurrentErrors++
		}
		return false
	}
	if p.opts.Enough() {
		return false
	}
	if sev == diag.SevError {
		p.opts.CurrentErrors++
	}
	p.opts.Reporter.Report(code, sev, sp, msg, nil, nil)
	return true
}
