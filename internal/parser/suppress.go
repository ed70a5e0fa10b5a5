package parser

import (
	"fmt"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/source"
	"weft/internal/token"
)

// CollectSuppressions extracts `weft-ignore` directives from comment
// regions. A directive covers its own line and the following one; when an
// if or for block opens inside that window, the window widens to the whole
// block, so a directive placed above a block silences the code throughout
// it. Directives naming an unknown diagnostic get a warning instead of
// silently matching nothing.
//
// doc may be nil when parsing produced no tree; widening is then skipped.
// The checks behind the suppressed codes still run, only their reports are
// filtered, so a directive never hides unrelated findings on the same line.
func CollectSuppressions(tokens []token.Token, doc *ast.Document, file *source.File, r diag.Reporter) []diag.Suppression {
	var sups []diag.Suppression
	for _, tok := range tokens {
		if tok.Kind != token.Comment {
			continue
		}
		id, ok := diag.ParseSuppression(tok.Raw)
		if !ok {
			continue
		}
		if !diag.KnownID(id) {
			if r != nil {
				r.Report(diag.SynUnknownSuppression, diag.SevWarning, tok.Span,
					fmt.Sprintf("%s names unknown diagnostic %q", diag.SuppressPrefix, id), nil, nil)
			}
			continue
		}
		sups = append(sups, diag.Suppression{ID: id, Span: suppressionWindow(tok, doc, file)})
	}
	return sups
}

// suppressionWindow computes the directive's byte range: its line plus the
// next, widened over any block opening inside that range.
func suppressionWindow(tok token.Token, doc *ast.Document, file *source.File) source.Span {
	if file == nil || file.Lines == nil {
		return tok.Span
	}
	line := file.Lines.PosAt(tok.Span.Start).Line
	start, _ := file.Lines.LineSpan(line)
	// end of the following line, newline included; LineSpan clamps past the
	// last line to the file size
	winEnd, _ := file.Lines.LineSpan(line + 2)

	// only blocks opening inside the original two-line window widen it;
	// blocks that merely start inside the widened range do not chain
	end := winEnd
	if doc != nil {
		ast.Walk(doc, func(n ast.Node) bool {
			var open source.Span
			switch x := n.(type) {
			case *ast.If:
				open = x.Tag.Loc
			case *ast.For:
				open = x.Tag.Loc
			default:
				return true
			}
			if open.Start >= start && open.Start < winEnd && n.Span().End > end {
				end = n.Span().End
			}
			return true
		})
	}
	return source.Span{File: tok.Span.File, Start: start, End: end}
}
