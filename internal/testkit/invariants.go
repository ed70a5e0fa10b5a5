// Package testkit carries invariant checkers shared by tests across
// packages.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"weft/internal/ast"
	"weft/internal/source"
)

// CheckSpanInvariants walks a parsed document and verifies every node span:
// the document span lies within the file content, every node span is well
// formed and stamped with the document's file, and every node span falls
// inside the document span. Zero-value spans pass the file check; parse
// recovery leaves them on nodes that never saw a token.
func CheckSpanInvariants(doc *ast.Document, sf *source.File) error {
	if doc == nil || sf == nil {
		return fmt.Errorf("nil document or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	root := doc.Loc
	if root.End < root.Start {
		return fmt.Errorf("document span is inverted: %v", root)
	}
	if root.End > lenContent {
		return fmt.Errorf("document span ends beyond content: %d > %d", root.End, lenContent)
	}
	if !root.Empty() && root.File != sf.ID {
		return fmt.Errorf("document span points at file %d, content is file %d", root.File, sf.ID)
	}

	var fail error
	ast.Walk(doc, func(n ast.Node) bool {
		if _, isRoot := n.(*ast.Document); isRoot {
			return true
		}
		sp := n.Span()
		switch {
		case sp.End < sp.Start:
			fail = fmt.Errorf("%T span is inverted: %v", n, sp)
		case !sp.Empty() && sp.File != sf.ID:
			fail = fmt.Errorf("%T span points at file %d, want %d", n, sp.File, sf.ID)
		case sp.Start < root.Start || sp.End > root.End:
			fail = fmt.Errorf("%T span %v escapes the document span %v", n, sp, root)
		}
		return fail == nil
	})
	return fail
}
