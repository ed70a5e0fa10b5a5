// Package sema type-checks parsed templates. With a schema it types every
// dotted path, operator, and filter chain; without one it degrades to
// structural checks (filter names, include cycles, binding bookkeeping).
// A failed check yields one diagnostic and types the failed subexpression
// as unknown, so a single mistake never cascades across the document.
package sema

import (
	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/schema"
	"weft/internal/source"
)

// Resolver serves include targets by name. Implementations usually sit in
// front of the workspace's parse cache; resolution never re-typechecks the
// target, it only exposes the parsed tree for cycle walking.
type Resolver interface {
	Resolve(name string) (*ast.Document, bool)
}

// Options configure one checking pass over one document.
type Options struct {
	Reporter diag.Reporter

	// Schema types dotted paths. Nil degrades to structural checks only.
	Schema *schema.Schema

	// Resolver serves include targets. Nil skips include checks entirely.
	Resolver Resolver

	// Filters overrides the builtin registry; nil means Builtins().
	Filters *FilterSet

	// DocName is this document's include name, cited as the root of any
	// include-cycle chain.
	DocName string
}

// Check walks the document and reports findings through opts.Reporter.
// A nil document never runs: when the parse produced no tree, its own
// diagnostics are the whole story and semantic noise on top would be
// misleading.
func Check(doc *ast.Document, opts Options) {
	if doc == nil {
		return
	}
	c := &checker{opts: opts, filters: opts.Filters}
	if c.filters == nil {
		c.filters = Builtins()
	}
	// Schema seeds get their own scope below the document scope, so a
	// top-level set of a schema name shadows (and warns) rather than
	// silently replacing the document value.
	c.pushRootScope()
	c.pushScope()
	c.walkNodes(doc.Children)
	c.leaveScope()
	c.leaveScope()
}

type checker struct {
	opts    Options
	filters *FilterSet
	scopes  []*scope

	// closedNames is set when the schema declares the full set of root
	// names, so an unknown head segment is an error rather than a gap.
	closedNames bool
}

func (c *checker) walkNodes(nodes []ast.Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *ast.Output:
			c.checkOutput(n)
		case *ast.If:
			c.checkIf(n)
		case *ast.For:
			c.checkFor(n)
		case *ast.Set:
			c.checkSet(n)
		case *ast.Include:
			c.checkInclude(n)
		}
	}
}

// concrete chases references so callers can switch on the kind. Unresolved
// references read as unknown; the schema loader already reported them.
func (c *checker) concrete(t *schema.Type) *schema.Type {
	if t == nil || t.Kind != schema.Reference {
		return t
	}
	if c.opts.Schema == nil {
		return nil
	}
	rt, err := c.opts.Schema.Resolve(t)
	if err != nil {
		return nil
	}
	return rt
}

// pushRootScope seeds the outermost scope from the schema root's
// properties.
func (c *checker) pushRootScope() {
	c.pushScope()
	sch := c.opts.Schema
	if sch == nil {
		return
	}
	root := c.concrete(sch.Root)
	if root == nil {
		return
	}
	if root.Kind != schema.Object {
		// A non-object document has no named values at all.
		c.closedNames = true
		return
	}
	if root.Fields == nil {
		return // open object: any name, unknown type
	}
	c.closedNames = true
	for _, name := range root.Fields.Names() {
		t, _ := root.Fields.Get(name)
		c.bind(name, t, source.Span{}, bindSchema)
	}
}
