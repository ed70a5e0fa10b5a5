package sema

import (
	"fmt"
	"strings"

	"weft/internal/ast"
	"weft/internal/diag"
)

func (c *checker) checkInclude(n *ast.Include) {
	// An included template may read any binding in scope, so an include
	// counts as a use of everything visible here.
	c.markAllUsed()

	if n.Name == "" || c.opts.Resolver == nil {
		return
	}
	target, ok := c.opts.Resolver.Resolve(n.Name)
	if !ok {
		diag.ReportError(c.opts.Reporter, diag.SemaUnresolvedInclude, n.NameLoc,
			fmt.Sprintf("include %q does not resolve to a known template", n.Name)).Emit()
		return
	}

	root := c.rootName()
	if n.Name == root {
		c.reportCycle(n, []string{root, n.Name})
		return
	}
	on := map[string]bool{root: true, n.Name: true}
	c.findCycle(target, n, []string{root, n.Name}, on, make(map[string]bool))
}

func (c *checker) rootName() string {
	if c.opts.DocName != "" {
		return c.opts.DocName
	}
	return "(document)"
}

// findCycle walks include edges depth-first looking for a name already on
// the in-progress chain. Each include site reports at most one cycle, and
// the done set keeps diamond-shaped include graphs from re-walking shared
// subtrees, so the walk is bounded by the number of documents.
func (c *checker) findCycle(doc *ast.Document, site *ast.Include, chain []string, on, done map[string]bool) bool {
	for _, edge := range includeEdges(doc) {
		name := edge.Name
		if name == "" {
			continue
		}
		if on[name] {
			c.reportCycle(site, append(chain, name))
			return true
		}
		if done[name] {
			continue
		}
		next, ok := c.opts.Resolver.Resolve(name)
		if !ok {
			// The target document earns its own UNRESOLVED_INCLUDE when
			// it is checked; reporting it here would double up.
			continue
		}
		on[name] = true
		hit := c.findCycle(next, site, append(chain, name), on, done)
		delete(on, name)
		done[name] = true
		if hit {
			return true
		}
	}
	return false
}

func includeEdges(doc *ast.Document) []*ast.Include {
	var edges []*ast.Include
	ast.Walk(doc, func(n ast.Node) bool {
		if inc, ok := n.(*ast.Include); ok {
			edges = append(edges, inc)
		}
		return true
	})
	return edges
}

func (c *checker) reportCycle(site *ast.Include, chain []string) {
	diag.ReportError(c.opts.Reporter, diag.SemaIncludeCycle, site.NameLoc,
		fmt.Sprintf("include cycle: %s", strings.Join(chain, " -> "))).Emit()
}
