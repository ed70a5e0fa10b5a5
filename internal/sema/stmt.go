package sema

import (
	"fmt"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/schema"
	"weft/internal/source"
)

// loopRecord is the implicit `loop` binding available inside for bodies.
var loopRecord = func() *schema.Type {
	f := schema.NewFields()
	f.Set("index", typeNumber)
	f.Set("first", typeBoolean)
	f.Set("last", typeBoolean)
	f.Set("length", typeNumber)
	return &schema.Type{Kind: schema.Object, Fields: f}
}()

func (c *checker) checkOutput(n *ast.Output) {
	t := c.typeExpr(n.Base)
	for i := range n.Filters {
		t = c.applyFilter(t, &n.Filters[i])
	}
}

func (c *checker) checkIf(n *ast.If) {
	c.checkCond(n.Cond)
	c.pushScope()
	c.walkNodes(n.Body)
	c.leaveScope()
	for i := range n.Elifs {
		c.checkCond(n.Elifs[i].Cond)
		c.pushScope()
		c.walkNodes(n.Elifs[i].Body)
		c.leaveScope()
	}
	if n.Else != nil {
		c.pushScope()
		c.walkNodes(n.Else.Body)
		c.leaveScope()
	}
}

// checkCond types a condition and warns when its static type is known and
// not boolean. Unknown conditions stay silent; truthiness covers them at
// render time.
func (c *checker) checkCond(cond ast.Expr) {
	if cond == nil {
		return // parse recovery kept the block without a header expression
	}
	t := c.concrete(c.typeExpr(cond))
	if t == nil || t.Kind == schema.Boolean {
		return
	}
	diag.ReportWarning(c.opts.Reporter, diag.SemaTruthyCondition, cond.Span(),
		fmt.Sprintf("condition has type %s, not boolean; it is coerced by truthiness", t)).Emit()
}

func (c *checker) checkFor(n *ast.For) {
	var elem *schema.Type
	if n.Iter != nil {
		it := c.concrete(c.typeExpr(n.Iter))
		switch {
		case it == nil:
			// Unknown iterables are allowed; the element stays untyped.
		case it.Kind == schema.Array:
			elem = it.Elem
		case it.Kind == schema.Tuple:
			elem = c.commonType(it.Items)
		case it.Kind == schema.Union:
			// Some alternative may be iterable; leave the element unknown.
		default:
			diag.ReportError(c.opts.Reporter, diag.SemaInvalidOperation, n.Iter.Span(),
				fmt.Sprintf("cannot iterate %s; \"for\" needs an array", it)).Emit()
		}
	}

	c.pushScope()
	c.bind(n.Var.Name, elem, n.Var.Loc, bindLoop)
	c.bind("loop", loopRecord, source.Span{}, bindImplicit)
	c.walkNodes(n.Body)
	c.leaveScope()
}

func (c *checker) checkSet(n *ast.Set) {
	var t *schema.Type
	if n.Value != nil {
		t = c.typeExpr(n.Value)
	}
	c.bind(n.Name.Name, t, n.Name.Loc, bindSet)
}
