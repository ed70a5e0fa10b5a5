package sema

import (
	"fmt"
	"strconv"
	"strings"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/schema"
)

var (
	typeString  = &schema.Type{Kind: schema.String}
	typeNumber  = &schema.Type{Kind: schema.Number}
	typeBoolean = &schema.Type{Kind: schema.Boolean}
	typeNull    = &schema.Type{Kind: schema.Null}
)

// typeExpr infers the static type of an expression, nil meaning unknown.
// Reporting happens at the failure site; an unknown operand never produces
// further diagnostics upstream.
func (c *checker) typeExpr(e ast.Expr) *schema.Type {
	switch e := e.(type) {
	case *ast.Path:
		return c.typePath(e)
	case *ast.StringLit:
		return typeString
	case *ast.NumberLit:
		return typeNumber
	case *ast.BoolLit:
		return typeBoolean
	case *ast.NullLit:
		return typeNull
	case *ast.ListLit:
		return c.typeList(e)
	case *ast.Unary:
		return c.typeUnary(e)
	case *ast.Binary:
		return c.typeBinary(e)
	}
	return nil
}

// typePath resolves a dotted path through the scope stack, then member by
// member through the schema.
func (c *checker) typePath(p *ast.Path) *schema.Type {
	if len(p.Segments) == 0 {
		return nil
	}
	head := p.Segments[0]
	if b := c.lookup(head.Name); b != nil {
		cur := b.typ
		for i := 1; i < len(p.Segments); i++ {
			cur = c.memberType(cur, p, i)
		}
		return cur
	}
	if c.closedNames {
		b := diag.ReportError(c.opts.Reporter, diag.SemaUndefinedVariable, head.Loc,
			fmt.Sprintf("undefined variable %q", head.Name))
		if near := nearestName(head.Name, c.visibleNames()); near != "" {
			b.WithFix(fmt.Sprintf("replace with %q", near),
				diag.FixEdit{Span: head.Loc, NewText: near})
		}
		b.Emit()
	}
	return nil
}

// memberType resolves segment idx of the path against the type of the
// prefix before it. Unknown prefixes stay unknown without a report.
func (c *checker) memberType(cur *schema.Type, p *ast.Path, idx int) *schema.Type {
	t := c.concrete(cur)
	if t == nil {
		return nil
	}
	seg := p.Segments[idx]
	prefix := pathPrefix(p, idx)

	switch t.Kind {
	case schema.Object:
		if t.Fields == nil {
			return nil // open object: members exist but are untyped
		}
		if ft, ok := t.Fields.Get(seg.Name); ok {
			return ft
		}
		b := diag.ReportError(c.opts.Reporter, diag.SemaUndefinedVariable, seg.Loc,
			fmt.Sprintf("%q is not a property of %q", seg.Name, prefix))
		names := t.Fields.Names()
		if len(names) > 0 && len(names) <= 6 {
			b.WithNote(seg.Loc, "available: "+strings.Join(names, ", "))
		}
		if near := nearestName(seg.Name, names); near != "" {
			b.WithFix(fmt.Sprintf("replace with %q", near),
				diag.FixEdit{Span: seg.Loc, NewText: near})
		}
		b.Emit()
		return nil
	case schema.Array:
		if _, ok := segmentIndex(seg.Name); ok {
			return t.Elem
		}
	case schema.Tuple:
		if n, ok := segmentIndex(seg.Name); ok {
			if n < len(t.Items) {
				return t.Items[n]
			}
			diag.ReportError(c.opts.Reporter, diag.SemaUndefinedVariable, seg.Loc,
				fmt.Sprintf("%q has no element %d in %s", prefix, n, t)).Emit()
			return nil
		}
	case schema.Union:
		// Alternatives may disagree on the member; leave it unknown and
		// let the renderer decide.
		return nil
	}

	diag.ReportError(c.opts.Reporter, diag.SemaUndefinedVariable, seg.Loc,
		fmt.Sprintf("%q has no member %q (it is %s)", prefix, seg.Name, t)).Emit()
	return nil
}

func pathPrefix(p *ast.Path, idx int) string {
	parts := make([]string, idx)
	for i := range parts {
		parts[i] = p.Segments[i].Name
	}
	return strings.Join(parts, ".")
}

func segmentIndex(name string) (int, bool) {
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// typeList types each item and keeps the element type only when the items
// agree on one.
func (c *checker) typeList(l *ast.ListLit) *schema.Type {
	items := make([]*schema.Type, len(l.Items))
	for i, it := range l.Items {
		items[i] = c.typeExpr(it)
	}
	return &schema.Type{Kind: schema.Array, Elem: c.commonType(items)}
}

// commonType returns the one kind every element shares, or nil.
func (c *checker) commonType(items []*schema.Type) *schema.Type {
	if len(items) == 0 {
		return nil
	}
	first := c.concrete(items[0])
	if first == nil {
		return nil
	}
	for _, it := range items[1:] {
		t := c.concrete(it)
		if t == nil || t.Kind != first.Kind {
			return nil
		}
	}
	return first
}

func (c *checker) typeUnary(u *ast.Unary) *schema.Type {
	t := c.concrete(c.typeExpr(u.X))
	switch u.Op {
	case ast.OpNot:
		// `not` coerces by truthiness, so any operand type is legal.
		return typeBoolean
	case ast.OpNeg:
		if t == nil {
			return nil
		}
		if t.Kind == schema.Number {
			return typeNumber
		}
		diag.ReportError(c.opts.Reporter, diag.SemaTypeMismatch, u.Loc,
			fmt.Sprintf("unary %q needs a number, got %s", "-", t)).Emit()
		return nil
	}
	return nil
}

func (c *checker) typeBinary(b *ast.Binary) *schema.Type {
	lt := c.typeExpr(b.X)
	rt := c.typeExpr(b.Y)
	lc, rc := c.concrete(lt), c.concrete(rt)

	switch {
	case b.Op.IsArithmetic():
		return c.typeArithmetic(b, lc, rc)
	case b.Op.IsComparison():
		return c.typeComparison(b, lc, rc)
	case b.Op.IsLogical():
		// and/or return one of their operands by truthiness; the static
		// type survives only when both sides agree.
		if lc != nil && rc != nil && lc.Kind == rc.Kind {
			return lc
		}
		return nil
	case b.Op == ast.OpIn:
		return c.typeMembership(b, lc, rc)
	}
	return nil
}

func (c *checker) typeArithmetic(b *ast.Binary, lc, rc *schema.Type) *schema.Type {
	if b.Op == ast.OpAdd {
		if kindIs(lc, schema.String) && kindIs(rc, schema.String) {
			return typeString
		}
		if kindIs(lc, schema.Number) && kindIs(rc, schema.Number) {
			return typeNumber
		}
		if lc != nil && rc != nil {
			c.mismatch(b, fmt.Sprintf("operator %q needs two numbers or two strings, got %s and %s", b.Op, lc, rc))
			return nil
		}
		// One side unknown: the known one must at least be addable.
		for _, t := range []*schema.Type{lc, rc} {
			if t != nil && t.Kind != schema.Number && t.Kind != schema.String {
				c.mismatch(b, fmt.Sprintf("operator %q cannot apply to %s", b.Op, t))
				return nil
			}
		}
		return nil
	}

	if kindIs(lc, schema.Number) && kindIs(rc, schema.Number) {
		return typeNumber
	}
	for _, t := range []*schema.Type{lc, rc} {
		if t != nil && t.Kind != schema.Number {
			c.mismatch(b, fmt.Sprintf("operator %q needs number operands, got %s", b.Op, t))
			return nil
		}
	}
	return nil
}

func (c *checker) typeComparison(b *ast.Binary, lc, rc *schema.Type) *schema.Type {
	if b.Op == ast.OpEq || b.Op == ast.OpNe {
		// Equality admits any pair (null checks are idiomatic), but a
		// literal compared against a constrained type is checked against
		// those constraints: the comparison can otherwise never be true.
		c.constraintCheck(b.Y, lc)
		c.constraintCheck(b.X, rc)
		return typeBoolean
	}

	// Ordering needs two numbers or two strings.
	ordered := func(t *schema.Type) bool {
		return t.Kind == schema.Number || t.Kind == schema.String
	}
	if lc != nil && rc != nil {
		if lc.Kind != rc.Kind || !ordered(lc) {
			c.mismatch(b, fmt.Sprintf("operator %q cannot order %s and %s", b.Op, lc, rc))
		}
		return typeBoolean
	}
	for _, t := range []*schema.Type{lc, rc} {
		if t != nil && !ordered(t) {
			c.mismatch(b, fmt.Sprintf("operator %q cannot order %s", b.Op, t))
		}
	}
	return typeBoolean
}

func (c *checker) typeMembership(b *ast.Binary, lc, rc *schema.Type) *schema.Type {
	if rc == nil {
		return typeBoolean
	}
	switch rc.Kind {
	case schema.Array:
		if elem := c.concrete(rc.Elem); elem != nil && lc != nil && lc.Kind != elem.Kind {
			c.mismatch(b, fmt.Sprintf("operator %q: %s can never be an element of %s", b.Op, lc, rc))
		}
	case schema.Tuple:
		// Mixed element kinds are normal for tuples; nothing to check.
	case schema.String:
		if lc != nil && lc.Kind != schema.String {
			c.mismatch(b, fmt.Sprintf("operator %q needs a string needle for a string haystack, got %s", b.Op, lc))
		}
	case schema.Object:
		if lc != nil && lc.Kind != schema.String {
			c.mismatch(b, fmt.Sprintf("operator %q looks up object keys, which are strings, got %s", b.Op, lc))
		}
	case schema.Union:
		// Some alternative may be a container; leave it to the renderer.
	default:
		c.mismatch(b, fmt.Sprintf("operator %q needs a container on the right, got %s", b.Op, rc))
	}
	return typeBoolean
}

// constraintCheck flags a literal that a constrained type can never equal.
func (c *checker) constraintCheck(lit ast.Expr, against *schema.Type) {
	if against == nil || against.Constraints.Empty() {
		return
	}
	cons := &against.Constraints

	switch l := lit.(type) {
	case *ast.StringLit:
		if len(cons.Enum) > 0 {
			if !enumHas(cons.Enum, l.Value) {
				diag.ReportError(c.opts.Reporter, diag.SemaSchemaViolation, l.Loc,
					fmt.Sprintf("%q is not among the allowed values %v", l.Value, cons.Enum)).Emit()
			}
			return
		}
		if cons.Pattern != "" && !cons.Matches(l.Value) {
			diag.ReportError(c.opts.Reporter, diag.SemaSchemaViolation, l.Loc,
				fmt.Sprintf("%q does not match pattern %q", l.Value, cons.Pattern)).Emit()
			return
		}
		n := len([]rune(l.Value))
		if cons.MinLen != nil && n < *cons.MinLen {
			diag.ReportError(c.opts.Reporter, diag.SemaSchemaViolation, l.Loc,
				fmt.Sprintf("%q is shorter than the minimum length %d", l.Value, *cons.MinLen)).Emit()
		} else if cons.MaxLen != nil && n > *cons.MaxLen {
			diag.ReportError(c.opts.Reporter, diag.SemaSchemaViolation, l.Loc,
				fmt.Sprintf("%q is longer than the maximum length %d", l.Value, *cons.MaxLen)).Emit()
		}
	case *ast.NumberLit:
		if len(cons.Enum) > 0 && !enumHas(cons.Enum, l.Value) {
			diag.ReportError(c.opts.Reporter, diag.SemaSchemaViolation, l.Loc,
				fmt.Sprintf("%v is not among the allowed values %v", l.Value, cons.Enum)).Emit()
		}
	}
}

func enumHas(enum []any, v any) bool {
	for _, allowed := range enum {
		if allowed == v {
			return true
		}
	}
	return false
}

func kindIs(t *schema.Type, k schema.Kind) bool {
	return t != nil && t.Kind == k
}

func (c *checker) mismatch(b *ast.Binary, msg string) {
	diag.ReportError(c.opts.Reporter, diag.SemaTypeMismatch, b.Loc, msg).Emit()
}
