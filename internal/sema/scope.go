package sema

import (
	"fmt"

	"weft/internal/diag"
	"weft/internal/schema"
	"weft/internal/source"
)

type bindKind uint8

const (
	bindSchema bindKind = iota // seeded from the schema root
	bindSet
	bindLoop
	bindImplicit // the `loop` record
)

type binding struct {
	typ  *schema.Type // nil means unknown
	span source.Span  // zero for schema seeds and implicit bindings
	kind bindKind
	used bool
}

type scope struct {
	names map[string]*binding
	order []string // declaration order, for deterministic hints
}

func (c *checker) pushScope() {
	c.scopes = append(c.scopes, &scope{names: make(map[string]*binding)})
}

// leaveScope pops the innermost scope and reports explicit bindings that
// were never read.
func (c *checker) leaveScope() {
	top := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	for _, name := range top.order {
		b := top.names[name]
		if b.used || (b.kind != bindSet && b.kind != bindLoop) {
			continue
		}
		diag.ReportHint(c.opts.Reporter, diag.SemaUnusedVariable, b.span,
			fmt.Sprintf("%q is bound but never used", name)).Emit()
	}
}

// bind declares name in the current scope, warning when it shadows an
// outer binding. Rebinding within the same scope replaces silently: that
// is mutation, not shadowing.
func (c *checker) bind(name string, t *schema.Type, sp source.Span, kind bindKind) {
	if name == "" {
		return // parse recovery left the statement without a target
	}
	top := c.scopes[len(c.scopes)-1]
	if _, here := top.names[name]; !here {
		if kind == bindSet || kind == bindLoop {
			if outer := c.lookupOuter(name); outer != nil {
				b := diag.ReportWarning(c.opts.Reporter, diag.SemaShadowedVariable, sp,
					fmt.Sprintf("%q shadows an earlier binding", name))
				if !outer.span.Empty() {
					b.WithNote(outer.span, "earlier binding here")
				}
				b.Emit()
			}
		}
		top.order = append(top.order, name)
	}
	top.names[name] = &binding{typ: t, span: sp, kind: kind}
}

// lookup finds a name innermost-out and marks it used.
func (c *checker) lookup(name string) *binding {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i].names[name]; ok {
			b.used = true
			return b
		}
	}
	return nil
}

// lookupOuter searches every scope except the current one, without
// touching the used flag.
func (c *checker) lookupOuter(name string) *binding {
	for i := len(c.scopes) - 2; i >= 0; i-- {
		if b, ok := c.scopes[i].names[name]; ok {
			return b
		}
	}
	return nil
}

// markAllUsed flags every visible binding as read. Includes may consume
// any binding in scope, so an include counts as a use of everything.
func (c *checker) markAllUsed() {
	for _, s := range c.scopes {
		for _, b := range s.names {
			b.used = true
		}
	}
}
