// Package eval renders a parsed template against decoded host data. The
// checker reports problems without rendering; this package is the other
// consumer of the typed tree, and the two agree on scoping, truthiness,
// and the filter registry.
package eval

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/schema"
	"weft/internal/sema"
	"weft/internal/source"
)

// DefaultMaxDepth caps include nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 16

// Options configures one render.
type Options struct {
	// Schema enables render-time constraint validation of values pulled
	// from the host data.
	Schema *schema.Schema

	// Resolver supplies include targets. Rendering an include without one
	// is an error; checking tolerates it, rendering cannot.
	Resolver sema.Resolver

	// Filters overrides the builtin registry.
	Filters *Registry

	// Reporter receives SCHEMA_VIOLATION findings. Violations do not stop
	// the render; the value is written as-is.
	Reporter diag.Reporter

	// MaxDepth caps include nesting; zero means DefaultMaxDepth.
	MaxDepth int
}

// Error is a render fault anchored to the template position that caused
// it.
type Error struct {
	Span source.Span
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func errAt(sp source.Span, format string, args ...any) *Error {
	return &Error{Span: sp, Msg: fmt.Sprintf(format, args...)}
}

// Serializer turns a document plus data into host-format output.
// Alternative serializers can stream, indent, or re-encode; the contract
// is only that the document's semantics are respected.
type Serializer interface {
	Serialize(w io.Writer, doc *ast.Document, data map[string]any) error
}

// TextSerializer is the plain serializer: rendered text goes to the
// writer byte for byte.
type TextSerializer struct {
	Opts Options
}

func (s TextSerializer) Serialize(w io.Writer, doc *ast.Document, data map[string]any) error {
	return Render(w, doc, data, s.Opts)
}

// Render evaluates doc against data and writes the output. The first
// hard fault (bad operand kinds at runtime, unresolved include, include
// cycle, write error) stops the render and is returned, usually as an
// *Error carrying the source span.
func Render(w io.Writer, doc *ast.Document, data map[string]any, opts Options) error {
	if doc == nil {
		return nil
	}
	r := &renderer{w: w, opts: opts, data: data, filters: opts.Filters}
	if r.filters == nil {
		r.filters = Builtins()
	}
	r.pushScope()
	err := r.renderNodes(doc.Children)
	r.popScope()
	return err
}

type renderer struct {
	w       io.Writer
	opts    Options
	data    map[string]any
	filters *Registry
	scopes  []map[string]any
	chain   []string // include names on the active path, for cycles
}

func (r *renderer) pushScope() { r.scopes = append(r.scopes, make(map[string]any)) }
func (r *renderer) popScope()  { r.scopes = r.scopes[:len(r.scopes)-1] }

func (r *renderer) maxDepth() int {
	if r.opts.MaxDepth > 0 {
		return r.opts.MaxDepth
	}
	return DefaultMaxDepth
}

func (r *renderer) renderNodes(nodes []ast.Node) error {
	for _, n := range nodes {
		if err := r.renderNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderNode(n ast.Node) error {
	switch n := n.(type) {
	case *ast.Text:
		_, err := io.WriteString(r.w, n.Content)
		return err
	case *ast.Output:
		return r.renderOutput(n)
	case *ast.If:
		return r.renderIf(n)
	case *ast.For:
		return r.renderFor(n)
	case *ast.Set:
		return r.renderSet(n)
	case *ast.Include:
		return r.renderInclude(n)
	}
	return nil
}

func (r *renderer) renderOutput(n *ast.Output) error {
	v, err := r.evalBase(n.Base)
	if err != nil {
		return err
	}
	for i := range n.Filters {
		v, err = r.applyFilter(v, &n.Filters[i])
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(r.w, stringify(v))
	return err
}

// evalBase evaluates an output's base expression. A plain path whose head
// comes from the host data is additionally validated against its declared
// schema type; violations are reported but the value still renders.
func (r *renderer) evalBase(e ast.Expr) (any, error) {
	p, ok := e.(*ast.Path)
	if !ok {
		return r.evalExpr(e)
	}
	v, present, err := r.evalPath(p)
	if err != nil {
		return nil, err
	}
	if present && r.opts.Schema != nil {
		if t := r.declaredType(p); t != nil {
			if verr := r.opts.Schema.Validate(v, t); verr != nil {
				diag.ReportError(r.opts.Reporter, diag.SemaSchemaViolation, p.Loc,
					fmt.Sprintf("%s: %v", pathString(p), verr)).Emit()
			}
		}
	}
	return v, nil
}

// declaredType chases a path through the schema root. Locally bound heads
// have no declared type; neither does any path that leaves the declared
// tree.
func (r *renderer) declaredType(p *ast.Path) *schema.Type {
	s := r.opts.Schema
	if s == nil || len(p.Segments) == 0 {
		return nil
	}
	if _, bound := r.localValue(p.Segments[0].Name); bound {
		return nil
	}
	t, err := s.Resolve(s.Root)
	if err != nil {
		return nil
	}
	for _, seg := range p.Segments {
		if t == nil {
			return nil
		}
		switch t.Kind {
		case schema.Object:
			if t.Fields == nil {
				return nil
			}
			ft, ok := t.Fields.Get(seg.Name)
			if !ok {
				return nil
			}
			t = ft
		case schema.Array:
			if !isIndex(seg.Name) {
				return nil
			}
			t = t.Elem
		case schema.Tuple:
			n, ok := indexOf(seg.Name)
			if !ok || n >= len(t.Items) {
				return nil
			}
			t = t.Items[n]
		default:
			return nil
		}
		if t, err = s.Resolve(t); err != nil {
			return nil
		}
	}
	return t
}

func (r *renderer) renderIf(n *ast.If) error {
	take, err := r.condTaken(n.Cond)
	if err != nil {
		return err
	}
	if take {
		return r.renderBody(n.Body)
	}
	for i := range n.Elifs {
		take, err = r.condTaken(n.Elifs[i].Cond)
		if err != nil {
			return err
		}
		if take {
			return r.renderBody(n.Elifs[i].Body)
		}
	}
	if n.Else != nil {
		return r.renderBody(n.Else.Body)
	}
	return nil
}

// condTaken evaluates a condition by truthiness. A nil condition, left
// behind by parse recovery, counts as false.
func (r *renderer) condTaken(cond ast.Expr) (bool, error) {
	if cond == nil {
		return false, nil
	}
	v, err := r.evalExpr(cond)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func (r *renderer) renderBody(nodes []ast.Node) error {
	r.pushScope()
	err := r.renderNodes(nodes)
	r.popScope()
	return err
}

func (r *renderer) renderFor(n *ast.For) error {
	if n.Iter == nil {
		return nil
	}
	v, err := r.evalExpr(n.Iter)
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok {
		return errAt(n.Iter.Span(), "cannot iterate %s; \"for\" needs an array", kindOf(v))
	}

	length := len(items)
	for i, item := range items {
		// One scope per pass: a set inside the body does not leak into
		// the next iteration.
		r.pushScope()
		r.bind(n.Var.Name, item)
		r.bind("loop", map[string]any{
			"index":  float64(i),
			"first":  i == 0,
			"last":   i == length-1,
			"length": float64(length),
		})
		err = r.renderNodes(n.Body)
		r.popScope()
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderSet(n *ast.Set) error {
	if n.Name.Name == "" {
		return nil
	}
	v, err := r.evalExpr(n.Value)
	if err != nil {
		return err
	}
	r.bind(n.Name.Name, v)
	return nil
}

func (r *renderer) renderInclude(n *ast.Include) error {
	if n.Name == "" {
		return nil
	}
	if r.opts.Resolver == nil {
		return errAt(n.NameLoc, "include %q needs a template resolver", n.Name)
	}
	if slices.Contains(r.chain, n.Name) {
		return errAt(n.NameLoc, "include cycle: %s", strings.Join(append(r.chain, n.Name), " -> "))
	}
	if len(r.chain) >= r.maxDepth() {
		return errAt(n.NameLoc, "includes nest deeper than %d", r.maxDepth())
	}
	target, ok := r.opts.Resolver.Resolve(n.Name)
	if !ok {
		return errAt(n.NameLoc, "include %q does not resolve to a known template", n.Name)
	}

	// The included template sees the caller's bindings.
	r.chain = append(r.chain, n.Name)
	err := r.renderNodes(target.Children)
	r.chain = r.chain[:len(r.chain)-1]
	return err
}

// bind sets a name in the innermost scope.
func (r *renderer) bind(name string, v any) {
	r.scopes[len(r.scopes)-1][name] = v
}

// localValue finds a name bound by set or for, innermost first.
func (r *renderer) localValue(name string) (any, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if v, ok := r.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

func pathString(p *ast.Path) string {
	parts := make([]string, len(p.Segments))
	for i, seg := range p.Segments {
		parts[i] = seg.Name
	}
	return strings.Join(parts, ".")
}
