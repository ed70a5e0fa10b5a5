package sema

import (
	"fmt"
	"sort"

	"weft/internal/ast"
	"weft/internal/diag"
	"weft/internal/schema"
)

// ParamKind constrains one declared filter argument.
type ParamKind uint8

const (
	ParamAny ParamKind = iota
	ParamString
	ParamNumber
)

func (p ParamKind) String() string {
	switch p {
	case ParamString:
		return "a string"
	case ParamNumber:
		return "a number"
	}
	return "any value"
}

// Filter is one filter's typing contract. The same registry names the
// renderer's implementations, so signatures and behavior cannot drift
// apart silently.
type Filter struct {
	Name string

	// Params declares the positional arguments; arguments past MinArgs
	// are optional.
	Params  []ParamKind
	MinArgs int

	// Input restricts the piped value's kind; empty accepts anything.
	Input []schema.Kind

	// Result computes the output type from the concrete input type, which
	// may be nil when the input is unknown.
	Result func(in *schema.Type) *schema.Type
}

func (f *Filter) acceptsInput(k schema.Kind) bool {
	if len(f.Input) == 0 {
		return true
	}
	for _, in := range f.Input {
		if in == k {
			return true
		}
	}
	return false
}

// arity renders the acceptable argument count for messages.
func (f *Filter) arity() string {
	switch {
	case len(f.Params) == 0:
		return "no arguments"
	case f.MinArgs == len(f.Params):
		return fmt.Sprintf("%d argument(s)", len(f.Params))
	default:
		return fmt.Sprintf("%d to %d arguments", f.MinArgs, len(f.Params))
	}
}

// FilterSet is a name-keyed filter registry.
type FilterSet struct {
	byName map[string]*Filter
}

func NewFilterSet(filters ...*Filter) *FilterSet {
	s := &FilterSet{byName: make(map[string]*Filter, len(filters))}
	for _, f := range filters {
		s.Register(f)
	}
	return s
}

// Register adds or replaces a filter. Call during setup only; the set is
// read concurrently once checking starts.
func (s *FilterSet) Register(f *Filter) {
	s.byName[f.Name] = f
}

func (s *FilterSet) Lookup(name string) (*Filter, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Names lists registered filters in sorted order.
func (s *FilterSet) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtinFilters = NewFilterSet(
	&Filter{Name: "upper", Input: []schema.Kind{schema.String}, Result: resultString},
	&Filter{Name: "lower", Input: []schema.Kind{schema.String}, Result: resultString},
	&Filter{Name: "title", Input: []schema.Kind{schema.String}, Result: resultString},
	&Filter{Name: "capitalize", Input: []schema.Kind{schema.String}, Result: resultString},
	&Filter{Name: "trim", Input: []schema.Kind{schema.String}, Result: resultString},
	&Filter{Name: "truncate", Params: []ParamKind{ParamNumber}, MinArgs: 1,
		Input: []schema.Kind{schema.String}, Result: resultString},
	&Filter{Name: "replace", Params: []ParamKind{ParamString, ParamString}, MinArgs: 2,
		Input: []schema.Kind{schema.String}, Result: resultString},
	&Filter{Name: "default", Params: []ParamKind{ParamAny}, MinArgs: 1,
		Result: resultDefault},
	&Filter{Name: "length",
		Input:  []schema.Kind{schema.String, schema.Array, schema.Tuple, schema.Object},
		Result: resultNumber},
	&Filter{Name: "join", Params: []ParamKind{ParamString}, MinArgs: 1,
		Input: []schema.Kind{schema.Array, schema.Tuple}, Result: resultString},
	&Filter{Name: "first", Input: []schema.Kind{schema.String, schema.Array, schema.Tuple},
		Result: resultElem(false)},
	&Filter{Name: "last", Input: []schema.Kind{schema.String, schema.Array, schema.Tuple},
		Result: resultElem(true)},
	&Filter{Name: "abs", Input: []schema.Kind{schema.Number}, Result: resultNumber},
	&Filter{Name: "round", Input: []schema.Kind{schema.Number}, Result: resultNumber},
)

// Builtins returns the shared builtin registry. Treat it as read-only; to
// extend, build a NewFilterSet and hand it to Options.Filters.
func Builtins() *FilterSet { return builtinFilters }

func resultString(*schema.Type) *schema.Type { return typeString }
func resultNumber(*schema.Type) *schema.Type { return typeNumber }

// resultDefault strips null from the input type: after `| default(x)` the
// value cannot be null anymore, so `note | default("") | upper` checks
// clean when note is `string | null`.
func resultDefault(in *schema.Type) *schema.Type {
	if in == nil || in.Kind != schema.Union {
		return in
	}
	var kept []*schema.Type
	for _, alt := range in.Alts {
		if alt != nil && alt.Kind == schema.Null {
			continue
		}
		kept = append(kept, alt)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &schema.Type{Kind: schema.Union, Alts: kept}
	}
}

// resultElem yields the element type for first/last.
func resultElem(last bool) func(*schema.Type) *schema.Type {
	return func(in *schema.Type) *schema.Type {
		if in == nil {
			return nil
		}
		switch in.Kind {
		case schema.String:
			return typeString
		case schema.Array:
			return in.Elem
		case schema.Tuple:
			if len(in.Items) == 0 {
				return nil
			}
			if last {
				return in.Items[len(in.Items)-1]
			}
			return in.Items[0]
		}
		return nil
	}
}

// applyFilter checks one step of an output's filter chain and returns the
// chained value type.
func (c *checker) applyFilter(in *schema.Type, f *ast.FilterCall) *schema.Type {
	if f.Name.Name == "" {
		return nil
	}
	sig, ok := c.filters.Lookup(f.Name.Name)
	if !ok {
		b := diag.ReportError(c.opts.Reporter, diag.SemaUnknownFilter, f.Name.Loc,
			fmt.Sprintf("unknown filter %q", f.Name.Name))
		if near := nearestName(f.Name.Name, c.filters.Names()); near != "" {
			b.WithFix(fmt.Sprintf("replace with %q", near),
				diag.FixEdit{Span: f.Name.Loc, NewText: near})
		}
		b.Emit()
		for _, a := range f.Args {
			c.typeExpr(a) // keep path diagnostics inside the arguments
		}
		return nil
	}

	if len(f.Args) < sig.MinArgs || len(f.Args) > len(sig.Params) {
		diag.ReportError(c.opts.Reporter, diag.SemaTypeMismatch, f.Loc,
			fmt.Sprintf("filter %q takes %s, got %d", sig.Name, sig.arity(), len(f.Args))).Emit()
		for _, a := range f.Args {
			c.typeExpr(a)
		}
		return nil
	}

	for i, a := range f.Args {
		at := c.concrete(c.typeExpr(a))
		if at == nil {
			continue
		}
		switch sig.Params[i] {
		case ParamString:
			if at.Kind != schema.String {
				c.filterArgMismatch(sig, i, a, at)
			}
		case ParamNumber:
			if at.Kind != schema.Number {
				c.filterArgMismatch(sig, i, a, at)
			}
		}
	}

	ic := c.concrete(in)
	if ic != nil && !sig.acceptsInput(ic.Kind) {
		diag.ReportError(c.opts.Reporter, diag.SemaTypeMismatch, f.Loc,
			fmt.Sprintf("filter %q cannot apply to %s", sig.Name, ic)).Emit()
		return nil
	}
	if sig.Result == nil {
		return nil
	}
	return sig.Result(ic)
}

func (c *checker) filterArgMismatch(sig *Filter, i int, a ast.Expr, at *schema.Type) {
	diag.ReportError(c.opts.Reporter, diag.SemaTypeMismatch, a.Span(),
		fmt.Sprintf("filter %q argument %d must be %s, got %s", sig.Name, i+1, sig.Params[i], at)).Emit()
}
