package eval

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"weft/internal/ast"
)

// Func implements one filter. The piped value arrives first, evaluated
// arguments after; errors come back positioned by the caller.
type Func func(v any, args []any) (any, error)

// Registry maps filter names to implementations. The checker's FilterSet
// declares the same names with their typing contracts; the two registries
// are kept aligned by test.
type Registry struct {
	byName map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Func)}
}

// Register adds or replaces a filter. Call during setup only.
func (r *Registry) Register(name string, fn Func) {
	r.byName[name] = fn
}

func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.byName[name]
	return fn, ok
}

// Names lists registered filters in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtins = func() *Registry {
	r := NewRegistry()
	r.Register("upper", stringFilter(strings.ToUpper))
	r.Register("lower", stringFilter(strings.ToLower))
	r.Register("title", filterTitle)
	r.Register("capitalize", filterCapitalize)
	r.Register("trim", stringFilter(strings.TrimSpace))
	r.Register("truncate", filterTruncate)
	r.Register("replace", filterReplace)
	r.Register("default", filterDefault)
	r.Register("length", filterLength)
	r.Register("join", filterJoin)
	r.Register("first", filterFirst)
	r.Register("last", filterLast)
	r.Register("abs", numberFilter(math.Abs))
	r.Register("round", numberFilter(math.Round))
	return r
}()

// Builtins returns the shared builtin registry. Treat it as read-only; to
// extend, build a NewRegistry and hand it to Options.Filters.
func Builtins() *Registry { return builtins }

func (r *renderer) applyFilter(v any, f *ast.FilterCall) (any, error) {
	if f.Name.Name == "" {
		return v, nil
	}
	fn, ok := r.filters.Lookup(f.Name.Name)
	if !ok {
		return nil, errAt(f.Name.Loc, "unknown filter %q", f.Name.Name)
	}
	args := make([]any, len(f.Args))
	for i, a := range f.Args {
		av, err := r.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = av
	}
	out, err := fn(v, args)
	if err != nil {
		return nil, errAt(f.Loc, "filter %q: %v", f.Name.Name, err)
	}
	return out, nil
}

func needString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("cannot apply to %s", kindOf(v))
	}
	return s, nil
}

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i+1)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string, got %s", i+1, kindOf(args[i]))
	}
	return s, nil
}

func argNumber(args []any, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	f, ok := num(args[i])
	if !ok {
		return 0, fmt.Errorf("argument %d must be a number, got %s", i+1, kindOf(args[i]))
	}
	return f, nil
}

func stringFilter(fn func(string) string) Func {
	return func(v any, _ []any) (any, error) {
		s, err := needString(v)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func numberFilter(fn func(float64) float64) Func {
	return func(v any, _ []any) (any, error) {
		f, ok := num(v)
		if !ok {
			return nil, fmt.Errorf("cannot apply to %s", kindOf(v))
		}
		return fn(f), nil
	}
}

func filterTitle(v any, _ []any) (any, error) {
	s, err := needString(v)
	if err != nil {
		return nil, err
	}
	// Casers carry state, so each call gets a fresh one.
	return cases.Title(language.Und).String(s), nil
}

func filterCapitalize(v any, _ []any) (any, error) {
	s, err := needString(v)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return s, nil
	}
	first, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(first)) + strings.ToLower(s[size:]), nil
}

func filterTruncate(v any, args []any) (any, error) {
	s, err := needString(v)
	if err != nil {
		return nil, err
	}
	f, err := argNumber(args, 0)
	if err != nil {
		return nil, err
	}
	n := int(f)
	if n < 0 {
		n = 0
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s, nil
	}
	return string(runes[:n]) + "...", nil
}

func filterReplace(v any, args []any) (any, error) {
	s, err := needString(v)
	if err != nil {
		return nil, err
	}
	old, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	renew, err := argString(args, 1)
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(s, old, renew), nil
}

// filterDefault substitutes the fallback for null only. Empty strings and
// zeros are values the author produced; null means absent.
func filterDefault(v any, args []any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing argument 1")
	}
	if v == nil {
		return args[0], nil
	}
	return v, nil
}

func filterLength(v any, _ []any) (any, error) {
	switch v := v.(type) {
	case string:
		return float64(utf8.RuneCountInString(v)), nil
	case []any:
		return float64(len(v)), nil
	case map[string]any:
		return float64(len(v)), nil
	}
	return nil, fmt.Errorf("cannot apply to %s", kindOf(v))
}

func filterJoin(v any, args []any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("cannot apply to %s", kindOf(v))
	}
	sep, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = stringify(item)
	}
	return strings.Join(parts, sep), nil
}

func filterFirst(v any, _ []any) (any, error) {
	return pickEnd(v, false)
}

func filterLast(v any, _ []any) (any, error) {
	return pickEnd(v, true)
}

// pickEnd returns the first or last element; empty inputs yield null so a
// default filter can take over.
func pickEnd(v any, last bool) (any, error) {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		runes := []rune(v)
		if last {
			return string(runes[len(runes)-1]), nil
		}
		return string(runes[0]), nil
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		if last {
			return v[len(v)-1], nil
		}
		return v[0], nil
	}
	return nil, fmt.Errorf("cannot apply to %s", kindOf(v))
}
