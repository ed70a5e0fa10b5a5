package eval

import (
	"math"
	"strconv"
	"strings"

	"weft/internal/ast"
)

func (r *renderer) evalExpr(e ast.Expr) (any, error) {
	switch e := e.(type) {
	case *ast.Path:
		v, _, err := r.evalPath(e)
		return v, err
	case *ast.StringLit:
		return e.Value, nil
	case *ast.NumberLit:
		return e.Value, nil
	case *ast.BoolLit:
		return e.Value, nil
	case *ast.NullLit:
		return nil, nil
	case *ast.ListLit:
		items := make([]any, len(e.Items))
		for i, it := range e.Items {
			v, err := r.evalExpr(it)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil
	case *ast.Unary:
		return r.evalUnary(e)
	case *ast.Binary:
		return r.evalBinary(e)
	case nil:
		return nil, nil
	}
	return nil, nil
}

// evalPath walks scopes then host data, then member by member through the
// value. A missing head or member is not a render fault; the value is
// absent and prints as nothing. The checker owns undefined-name errors.
func (r *renderer) evalPath(p *ast.Path) (v any, present bool, err error) {
	if len(p.Segments) == 0 {
		return nil, false, nil
	}
	head := p.Segments[0].Name
	v, present = r.localValue(head)
	if !present && r.data != nil {
		v, present = r.data[head]
	}
	if !present {
		return nil, false, nil
	}
	for _, seg := range p.Segments[1:] {
		v, present = member(v, seg.Name)
		if !present {
			return nil, false, nil
		}
	}
	return v, true, nil
}

// member resolves one path segment against a container value.
func member(v any, name string) (any, bool) {
	switch v := v.(type) {
	case map[string]any:
		m, ok := v[name]
		return m, ok
	case []any:
		n, ok := indexOf(name)
		if !ok || n >= len(v) {
			return nil, false
		}
		return v[n], true
	}
	return nil, false
}

func indexOf(name string) (int, bool) {
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isIndex(name string) bool {
	_, ok := indexOf(name)
	return ok
}

func (r *renderer) evalUnary(u *ast.Unary) (any, error) {
	v, err := r.evalExpr(u.X)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case ast.OpNot:
		return !truthy(v), nil
	case ast.OpNeg:
		f, ok := num(v)
		if !ok {
			return nil, errAt(u.Loc, "unary %q needs a number, got %s", "-", kindOf(v))
		}
		return -f, nil
	}
	return nil, nil
}

func (r *renderer) evalBinary(b *ast.Binary) (any, error) {
	// and/or short-circuit by truthiness and yield the deciding operand.
	if b.Op == ast.OpAnd || b.Op == ast.OpOr {
		l, err := r.evalExpr(b.X)
		if err != nil {
			return nil, err
		}
		if b.Op == ast.OpAnd && !truthy(l) {
			return l, nil
		}
		if b.Op == ast.OpOr && truthy(l) {
			return l, nil
		}
		return r.evalExpr(b.Y)
	}

	l, err := r.evalExpr(b.X)
	if err != nil {
		return nil, err
	}
	rv, err := r.evalExpr(b.Y)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case ast.OpAdd:
		return r.evalAdd(b, l, rv)
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return r.evalArith(b, l, rv)
	case ast.OpEq:
		return equal(l, rv), nil
	case ast.OpNe:
		return !equal(l, rv), nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return r.evalOrder(b, l, rv)
	case ast.OpIn:
		return r.evalIn(b, l, rv)
	}
	return nil, nil
}

func (r *renderer) evalAdd(b *ast.Binary, l, rv any) (any, error) {
	if lf, ok := num(l); ok {
		if rf, ok := num(rv); ok {
			return lf + rf, nil
		}
	}
	if ls, ok := l.(string); ok {
		if rs, ok := rv.(string); ok {
			return ls + rs, nil
		}
	}
	return nil, errAt(b.Loc, "operator %q needs two numbers or two strings, got %s and %s",
		b.Op, kindOf(l), kindOf(rv))
}

func (r *renderer) evalArith(b *ast.Binary, l, rv any) (any, error) {
	lf, lok := num(l)
	rf, rok := num(rv)
	if !lok || !rok {
		bad := l
		if lok {
			bad = rv
		}
		return nil, errAt(b.Loc, "operator %q needs number operands, got %s", b.Op, kindOf(bad))
	}
	switch b.Op {
	case ast.OpSub:
		return lf - rf, nil
	case ast.OpMul:
		return lf * rf, nil
	case ast.OpDiv:
		if rf == 0 {
			return nil, errAt(b.Loc, "division by zero")
		}
		return lf / rf, nil
	case ast.OpMod:
		if rf == 0 {
			return nil, errAt(b.Loc, "division by zero")
		}
		return math.Mod(lf, rf), nil
	}
	return nil, nil
}

func (r *renderer) evalOrder(b *ast.Binary, l, rv any) (any, error) {
	if lf, ok := num(l); ok {
		if rf, ok := num(rv); ok {
			return orderResult(b.Op, compareFloats(lf, rf)), nil
		}
	}
	if ls, ok := l.(string); ok {
		if rs, ok := rv.(string); ok {
			return orderResult(b.Op, strings.Compare(ls, rs)), nil
		}
	}
	return nil, errAt(b.Loc, "operator %q cannot order %s and %s", b.Op, kindOf(l), kindOf(rv))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderResult(op ast.BinaryOp, cmp int) bool {
	switch op {
	case ast.OpLt:
		return cmp < 0
	case ast.OpLe:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGe:
		return cmp >= 0
	}
	return false
}

func (r *renderer) evalIn(b *ast.Binary, l, rv any) (any, error) {
	switch container := rv.(type) {
	case []any:
		for _, item := range container {
			if equal(l, item) {
				return true, nil
			}
		}
		return false, nil
	case string:
		needle, ok := l.(string)
		if !ok {
			return nil, errAt(b.Loc, "operator %q needs a string needle for a string haystack, got %s",
				b.Op, kindOf(l))
		}
		return strings.Contains(container, needle), nil
	case map[string]any:
		key, ok := l.(string)
		if !ok {
			return nil, errAt(b.Loc, "operator %q looks up object keys, which are strings, got %s",
				b.Op, kindOf(l))
		}
		_, hit := container[key]
		return hit, nil
	}
	return nil, errAt(b.Loc, "operator %q needs a container on the right, got %s", b.Op, kindOf(rv))
}
