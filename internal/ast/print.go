package ast

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented dump of the tree, one node per line. The format
// is for humans and tests; it is not parsed back.
func Fprint(w io.Writer, n Node) {
	fprint(w, n, 0)
}

// Sprint returns the Fprint dump as a string.
func Sprint(n Node) string {
	var b strings.Builder
	Fprint(&b, n)
	return b.String()
}

func fprint(w io.Writer, n Node, depth int) {
	if n == nil {
		line(w, depth, "<nil>")
		return
	}
	switch x := n.(type) {
	case *Document:
		line(w, depth, "document")
		for _, c := range x.Children {
			fprint(w, c, depth+1)
		}
	case *Text:
		line(w, depth, fmt.Sprintf("text %q", clip(x.Content, 40)))
	case *Output:
		line(w, depth, "output"+trimSuffix(x.Tag))
		fprint(w, x.Base, depth+1)
		for _, f := range x.Filters {
			line(w, depth+1, "filter "+f.Name.Name)
			for _, a := range f.Args {
				fprint(w, a, depth+2)
			}
		}
	case *If:
		line(w, depth, "if"+trimSuffix(x.Tag))
		fprint(w, x.Cond, depth+1)
		line(w, depth+1, "then")
		for _, c := range x.Body {
			fprint(w, c, depth+2)
		}
		for _, e := range x.Elifs {
			line(w, depth+1, "elif")
			fprint(w, e.Cond, depth+2)
			for _, c := range e.Body {
				fprint(w, c, depth+2)
			}
		}
		if x.Else != nil {
			line(w, depth+1, "else")
			for _, c := range x.Else.Body {
				fprint(w, c, depth+2)
			}
		}
	case *For:
		line(w, depth, fmt.Sprintf("for %s in", x.Var.Name)+trimSuffix(x.Tag))
		fprint(w, x.Iter, depth+1)
		line(w, depth+1, "body")
		for _, c := range x.Body {
			fprint(w, c, depth+2)
		}
	case *Set:
		line(w, depth, "set "+x.Name.Name)
		fprint(w, x.Value, depth+1)
	case *Include:
		line(w, depth, fmt.Sprintf("include %q", x.Name))
	case *Path:
		line(w, depth, "path "+x.String())
	case *StringLit:
		line(w, depth, fmt.Sprintf("string %q", x.Value))
	case *NumberLit:
		line(w, depth, "number "+x.Raw)
	case *BoolLit:
		line(w, depth, fmt.Sprintf("bool %v", x.Value))
	case *NullLit:
		line(w, depth, "null")
	case *ListLit:
		line(w, depth, "list")
		for _, it := range x.Items {
			fprint(w, it, depth+1)
		}
	case *Unary:
		line(w, depth, "unary "+x.Op.String())
		fprint(w, x.X, depth+1)
	case *Binary:
		line(w, depth, "binary "+x.Op.String())
		fprint(w, x.X, depth+1)
		fprint(w, x.Y, depth+1)
	}
}

func line(w io.Writer, depth int, text string) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), text)
}

func trimSuffix(t Tag) string {
	switch {
	case t.TrimLeft && t.TrimRight:
		return " [trim both]"
	case t.TrimLeft:
		return " [trim left]"
	case t.TrimRight:
		return " [trim right]"
	}
	return ""
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
