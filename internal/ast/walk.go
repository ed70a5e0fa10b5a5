package ast

// Walk traverses the tree in preorder. It descends into a node's children
// only while visit returns true. The switch below is exhaustive over the
// closed node set; a new node type will not compile without a case here.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch x := n.(type) {
	case *Document:
		walkList(x.Children, visit)
	case *Text:
		// leaf
	case *Output:
		Walk(x.Base, visit)
		for _, f := range x.Filters {
			walkList(exprNodes(f.Args), visit)
		}
	case *If:
		Walk(x.Cond, visit)
		walkList(x.Body, visit)
		for _, e := range x.Elifs {
			Walk(e.Cond, visit)
			walkList(e.Body, visit)
		}
		if x.Else != nil {
			walkList(x.Else.Body, visit)
		}
	case *For:
		Walk(x.Iter, visit)
		walkList(x.Body, visit)
	case *Set:
		Walk(x.Value, visit)
	case *Include:
		// leaf; the referenced document is resolved elsewhere
	case *Path, *StringLit, *NumberLit, *BoolLit, *NullLit:
		// expression leaves
	case *ListLit:
		walkList(exprNodes(x.Items), visit)
	case *Unary:
		Walk(x.X, visit)
	case *Binary:
		Walk(x.X, visit)
		Walk(x.Y, visit)
	}
}

func walkList(nodes []Node, visit func(Node) bool) {
	for _, n := range nodes {
		Walk(n, visit)
	}
}

func exprNodes(exprs []Expr) []Node {
	nodes := make([]Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e
	}
	return nodes
}
