package core

// Walk traverses the tree rooted at n in pre-order, calling fn for each
// node. If fn returns false the node's children are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Configuration:
		for _, s := range n.Statements {
			Walk(s, fn)
		}
	case *Section:
		for _, s := range n.Body {
			Walk(s, fn)
		}
	case *GlobalVariableDecl:
		walkExpr(n.Value, fn)
	case *Assignment:
		walkExpr(n.Value, fn)
	case *Include:
		walkExpr(n.Path, fn)
	case *Comment, *Literal, *TemplateString, *VariableRef, *Range:
	case *BinaryOp:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *UnaryOp:
		walkExpr(n.Operand, fn)
	case *Ternary:
		walkExpr(n.Cond, fn)
		walkExpr(n.Then, fn)
		walkExpr(n.Else, fn)
	case *Array:
		for _, e := range n.Elements {
			walkExpr(e, fn)
		}
	case *Object:
		for _, f := range n.Fields {
			walkExpr(f.Value, fn)
		}
	case *NamedObject:
		if n.Object != nil {
			Walk(n.Object, fn)
		}
	case *DirectiveCall:
		walkExprs(n.Args, fn)
	case *CrossFileCall:
		walkExprs(n.Args, fn)
	case *PropertyAccess:
		walkExpr(n.Object, fn)
	case *IndexAccess:
		walkExpr(n.Object, fn)
		walkExpr(n.Index, fn)
	case *MethodCall:
		walkExpr(n.Receiver, fn)
		walkExprs(n.Args, fn)
	case *Grouping:
		walkExpr(n.Inner, fn)
	}
}

func walkExpr(e Expr, fn func(Node) bool) {
	if e != nil {
		Walk(e, fn)
	}
}

func walkExprs(es []Expr, fn func(Node) bool) {
	for _, e := range es {
		walkExpr(e, fn)
	}
}
