// Package expr provides the expression-tree genome for symbolic search.
//
// A [Node] is a tagged variant over three kinds: operator application,
// free variable (x or t) and real constant. Trees are evaluable at a
// given state via [Node.Eval], which reports a wrapped [ErrDomain] instead
// of propagating NaN or Inf from undefined operations:
//
//	f := expr.NewOp(expr.OpMul, expr.NewConst(2), expr.NewVar(expr.VarT))
//	v, err := f.Eval(0, 1.5) // 3.0
//
// Random trees come from [Generate], which bounds depth. Structural
// queries ([Node.Depth], [Node.Size], [Node.Positions]) support the
// genetic operators built on top of this package.
package expr
