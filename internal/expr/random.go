package expr

import "math/rand"

// Generate grows a random tree of depth at most maxDepth. At each
// position one of five equally likely choices is made: the t variable,
// the x variable, a constant drawn uniformly from [constMin, constMax],
// or (twice as likely as any single leaf kind) an operator whose children
// are generated one level deeper. At the depth budget only leaves remain.
//
// The weighting mirrors how often leaves terminate growth in practice and
// keeps the bulk of random trees small. Division is generated like any
// other operator; a zero-valued denominator subtree is legal here and is
// handled at evaluation time.
func Generate(rng *rand.Rand, ops []Op, maxDepth int, constMin, constMax float64) *Node {
	if maxDepth <= 0 {
		return randomLeaf(rng, constMin, constMax)
	}
	switch rng.Intn(5) {
	case 0:
		return NewVar(VarT)
	case 1:
		return NewVar(VarX)
	case 2:
		return NewConst(constMin + rng.Float64()*(constMax-constMin))
	default:
		op := ops[rng.Intn(len(ops))]
		children := make([]*Node, op.Arity())
		for i := range children {
			children[i] = Generate(rng, ops, maxDepth-1, constMin, constMax)
		}
		return NewOp(op, children...)
	}
}

func randomLeaf(rng *rand.Rand, constMin, constMax float64) *Node {
	switch rng.Intn(3) {
	case 0:
		return NewVar(VarT)
	case 1:
		return NewVar(VarX)
	default:
		return NewConst(constMin + rng.Float64()*(constMax-constMin))
	}
}
