package expr

import "fmt"

// Var identifies one of the two free variables of a candidate f(x, t).
type Var int

const (
	// VarX is the current position.
	VarX Var = iota
	// VarT is the current time.
	VarT
)

func (v Var) String() string {
	if v == VarX {
		return "x"
	}
	return "t"
}

// Op identifies an operator from the closed operator set.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpNeg
	OpSin
	OpCos
	OpExp
	OpSqrt
	numOps
)

type opInfo struct {
	name  string
	glyph string
	arity int
}

var opTable = [numOps]opInfo{
	OpAdd:  {"add", "+", 2},
	OpSub:  {"sub", "-", 2},
	OpMul:  {"mul", "*", 2},
	OpDiv:  {"div", "/", 2},
	OpPow:  {"pow", "^", 2},
	OpNeg:  {"neg", "-", 1},
	OpSin:  {"sin", "sin", 1},
	OpCos:  {"cos", "cos", 1},
	OpExp:  {"exp", "exp", 1},
	OpSqrt: {"sqrt", "sqrt", 1},
}

// Arity returns the number of children an operator node must carry.
func (o Op) Arity() int { return opTable[o].arity }

func (o Op) String() string { return opTable[o].name }

// OpByName resolves a configuration name like "mul" to its operator.
func OpByName(name string) (Op, error) {
	for op, info := range opTable {
		if info.name == name {
			return Op(op), nil
		}
	}
	return 0, fmt.Errorf("expr: unknown operator %q", name)
}

// AllOps lists every operator in the closed set.
func AllOps() []Op {
	ops := make([]Op, numOps)
	for i := range ops {
		ops[i] = Op(i)
	}
	return ops
}

// DefaultOps is the operator subset used when none is configured:
// arithmetic plus the trig and exponential primitives.
func DefaultOps() []Op {
	return []Op{OpAdd, OpSub, OpMul, OpDiv, OpNeg, OpSin, OpCos, OpExp}
}
