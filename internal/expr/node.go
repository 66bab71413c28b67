package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// divEps is the denominator magnitude below which division is treated as
// undefined rather than allowed to overflow.
const divEps = 1e-9

// Kind discriminates the node variants.
type Kind uint8

const (
	KindOp Kind = iota
	KindVar
	KindConst
)

// Node is a single node of an expression tree. Operator nodes carry
// exactly Op.Arity() children; variable and constant nodes are leaves.
// Trees are immutable once built: the genetic operators clone before
// touching any node.
type Node struct {
	Kind     Kind
	Op       Op
	Var      Var
	Const    float64
	Children []*Node
}

// NewOp builds an operator node. It panics if the child count does not
// match the operator's arity, since that is a bug in the caller, not a
// recoverable data error.
func NewOp(op Op, children ...*Node) *Node {
	if len(children) != op.Arity() {
		panic(fmt.Sprintf("expr: %s needs %d children, got %d", op, op.Arity(), len(children)))
	}
	return &Node{Kind: KindOp, Op: op, Children: children}
}

// NewVar builds a variable leaf.
func NewVar(v Var) *Node { return &Node{Kind: KindVar, Var: v} }

// NewConst builds a constant leaf.
func NewConst(c float64) *Node { return &Node{Kind: KindConst, Const: c} }

// Eval evaluates the tree at position x and time t. The result is either
// a finite value or an error wrapping ErrDomain; evaluation is pure and
// deterministic.
func (n *Node) Eval(x, t float64) (float64, error) {
	switch n.Kind {
	case KindVar:
		if n.Var == VarX {
			return x, nil
		}
		return t, nil
	case KindConst:
		return n.Const, nil
	}

	args := make([]float64, len(n.Children))
	for i, c := range n.Children {
		v, err := c.Eval(x, t)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	var v float64
	switch n.Op {
	case OpAdd:
		v = args[0] + args[1]
	case OpSub:
		v = args[0] - args[1]
	case OpMul:
		v = args[0] * args[1]
	case OpDiv:
		if math.Abs(args[1]) < divEps {
			return 0, fmt.Errorf("division by near-zero denominator: %w", ErrDomain)
		}
		v = args[0] / args[1]
	case OpPow:
		v = math.Pow(args[0], args[1])
	case OpNeg:
		v = -args[0]
	case OpSin:
		v = math.Sin(args[0])
	case OpCos:
		v = math.Cos(args[0])
	case OpExp:
		v = math.Exp(args[0])
	case OpSqrt:
		v = math.Sqrt(args[0])
	default:
		panic("expr: unknown operator kind")
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s produced non-finite result: %w", n.Op, ErrDomain)
	}
	return v, nil
}

// Clone deep-copies the tree.
func (n *Node) Clone() *Node {
	c := &Node{Kind: n.Kind, Op: n.Op, Var: n.Var, Const: n.Const}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Depth returns the height of the tree; a leaf has depth 0.
func (n *Node) Depth() int {
	if len(n.Children) == 0 {
		return 0
	}
	max := 0
	for _, c := range n.Children {
		if cd := c.Depth(); cd > max {
			max = cd
		}
	}
	return max + 1
}

// Size returns the number of nodes in the tree.
func (n *Node) Size() int {
	s := 1
	for _, c := range n.Children {
		s += c.Size()
	}
	return s
}

// Position is a node slot inside a tree, paired with its depth below the
// root. Swapping or overwriting the node value at N rewrites the subtree
// rooted there.
type Position struct {
	N     *Node
	Depth int
}

// Positions collects every node in preorder. The genetic operators pick
// crossover and mutation points uniformly from this slice.
func (n *Node) Positions() []Position {
	var out []Position
	var walk func(node *Node, depth int)
	walk = func(node *Node, depth int) {
		out = append(out, Position{N: node, Depth: depth})
		for _, c := range node.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
	return out
}

// Validate checks the arity invariant over the whole tree, returning a
// wrapped ErrMalformed on violation. Used as a debugging guard in tests.
func (n *Node) Validate() error {
	switch n.Kind {
	case KindOp:
		if len(n.Children) != n.Op.Arity() {
			return fmt.Errorf("%s node with %d children: %w", n.Op, len(n.Children), ErrMalformed)
		}
	case KindVar, KindConst:
		if len(n.Children) != 0 {
			return fmt.Errorf("leaf with %d children: %w", len(n.Children), ErrMalformed)
		}
	default:
		return fmt.Errorf("unknown kind %d: %w", n.Kind, ErrMalformed)
	}
	for _, c := range n.Children {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the tree as an infix expression, fully parenthesized for
// binary operators.
func (n *Node) String() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	switch n.Kind {
	case KindVar:
		b.WriteString(n.Var.String())
	case KindConst:
		b.WriteString(strconv.FormatFloat(n.Const, 'g', 6, 64))
	case KindOp:
		switch n.Op.Arity() {
		case 2:
			b.WriteByte('(')
			n.Children[0].render(b)
			b.WriteByte(' ')
			b.WriteString(opTable[n.Op].glyph)
			b.WriteByte(' ')
			n.Children[1].render(b)
			b.WriteByte(')')
		default:
			if n.Op == OpNeg {
				b.WriteString("-(")
			} else {
				b.WriteString(opTable[n.Op].glyph)
				b.WriteByte('(')
			}
			n.Children[0].render(b)
			b.WriteByte(')')
		}
	}
}
