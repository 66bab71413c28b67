package expr

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func twoT() *Node {
	return NewOp(OpMul, NewConst(2), NewVar(VarT))
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		name string
		tree *Node
		x, t float64
		want float64
	}{
		{"const", NewConst(3.5), 0, 0, 3.5},
		{"var x", NewVar(VarX), 1.25, 9, 1.25},
		{"var t", NewVar(VarT), 1.25, 9, 9},
		{"2*t", twoT(), 0, 1.5, 3.0},
		{"x-t", NewOp(OpSub, NewVar(VarX), NewVar(VarT)), 5, 2, 3},
		{"neg", NewOp(OpNeg, NewConst(4)), 0, 0, -4},
		{"sin", NewOp(OpSin, NewConst(0)), 0, 0, 0},
		{"div", NewOp(OpDiv, NewConst(1), NewConst(4)), 0, 0, 0.25},
		{"pow", NewOp(OpPow, NewConst(2), NewConst(10)), 0, 0, 1024},
		{"sqrt", NewOp(OpSqrt, NewConst(9)), 0, 0, 3},
	}

	for _, tt := range tests {
		got, err := tt.tree.Eval(tt.x, tt.t)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: got %f, want %f", tt.name, got, tt.want)
		}
	}
}

func TestEvalDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		tree *Node
	}{
		{"div by zero const", NewOp(OpDiv, NewVar(VarT), NewConst(0))},
		{"div by near-zero", NewOp(OpDiv, NewConst(1), NewConst(1e-12))},
		{"exp overflow", NewOp(OpExp, NewConst(1000))},
		{"sqrt of negative", NewOp(OpSqrt, NewConst(-1))},
		{"pow nan", NewOp(OpPow, NewConst(-1), NewConst(0.5))},
	}

	for _, tt := range tests {
		_, err := tt.tree.Eval(1, 1)
		if err == nil {
			t.Errorf("%s: expected domain error, got none", tt.name)
			continue
		}
		if !errors.Is(err, ErrDomain) {
			t.Errorf("%s: error %v does not wrap ErrDomain", tt.name, err)
		}
	}
}

func TestEvalDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		tree := Generate(rng, AllOps(), 5, -10, 10)
		v1, err1 := tree.Eval(0.7, 1.3)
		v2, err2 := tree.Eval(0.7, 1.3)
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("tree %s: inconsistent errors %v vs %v", tree, err1, err2)
		}
		if err1 == nil && v1 != v2 {
			t.Fatalf("tree %s: %v != %v", tree, v1, v2)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := NewOp(OpAdd, NewConst(1), NewVar(VarT))
	cp := orig.Clone()

	cp.Children[0].Const = 99
	cp.Children[1].Var = VarX

	if orig.Children[0].Const != 1 {
		t.Error("mutating clone changed original constant")
	}
	if orig.Children[1].Var != VarT {
		t.Error("mutating clone changed original variable")
	}

	v, err := cp.Eval(5, 2)
	if err != nil || v != 104 {
		t.Errorf("clone eval: got %v, %v", v, err)
	}
}

func TestDepthAndSize(t *testing.T) {
	leaf := NewVar(VarT)
	if leaf.Depth() != 0 || leaf.Size() != 1 {
		t.Errorf("leaf: depth %d size %d", leaf.Depth(), leaf.Size())
	}

	tree := NewOp(OpAdd, NewOp(OpSin, NewVar(VarX)), NewConst(1))
	if tree.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", tree.Depth())
	}
	if tree.Size() != 4 {
		t.Errorf("expected size 4, got %d", tree.Size())
	}
}

func TestPositionsCoverTree(t *testing.T) {
	tree := NewOp(OpAdd, NewOp(OpSin, NewVar(VarX)), NewConst(1))
	pos := tree.Positions()
	if len(pos) != tree.Size() {
		t.Fatalf("expected %d positions, got %d", tree.Size(), len(pos))
	}
	if pos[0].N != tree || pos[0].Depth != 0 {
		t.Error("first position should be the root at depth 0")
	}
	for _, p := range pos[1:] {
		if p.Depth < 1 {
			t.Errorf("non-root position with depth %d", p.Depth)
		}
	}
}

func TestValidate(t *testing.T) {
	good := NewOp(OpMul, NewVar(VarT), NewConst(2))
	if err := good.Validate(); err != nil {
		t.Errorf("valid tree rejected: %v", err)
	}

	bad := &Node{Kind: KindOp, Op: OpAdd, Children: []*Node{NewVar(VarT)}}
	if err := bad.Validate(); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestNewOpPanicsOnArityMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for wrong child count")
		}
	}()
	NewOp(OpAdd, NewVar(VarT))
}

func TestString(t *testing.T) {
	tree := NewOp(OpAdd, twoT(), NewOp(OpSin, NewVar(VarX)))
	got := tree.String()
	want := "((2 * t) + sin(x))"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	neg := NewOp(OpNeg, NewVar(VarT))
	if neg.String() != "-(t)" {
		t.Errorf("got %q, want -(t)", neg.String())
	}
}
