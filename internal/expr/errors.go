package expr

import "errors"

// ErrDomain marks an evaluation that left the numeric domain: division by
// a near-zero denominator, or an operator producing NaN or Inf. Callers
// recover from it by discarding the evaluation, never by crashing.
var ErrDomain = errors.New("expr: evaluation outside numeric domain")

// ErrMalformed indicates a tree violating the arity invariant. It is a
// programming-defect-class error: construction and the genetic operators
// must never produce such a tree.
var ErrMalformed = errors.New("expr: malformed tree (arity violation)")
