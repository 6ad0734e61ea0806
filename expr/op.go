package expr

import (
	"fmt"
	"math"
)

// Op is a comparison between a value and a threshold.
type Op string

const (
	Greater      Op = ">"
	GreaterEqual Op = ">="
	Less         Op = "<"
	LessEqual    Op = "<="
	Equal        Op = "=="
	NotEqual     Op = "!="
	AbsGreater   Op = "abs>"
	AbsGreaterEq Op = "abs>="
	AbsLess      Op = "abs<"
	AbsLessEqual Op = "abs<="
	// Bits passes when every bit set in the threshold is set in the value.
	Bits Op = "bits"
)

// ParseOp validates an operator string.
func ParseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case Greater, GreaterEqual, Less, LessEqual, Equal, NotEqual,
		AbsGreater, AbsGreaterEq, AbsLess, AbsLessEqual, Bits:
		return op, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownOp, s)
}

// Apply compares v against threshold. NaN never passes.
func (op Op) Apply(v, threshold float64) bool {
	if math.IsNaN(v) {
		return false
	}
	switch op {
	case Greater:
		return v > threshold
	case GreaterEqual:
		return v >= threshold
	case Less:
		return v < threshold
	case LessEqual:
		return v <= threshold
	case Equal:
		return v == threshold
	case NotEqual:
		return v != threshold
	case AbsGreater:
		return math.Abs(v) > threshold
	case AbsGreaterEq:
		return math.Abs(v) >= threshold
	case AbsLess:
		return math.Abs(v) < threshold
	case AbsLessEqual:
		return math.Abs(v) <= threshold
	case Bits:
		bits := int64(threshold)
		return int64(v)&bits == bits
	}
	return false
}

// Mask applies the comparison to every value.
func (op Op) Mask(values []float64, threshold float64) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = op.Apply(v, threshold)
	}
	return out
}
