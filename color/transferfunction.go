package color

import (
	"math"
)

// TransferFunction is the seven parameter piecewise curve used by ICC
// parametricCurveType (function type 4 generalises types 0-3):
//
//	y = (A·x + B)^G + E   for x >= D
//	y = C·x + F           for x <  D
type TransferFunction struct {
	G float32
	A float32
	B float32
	C float32
	D float32
	E float32
	F float32
}

// Identity is y = x for all x.
var Identity = TransferFunction{G: 1, A: 1}

// Eval evaluates the transfer function at x. Negative inputs are mirrored,
// and the power-law base is floored at zero so a finite parameter set never
// produces NaN on [0, 1].
func (tf *TransferFunction) Eval(x float32) float32 {
	sign := float32(1)
	if x < 0 {
		sign = -1
		x = -x
	}

	if x < tf.D {
		return sign * (tf.C*x + tf.F)
	}
	base := tf.A*x + tf.B
	if base < 0 {
		base = 0
	}
	return sign * (float32(math.Pow(float64(base), float64(tf.G))) + tf.E)
}

// Invert returns the transfer function mapping outputs of tf back to its
// inputs, or false if tf is not invertible (non-positive slope or exponent).
//
// For the power segment y = (Ax+B)^G + E the inverse is again of the seven
// parameter form: x = ((y-E)^(1/G) - B)/A = (A'·y + B')^G' + E' with
// A' = A^-G, B' = -E·A^-G, G' = 1/G, E' = -B/A.
func (tf *TransferFunction) Invert() (TransferFunction, bool) {
	if tf.G <= 0 || tf.A <= 0 {
		return TransferFunction{}, false
	}
	// The linear segment must be increasing to invert, unless it is empty.
	if tf.D > 0 && tf.C <= 0 {
		return TransferFunction{}, false
	}

	var inv TransferFunction
	inv.G = 1 / tf.G
	aToG := float32(math.Pow(float64(tf.A), float64(tf.G)))
	inv.A = 1 / aToG
	inv.B = -tf.E / aToG
	inv.E = -tf.B / tf.A

	if tf.D > 0 {
		// The breakpoint moves to the output value at D.
		inv.D = tf.Eval(tf.D)
		inv.C = 1 / tf.C
		inv.F = -tf.F / tf.C
	} else {
		inv.D = tf.E // power segment starts at its own minimum output
		if inv.D < 0 {
			inv.D = 0
		}
	}

	if !isFiniteTF(&inv) {
		return TransferFunction{}, false
	}
	return inv, true
}

func isFiniteTF(tf *TransferFunction) bool {
	for _, v := range [7]float32{tf.G, tf.A, tf.B, tf.C, tf.D, tf.E, tf.F} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
