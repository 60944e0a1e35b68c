package color

import (
	"math"

	"github.com/kpfaulkner/icc-go/iccio"
	"github.com/kpfaulkner/icc-go/util"
)

// Curve is a 1D tone curve: either a parametric transfer function or a
// sampled table. Sampled tables borrow the raw big-endian profile bytes,
// 8 or 16 bits per entry; they are never copied out of the profile buffer.
type Curve struct {
	Parametric TransferFunction

	// Exactly one of Table8/Table16 is non-nil for a sampled curve;
	// both are nil for a parametric one.
	Table8       []byte
	Table16      []byte
	TableEntries uint32
}

// IsParametric reports whether the curve carries no sampled table.
func (c *Curve) IsParametric() bool {
	return c.TableEntries == 0
}

// minusOneUlp steps a positive float down by one representable value.
// Used so the upper interpolation index stays in range when x lands
// exactly on a table entry.
func minusOneUlp(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) - 1)
}

// Eval evaluates the curve at x. Sampled tables are linearly interpolated
// over [0, 1] with x clamped; parametric curves are evaluated as-is.
func (c *Curve) Eval(x float32) float32 {
	if c.TableEntries == 0 {
		return c.Parametric.Eval(x)
	}

	ix := util.Clamp(x, 0, 1) * float32(c.TableEntries-1)
	lo := int(ix)
	hi := int(minusOneUlp(ix + 1.0))
	t := ix - float32(lo)

	var l, h float32
	if c.Table8 != nil {
		l = float32(c.Table8[lo]) * (1 / 255.0)
		h = float32(c.Table8[hi]) * (1 / 255.0)
	} else {
		l = float32(iccio.U16(c.Table16, 2*lo)) * (1 / 65535.0)
		h = float32(iccio.U16(c.Table16, 2*hi)) * (1 / 65535.0)
	}
	return l + (h-l)*t
}

// AreApproximateInverses reports whether tf undoes curve to within 1/512
// across max(256, table entries) evenly spaced samples of [0, 1].
func AreApproximateInverses(curve *Curve, tf *TransferFunction) bool {
	n := uint32(256)
	if curve.TableEntries > n {
		n = curve.TableEntries
	}

	dx := 1.0 / float32(n-1)
	for i := uint32(0); i < n; i++ {
		x := float32(i) * dx
		y := curve.Eval(x)
		if util.Max(x-tf.Eval(y), tf.Eval(y)-x) > (1 / 512.0) {
			return false
		}
	}
	return true
}
