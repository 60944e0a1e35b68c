package color

import (
	"errors"
	"math"

	"github.com/kpfaulkner/icc-go/util"
)

const (
	maxFitSamples    = 4096
	maxGaussNewton   = 8
	maxStepHalvings  = 4
	powerFloor       = 1e-6
	convergenceDelta = 1e-9
)

var errUnfit = errors.New("unable to approximate curve")

// ApproximateCurve fits the seven parameter transfer function to a sampled
// curve and returns the fit together with the maximum absolute error across
// all samples. sampleCount is raised to at least 256 (and to the table size
// when that is larger) so short requests cannot under-sample the table; it
// is capped at 4096.
//
// The breakpoint D and the linear segment (C, F) are determined by an outer
// sweep: for each candidate breakpoint the linear parameters come from an
// ordinary least squares fit of the samples below it, and the power
// segment parameters (G, A, B, E) are refined by damped Gauss-Newton on the
// samples at or above it. A refinement step is only accepted when it reduces the
// residual; a candidate whose refinement diverges or lands on a non-finite
// or non-positive A or G is discarded. Candidates are tried in order of
// increasing breakpoint, and a later one replaces the best so far only when
// its maximum absolute error is at least 1% smaller.
func ApproximateCurve(curve *Curve, sampleCount int) (TransferFunction, float32, error) {
	if curve == nil || curve.TableEntries == 0 {
		return TransferFunction{}, 0, errUnfit
	}

	n := util.Max(sampleCount, 256, int(curve.TableEntries))
	n = util.Min(n, maxFitSamples)

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(i) / float64(n-1)
		ys[i] = float64(curve.Eval(float32(xs[i])))
	}

	var best TransferFunction
	bestErr := math.Inf(1)
	found := false

	// Sweep the breakpoint over the lower half of the domain. Small
	// breakpoints (the common case for display curves) get every grid
	// point; beyond that a coarser stride keeps the sweep bounded.
	coarse := util.Max(1, n/128)
	for k := 0; k <= n/2; {
		tf, ok := fitAtBreakpoint(xs, ys, k)
		if ok {
			maxErr := maxAbsError(curve, &tf, n)
			// A later breakpoint only wins by a clear margin, so table
			// quantization noise cannot flip a near-tie towards a
			// candidate with a degenerate linear segment.
			if !math.IsNaN(maxErr) && !math.IsInf(maxErr, 0) && maxErr < bestErr*0.99 {
				best = tf
				bestErr = maxErr
				found = true
			}
		}

		if k < 32 {
			k++
		} else {
			k += coarse
		}
	}

	if !found {
		return TransferFunction{}, 0, errUnfit
	}
	return best, float32(bestErr), nil
}

// fitAtBreakpoint fits a full transfer function with the linear segment
// covering samples [0, k) and the power segment covering [k, n).
func fitAtBreakpoint(xs, ys []float64, k int) (TransferFunction, bool) {
	var d, c, f float64
	if k > 0 {
		d = xs[k]
		c, f = fitLinearOLS(xs[:k], ys[:k])
		// A breakpoint is only meaningful with an increasing linear
		// segment; flat or decreasing fits are covered by the pure
		// power candidate at d = 0.
		if c <= 0 {
			return TransferFunction{}, false
		}
	}

	g, a, b, e, ok := fitPowerSegment(xs[k:], ys[k:])
	if !ok {
		return TransferFunction{}, false
	}
	if a <= 0 || g <= 0 {
		return TransferFunction{}, false
	}

	tf := TransferFunction{
		G: float32(g), A: float32(a), B: float32(b),
		C: float32(c), D: float32(d), E: float32(e), F: float32(f),
	}
	if !isFiniteTF(&tf) {
		return TransferFunction{}, false
	}
	return tf, true
}

// fitLinearOLS is an ordinary least squares line fit. A single sample pins
// the intercept with zero slope.
func fitLinearOLS(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	if len(xs) == 1 {
		return 0, ys[0]
	}

	var sx, sy, sxx, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	det := n*sxx - sx*sx
	if det == 0 {
		return 0, sy / n
	}
	slope = (n*sxy - sx*sy) / det
	intercept = (sy - slope*sx) / n
	return slope, intercept
}

// fitPowerSegment refines y = (a·x + b)^g + e over the given samples by
// Gauss-Newton with step halving.
func fitPowerSegment(xs, ys []float64) (g, a, b, e float64, ok bool) {
	if len(xs) < 4 {
		return 0, 0, 0, 0, false
	}

	g = initialGamma(xs, ys)
	a, b, e = 1, 0, 0

	res := powerResidual(xs, ys, g, a, b, e)
	if math.IsNaN(res) || math.IsInf(res, 0) {
		return 0, 0, 0, 0, false
	}

	for iter := 0; iter < maxGaussNewton; iter++ {
		delta, solved := gaussNewtonStep(xs, ys, g, a, b, e)
		if !solved {
			break
		}

		accepted := false
		scale := 1.0
		for h := 0; h <= maxStepHalvings; h++ {
			ng := g + scale*delta[0]
			na := a + scale*delta[1]
			nb := b + scale*delta[2]
			ne := e + scale*delta[3]
			nres := powerResidual(xs, ys, ng, na, nb, ne)
			if !math.IsNaN(nres) && !math.IsInf(nres, 0) && nres < res {
				g, a, b, e, res = ng, na, nb, ne, nres
				accepted = true
				break
			}
			scale *= 0.5
		}
		if !accepted {
			break
		}

		stepLen := delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2] + delta[3]*delta[3]
		if stepLen < convergenceDelta {
			break
		}
	}

	if math.IsNaN(res) || math.IsInf(res, 0) {
		return 0, 0, 0, 0, false
	}
	return g, a, b, e, true
}

// initialGamma seeds the exponent from a mid-domain sample under the
// a=1, b=0, e=0 starting model.
func initialGamma(xs, ys []float64) float64 {
	mid := len(xs) / 2
	x, y := xs[mid], ys[mid]
	if x > 0 && x < 1 && y > 0 && y < 1 {
		gamma := math.Log(y) / math.Log(x)
		return util.Clamp(gamma, 0.25, 10)
	}
	return 2.2
}

func powerModel(x, g, a, b, e float64) float64 {
	base := a*x + b
	if base < 0 {
		base = 0
	}
	return math.Pow(base, g) + e
}

func powerResidual(xs, ys []float64, g, a, b, e float64) float64 {
	var ss float64
	for i := range xs {
		r := ys[i] - powerModel(xs[i], g, a, b, e)
		ss += r * r
	}
	return ss
}

// gaussNewtonStep builds and solves the 4x4 normal equations
// (JᵀJ)·delta = Jᵀr for the parameter order (g, a, b, e).
func gaussNewtonStep(xs, ys []float64, g, a, b, e float64) ([4]float64, bool) {
	var jtj [4][4]float64
	var jtr [4]float64

	for i := range xs {
		x := xs[i]
		base := a*x + b
		if base < powerFloor {
			base = powerFloor
		}
		m := math.Pow(base, g)
		dBase := g * math.Pow(base, g-1)

		row := [4]float64{
			m * math.Log(base), // d/dg
			dBase * x,          // d/da
			dBase,              // d/db
			1,                  // d/de
		}
		r := ys[i] - (m + e)

		for p := 0; p < 4; p++ {
			for q := 0; q < 4; q++ {
				jtj[p][q] += row[p] * row[q]
			}
			jtr[p] += row[p] * r
		}
	}

	mat := make([][]float64, 4)
	rhs := make([]float64, 4)
	for p := 0; p < 4; p++ {
		mat[p] = []float64{jtj[p][0], jtj[p][1], jtj[p][2], jtj[p][3]}
		rhs[p] = jtr[p]
	}
	sol, ok := util.SolveLinearSystem(mat, rhs)
	if !ok {
		return [4]float64{}, false
	}
	return [4]float64{sol[0], sol[1], sol[2], sol[3]}, true
}

func maxAbsError(curve *Curve, tf *TransferFunction, n int) float64 {
	var worst float64
	for i := 0; i < n; i++ {
		x := float32(i) / float32(n-1)
		err := math.Abs(float64(curve.Eval(x) - tf.Eval(x)))
		if err > worst {
			worst = err
		}
	}
	return worst
}
