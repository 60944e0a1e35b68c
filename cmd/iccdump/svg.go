package main

import (
	"fmt"
	"os"

	"github.com/kpfaulkner/icc-go/color"
)

const (
	svgMargin = 20.0
	svgScale  = 800.0

	curveSamples = 256
)

var (
	rgbColors  = []string{"red", "green", "blue"}
	cmykColors = []string{"cyan", "magenta", "yellow", "black"}
)

// writeCurvesSVG plots each curve over [0,1] as an SVG polyline. Sampled
// curves that can be approximated get their fitted transfer function
// overlaid so the quality of the fit is visible.
func writeCurvesSVG(filename string, curves []color.Curve, colors []string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	side := svgScale + 2*svgMargin
	fmt.Fprintf(f, "<svg width=\"%g\" height=\"%g\" xmlns=\"http://www.w3.org/2000/svg\">\n", side, side)
	fmt.Fprintf(f, "<g transform=\"translate(%g %g) scale(%g %g)\">\n",
		svgMargin, svgMargin+svgScale, svgScale, -svgScale)
	fmt.Fprintf(f, "<polyline fill=\"none\" stroke=\"black\" vector-effect=\"non-scaling-stroke\" points=\"0,1 0,0 1,0\"/>\n")

	for i := range curves {
		c := &curves[i]
		plotCurve(f, c, colors[i%len(colors)])

		if !c.IsParametric() {
			if tf, _, err := color.ApproximateCurve(c, curveSamples); err == nil {
				plotTransferFunction(f, &tf, "darkgray")
			}
		}
	}

	fmt.Fprintf(f, "</g>\n</svg>\n")
	return nil
}

func plotCurve(f *os.File, c *color.Curve, stroke string) {
	fmt.Fprintf(f, "<polyline fill=\"none\" stroke=\"%s\" vector-effect=\"non-scaling-stroke\" points=\"\n", stroke)
	for i := 0; i < curveSamples; i++ {
		x := float32(i) / (curveSamples - 1)
		fmt.Fprintf(f, "%g,%g\n", x, c.Eval(x))
	}
	fmt.Fprintf(f, "\"/>\n")
}

func plotTransferFunction(f *os.File, tf *color.TransferFunction, stroke string) {
	fmt.Fprintf(f, "<polyline fill=\"none\" stroke=\"%s\" vector-effect=\"non-scaling-stroke\" points=\"\n", stroke)
	for i := 0; i < curveSamples; i++ {
		x := float32(i) / (curveSamples - 1)
		fmt.Fprintf(f, "%g,%g\n", x, tf.Eval(x))
	}
	fmt.Fprintf(f, "\"/>\n")
}
