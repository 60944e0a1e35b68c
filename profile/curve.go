package profile

import (
	"errors"
	"fmt"

	"github.com/kpfaulkner/icc-go/color"
	"github.com/kpfaulkner/icc-go/iccio"
)

// Extra payload bytes beyond the 12 byte para header for function types
// 0 (G) through 4 (GABCDEF).
var paraExtraBytes = [5]uint32{4, 12, 16, 20, 28}

// ReadCurve decodes a curveType or parametricCurveType payload. It returns
// the curve and the number of payload bytes it occupied, so callers walking
// packed curve lists (lutAToBType) can advance past it.
func ReadCurve(data []byte) (color.Curve, uint32, error) {
	if len(data) < 4 {
		return color.Curve{}, 0, errors.New("curve payload too short")
	}

	switch iccio.U32(data, 0) {
	case TypePara:
		return readParametricCurve(data)
	case TypeCurv:
		return readSampledCurve(data)
	}
	return color.Curve{}, 0, fmt.Errorf("not a curve type: %s", iccio.SigString(iccio.U32(data, 0)))
}

func readParametricCurve(data []byte) (color.Curve, uint32, error) {
	if len(data) < 12 {
		return color.Curve{}, 0, errors.New("para payload too short")
	}

	functionType := iccio.U16(data, 8)
	if functionType > 4 {
		return color.Curve{}, 0, fmt.Errorf("unknown para function type %d", functionType)
	}

	consumed := 12 + paraExtraBytes[functionType]
	if uint32(len(data)) < consumed {
		return color.Curve{}, 0, errors.New("para payload undersized for function type")
	}

	tf := color.TransferFunction{A: 1}
	tf.G = iccio.S15Fixed16(data, 12)

	switch functionType {
	case 1:
		tf.A = iccio.S15Fixed16(data, 16)
		tf.B = iccio.S15Fixed16(data, 20)
		if tf.A == 0 {
			return color.Curve{}, 0, errors.New("para curve with zero A")
		}
		tf.D = -tf.B / tf.A
	case 2:
		tf.A = iccio.S15Fixed16(data, 16)
		tf.B = iccio.S15Fixed16(data, 20)
		tf.E = iccio.S15Fixed16(data, 24)
		if tf.A == 0 {
			return color.Curve{}, 0, errors.New("para curve with zero A")
		}
		tf.D = -tf.B / tf.A
		tf.F = tf.E
	case 3:
		tf.A = iccio.S15Fixed16(data, 16)
		tf.B = iccio.S15Fixed16(data, 20)
		tf.C = iccio.S15Fixed16(data, 24)
		tf.D = iccio.S15Fixed16(data, 28)
	case 4:
		tf.A = iccio.S15Fixed16(data, 16)
		tf.B = iccio.S15Fixed16(data, 20)
		tf.C = iccio.S15Fixed16(data, 24)
		tf.D = iccio.S15Fixed16(data, 28)
		tf.E = iccio.S15Fixed16(data, 32)
		tf.F = iccio.S15Fixed16(data, 36)
	}

	return color.Curve{Parametric: tf}, consumed, nil
}

func readSampledCurve(data []byte) (color.Curve, uint32, error) {
	if len(data) < 12 {
		return color.Curve{}, 0, errors.New("curv payload too short")
	}

	valueCount := iccio.U32(data, 8)
	if uint64(len(data)) < 12+2*uint64(valueCount) {
		return color.Curve{}, 0, errors.New("curv payload undersized for value count")
	}
	consumed := uint32(12 + 2*uint64(valueCount))

	switch valueCount {
	case 0:
		// Empty tables are shorthand for linear.
		return color.Curve{Parametric: color.TransferFunction{G: 1, A: 1}}, consumed, nil
	case 1:
		// Single entry tables are shorthand for simple gamma, u8.8 fixed.
		gamma := float32(iccio.U16(data, 12)) * (1.0 / 256.0)
		return color.Curve{Parametric: color.TransferFunction{G: gamma, A: 1}}, consumed, nil
	}

	return color.Curve{
		Table16:      data[12 : 12+2*valueCount],
		TableEntries: valueCount,
	}, consumed, nil
}

// CurveFromTag decodes a tag whose payload is a curv or para element.
func CurveFromTag(tag Tag) (color.Curve, bool) {
	c, _, err := ReadCurve(tag.Data)
	if err != nil {
		return color.Curve{}, false
	}
	return c, true
}
