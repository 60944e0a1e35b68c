package profile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paraPayload builds a parametricCurveType payload with the given function
// type and s15.16 raw parameter values.
func paraPayload(functionType uint16, params ...int32) []byte {
	buf := make([]byte, 12+4*len(params))
	binary.BigEndian.PutUint32(buf[0:], TypePara)
	binary.BigEndian.PutUint16(buf[8:], functionType)
	for i, p := range params {
		binary.BigEndian.PutUint32(buf[12+4*i:], uint32(p))
	}
	return buf
}

// curvPayload builds a curveType payload from raw u16 entries.
func curvPayload(values ...uint16) []byte {
	buf := make([]byte, 12+2*len(values))
	binary.BigEndian.PutUint32(buf[0:], TypeCurv)
	binary.BigEndian.PutUint32(buf[8:], uint32(len(values)))
	for i, v := range values {
		binary.BigEndian.PutUint16(buf[12+2*i:], v)
	}
	return buf
}

const (
	fixedOne  = 0x00010000
	fixedHalf = 0x00008000
	fixedTwo  = 0x00020000
)

func TestReadParametricCurve(t *testing.T) {
	t.Run("type 0 gamma only", func(t *testing.T) {
		c, consumed, err := ReadCurve(paraPayload(0, fixedTwo))
		require.NoError(t, err)
		assert.Equal(t, uint32(16), consumed)
		assert.True(t, c.IsParametric())
		assert.Equal(t, float32(2), c.Parametric.G)
		assert.Equal(t, float32(1), c.Parametric.A)
		assert.Equal(t, float32(0), c.Parametric.D)
	})

	t.Run("type 1 derives breakpoint", func(t *testing.T) {
		c, consumed, err := ReadCurve(paraPayload(1, fixedTwo, fixedTwo, -fixedOne))
		require.NoError(t, err)
		assert.Equal(t, uint32(24), consumed)
		assert.Equal(t, float32(2), c.Parametric.A)
		assert.Equal(t, float32(-1), c.Parametric.B)
		// continuity condition, bit-exact
		assert.Equal(t, -c.Parametric.B/c.Parametric.A, c.Parametric.D)
		assert.Equal(t, float32(0.5), c.Parametric.D)
	})

	t.Run("type 2 copies E to F", func(t *testing.T) {
		c, _, err := ReadCurve(paraPayload(2, fixedTwo, fixedOne, fixedHalf, fixedHalf))
		require.NoError(t, err)
		assert.Equal(t, -c.Parametric.B/c.Parametric.A, c.Parametric.D)
		assert.Equal(t, c.Parametric.E, c.Parametric.F)
		assert.Equal(t, float32(0.5), c.Parametric.E)
	})

	t.Run("type 3 all explicit", func(t *testing.T) {
		c, consumed, err := ReadCurve(paraPayload(3, fixedTwo, fixedOne, 0, fixedHalf, fixedHalf))
		require.NoError(t, err)
		assert.Equal(t, uint32(32), consumed)
		assert.Equal(t, float32(0.5), c.Parametric.C)
		assert.Equal(t, float32(0.5), c.Parametric.D)
	})

	t.Run("type 4 full", func(t *testing.T) {
		c, consumed, err := ReadCurve(paraPayload(4, fixedTwo, fixedOne, 0, fixedHalf, fixedHalf, fixedOne, 0))
		require.NoError(t, err)
		assert.Equal(t, uint32(40), consumed)
		assert.Equal(t, float32(1), c.Parametric.E)
		assert.Equal(t, float32(0), c.Parametric.F)
	})

	t.Run("zero A rejected for types 1 and 2", func(t *testing.T) {
		_, _, err := ReadCurve(paraPayload(1, fixedTwo, 0, fixedOne))
		assert.Error(t, err)
		_, _, err = ReadCurve(paraPayload(2, fixedTwo, 0, fixedOne, fixedHalf))
		assert.Error(t, err)
	})

	t.Run("unknown function type", func(t *testing.T) {
		_, _, err := ReadCurve(paraPayload(5, fixedOne))
		assert.Error(t, err)
	})

	t.Run("undersized for variant", func(t *testing.T) {
		payload := paraPayload(4, fixedTwo, fixedOne, 0, fixedHalf)
		_, _, err := ReadCurve(payload)
		assert.Error(t, err)
	})

	t.Run("too short for header", func(t *testing.T) {
		_, _, err := ReadCurve(paraPayload(0, fixedOne)[:8])
		assert.Error(t, err)
	})
}

func TestReadSampledCurve(t *testing.T) {
	t.Run("empty table is identity", func(t *testing.T) {
		c, consumed, err := ReadCurve(curvPayload())
		require.NoError(t, err)
		assert.Equal(t, uint32(12), consumed)
		assert.True(t, c.IsParametric())
		assert.Equal(t, float32(1), c.Parametric.G)
		assert.Equal(t, float32(1), c.Parametric.A)
		// eval-identical to y = x
		for i := 0; i <= 8; i++ {
			x := float32(i) / 8
			assert.InDelta(t, float64(x), float64(c.Eval(x)), 1e-7)
		}
	})

	t.Run("single entry is pure gamma", func(t *testing.T) {
		c, consumed, err := ReadCurve(curvPayload(0x0200))
		require.NoError(t, err)
		assert.Equal(t, uint32(14), consumed)
		assert.True(t, c.IsParametric())
		assert.Equal(t, float32(2), c.Parametric.G)
		assert.InDelta(t, 0.25, float64(c.Eval(0.5)), 1e-6)
	})

	t.Run("table borrows payload bytes", func(t *testing.T) {
		payload := curvPayload(0, 32768, 65535)
		c, consumed, err := ReadCurve(payload)
		require.NoError(t, err)
		assert.Equal(t, uint32(18), consumed)
		assert.Equal(t, uint32(3), c.TableEntries)
		require.Len(t, c.Table16, 6)
		// same backing array, not a copy
		assert.Same(t, &payload[12], &c.Table16[0])
	})

	t.Run("undersized for value count", func(t *testing.T) {
		payload := curvPayload(1, 2, 3)
		binary.BigEndian.PutUint32(payload[8:], 4)
		_, _, err := ReadCurve(payload)
		assert.Error(t, err)
	})

	t.Run("huge value count does not overflow", func(t *testing.T) {
		payload := curvPayload()
		binary.BigEndian.PutUint32(payload[8:], 0xFFFFFFFF)
		_, _, err := ReadCurve(payload)
		assert.Error(t, err)
	})
}

func TestReadCurveRejectsOtherTypes(t *testing.T) {
	buf := []byte{'m', 'l', 'u', 'c', 0, 0, 0, 0, 0, 0, 0, 0}
	_, _, err := ReadCurve(buf)
	assert.Error(t, err)

	_, _, err = ReadCurve([]byte{'c', 'u'})
	assert.Error(t, err)
}
