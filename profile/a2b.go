package profile

import (
	"errors"
	"fmt"
	"math"

	"github.com/kpfaulkner/icc-go/color"
	"github.com/kpfaulkner/icc-go/iccio"
)

// A2B is the device-to-PCS pipeline decoded from a lut8Type, lut16Type or
// lutAToBType tag: input curves, a multidimensional grid, an optional
// matrix stage with its own curves, and output curves. Grid and table
// slices borrow the profile buffer.
type A2B struct {
	// InputChannels is zero when the input curve + grid stage is elided
	// (lutAToBType with no CLUT).
	InputChannels uint32
	GridPoints    [4]uint8
	InputCurves   [4]color.Curve

	// Exactly one of Grid8/Grid16 is set when the grid stage is present.
	Grid8  []byte
	Grid16 []byte

	// MatrixChannels is zero when the matrix stage is elided.
	MatrixChannels uint32
	MatrixCurves   [3]color.Curve
	Matrix         color.Matrix3x4

	OutputChannels uint32
	OutputCurves   [3]color.Curve
}

const (
	mftHeaderSize  = 48 // type, reserved, channel counts, grid points, 3x3 matrix
	mft1TableBase  = mftHeaderSize
	mft2TableBase  = mftHeaderSize + 4 // plus the two table entry counts
	mabHeaderSize  = 32
	clutHeaderSize = 20 // 16 grid point bytes, byte width, 3 reserved
)

func readA2B(tag Tag) (A2B, error) {
	switch tag.Type {
	case TypeMFT1:
		return readMFT1(tag)
	case TypeMFT2:
		return readMFT2(tag)
	case TypeMAB:
		return readMAB(tag)
	}
	return A2B{}, fmt.Errorf("unsupported A2B type %s", iccio.SigString(tag.Type))
}

// readMFTCommon decodes the header fields mft1 and mft2 share. The embedded
// 3x3 matrix only applies to PCSXYZ input, which this parser does not
// accept, so it is skipped and the matrix stage recorded as absent.
func readMFTCommon(data []byte, a2b *A2B) error {
	a2b.MatrixChannels = 0
	a2b.InputChannels = uint32(data[8])
	a2b.OutputChannels = uint32(data[9])

	if a2b.OutputChannels != 3 {
		return fmt.Errorf("mft with %d output channels", a2b.OutputChannels)
	}
	if a2b.InputChannels < 1 || a2b.InputChannels > 4 {
		return fmt.Errorf("mft with %d input channels", a2b.InputChannels)
	}

	gridPoints := data[10]
	for i := uint32(0); i < a2b.InputChannels; i++ {
		a2b.GridPoints[i] = gridPoints
	}
	if gridPoints < 2 {
		return errors.New("mft grid needs at least two points per axis")
	}
	return nil
}

// initA2BTables slices the contiguous table block of an mft tag: all input
// tables, then the grid, then all output tables. The total is validated in
// 64 bit arithmetic before anything is sliced.
func initA2BTables(tables []byte, byteWidth, inEntries, outEntries uint32, a2b *A2B) error {
	perInput := inEntries * byteWidth
	perOutput := outEntries * byteWidth
	allInputs := a2b.InputChannels * perInput
	allOutputs := a2b.OutputChannels * perOutput

	gridSize := uint64(a2b.OutputChannels) * uint64(byteWidth)
	for axis := uint32(0); axis < a2b.InputChannels; axis++ {
		gridSize *= uint64(a2b.GridPoints[axis])
	}

	if uint64(len(tables)) < uint64(allInputs)+gridSize+uint64(allOutputs) {
		return errors.New("mft tables exceed tag size")
	}

	for i := uint32(0); i < a2b.InputChannels; i++ {
		table := tables[i*perInput : (i+1)*perInput]
		a2b.InputCurves[i] = sampledCurve(table, byteWidth, inEntries)
	}

	grid := tables[allInputs : uint64(allInputs)+gridSize]
	if byteWidth == 1 {
		a2b.Grid8 = grid
	} else {
		a2b.Grid16 = grid
	}

	outputBase := uint64(allInputs) + gridSize
	for i := uint32(0); i < a2b.OutputChannels; i++ {
		start := outputBase + uint64(i*perOutput)
		a2b.OutputCurves[i] = sampledCurve(tables[start:start+uint64(perOutput)], byteWidth, outEntries)
	}
	return nil
}

func sampledCurve(table []byte, byteWidth, entries uint32) color.Curve {
	c := color.Curve{TableEntries: entries}
	if byteWidth == 1 {
		c.Table8 = table
	} else {
		c.Table16 = table
	}
	return c
}

func readMFT1(tag Tag) (A2B, error) {
	if len(tag.Data) < mft1TableBase {
		return A2B{}, errors.New("mft1 tag too short")
	}
	var a2b A2B
	if err := readMFTCommon(tag.Data, &a2b); err != nil {
		return A2B{}, err
	}
	// lut8Type always carries 256 entry tables, one byte per entry.
	if err := initA2BTables(tag.Data[mft1TableBase:], 1, 256, 256, &a2b); err != nil {
		return A2B{}, err
	}
	return a2b, nil
}

func readMFT2(tag Tag) (A2B, error) {
	if len(tag.Data) < mft2TableBase {
		return A2B{}, errors.New("mft2 tag too short")
	}
	var a2b A2B
	if err := readMFTCommon(tag.Data, &a2b); err != nil {
		return A2B{}, err
	}

	inEntries := uint32(iccio.U16(tag.Data, mftHeaderSize))
	outEntries := uint32(iccio.U16(tag.Data, mftHeaderSize+2))
	if inEntries < 2 || inEntries > 4096 || outEntries < 2 || outEntries > 4096 {
		return A2B{}, fmt.Errorf("mft2 table entries out of range: %d/%d", inEntries, outEntries)
	}

	if err := initA2BTables(tag.Data[mft2TableBase:], 2, inEntries, outEntries, &a2b); err != nil {
		return A2B{}, err
	}
	return a2b, nil
}

// readCurveList walks count packed curve payloads starting at offset,
// rounding each consumed size up to a 4 byte boundary. The advance is done
// in 64 bit arithmetic so a crafted payload cannot wrap the offset.
func readCurveList(data []byte, offset uint32, count uint32, dst []color.Curve) error {
	for i := uint32(0); i < count; i++ {
		if uint64(offset) > uint64(len(data)) {
			return errors.New("curve offset beyond tag")
		}
		c, consumed, err := ReadCurve(data[offset:])
		if err != nil {
			return err
		}
		dst[i] = c

		if consumed > math.MaxUint32-3 {
			return errors.New("curve size overflow")
		}
		consumed = (consumed + 3) &^ 3

		next := uint64(offset) + uint64(consumed)
		if next > math.MaxUint32 {
			return errors.New("curve offset overflow")
		}
		offset = uint32(next)
	}
	return nil
}

func readMAB(tag Tag) (A2B, error) {
	data := tag.Data
	if len(data) < mabHeaderSize {
		return A2B{}, errors.New("mAB tag too short")
	}

	var a2b A2B
	a2b.InputChannels = uint32(data[8])
	a2b.OutputChannels = uint32(data[9])

	if a2b.OutputChannels != 3 {
		return A2B{}, fmt.Errorf("mAB with %d output channels", a2b.OutputChannels)
	}
	if a2b.InputChannels > 4 {
		return A2B{}, fmt.Errorf("mAB with %d input channels", a2b.InputChannels)
	}

	bCurveOffset := iccio.U32(data, 12)
	matrixOffset := iccio.U32(data, 16)
	mCurveOffset := iccio.U32(data, 20)
	clutOffset := iccio.U32(data, 24)
	aCurveOffset := iccio.U32(data, 28)

	// B curves are the one mandatory stage.
	if bCurveOffset == 0 {
		return A2B{}, errors.New("mAB without B curves")
	}
	if err := readCurveList(data, bCurveOffset, a2b.OutputChannels, a2b.OutputCurves[:]); err != nil {
		return A2B{}, err
	}

	// M curves and the matrix travel together.
	if mCurveOffset != 0 {
		if matrixOffset == 0 {
			return A2B{}, errors.New("mAB M curves without matrix")
		}
		a2b.MatrixChannels = a2b.OutputChannels
		if err := readCurveList(data, mCurveOffset, a2b.MatrixChannels, a2b.MatrixCurves[:]); err != nil {
			return A2B{}, err
		}

		// Row-major 3x3 followed by the fourth (translation) column.
		if uint64(len(data)) < uint64(matrixOffset)+48 {
			return A2B{}, errors.New("mAB matrix beyond tag")
		}
		m := int(matrixOffset)
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				a2b.Matrix[row][col] = iccio.S15Fixed16(data, m+(row*3+col)*4)
			}
		}
		a2b.Matrix[0][3] = iccio.S15Fixed16(data, m+36)
		a2b.Matrix[1][3] = iccio.S15Fixed16(data, m+40)
		a2b.Matrix[2][3] = iccio.S15Fixed16(data, m+44)
	} else {
		if matrixOffset != 0 {
			return A2B{}, errors.New("mAB matrix without M curves")
		}
		a2b.MatrixChannels = 0
	}

	// A curves and the CLUT travel together.
	if aCurveOffset != 0 {
		if clutOffset == 0 {
			return A2B{}, errors.New("mAB A curves without CLUT")
		}
		if err := readCurveList(data, aCurveOffset, a2b.InputChannels, a2b.InputCurves[:]); err != nil {
			return A2B{}, err
		}

		if uint64(len(data)) < uint64(clutOffset)+clutHeaderSize {
			return A2B{}, errors.New("mAB CLUT header beyond tag")
		}
		clut := data[clutOffset:]

		byteWidth := clut[16]
		if byteWidth != 1 && byteWidth != 2 {
			return A2B{}, fmt.Errorf("mAB CLUT byte width %d", byteWidth)
		}

		gridSize := uint64(a2b.OutputChannels) * uint64(byteWidth)
		for i := uint32(0); i < a2b.InputChannels; i++ {
			gp := clut[i]
			if gp < 2 {
				return A2B{}, errors.New("mAB grid needs at least two points per axis")
			}
			a2b.GridPoints[i] = gp
			gridSize *= uint64(gp)
		}
		if uint64(len(data)) < uint64(clutOffset)+clutHeaderSize+gridSize {
			return A2B{}, errors.New("mAB grid beyond tag")
		}

		grid := clut[clutHeaderSize : clutHeaderSize+gridSize]
		if byteWidth == 1 {
			a2b.Grid8 = grid
		} else {
			a2b.Grid16 = grid
		}
	} else {
		if clutOffset != 0 {
			return A2B{}, errors.New("mAB CLUT without A curves")
		}
		// With no CLUT the stage is a pass-through, which only makes
		// sense channel-for-channel.
		if a2b.InputChannels != a2b.OutputChannels {
			return A2B{}, errors.New("mAB channel mismatch without CLUT")
		}
		a2b.InputChannels = 0
	}

	return a2b, nil
}
