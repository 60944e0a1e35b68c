package profile

import (
	"errors"

	"github.com/kpfaulkner/icc-go/iccio"
)

// readXYZ decodes an XYZType payload holding a single XYZ triple. The type
// technically holds N triples but every tag this parser consumes stores
// exactly one.
func readXYZ(tag Tag) (x, y, z float32, err error) {
	if tag.Type != TypeXYZ || len(tag.Data) < 20 {
		return 0, 0, 0, errors.New("not a well formed XYZ tag")
	}
	return iccio.S15Fixed16(tag.Data, 8),
		iccio.S15Fixed16(tag.Data, 12),
		iccio.S15Fixed16(tag.Data, 16), nil
}
