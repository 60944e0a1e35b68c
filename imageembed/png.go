// Package imageembed extracts ICC profile payloads embedded in common
// image containers, so they can be handed straight to profile.Parse.
package imageembed

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	bst "github.com/mixcode/binarystruct"
)

// PNG file signature, per https://www.w3.org/TR/2003/REC-PNG-20031110/
var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// A PNG chunk header: data length and 4 byte type, both big-endian. The
// chunk data and its CRC32 follow.
type pngChunkHeader struct {
	DataLen uint32 `binary:"uint32"`
	Type    string `binary:"[4]byte"`
}

// FromPNG returns the ICC profile stored in the iCCP chunk of a PNG
// stream, zlib-inflated. If the image carries no profile, nil data and no
// error are returned.
func FromPNG(r io.Reader) ([]byte, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, errors.New("not a PNG stream")
	}

	for {
		var h pngChunkHeader
		if _, err := bst.Read(r, bst.BigEndian, &h); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}

		if h.Type == "iCCP" {
			data := make([]byte, h.DataLen)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, err
			}
			return inflateICCP(data)
		}
		if h.Type == "IEND" {
			return nil, nil
		}

		// skip chunk data plus its CRC
		if _, err := io.CopyN(io.Discard, r, int64(h.DataLen)+4); err != nil {
			return nil, err
		}
	}
}

// inflateICCP unpacks an iCCP chunk body: a 1-79 byte profile name, a NUL,
// a compression method byte (only 0 = zlib is defined), then the deflated
// profile.
func inflateICCP(data []byte) ([]byte, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 1 || nul > 79 || nul+2 > len(data) {
		return nil, errors.New("malformed iCCP chunk")
	}
	if method := data[nul+1]; method != 0 {
		return nil, fmt.Errorf("unknown iCCP compression method %d", method)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data[nul+2:]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
