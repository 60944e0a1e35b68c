package imageembed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// jpeg markers
const (
	markerSOI  = 0xd8 // Start Of Image
	markerEOI  = 0xd9 // End Of Image
	markerSOS  = 0xda // Start Of Scan
	markerAPP2 = 0xe2 // where ICC profiles live
	markerRST0 = 0xd0
	markerRST7 = 0xd7
	markerTEM  = 0x01
)

// APP2 ICC payloads start with this identifier, then a 1-based chunk index
// and the chunk total.
var iccChunkPrefix = []byte("ICC_PROFILE\x00")

// FromJPEG returns the ICC profile embedded in the APP2 segments of a JPEG
// stream, reassembled in chunk order. If the image carries no profile, nil
// data and no error are returned.
func FromJPEG(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)

	b0, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	b1, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	if b0 != 0xff || b1 != markerSOI {
		return nil, errors.New("not a JPEG stream")
	}

	var chunks [][]byte
	var total int

	for {
		marker, err := nextMarker(br)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		if marker == markerEOI || marker == markerSOS {
			// entropy coded data follows SOS; all APP segments are behind us
			break
		}
		if marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7) {
			continue // standalone markers carry no length
		}

		lenHi, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		lenLo, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		segLen := int(lenHi)<<8 | int(lenLo)
		if segLen < 2 {
			return nil, errors.New("malformed JPEG segment length")
		}

		body := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, err
		}

		if marker != markerAPP2 || len(body) < len(iccChunkPrefix)+2 ||
			!bytes.HasPrefix(body, iccChunkPrefix) {
			continue
		}

		index := int(body[len(iccChunkPrefix)])
		count := int(body[len(iccChunkPrefix)+1])
		if index < 1 || count < 1 || index > count {
			return nil, fmt.Errorf("bad ICC chunk numbering %d/%d", index, count)
		}
		if total == 0 {
			total = count
			chunks = make([][]byte, count)
		} else if count != total {
			return nil, fmt.Errorf("inconsistent ICC chunk total %d vs %d", count, total)
		}
		if chunks[index-1] != nil {
			return nil, fmt.Errorf("duplicate ICC chunk %d", index)
		}
		chunks[index-1] = body[len(iccChunkPrefix)+2:]
	}

	if total == 0 {
		return nil, nil
	}

	var out []byte
	for i, c := range chunks {
		if c == nil {
			return nil, fmt.Errorf("missing ICC chunk %d of %d", i+1, total)
		}
		out = append(out, c...)
	}
	return out, nil
}

// nextMarker scans forward to the next 0xff marker byte, tolerating fill
// bytes between segments.
func nextMarker(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != 0xff {
			continue
		}
		for {
			m, err := br.ReadByte()
			if err != nil {
				return 0, err
			}
			if m == 0xff {
				continue // fill byte
			}
			if m == 0x00 {
				break // stuffed 0xff data byte, keep scanning
			}
			return m, nil
		}
	}
}
