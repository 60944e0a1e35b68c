package profile

import (
	"fmt"

	"github.com/kpfaulkner/icc-go/iccio"
)

const (
	headerSize   = 132 // 128 byte header plus the 4 byte tag count
	tagEntrySize = 12
)

// Tag is a borrowed view of one directory entry's payload. Data aliases the
// profile buffer; Type is the payload's leading four byte type signature.
type Tag struct {
	Signature uint32
	Type      uint32
	Data      []byte
}

func (p *Profile) tagAt(entry int) Tag {
	off := iccio.U32(p.buf, entry+4)
	size := iccio.U32(p.buf, entry+8)
	data := p.buf[off : off+size]
	return Tag{
		Signature: iccio.U32(p.buf, entry),
		Type:      iccio.U32(data, 0),
		Data:      data,
	}
}

// TagByIndex returns directory entry i. Entries were bounds checked during
// Parse, so the returned payload slice is always inside the buffer.
func (p *Profile) TagByIndex(i uint32) (Tag, error) {
	if i >= p.TagCount {
		return Tag{}, fmt.Errorf("tag index %d out of range (%d tags)", i, p.TagCount)
	}
	return p.tagAt(headerSize + tagEntrySize*int(i)), nil
}

// TagBySignature scans the directory for the first entry with the given
// signature.
func (p *Profile) TagBySignature(sig uint32) (Tag, bool) {
	for i := uint32(0); i < p.TagCount; i++ {
		entry := headerSize + tagEntrySize*int(i)
		if iccio.U32(p.buf, entry) == sig {
			return p.tagAt(entry), true
		}
	}
	return Tag{}, false
}
