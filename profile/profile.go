package profile

import (
	"errors"
	"fmt"

	"github.com/kpfaulkner/icc-go/color"
	"github.com/kpfaulkner/icc-go/iccio"
)

// D50 white point, the only PCS illuminant this parser accepts.
const (
	d50X = 0.9642
	d50Y = 1.0000
	d50Z = 0.8249

	illuminantTolerance = 0.01
)

// Profile is a decoded ICC profile. It is a view over the buffer handed to
// Parse: header fields are copied out, but every table and grid inside TRC
// and A2B aliases the original bytes. The buffer must outlive the Profile
// and must not be mutated while it is in use. A Profile is immutable after
// Parse and safe for concurrent readers.
type Profile struct {
	buf []byte

	Size               uint32
	CMMType            uint32
	Version            uint32
	Class              uint32
	DataColorSpace     uint32
	PCS                uint32
	CreationDateTime   iccio.DateTime
	Signature          uint32
	Platform           uint32
	Flags              uint32
	DeviceManufacturer uint32
	DeviceModel        uint32
	DeviceAttributes   uint64
	RenderingIntent    uint32
	IlluminantX        float32
	IlluminantY        float32
	IlluminantZ        float32
	Creator            uint32
	ProfileID          [16]byte
	TagCount           uint32

	// Either all three TRC curves are populated or none are.
	HasTRC bool
	TRC    [3]color.Curve

	HasToXYZD50 bool
	ToXYZD50    color.Matrix3x3

	HasA2B bool
	A2B    A2B
}

// A2BRecord returns the decoded device-to-PCS pipeline, if the profile
// carried one.
func (p *Profile) A2BRecord() (A2B, bool) {
	return p.A2B, p.HasA2B
}

// Parse validates buf as an ICC.1:2010 profile and decodes its header, tag
// directory and the well known tags (kTRC / rgb TRC, rgb XYZ columns,
// A2B1/A2B0). Nothing in buf is trusted: every offset, size and count is
// bounds checked before use. A missing optional tag leaves its Has flag
// false; a present but malformed one fails the whole parse.
func Parse(buf []byte) (*Profile, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("buffer too small for profile header: %d bytes", len(buf))
	}

	p := &Profile{buf: buf}
	p.Size = iccio.U32(buf, 0)
	p.CMMType = iccio.U32(buf, 4)
	p.Version = iccio.U32(buf, 8)
	p.Class = iccio.U32(buf, 12)
	p.DataColorSpace = iccio.U32(buf, 16)
	p.PCS = iccio.U32(buf, 20)
	p.CreationDateTime = iccio.ReadDateTime(buf, 24)
	p.Signature = iccio.U32(buf, 36)
	p.Platform = iccio.U32(buf, 40)
	p.Flags = iccio.U32(buf, 44)
	p.DeviceManufacturer = iccio.U32(buf, 48)
	p.DeviceModel = iccio.U32(buf, 52)
	p.DeviceAttributes = iccio.U64(buf, 56)
	p.RenderingIntent = iccio.U32(buf, 64)
	p.IlluminantX = iccio.S15Fixed16(buf, 68)
	p.IlluminantY = iccio.S15Fixed16(buf, 72)
	p.IlluminantZ = iccio.S15Fixed16(buf, 76)
	p.Creator = iccio.U32(buf, 80)
	copy(p.ProfileID[:], buf[84:100])
	p.TagCount = iccio.U32(buf, 128)

	// Profile must announce itself, fit in the buffer, leave room for its
	// own tag table, and be a major version we understand.
	tagTableSize := uint64(p.TagCount) * tagEntrySize
	if p.Signature != sigMagic {
		return nil, errors.New("missing acsp signature")
	}
	if uint64(p.Size) > uint64(len(buf)) {
		return nil, fmt.Errorf("profile size %d exceeds buffer %d", p.Size, len(buf))
	}
	if uint64(p.Size) < headerSize+tagTableSize {
		return nil, fmt.Errorf("profile size %d too small for %d tags", p.Size, p.TagCount)
	}
	if p.Version>>24 > 4 {
		return nil, fmt.Errorf("unsupported profile major version %d", p.Version>>24)
	}

	if !near(p.IlluminantX, d50X) || !near(p.IlluminantY, d50Y) || !near(p.IlluminantZ, d50Z) {
		return nil, errors.New("illuminant is not D50")
	}

	// Every directory entry must land inside the declared profile size.
	// The sum is done in 64 bits so offset+size cannot wrap.
	for i := uint32(0); i < p.TagCount; i++ {
		entry := headerSize + tagEntrySize*int(i)
		tagOffset := iccio.U32(buf, entry+4)
		tagSize := iccio.U32(buf, entry+8)
		if tagSize < 4 || uint64(tagOffset)+uint64(tagSize) > uint64(p.Size) {
			return nil, fmt.Errorf("tag %d (%s) out of bounds", i, iccio.SigString(iccio.U32(buf, entry)))
		}
	}

	if err := p.preparseTags(); err != nil {
		return nil, err
	}
	return p, nil
}

func near(v float32, want float32) bool {
	diff := v - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= illuminantTolerance
}

// preparseTags decodes the well known tags in a fixed order: a grey kTRC
// pre-empts the per-channel TRCs, then the XYZ columns, then A2B with A2B1
// preferred over A2B0. The first variant found wins.
func (p *Profile) preparseTags() error {
	if kTRC, found := p.TagBySignature(SigKTRC); found {
		c, _, err := ReadCurve(kTRC.Data)
		if err != nil {
			return fmt.Errorf("malformed kTRC: %w", err)
		}
		p.TRC[0] = c
		p.TRC[1] = c
		p.TRC[2] = c
		p.HasTRC = true

		// Monochrome profiles scale the illuminant directly.
		p.ToXYZD50[0][0] = p.IlluminantX
		p.ToXYZD50[1][1] = p.IlluminantY
		p.ToXYZD50[2][2] = p.IlluminantZ
		p.HasToXYZD50 = true
	} else {
		rTRC, foundR := p.TagBySignature(SigRTRC)
		gTRC, foundG := p.TagBySignature(SigGTRC)
		bTRC, foundB := p.TagBySignature(SigBTRC)
		if foundR && foundG && foundB {
			for i, tag := range []Tag{rTRC, gTRC, bTRC} {
				c, _, err := ReadCurve(tag.Data)
				if err != nil {
					return fmt.Errorf("malformed %s: %w", iccio.SigString(tag.Signature), err)
				}
				p.TRC[i] = c
			}
			p.HasTRC = true
		}
	}

	rXYZ, foundR := p.TagBySignature(SigRXYZ)
	gXYZ, foundG := p.TagBySignature(SigGXYZ)
	bXYZ, foundB := p.TagBySignature(SigBXYZ)
	if foundR && foundG && foundB {
		for col, tag := range []Tag{rXYZ, gXYZ, bXYZ} {
			x, y, z, err := readXYZ(tag)
			if err != nil {
				return fmt.Errorf("malformed %s: %w", iccio.SigString(tag.Signature), err)
			}
			p.ToXYZD50[0][col] = x
			p.ToXYZD50[1][col] = y
			p.ToXYZD50[2][col] = z
		}
		p.HasToXYZD50 = true
	}

	// A2B1 (relative colorimetric) is preferred over A2B0 (perceptual),
	// matching how the TRC path is defined.
	for _, sig := range [2]uint32{SigA2B1, SigA2B0} {
		if tag, found := p.TagBySignature(sig); found {
			a2b, err := readA2B(tag)
			if err != nil {
				return fmt.Errorf("malformed %s: %w", iccio.SigString(sig), err)
			}
			p.A2B = a2b
			p.HasA2B = true
			break
		}
	}

	return nil
}
