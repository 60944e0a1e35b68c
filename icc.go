package icc_go

import (
	"io"

	"github.com/kpfaulkner/icc-go/profile"
)

// Parse validates and decodes an in-memory ICC profile. The returned
// Profile borrows buf; see profile.Parse.
func Parse(buf []byte) (*profile.Profile, error) {
	return profile.Parse(buf)
}

// Decode reads an entire ICC profile stream and parses it.
func Decode(r io.Reader) (*profile.Profile, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return profile.Parse(buf)
}
