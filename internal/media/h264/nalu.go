// Package h264 splits H.264 access units into NAL units.
package h264

import (
	"encoding/binary"

	errors "golang.org/x/xerrors"
)

// NAL unit types used by the decoder path.
const (
	TypeSlice = 1
	TypeIDR   = 5
	TypeSEI   = 6
	TypeSPS   = 7
	TypePPS   = 8
	TypeAUD   = 9
)

type NALU []byte

func (nalu NALU) ForbiddenBit() byte {
	return nalu[0] & 0x80 >> 7
}

func (nalu NALU) NRI() byte {
	return nalu[0] & 0x60 >> 5
}

func (nalu NALU) Type() byte {
	return nalu[0] & 0x1f
}

// SplitAVCC splits 4-byte length-prefixed NAL units. Zero-length units are
// dropped.
func SplitAVCC(avcc []byte) ([]NALU, error) {
	var units []NALU
	for len(avcc) > 0 {
		if len(avcc) < 4 {
			return nil, errors.Errorf("truncated NALU length: %d bytes left", len(avcc))
		}
		n := int(binary.BigEndian.Uint32(avcc))
		avcc = avcc[4:]
		if n > len(avcc) {
			return nil, errors.Errorf("NALU length %d exceeds remaining %d bytes", n, len(avcc))
		}
		if n > 0 {
			units = append(units, NALU(avcc[:n]))
		}
		avcc = avcc[n:]
	}
	return units, nil
}

// HasIDR reports whether any unit is an IDR slice.
func HasIDR(units []NALU) bool {
	for _, u := range units {
		if u.Type() == TypeIDR {
			return true
		}
	}
	return false
}
