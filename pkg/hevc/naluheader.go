// Package hevc contains a codec of the HEVC NAL unit header.
package hevc

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"

	"github.com/vidcap/hevcdepay/pkg/liberrors"
)

// NALUHeaderSize is the size of a HEVC NAL unit header.
const NALUHeaderSize = 2

// NALUHeader is a HEVC NAL unit header.
// Specification: ITU-T Rec. H.265, section 7.3.1.2
//
// The header is bit-packed as
// [F(1)|Type(6)|LayerIdHi(1)][LayerIdLo(5)|TID+1(3)].
// The forbidden bit must be zero and is not stored; Unmarshal rejects
// headers that have it set, and Marshal always writes it as zero.
type NALUHeader struct {
	Type h265.NALUType

	// must be 0 in this single-layer profile
	LayerID uint8

	// must be in range 1-7
	TemporalIDPlusOne uint8
}

// Unmarshal decodes a NALUHeader from the first two bytes of buf.
// The validations are conformance checks, not advisory: non-conforming
// headers are rejected, never coerced.
func (h *NALUHeader) Unmarshal(buf []byte) error {
	if len(buf) < NALUHeaderSize {
		return liberrors.FormatError{
			Reason: fmt.Sprintf("NAL unit header must be %d bytes long", NALUHeaderSize),
		}
	}

	if (buf[0] >> 7) != 0 {
		return liberrors.FormatError{
			Reason: "forbidden zero bit is set",
		}
	}

	h.Type = h265.NALUType((buf[0] >> 1) & 0b111111)
	h.LayerID = ((buf[0] & 0b1) << 5) | ((buf[1] >> 3) & 0b11111)
	h.TemporalIDPlusOne = buf[1] & 0b111

	if h.LayerID != 0 {
		return liberrors.FormatError{
			Reason: fmt.Sprintf("nuh_layer_id must be 0, got %d", h.LayerID),
		}
	}

	if h.TemporalIDPlusOne == 0 {
		return liberrors.FormatError{
			Reason: "nuh_temporal_id_plus1 must not be 0",
		}
	}

	return nil
}

// Marshal encodes a NALUHeader. It is the exact inverse of Unmarshal:
// for any header Unmarshal accepts, decoding then encoding returns the
// original bytes.
func (h NALUHeader) Marshal() ([]byte, error) {
	if h.Type > 0b111111 {
		return nil, fmt.Errorf("invalid NAL unit type: %d", h.Type)
	}
	if h.LayerID > 0b111111 {
		return nil, fmt.Errorf("invalid nuh_layer_id: %d", h.LayerID)
	}
	if h.TemporalIDPlusOne == 0 || h.TemporalIDPlusOne > 0b111 {
		return nil, fmt.Errorf("invalid nuh_temporal_id_plus1: %d", h.TemporalIDPlusOne)
	}

	return []byte{
		byte(h.Type)<<1 | (h.LayerID >> 5),
		(h.LayerID&0b11111)<<3 | h.TemporalIDPlusOne,
	}, nil
}

// IsVCL reports whether a NAL unit type belongs to the video coding
// layer (types 0 to 31).
func IsVCL(typ h265.NALUType) bool {
	return typ <= 31
}

// CanBePassedToDecoder reports whether NAL units of the given type may
// be passed to a decoder. NAL-unit-like structures with types in the
// range 48 to 63 must not.
// Specification: https://datatracker.ietf.org/doc/html/rfc7798#section-1.1.4
func CanBePassedToDecoder(typ h265.NALUType) bool {
	return typ <= 47
}
