package rtph265

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"

	"github.com/vidcap/hevcdepay/pkg/hevc"
	"github.com/vidcap/hevcdepay/pkg/liberrors"
)

// FragmentationUnitHeader is the 1-byte header that follows the
// FU-wrapper NAL unit header inside a fragmentation unit payload.
// Specification: https://datatracker.ietf.org/doc/html/rfc7798#section-4.4.3
type FragmentationUnitHeader struct {
	Start bool
	End   bool

	// type of the fragmented NAL unit, not of the FU wrapper.
	Type h265.NALUType
}

// Unmarshal decodes a FragmentationUnitHeader.
func (h *FragmentationUnitHeader) Unmarshal(buf []byte) error {
	if len(buf) < 1 {
		return liberrors.FormatError{
			Reason: "FU header must be 1 byte long",
		}
	}

	h.Start = ((buf[0] >> 7) & 0b1) != 0
	h.End = ((buf[0] >> 6) & 0b1) != 0
	h.Type = h265.NALUType(buf[0] & 0b111111)

	return nil
}

// parseFragmentationUnit splits a fragmentation unit payload into its
// FU header and fragment bytes. The fragment bytes are a slice of the
// input, not a copy.
func parseFragmentationUnit(payload []byte, packetIndex int) (FragmentationUnitHeader, []byte, error) {
	if len(payload) < 4 {
		return FragmentationUnitHeader{}, nil, liberrors.FormatError{
			Reason: fmt.Sprintf("fragmentation unit payload is too short (%d bytes)", len(payload)),
		}
	}

	var wrapper hevc.NALUHeader
	err := wrapper.Unmarshal(payload[:hevc.NALUHeaderSize])
	if err != nil {
		return FragmentationUnitHeader{}, nil, err
	}

	if wrapper.Type != h265.NALUType_FragmentationUnit {
		return FragmentationUnitHeader{}, nil, liberrors.ProtocolViolationError{
			PacketIndex: packetIndex,
			Reason: fmt.Sprintf("FU wrapper NAL unit type is %d, expected %d",
				wrapper.Type, h265.NALUType_FragmentationUnit),
		}
	}

	var fuh FragmentationUnitHeader
	err = fuh.Unmarshal(payload[2:])
	if err != nil {
		return FragmentationUnitHeader{}, nil, err
	}

	return fuh, payload[3:], nil
}
