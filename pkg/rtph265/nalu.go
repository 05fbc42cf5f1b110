package rtph265

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"

	"github.com/vidcap/hevcdepay/pkg/hevc"
)

// Origin tells how a NALU was carried over RTP.
type Origin int

// origins.
const (
	// the NALU was carried by a single packet.
	OriginDirect Origin = iota

	// the NALU was reassembled from a fragmentation unit run.
	OriginFragmented
)

// NALU is a reconstructed NAL unit.
type NALU struct {
	Origin Origin

	// NAL unit type. For fragmented units it comes from the FU header
	// of the starting fragment.
	Type h265.NALUType

	// original NAL unit header. Valid only when Origin is OriginDirect:
	// FU payloads never include the header of the fragmented unit, so
	// reassembled units carry the type alone.
	Header hevc.NALUHeader

	// payload bytes, without the NAL unit header.
	Payload []byte
}
