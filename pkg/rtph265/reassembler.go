package rtph265

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"

	"github.com/vidcap/hevcdepay/pkg/liberrors"
)

// reassembler accumulates the payload bytes of consecutive
// fragmentation unit packets belonging to one fragmented NAL unit.
// It has exactly two states, idle and accumulating; at most one
// reassembly is in flight at a time.
type reassembler struct {
	accumulating bool
	typ          h265.NALUType
	buf          []byte
}

func (r *reassembler) inFlight() bool {
	return r.accumulating
}

// reset force-clears the reassembler to idle.
func (r *reassembler) reset() {
	r.accumulating = false
	r.typ = 0
	r.buf = nil
}

// start begins a reassembly from the starting fragment of a run.
func (r *reassembler) start(payload []byte, packetIndex int) error {
	if r.accumulating {
		r.reset()
		return liberrors.ProtocolViolationError{
			PacketIndex: packetIndex,
			Reason:      "fragment start while a fragment run is in flight",
		}
	}

	fuh, frag, err := parseFragmentationUnit(payload, packetIndex)
	if err != nil {
		return err
	}

	if !fuh.Start {
		return liberrors.ProtocolViolationError{
			PacketIndex: packetIndex,
			Reason:      "fragment run started without the S bit",
		}
	}

	if fuh.End {
		return liberrors.ProtocolViolationError{
			PacketIndex: packetIndex,
			Reason:      "fragment can't contain both the S and E bit",
		}
	}

	r.accumulating = true
	r.typ = fuh.Type
	r.buf = append([]byte(nil), frag...)

	return nil
}

// cont feeds a continuation fragment into an in-flight reassembly.
// When the fragment carries the E bit, the reassembled NALU is
// returned and the reassembler goes back to idle; otherwise it
// returns nil and keeps accumulating.
func (r *reassembler) cont(payload []byte, packetIndex int) (*NALU, error) {
	if !r.accumulating {
		return nil, liberrors.ProtocolViolationError{
			PacketIndex: packetIndex,
			Reason:      "fragment continuation without a preceding start",
		}
	}

	fuh, frag, err := parseFragmentationUnit(payload, packetIndex)
	if err != nil {
		r.reset()
		return nil, err
	}

	if fuh.Start {
		r.reset()
		return nil, liberrors.ProtocolViolationError{
			PacketIndex: packetIndex,
			Reason:      "S bit set in the middle of a fragment run",
		}
	}

	if (len(r.buf) + len(frag)) > h265.MaxAccessUnitSize {
		size := len(r.buf) + len(frag)
		r.reset()
		return nil, liberrors.FormatError{
			Reason: fmt.Sprintf("fragmented NALU size (%d) is too big, maximum is %d",
				size, h265.MaxAccessUnitSize),
		}
	}

	r.buf = append(r.buf, frag...)

	if !fuh.End {
		return nil, nil
	}

	nalu := &NALU{
		Origin:  OriginFragmented,
		Type:    r.typ,
		Payload: r.buf,
	}
	r.reset()

	return nalu, nil
}
