// Package rtph265 contains a RTP/H265 depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/rfc7798
package rtph265

import (
	"errors"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"

	"github.com/vidcap/hevcdepay/pkg/hevc"
	"github.com/vidcap/hevcdepay/pkg/liberrors"
	"github.com/vidcap/hevcdepay/pkg/rtpheader"
)

// PacketSource produces the raw RTP packets of a stream, one at a
// time, in original transmission order. It returns io.EOF when no
// packets remain.
type PacketSource func() ([]byte, error)

// Depacketizer extracts NAL units from an ordered sequence of raw RTP
// packets. Single-NAL-unit packets and fragmentation units are
// supported; aggregation packets and PACI packets are rejected with
// liberrors.UnsupportedFeatureError.
//
// The packet sequence is assumed to be complete and in original
// transmission order: sequence numbers are never used to detect gaps
// or reorder packets, and a missing or reordered packet surfaces as a
// sequencing error, not as a recovered stream. Ordering is entirely
// the responsibility of the capture layer.
//
// A Depacketizer is a single-pass, forward-only iterator; consuming
// the stream twice requires a new Depacketizer over a new source.
type Depacketizer struct {
	// Source provides the raw RTP packets.
	Source PacketSource

	// OnPacket, if set, is called with the RTP header of every packet
	// before it is dispatched. Diagnostics only: the header is never
	// used to alter processing.
	OnPacket func(packetIndex int, hdr *rtpheader.Header)

	frag     reassembler
	index    int
	fatalErr error
}

// Next returns the next reconstructed NAL unit, pulling as many
// packets from the source as needed. It returns io.EOF when the
// source is exhausted.
//
// A liberrors.FormatError or liberrors.ProtocolViolationError is
// fatal to the offending packet or fragment run, whose reassembly
// state has already been reset; the caller may keep calling Next to
// skip past it. A liberrors.UnsupportedFeatureError is fatal to the
// whole run and is returned by every subsequent call.
func (d *Depacketizer) Next() (*NALU, error) {
	if d.fatalErr != nil {
		return nil, d.fatalErr
	}

	for {
		buf, err := d.Source()
		if err != nil {
			if errors.Is(err, io.EOF) && d.frag.inFlight() {
				d.frag.reset()
				return nil, liberrors.ProtocolViolationError{
					PacketIndex: d.index - 1,
					Reason:      "stream ended with a fragment run in flight",
				}
			}
			return nil, err
		}

		i := d.index
		d.index++

		var rh rtpheader.Header
		err = rh.Unmarshal(buf)
		if err != nil {
			d.frag.reset()
			return nil, err
		}

		payload, err := rh.Payload(buf)
		if err != nil {
			d.frag.reset()
			return nil, err
		}

		if d.OnPacket != nil {
			d.OnPacket(i, &rh)
		}

		var nh hevc.NALUHeader
		err = nh.Unmarshal(payload)
		if err != nil {
			d.frag.reset()
			return nil, err
		}

		switch nh.Type {
		case h265.NALUType_FragmentationUnit:
			if !d.frag.inFlight() {
				err = d.frag.start(payload, i)
				if err != nil {
					return nil, err
				}
				continue
			}

			var nalu *NALU
			nalu, err = d.frag.cont(payload, i)
			if err != nil {
				return nil, err
			}
			if nalu == nil {
				continue
			}
			return nalu, nil

		case h265.NALUType_AggregationUnit:
			d.frag.reset()
			d.fatalErr = liberrors.UnsupportedFeatureError{
				PacketIndex: i,
				Feature:     "aggregation packet",
			}
			return nil, d.fatalErr

		case h265.NALUType_PACI:
			d.frag.reset()
			d.fatalErr = liberrors.UnsupportedFeatureError{
				PacketIndex: i,
				Feature:     "PACI packet",
			}
			return nil, d.fatalErr

		default:
			return &NALU{
				Origin:  OriginDirect,
				Type:    nh.Type,
				Header:  nh,
				Payload: payload[hevc.NALUHeaderSize:],
			}, nil
		}
	}
}
