// Package bitstream contains an Annex-B HEVC bitstream writer.
package bitstream

import (
	"io"

	"github.com/vidcap/hevcdepay/pkg/hevc"
	"github.com/vidcap/hevcdepay/pkg/rtph265"
)

// StartCode is the 3-byte Annex-B start code that delimits NAL units.
var StartCode = []byte{0x00, 0x00, 0x01}

// Writer serializes reconstructed NAL units into a start-code-delimited
// byte stream, directly consumable by standard HEVC bitstream readers.
// Each unit is written as start code, 2-byte NAL unit header, payload,
// with no container or trailing framing.
type Writer struct {
	W io.Writer
}

// WriteNALU writes a single NAL unit.
//
// Units that were reassembled from a fragmentation unit run carry no
// original header, so one is synthesized from the unit type, with
// layer id 0 and temporal id plus one 1; the temporal id of the
// fragmented unit is not preserved across fragmentation.
func (w *Writer) WriteNALU(nalu *rtph265.NALU) error {
	hdr := nalu.Header
	if nalu.Origin == rtph265.OriginFragmented {
		hdr = hevc.NALUHeader{
			Type:              nalu.Type,
			LayerID:           0,
			TemporalIDPlusOne: 1,
		}
	}

	buf, err := hdr.Marshal()
	if err != nil {
		return err
	}

	_, err = w.W.Write(StartCode)
	if err != nil {
		return err
	}

	_, err = w.W.Write(buf)
	if err != nil {
		return err
	}

	_, err = w.W.Write(nalu.Payload)
	return err
}
