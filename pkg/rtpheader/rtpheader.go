// Package rtpheader contains a decoder of the RTP fixed header.
package rtpheader

import (
	"encoding/binary"
	"fmt"

	"github.com/vidcap/hevcdepay/pkg/liberrors"
)

// fixed header size, without CSRC identifiers.
const fixedHeaderSize = 12

// AssignedType is a static payload type assignment from the IANA
// RTP payload-type registry.
// https://www.iana.org/assignments/rtp-parameters/rtp-parameters.xhtml
type AssignedType uint8

// static assignments.
const (
	AssignedTypePCMU    AssignedType = 0
	AssignedTypeGSM     AssignedType = 3
	AssignedTypeG723    AssignedType = 4
	AssignedTypeDVI48   AssignedType = 5
	AssignedTypeDVI416  AssignedType = 6
	AssignedTypeLPC     AssignedType = 7
	AssignedTypePCMA    AssignedType = 8
	AssignedTypeG722    AssignedType = 9
	AssignedTypeL16St   AssignedType = 10
	AssignedTypeL16Mono AssignedType = 11
	AssignedTypeQCELP   AssignedType = 12
	AssignedTypeCN      AssignedType = 13
	AssignedTypeMPA     AssignedType = 14
	AssignedTypeG728    AssignedType = 15
	AssignedTypeDVI411  AssignedType = 16
	AssignedTypeDVI422  AssignedType = 17
	AssignedTypeG729    AssignedType = 18
	AssignedTypeCelB    AssignedType = 25
	AssignedTypeJPEG    AssignedType = 26
	AssignedTypeNV      AssignedType = 28
	AssignedTypeH261    AssignedType = 31
	AssignedTypeMPV     AssignedType = 32
	AssignedTypeMP2T    AssignedType = 33
	AssignedTypeH263    AssignedType = 34
	AssignedTypeMPEGPS  AssignedType = 96
)

var assignedTypeLabels = map[AssignedType]string{
	AssignedTypePCMU:    "PCMU",
	AssignedTypeGSM:     "GSM",
	AssignedTypeG723:    "G723",
	AssignedTypeDVI48:   "DVI4/8000",
	AssignedTypeDVI416:  "DVI4/16000",
	AssignedTypeLPC:     "LPC",
	AssignedTypePCMA:    "PCMA",
	AssignedTypeG722:    "G722",
	AssignedTypeL16St:   "L16/stereo",
	AssignedTypeL16Mono: "L16/mono",
	AssignedTypeQCELP:   "QCELP",
	AssignedTypeCN:      "CN",
	AssignedTypeMPA:     "MPA",
	AssignedTypeG728:    "G728",
	AssignedTypeDVI411:  "DVI4/11025",
	AssignedTypeDVI422:  "DVI4/22050",
	AssignedTypeG729:    "G729",
	AssignedTypeCelB:    "CelB",
	AssignedTypeJPEG:    "JPEG",
	AssignedTypeNV:      "nv",
	AssignedTypeH261:    "H261",
	AssignedTypeMPV:     "MPV",
	AssignedTypeMP2T:    "MP2T",
	AssignedTypeH263:    "H263",
	AssignedTypeMPEGPS:  "MPEG-PS",
}

// String implements fmt.Stringer.
func (at AssignedType) String() string {
	if l, ok := assignedTypeLabels[at]; ok {
		return l
	}
	return fmt.Sprintf("unknown (%d)", uint8(at))
}

// PayloadType is a 7-bit RTP payload type code, resolved against the
// IANA registry when the code matches a static assignment and kept as
// a raw integer otherwise. Both cases are uniformly a payload type
// code; Known tells which one applies.
type PayloadType struct {
	Raw      uint8
	Assigned AssignedType
	Known    bool
}

func resolvePayloadType(code uint8) PayloadType {
	if _, ok := assignedTypeLabels[AssignedType(code)]; ok {
		return PayloadType{
			Raw:      code,
			Assigned: AssignedType(code),
			Known:    true,
		}
	}
	return PayloadType{Raw: code}
}

// String implements fmt.Stringer.
func (pt PayloadType) String() string {
	if pt.Known {
		return pt.Assigned.String()
	}
	return fmt.Sprintf("%d", pt.Raw)
}

// Header is a RTP fixed header.
// Specification: https://datatracker.ietf.org/doc/html/rfc3550#section-5.1
type Header struct {
	Version        uint8
	Padding        bool
	Extension      bool
	CSRCCount      uint8
	Marker         bool
	PayloadType    PayloadType
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
}

// Unmarshal decodes the fixed header from the start of a packet.
// CSRC identifiers are skipped, never decoded.
func (h *Header) Unmarshal(buf []byte) error {
	if len(buf) < fixedHeaderSize {
		return liberrors.FormatError{
			Reason: fmt.Sprintf("packet is too short to contain a RTP header (%d bytes)", len(buf)),
		}
	}

	h.Version = (buf[0] >> 6) & 0b11
	h.Padding = ((buf[0] >> 5) & 0b1) != 0
	h.Extension = ((buf[0] >> 4) & 0b1) != 0
	h.CSRCCount = buf[0] & 0b1111
	h.Marker = ((buf[1] >> 7) & 0b1) != 0
	h.PayloadType = resolvePayloadType(buf[1] & 0b1111111)
	h.SequenceNumber = binary.BigEndian.Uint16(buf[2:4])
	h.Timestamp = binary.BigEndian.Uint32(buf[4:8])
	h.SSRC = binary.BigEndian.Uint32(buf[8:12])

	return nil
}

// PayloadOffset returns the offset of the payload within the packet
// the header was decoded from.
func (h *Header) PayloadOffset() int {
	return fixedHeaderSize + 4*int(h.CSRCCount)
}

// Payload returns the payload portion of a packet whose fixed header
// has been decoded into h.
func (h *Header) Payload(pkt []byte) ([]byte, error) {
	off := h.PayloadOffset()
	if len(pkt) < off {
		return nil, liberrors.FormatError{
			Reason: fmt.Sprintf("packet is too short to contain its CSRC identifiers (%d < %d)",
				len(pkt), off),
		}
	}
	return pkt[off:], nil
}
