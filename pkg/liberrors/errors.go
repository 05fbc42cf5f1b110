// Package liberrors contains the errors shared by all packages of the library.
package liberrors

import (
	"fmt"
)

// FormatError is returned when a fixed-width header field is malformed:
// a packet shorter than a required header, or an invalid bit pattern.
// It is fatal to the offending packet; a caller may skip the packet and
// resume, in which case any in-flight fragment reassembly has already
// been reset.
type FormatError struct {
	Reason string
}

// Error implements the error interface.
func (e FormatError) Error() string {
	return "invalid format: " + e.Reason
}

// ProtocolViolationError is returned when structurally well-formed bytes
// violate the fragmentation-unit sequencing contract. It is fatal to the
// current reassembly, which is reset, but not necessarily to the run.
type ProtocolViolationError struct {
	// index of the packet within the input sequence, -1 when unknown
	PacketIndex int

	Reason string
}

// Error implements the error interface.
func (e ProtocolViolationError) Error() string {
	if e.PacketIndex < 0 {
		return "protocol violation: " + e.Reason
	}
	return fmt.Sprintf("protocol violation at packet %d: %s", e.PacketIndex, e.Reason)
}

// UnsupportedFeatureError is returned when a payload class the engine
// cannot interpret is encountered. It is fatal to the whole run, since
// continuing past it could silently skip picture data.
type UnsupportedFeatureError struct {
	// index of the packet within the input sequence, -1 when unknown
	PacketIndex int

	Feature string
}

// Error implements the error interface.
func (e UnsupportedFeatureError) Error() string {
	if e.PacketIndex < 0 {
		return e.Feature + " is not supported"
	}
	return fmt.Sprintf("%s is not supported (packet %d)", e.Feature, e.PacketIndex)
}
