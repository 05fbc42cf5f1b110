// Package cat contains a reader and a writer of the "cat" container,
// a flat file of length-prefixed records used to store and replay a
// sequence of raw captured datagrams.
//
// Each record is MAGIC("cat", 3 bytes), length (uint32, big-endian),
// payload (length bytes), concatenated with no inter-record separator.
// The stream ends when fewer than 7 bytes remain.
package cat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vidcap/hevcdepay/pkg/liberrors"
)

const (
	magic      = "cat"
	headerSize = 7

	// records hold single captured UDP datagrams, so no valid record
	// is larger than the maximum datagram size. The bound also keeps
	// a corrupt length field from forcing a huge allocation.
	maxRecordSize = 65535
)

// Reader reads the records of a cat container in order.
type Reader struct {
	R io.Reader
}

// Next returns the payload of the next record. It returns io.EOF when
// fewer than 7 bytes remain in the stream.
func (r *Reader) Next() ([]byte, error) {
	var hdr [headerSize]byte
	_, err := io.ReadFull(r.R, hdr[:])
	if err != nil {
		// a partial header means the stream is over
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	if string(hdr[:3]) != magic {
		return nil, liberrors.FormatError{
			Reason: fmt.Sprintf("invalid cat record magic %q", hdr[:3]),
		}
	}

	length := binary.BigEndian.Uint32(hdr[3:])
	if length > maxRecordSize {
		return nil, liberrors.FormatError{
			Reason: fmt.Sprintf("cat record is too big (%d bytes, maximum is %d)", length, maxRecordSize),
		}
	}

	payload := make([]byte, length)
	_, err = io.ReadFull(r.R, payload)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, liberrors.FormatError{
				Reason: fmt.Sprintf("cat record payload truncated (expected %d bytes)", length),
			}
		}
		return nil, err
	}

	return payload, nil
}

// Writer appends records to a cat container.
type Writer struct {
	W io.Writer
}

// WriteRecord writes a single record.
func (w *Writer) WriteRecord(payload []byte) error {
	if len(payload) > maxRecordSize {
		return fmt.Errorf("record is too big (%d bytes, maximum is %d)", len(payload), maxRecordSize)
	}

	var hdr [headerSize]byte
	copy(hdr[:], magic)
	binary.BigEndian.PutUint32(hdr[3:], uint32(len(payload)))

	_, err := w.W.Write(hdr[:])
	if err != nil {
		return err
	}

	_, err = w.W.Write(payload)
	return err
}
