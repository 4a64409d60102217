// Package shortvec implements the compact-u16 length encoding used in
// the transaction wire format.
package shortvec

import (
	"fmt"
	"io"
	"math"
)

// EncodeLen writes length to w using the compact-u16 encoding, where
// each byte carries 7 bits and the high bit marks a continuation.
// Lengths above math.MaxUint16 are rejected.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length > math.MaxUint16 {
		return 0, fmt.Errorf("len exceeds %d", math.MaxUint16)
	}

	var written int
	buf := make([]byte, 1)

	for {
		buf[0] = byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			n, err := w.Write(buf)
			return written + n, err
		}

		buf[0] |= 0x80
		n, err := w.Write(buf)
		written += n
		if err != nil {
			return written, err
		}
	}
}

// DecodeLen reads a compact-u16 encoded length from r. Encodings longer
// than three bytes exceed the uint16 range and are rejected.
func DecodeLen(r io.Reader) (int, error) {
	var val, size int
	buf := make([]byte, 1)

	for {
		if _, err := r.Read(buf); err != nil {
			return 0, err
		}

		val |= int(buf[0]&0x7f) << (size * 7)
		size++

		if buf[0]&0x80 == 0 {
			break
		}
	}

	if size > 3 {
		return 0, fmt.Errorf("invalid size: %d (max 3)", size)
	}

	return val, nil
}
