// Package protocol implements the length-prefixed frame codec.
//
// It solves TCP's sticky packet problem with a minimal wire format: a
// 4-byte little-endian unsigned length followed by exactly that many
// bytes of JSON payload. The receiver buffers raw bytes, decodes the
// prefix, and slices out complete payloads.
//
// Frame format:
//
//	0         4
//	┌─────────┬───────────────┐
//	│ length  │   payload     │
//	│ uint32  │ length bytes  │
//	└─────────┴───────────────┘
//
// Unlike a bufio-style reader, the Framer never grows its buffer. The
// caller sizes it once for the largest expected message; anything
// bigger fails with ErrFrameTooLarge. This trades robustness for
// deterministic memory use.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
)

// PrefixSize is the byte length of the frame length prefix.
const PrefixSize = 4

// DefaultBufferSize is the read buffer size used when the caller does
// not specify one. Large enough for any reasonable JSON-RPC batch.
const DefaultBufferSize = 64 * 1024

var (
	// ErrClosed reports that the peer closed the transport while a
	// frame was expected. Distinct from an I/O failure so callers can
	// treat normal disconnects quietly.
	ErrClosed = errors.New("protocol: connection closed")

	// ErrFrameTooLarge reports a frame whose prefix+payload exceeds
	// the Framer's buffer capacity. The Framer performs no growth.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds buffer capacity")
)

// Framer reads and writes length-prefixed frames over a duplex byte
// stream. It owns one fixed read buffer and two cursors:
//
//	start — first unconsumed byte
//	pos   — first empty byte
//
// Bytes in buf[start:pos] have been received but not yet returned as a
// complete frame. A Framer is exclusively owned by one connection and
// one goroutine; it is not safe for concurrent use.
type Framer struct {
	rw    io.ReadWriter
	buf   []byte
	start int
	pos   int
}

// NewFramer wraps rw with a frame codec using a bufSize-byte read
// buffer. bufSize <= 0 selects DefaultBufferSize.
func NewFramer(rw io.ReadWriter, bufSize int) *Framer {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Framer{rw: rw, buf: make([]byte, bufSize)}
}

// ReadMessage returns the payload of the next complete frame.
//
// The returned slice is a view into the Framer's buffer. It is valid
// only until the next ReadMessage call, which may overwrite it; the
// caller must decode or copy the payload first.
func (f *Framer) ReadMessage() ([]byte, error) {
	for {
		if payload, ok := f.extract(); ok {
			return payload, nil
		}
		if err := f.ensureSpace(f.needed()); err != nil {
			return nil, err
		}
		n, err := f.rw.Read(f.buf[f.pos:])
		if n > 0 {
			// Consume the bytes first; an EOF delivered alongside data
			// is handled on the next iteration.
			f.pos += n
			continue
		}
		if err == nil || errors.Is(err, io.EOF) {
			// A zero-length read signals transport closure.
			return nil, ErrClosed
		}
		return nil, err
	}
}

// extract attempts to slice one complete frame out of the buffered
// bytes. It returns false when more data must be read first.
func (f *Framer) extract() ([]byte, bool) {
	unread := f.pos - f.start
	if unread < PrefixSize {
		return nil, false
	}
	length := int(binary.LittleEndian.Uint32(f.buf[f.start:]))
	total := PrefixSize + length
	if unread < total {
		return nil, false
	}
	payload := f.buf[f.start+PrefixSize : f.start+total]
	f.start += total
	return payload, true
}

// needed reports how many contiguous bytes, measured from start, the
// pending frame requires. Before the prefix is complete only the
// prefix size is known.
func (f *Framer) needed() int {
	if f.pos-f.start < PrefixSize {
		return PrefixSize
	}
	return PrefixSize + int(binary.LittleEndian.Uint32(f.buf[f.start:]))
}

// ensureSpace guarantees the region [start, start+required) fits in
// the buffer before blocking for more data. If the frame would fit in
// the buffer overall but not in the remaining tail, the unread bytes
// are compacted to the front (start reset to 0). If the frame cannot
// fit at all, ErrFrameTooLarge is returned.
func (f *Framer) ensureSpace(required int) error {
	if required > len(f.buf) {
		return ErrFrameTooLarge
	}
	if required <= len(f.buf)-f.start {
		return nil
	}
	copy(f.buf, f.buf[f.start:f.pos])
	f.pos -= f.start
	f.start = 0
	return nil
}

// WriteMessage writes one frame: the 4-byte little-endian length
// prefix followed by the payload. The gather write (net.Buffers) goes
// out as a single writev on a TCP connection and retries short writes
// until both segments are flushed.
func (f *Framer) WriteMessage(payload []byte) error {
	var prefix [PrefixSize]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	bufs := net.Buffers{prefix[:], payload}
	_, err := bufs.WriteTo(f.rw)
	return err
}
