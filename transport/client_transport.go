// Package transport implements the client-side connection layer.
//
// A ClientTransport owns one TCP connection for the duration of a
// single request/response exchange: dial, write one frame, optionally
// read one frame, close. There is no connection reuse, no multiplexing
// of concurrent calls, and no keepalive — one connection serves
// exactly one exchange, which keeps the framing buffer exclusively
// owned and removes any need for sequence matching.
package transport

import (
	"fmt"
	"net"

	"mini-jsonrpc/protocol"
)

// ClientTransport is one dialed connection plus its frame codec.
type ClientTransport struct {
	conn   net.Conn
	framer *protocol.Framer
}

// Dial opens a TCP connection to addr and attaches a frame codec with
// a bufSize-byte read buffer (<= 0 selects the protocol default).
func Dial(addr string, bufSize int) (*ClientTransport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &ClientTransport{conn: conn, framer: protocol.NewFramer(conn, bufSize)}, nil
}

// WriteFrame sends one length-prefixed frame.
func (t *ClientTransport) WriteFrame(payload []byte) error {
	return t.framer.WriteMessage(payload)
}

// ReadFrame blocks until one complete frame arrives and returns its
// payload. The slice is valid until the next ReadFrame call.
func (t *ClientTransport) ReadFrame() ([]byte, error) {
	return t.framer.ReadMessage()
}

// Close tears down the connection.
func (t *ClientTransport) Close() error {
	return t.conn.Close()
}
