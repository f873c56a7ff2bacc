// Package tcp accepts game protocol connections and exposes each one as a
// framed Conn.
package tcp

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// Conn wraps a TCP connection with protocol framing. Reads are buffered, so
// frames that arrive together in one segment are returned one at a time.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
	maxFrame     int
}

// NewConn wraps a raw TCP connection.
//
// Precondition: raw must be a valid, open network connection.
// Postcondition: Returns a Conn ready for reading and writing. Zero timeouts
// disable the corresponding deadline.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 8192),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		maxFrame:     protocol.MaxFrameLength,
	}
}

// ReadFrame reads the next frame.
//
// Postcondition: Returns io.EOF on a clean close between frames, a
// *protocol.FramingError for corrupt framing, or the transport error.
func (c *Conn) ReadFrame() (protocol.Frame, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return protocol.ReadFrame(c.reader, c.maxFrame)
}

// Write writes an encoded frame. Concurrent writes are serialised.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.raw.Write(p)
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}
