package testutil

import (
	"bufio"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// Client speaks the game protocol from the client side for tests.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	state  protocol.State
	t      *testing.T
}

// NewClient wraps an established connection.
//
// Precondition: conn must be connected to a server session.
// Postcondition: conn is closed when the test ends.
func NewClient(t *testing.T, conn net.Conn) *Client {
	t.Helper()
	t.Cleanup(func() { conn.Close() })
	return &Client{conn: conn, reader: bufio.NewReader(conn), state: protocol.Handshaking, t: t}
}

// Dial connects to addr and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected Client or fails the test.
func Dial(t *testing.T, addr string) *Client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	return NewClient(t, conn)
}

// State returns the state the client believes the session is in.
func (c *Client) State() protocol.State { return c.state }

// SetState switches the state used to name packets.
func (c *Client) SetState(s protocol.State) { c.state = s }

// SendRaw writes b verbatim.
func (c *Client) SendRaw(b []byte) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write(b); err != nil {
		c.t.Fatalf("writing %d bytes: %v", len(b), err)
	}
}

// Frame returns the framed serverbound packet name in the client's state.
func (c *Client) Frame(name string, body *protocol.Writer) []byte {
	c.t.Helper()
	id, ok := protocol.Opcodes.ID(protocol.Serverbound, c.state, name)
	if !ok {
		c.t.Fatalf("no serverbound %s in state %s", name, c.state)
	}
	var b []byte
	if body != nil {
		b = body.Bytes()
	}
	return protocol.EncodeFrame(id, b)
}

// Send writes the serverbound packet name in the client's state.
func (c *Client) Send(name string, body *protocol.Writer) {
	c.t.Helper()
	c.SendRaw(c.Frame(name, body))
}

// Handshake returns a Handshake frame selecting next.
func Handshake(version int32, next int32) []byte {
	w := protocol.NewWriter(32).VarInt(version).String("localhost").UShort(25565).VarInt(next)
	return protocol.EncodeFrame(protocol.Opcodes.MustID(protocol.Serverbound, protocol.Handshaking, "Handshake"), w.Bytes())
}

// ReadFrame reads the next frame, failing the test after timeout.
func (c *Client) ReadFrame(timeout time.Duration) protocol.Frame {
	c.t.Helper()
	f, err := c.TryReadFrame(timeout)
	if err != nil {
		c.t.Fatalf("reading frame in state %s: %v", c.state, err)
	}
	return f
}

// TryReadFrame reads the next frame or returns the read error.
func (c *Client) TryReadFrame(timeout time.Duration) (protocol.Frame, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	return protocol.ReadFrame(c.reader, protocol.MaxFrameLength)
}

// Name returns the clientbound name of f in the client's state.
func (c *Client) Name(f protocol.Frame) string {
	name, ok := protocol.Opcodes.Name(protocol.Clientbound, c.state, f.ID)
	if !ok {
		return "unknown"
	}
	return name
}

// Expect reads frames until one named name arrives and returns it. Frames
// before it are discarded.
func (c *Client) Expect(name string, timeout time.Duration) protocol.Frame {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("timed out waiting for %s in state %s", name, c.state)
		}
		f := c.ReadFrame(remaining)
		if c.Name(f) == name {
			return f
		}
	}
}

// ExpectNone fails the test if a frame named name arrives within wait.
func (c *Client) ExpectNone(name string, wait time.Duration) {
	c.t.Helper()
	deadline := time.Now().Add(wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		f, err := c.TryReadFrame(remaining)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return
			}
			c.t.Fatalf("reading frame: %v", err)
		}
		if c.Name(f) == name {
			c.t.Fatalf("unexpected %s in state %s", name, c.state)
		}
	}
}

// Closed waits for the server to close the connection.
//
// Postcondition: Returns true if the stream ended before timeout.
func (c *Client) Closed(timeout time.Duration) bool {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := c.TryReadFrame(time.Until(deadline)); err != nil {
			return !errors.Is(err, os.ErrDeadlineExceeded)
		}
	}
	return false
}

// Login runs handshake, login and configuration as name and returns once the
// Play entry sequence has delivered the night vision effect.
//
// Postcondition: The client is in the Play state.
func (c *Client) Login(name string, timeout time.Duration) {
	c.t.Helper()
	c.Configure(name, timeout)
	c.FinishConfiguration(timeout)
}

// Configure runs handshake and login as name and stops once the server has
// sent FinishConfiguration, leaving the session in the Configuration state.
func (c *Client) Configure(name string, timeout time.Duration) {
	c.t.Helper()
	c.SendRaw(Handshake(765, 2))
	c.state = protocol.Login
	c.Send("LoginStart", protocol.NewWriter(32).String(name).UUID([16]byte{}))
	c.Expect("LoginSuccess", timeout)
	c.Send("LoginAcknowledged", nil)

	c.state = protocol.Configuration
	c.Expect("FinishConfiguration", timeout)
}

// FinishConfiguration acknowledges the end of configuration and reads up to
// the night vision effect that closes the Play entry sequence.
//
// Precondition: Configure must have returned.
func (c *Client) FinishConfiguration(timeout time.Duration) {
	c.t.Helper()
	c.Send("AcknowledgeFinishConfiguration", nil)
	c.state = protocol.Play
	c.Expect("EntityEffect", timeout)
}
