package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrVarIntTooBig is returned when a VarInt runs past 5 bytes.
	ErrVarIntTooBig = errors.New("varint is too big")
	// ErrVarLongTooBig is returned when a VarLong runs past 10 bytes.
	ErrVarLongTooBig = errors.New("varlong is too big")
	// ErrShortBuffer is returned when a payload ends inside a field.
	ErrShortBuffer = errors.New("short buffer")
)

// FramingError reports corrupt framing. The stream cannot be resynchronised
// and the connection must be closed.
type FramingError struct {
	Reason string
	Err    error
}

func (e *FramingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("framing: %s: %v", e.Reason, e.Err)
	}
	return "framing: " + e.Reason
}

func (e *FramingError) Unwrap() error { return e.Err }

// ProtocolStateError reports a frame that is unknown or illegal in the
// session's current state. Only the frame is dropped.
type ProtocolStateError struct {
	State State
	ID    int32
	Name  string
}

func (e *ProtocolStateError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("packet %s (0x%02x) not handled in state %s", e.Name, e.ID, e.State)
	}
	return fmt.Sprintf("unknown packet 0x%02x in state %s", e.ID, e.State)
}

// UnimplementedPacketError reports an encode or decode request for a packet
// without a registered schema.
type UnimplementedPacketError struct {
	Direction Direction
	State     State
	Name      string
}

func (e *UnimplementedPacketError) Error() string {
	return fmt.Sprintf("unimplemented packet %s/%s/%s", e.Direction, e.State, e.Name)
}

// IsFatal reports whether err must terminate the connection.
func IsFatal(err error) bool {
	var fe *FramingError
	return errors.As(err, &fe)
}
