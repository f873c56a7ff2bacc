package gameserver

import (
	"fmt"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// HandlerError reports a packet handler that failed or panicked. The frame
// is dropped and the session continues.
type HandlerError struct {
	State  protocol.State
	Packet string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handling %s/%s: %v", e.State, e.Packet, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
