// Package protocol implements the wire codec for the game protocol: primitive
// types, length-prefixed framing, the opcode table and declared packet schemas.
package protocol

import "fmt"

// State is a connection's protocol phase. An opcode is only meaningful
// relative to (Direction, State).
type State int

const (
	Handshaking State = iota
	Status
	Login
	Configuration
	Play
)

// String returns the lower-case state name used in logs, metrics and the
// opcode table.
func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Status:
		return "status"
	case Login:
		return "login"
	case Configuration:
		return "configuration"
	case Play:
		return "play"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState maps a table key back to its State.
func ParseState(name string) (State, bool) {
	for s := Handshaking; s <= Play; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Direction identifies which side sends a packet.
type Direction int

const (
	Serverbound Direction = iota
	Clientbound
)

// String returns the table key of the direction.
func (d Direction) String() string {
	if d == Serverbound {
		return "serverbound"
	}
	return "clientbound"
}

// Handshake next-state selectors.
const (
	NextStateStatus = 1
	NextStateLogin  = 2
)

// ProtocolVersion is the protocol number of the emulated game version.
const ProtocolVersion = 765

// GameVersion is the display name of the emulated game version.
const GameVersion = "1.20.4"
