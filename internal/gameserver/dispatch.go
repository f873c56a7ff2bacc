package gameserver

import (
	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

type handlerFunc func(s *Session, f protocol.Fields) error

type handlerKey struct {
	state protocol.State
	id    int32
}

// handlers maps a (state, serverbound id) pair to its handler. A decoded
// packet without an entry is dropped.
var handlers = make(map[handlerKey]handlerFunc)

func handle(state protocol.State, name string, h handlerFunc) {
	id := protocol.Opcodes.MustID(protocol.Serverbound, state, name)
	handlers[handlerKey{state, id}] = h
}

// absorb accepts a packet and does nothing with it.
func absorb(*Session, protocol.Fields) error { return nil }

func init() {
	handle(protocol.Handshaking, "Handshake", (*Session).onHandshake)

	handle(protocol.Status, "StatusRequest", (*Session).onStatusRequest)
	handle(protocol.Status, "PingRequest", (*Session).onStatusPing)

	handle(protocol.Login, "LoginStart", (*Session).onLoginStart)
	handle(protocol.Login, "LoginAcknowledged", (*Session).onLoginAcknowledged)

	handle(protocol.Configuration, "ClientInformation", absorb)
	handle(protocol.Configuration, "PluginMessage", (*Session).onPluginMessage)
	handle(protocol.Configuration, "KeepAlive", (*Session).onKeepAlive)
	handle(protocol.Configuration, "AcknowledgeFinishConfiguration", (*Session).onFinishConfiguration)

	handle(protocol.Play, "ConfirmTeleportation", absorb)
	handle(protocol.Play, "ClientInformation", absorb)
	handle(protocol.Play, "PluginMessage", absorb)
	handle(protocol.Play, "ChunkBatchReceived", absorb)
	handle(protocol.Play, "KeepAlive", (*Session).onKeepAlive)
	handle(protocol.Play, "PingRequest", (*Session).onPlayPing)
	handle(protocol.Play, "ChatMessage", (*Session).onChatMessage)
	handle(protocol.Play, "SetPlayerPosition", (*Session).onSetPosition)
	handle(protocol.Play, "SetPlayerPositionAndRotation", (*Session).onSetPositionAndRotation)
	handle(protocol.Play, "SetPlayerRotation", (*Session).onSetRotation)
	handle(protocol.Play, "SetPlayerOnGround", (*Session).onSetOnGround)
	handle(protocol.Play, "SwingArm", (*Session).onSwingArm)
	handle(protocol.Play, "Interact", (*Session).onInteract)
	handle(protocol.Play, "PlayerCommand", (*Session).onPlayerCommand)
	handle(protocol.Play, "SetHeldItem", (*Session).onSetHeldItem)
	handle(protocol.Play, "SetCreativeModeSlot", (*Session).onSetCreativeSlot)
	handle(protocol.Play, "UseItemOn", (*Session).onUseItemOn)
	handle(protocol.Play, "PlayerAction", (*Session).onPlayerAction)
}
