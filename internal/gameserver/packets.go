package gameserver

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/cory-johannsen/cubeserver/internal/game/entity"
	"github.com/cory-johannsen/cubeserver/internal/game/session"
	"github.com/cory-johannsen/cubeserver/internal/game/world"
	"github.com/cory-johannsen/cubeserver/internal/protocol"
	"github.com/cory-johannsen/cubeserver/internal/text"
)

// Broadcast kinds, used as metric labels.
const (
	kindChat       = "chat"
	kindPlayerInfo = "player_info"
	kindSpawn      = "spawn"
	kindDespawn    = "despawn"
	kindMovement   = "movement"
	kindAnimation  = "animation"
	kindMetadata   = "metadata"
)

// ParkedKinds are the broadcast kinds held for a player that is still
// joining. Chunks are encoded before the player is ready, so block changes
// stay parked. Spawns, despawns, movement, animation and metadata are
// covered by the snapshot exchanged after ready.
var ParkedKinds = []string{
	kindChat,
	kindPlayerInfo,
	world.KindBlockUpdate,
	world.KindWorldEvent,
}

const (
	gameEventStartWaitingForChunks = 13
	effectNightVision              = 15
	animationSwingMainArm          = 0
	animationSwingOffhand          = 3
)

// playerInfoUpdate builds a PlayerInfoUpdate frame for one player carrying
// the given action bits. Actions are written in bit order as the client
// expects.
func playerInfoUpdate(p *session.Player, actions byte) []byte {
	w := protocol.NewWriter(64)
	w.Byte(actions).VarInt(1).UUID(p.UUID())
	if actions&session.InfoAddPlayer != 0 {
		w.String(p.Username()).VarInt(0)
	}
	if actions&session.InfoInitializeChat != 0 {
		w.Bool(false)
	}
	if actions&session.InfoUpdateGameMode != 0 {
		w.VarInt(session.GameModeCreative)
	}
	if actions&session.InfoUpdateListed != 0 {
		w.Bool(true)
	}
	if actions&session.InfoUpdateLatency != 0 {
		w.VarInt(0)
	}
	if actions&session.InfoUpdateDisplayName != 0 {
		w.Bool(false)
	}
	id := protocol.Opcodes.MustID(protocol.Clientbound, protocol.Play, "PlayerInfoUpdate")
	return protocol.EncodeFrame(id, w.Bytes())
}

// spawnFields describes e for SpawnEntity.
func spawnFields(e entity.Tracked, typ entity.Type) protocol.Fields {
	pos := e.Position()
	rot := e.Rotation()
	return protocol.Fields{
		"entityId":   e.ID(),
		"entityUuid": e.UUID(),
		"type":       int32(typ),
		"x":          pos.X,
		"y":          pos.Y,
		"z":          pos.Z,
		"pitch":      rot.Pitch,
		"yaw":        rot.Yaw,
		"headYaw":    rot.Yaw,
		"data":       0,
		"velocityX":  0,
		"velocityY":  0,
		"velocityZ":  0,
	}
}

func metadataFields(e entity.Tracked) (protocol.Fields, error) {
	b, err := e.MetadataBytes()
	if err != nil {
		return nil, err
	}
	return protocol.Fields{"entityId": e.ID(), "metadata": b}, nil
}

var nameColors = [...]string{
	text.Red, text.Green, text.Blue, text.Yellow, text.LightPurple,
	text.Aqua, text.Gray, text.Gold, text.White,
}

// stringHash is the 31-multiplier hash over UTF-16 code units, wrapping at
// 32 bits.
func stringHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	return h
}

// NameColor picks a stable chat color for a username.
func NameColor(name string) string {
	h := int64(stringHash(name))
	if h < 0 {
		h = -h
	}
	i := h % 10
	if int(i) >= len(nameColors) {
		return text.White
	}
	return nameColors[i]
}

func joinLine(name string) text.Component {
	return text.Spans(
		text.Colored("[", text.Gray),
		text.Colored("+", text.Green),
		text.Colored("] ", text.Gray),
		text.Colored(name, text.Green),
	)
}

func leaveLine(name string) text.Component {
	return text.Spans(
		text.Colored("[", text.Gray),
		text.Colored("-", text.Red),
		text.Colored("] ", text.Gray),
		text.Colored(name, text.Red),
	)
}

func chatLine(name, message string) text.Component {
	return text.Spans(
		text.Colored("[", text.Gray),
		text.Colored(name, NameColor(name)),
		text.Colored("] ", text.Gray),
		text.Colored(message, text.White),
	)
}

func roundHalfUp(v float64) float64 { return math.Floor(v + 0.5) }

func megabytes(b uint64) string {
	mb := roundHalfUp(float64(b)/1024/1024*100) / 100
	return strconv.FormatFloat(mb, 'f', -1, 64) + " MB"
}

// heapColor maps heap usage to green, yellow or red at the 30, 60 and 80
// percent marks. Usage under 30 percent is red as well.
func heapColor(percent int) string {
	switch {
	case percent >= 80:
		return text.Red
	case percent >= 60:
		return text.Yellow
	case percent >= 30:
		return text.Green
	default:
		return text.Red
	}
}

// overlayLine renders the action bar debug readout.
func overlayLine(heapUsed, heapTotal uint64, pos protocol.Vec3, tick int) text.Component {
	percent := 0
	if heapTotal > 0 {
		percent = int(roundHalfUp(float64(heapUsed) / float64(heapTotal) * 100))
	}
	coord := func(v float64) string { return strconv.FormatInt(int64(roundHalfUp(v)), 10) }
	return text.Spans(
		text.Colored(fmt.Sprintf("%s / %s (%d%%)", megabytes(heapUsed), megabytes(heapTotal), percent), heapColor(percent)),
		text.Colored(" | ", text.Gray),
		text.Colored(coord(pos.X), text.Red),
		text.Colored(", ", text.Gray),
		text.Colored(coord(pos.Y), text.Green),
		text.Colored(", ", text.Gray),
		text.Colored(coord(pos.Z), text.Blue),
		text.Colored(" | ", text.Gray),
		text.Colored("Tick: "+strconv.Itoa(tick), text.White),
	)
}
