package gameserver

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/game/entity"
	"github.com/cory-johannsen/cubeserver/internal/game/session"
	"github.com/cory-johannsen/cubeserver/internal/game/world"
	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

const overworld = "minecraft:overworld"

// enterPlay runs the Play entry sequence. The session is marked ready only
// after the initial position sync and chunk stream are queued, so broadcasts
// parked before then arrive after the client has its world.
func (s *Session) enterPlay() error {
	p := s.player
	cfg := s.srv.cfg
	radius := int32(cfg.Gameplay.ViewRadius)

	if err := s.send("Login", protocol.Fields{
		"entityId":            p.ID(),
		"isHardcore":          false,
		"dimensionNames":      []string{overworld},
		"maxPlayers":          cfg.Server.MaxPlayers,
		"viewDistance":        radius,
		"simulationDistance":  radius,
		"reducedDebugInfo":    false,
		"enableRespawnScreen": true,
		"doLimitedCrafting":   false,
		"dimensionType":       overworld,
		"dimensionName":       overworld,
		"hashedSeed":          int64(0),
		"gameMode":            session.GameModeCreative,
		"previousGameMode":    -1,
		"isDebug":             false,
		"isFlat":              false,
		"hasDeathLocation":    false,
		"portalCooldown":      0,
	}); err != nil {
		return err
	}
	if err := s.send("GameEvent", protocol.Fields{
		"event": gameEventStartWaitingForChunks,
		"value": float32(0),
	}); err != nil {
		return err
	}
	if err := s.syncPosition(0); err != nil {
		return err
	}

	s.startKeepAlive()

	if err := s.announceProfile(); err != nil {
		return err
	}
	if err := s.streamChunks(radius); err != nil {
		return err
	}
	// Resync once terrain is queued so the client does not fall through.
	if err := s.syncPosition(1); err != nil {
		return err
	}
	if err := s.send("EntityEffect", protocol.Fields{
		"entityId":      p.ID(),
		"effectId":      effectNightVision,
		"amplifier":     40,
		"duration":      1000000,
		"flags":         0x02,
		"hasFactorData": false,
	}); err != nil {
		return err
	}

	if err := p.Outbox().MarkReady(); err != nil {
		return fmt.Errorf("marking ready: %w", err)
	}
	s.logger.Info("player ready")

	if err := s.srv.broadcast(kindChat, "SystemChatMessage", protocol.Fields{
		"content": joinLine(p.Username()),
		"overlay": false,
	}); err != nil {
		return err
	}
	if err := s.exchangeSpawns(); err != nil {
		return err
	}

	if cfg.Debug.Level > 0 {
		s.stopTick = s.srv.ticker.Register(s.tick)
	}
	return nil
}

func (s *Session) syncPosition(teleportID int32) error {
	return s.send("SynchronizePlayerPosition", protocol.Fields{
		"position":   s.player.Position(),
		"rotation":   s.player.Rotation(),
		"flags":      0,
		"teleportId": teleportID,
	})
}

// announceProfile sends this player's tab-list profile to itself and every
// other player, and the profiles of ready players to this one.
func (s *Session) announceProfile() error {
	p := s.player
	p.QueueInfo(session.InfoAll)
	frame := playerInfoUpdate(p, p.TakeInfo())
	if err := s.sendFrame(frame); err != nil {
		return err
	}
	s.srv.registry.BroadcastExcept(kindPlayerInfo, frame, p.ID())

	for _, other := range s.srv.registry.Players() {
		if other.ID() == p.ID() || !other.Ready() {
			continue
		}
		if err := s.sendFrame(playerInfoUpdate(other, session.InfoAll)); err != nil {
			return err
		}
	}
	return nil
}

// streamChunks sends the chunks in [-radius, radius) around the spawn chunk.
func (s *Session) streamChunks(radius int32) error {
	pos := s.player.Position()
	cx, _ := world.ChunkCoords(int32(math.Floor(pos.X)))
	cz, _ := world.ChunkCoords(int32(math.Floor(pos.Z)))
	if err := s.send("SetCenterChunk", protocol.Fields{"chunkX": cx, "chunkZ": cz}); err != nil {
		return err
	}
	for x := cx - radius; x < cx+radius; x++ {
		for z := cz - radius; z < cz+radius; z++ {
			c, err := s.srv.world.Chunk(x, z)
			if err != nil {
				return fmt.Errorf("loading chunk (%d, %d): %w", x, z, err)
			}
			frame, err := c.Encode()
			if err != nil {
				return fmt.Errorf("encoding chunk (%d, %d): %w", x, z, err)
			}
			if err := s.sendFrame(frame); err != nil {
				return err
			}
		}
	}
	s.logger.Debug("streamed chunks", zap.Int32("radius", radius))
	return nil
}

// exchangeSpawns spawns this player's entity for every other player and
// every other ready player's entity for this one.
func (s *Session) exchangeSpawns() error {
	p := s.player
	if err := s.srv.broadcastExcept(kindSpawn, p.ID(), "SpawnEntity", spawnFields(p, entity.TypePlayer)); err != nil {
		return err
	}
	meta, err := metadataFields(p)
	if err != nil {
		return err
	}
	if err := s.srv.broadcastExcept(kindMetadata, p.ID(), "SetEntityMetadata", meta); err != nil {
		return err
	}
	s.spawned = true

	for _, other := range s.srv.registry.Players() {
		if other.ID() == p.ID() || !other.Ready() {
			continue
		}
		if err := s.send("SpawnEntity", spawnFields(other, entity.TypePlayer)); err != nil {
			return err
		}
		meta, err := metadataFields(other)
		if err != nil {
			return err
		}
		if err := s.send("SetEntityMetadata", meta); err != nil {
			return err
		}
	}
	return nil
}

// tick runs on the ticker goroutine.
func (s *Session) tick(n int) {
	used, total := s.srv.probe.LastHeap()
	frame, err := protocol.Encode(protocol.Play, "SystemChatMessage", protocol.Fields{
		"content": overlayLine(used, total, s.player.Position(), n),
		"overlay": true,
	})
	if err != nil {
		s.logger.Error("encoding overlay", zap.Error(err))
		return
	}
	_ = s.sendFrame(frame)
}
