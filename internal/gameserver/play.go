package gameserver

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/game/entity"
	"github.com/cory-johannsen/cubeserver/internal/game/world"
	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

const (
	hotbarFirstSlot  = 36
	actionDigStarted = 0
)

// itemBlocks maps the item ids of placeable creative items to the block state
// they place.
var itemBlocks = map[int32]world.BlockState{
	1:  world.Stone,
	27: world.GrassBlock,
	28: world.Dirt,
	35: world.Cobblestone,
	36: world.OakPlanks,
}

func (s *Session) onPlayPing(f protocol.Fields) error {
	return s.send("PingResponse", protocol.Fields{"payload": f.Int64("payload")})
}

func (s *Session) onChatMessage(f protocol.Fields) error {
	name := s.player.Username()
	msg := f.String("message")
	s.logger.Info("chat", zap.String("message", msg))
	return s.srv.broadcast(kindChat, "SystemChatMessage", protocol.Fields{
		"content": chatLine(name, msg),
		"overlay": false,
	})
}

func (s *Session) onSetPosition(f protocol.Fields) error {
	p := s.player
	to := f.Vec3("position")
	onGround := f.Bool("onGround")
	from := p.SetPosition(to)
	p.SetOnGround(onGround)
	return s.srv.broadcastExcept(kindMovement, p.ID(), "UpdateEntityPosition", protocol.Fields{
		"entityId": p.ID(),
		"deltaX":   entity.Delta(from.X, to.X),
		"deltaY":   entity.Delta(from.Y, to.Y),
		"deltaZ":   entity.Delta(from.Z, to.Z),
		"onGround": onGround,
	})
}

func (s *Session) onSetPositionAndRotation(f protocol.Fields) error {
	p := s.player
	to := f.Vec3("position")
	onGround := f.Bool("onGround")
	from := p.SetPosition(to)
	rot := p.SetRotation(f.Rotation("rotation"))
	p.SetOnGround(onGround)
	if err := s.srv.broadcastExcept(kindMovement, p.ID(), "UpdateEntityPositionAndRotation", protocol.Fields{
		"entityId": p.ID(),
		"deltaX":   entity.Delta(from.X, to.X),
		"deltaY":   entity.Delta(from.Y, to.Y),
		"deltaZ":   entity.Delta(from.Z, to.Z),
		"yaw":      rot.Yaw,
		"pitch":    rot.Pitch,
		"onGround": onGround,
	}); err != nil {
		return err
	}
	return s.broadcastHeadRotation(rot)
}

func (s *Session) onSetRotation(f protocol.Fields) error {
	p := s.player
	onGround := f.Bool("onGround")
	rot := p.SetRotation(f.Rotation("rotation"))
	p.SetOnGround(onGround)
	if err := s.srv.broadcastExcept(kindMovement, p.ID(), "UpdateEntityRotation", protocol.Fields{
		"entityId": p.ID(),
		"yaw":      rot.Yaw,
		"pitch":    rot.Pitch,
		"onGround": onGround,
	}); err != nil {
		return err
	}
	return s.broadcastHeadRotation(rot)
}

func (s *Session) broadcastHeadRotation(rot protocol.Rotation) error {
	return s.srv.broadcastExcept(kindMovement, s.player.ID(), "SetHeadRotation", protocol.Fields{
		"entityId": s.player.ID(),
		"headYaw":  rot.Yaw,
	})
}

func (s *Session) onSetOnGround(f protocol.Fields) error {
	s.player.SetOnGround(f.Bool("onGround"))
	return nil
}

func (s *Session) animate(animation int) error {
	return s.srv.broadcastExcept(kindAnimation, s.player.ID(), "EntityAnimation", protocol.Fields{
		"entityId":  s.player.ID(),
		"animation": animation,
	})
}

func (s *Session) onSwingArm(f protocol.Fields) error {
	if f.Int32("hand") != 0 {
		return s.animate(animationSwingOffhand)
	}
	return s.animate(animationSwingMainArm)
}

func (s *Session) onInteract(protocol.Fields) error {
	return s.animate(animationSwingMainArm)
}

func (s *Session) onPlayerCommand(f protocol.Fields) error {
	p := s.player
	action := entity.Action(f.Int32("actionId"))
	// only this session's goroutine writes the player's metadata
	entries := entity.ActionEntries(p.Flags(), action)
	if entries == nil {
		return nil
	}
	meta, err := p.SetMetadata(entries...)
	if err != nil {
		return err
	}
	if err := s.srv.broadcast(kindMetadata, "SetEntityMetadata", protocol.Fields{
		"entityId": p.ID(),
		"metadata": meta,
	}); err != nil {
		return err
	}
	if action == entity.ActionStopSneaking {
		// standing is the client default, so players spawning this entity
		// later need no pose entry
		if _, _, err := p.RemoveMetadata(entity.IndexPose); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) onSetHeldItem(f protocol.Fields) error {
	slot := int16(f.Int32("slot"))
	if !s.player.SetHeldSlot(slot) {
		return fmt.Errorf("held slot %d out of range", slot)
	}
	return nil
}

func (s *Session) onSetCreativeSlot(f protocol.Fields) error {
	slot := int16(f.Int32("slot"))
	s.player.SetSlot(slot, bytes.Clone(f.Bytes("item")))
	return nil
}

// heldBlock returns the block placed by the item in the selected hotbar
// slot. Empty slots and items that are not known blocks place Stone.
func (s *Session) heldBlock() world.BlockState {
	item, ok := s.player.Slot(hotbarFirstSlot + s.player.HeldSlot())
	if !ok {
		return world.Stone
	}
	r := protocol.NewReader(item)
	present, err := r.Bool()
	if err != nil || !present {
		return world.Stone
	}
	id, err := r.VarInt()
	if err != nil {
		return world.Stone
	}
	if b, ok := itemBlocks[id]; ok {
		return b
	}
	return world.Stone
}

func (s *Session) acknowledge(sequence int32) error {
	return s.send("AcknowledgeBlockChange", protocol.Fields{"sequenceId": sequence})
}

func (s *Session) onUseItemOn(f protocol.Fields) error {
	at := f.Position("location").Offset(f.Int32("face"))
	block := s.heldBlock()
	_, setErr := s.srv.world.SetBlock(at, block)
	if setErr == nil {
		s.logger.Debug("placed block",
			zap.Stringer("block", block),
			zap.Int32("x", at.X), zap.Int32("y", at.Y), zap.Int32("z", at.Z),
		)
	}
	return errors.Join(setErr, s.acknowledge(f.Int32("sequence")))
}

func (s *Session) onPlayerAction(f protocol.Fields) error {
	if f.Int32("status") != actionDigStarted {
		return nil
	}
	_, setErr := s.srv.world.SetBlock(f.Position("location"), world.Air)
	return errors.Join(setErr, s.acknowledge(f.Int32("sequence")))
}
