package gameserver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

const (
	brandChannel = "minecraft:brand"
	serverBrand  = "cubeserver"
)

// startConfiguration sends the replayed registry frames verbatim followed by
// the feature flags and FinishConfiguration.
func (s *Session) startConfiguration() error {
	for _, frame := range s.srv.replay {
		if err := s.sendFrame(frame); err != nil {
			return fmt.Errorf("replaying registry frames: %w", err)
		}
	}
	if err := s.send("FeatureFlags", protocol.Fields{
		"flags": []string{"minecraft:vanilla"},
	}); err != nil {
		return err
	}
	return s.send("FinishConfiguration", nil)
}

func (s *Session) onPluginMessage(f protocol.Fields) error {
	channel := f.String("channel")
	if channel != brandChannel {
		s.logger.Debug("ignoring plugin message", zap.String("channel", channel))
		return nil
	}
	brand, err := protocol.NewReader(f.Bytes("data")).String()
	if err != nil {
		return fmt.Errorf("client brand: %w", err)
	}
	s.logger.Debug("client brand", zap.String("brand", brand))
	return s.send("PluginMessage", protocol.Fields{
		"channel": brandChannel,
		"data":    protocol.NewWriter(16).String(serverBrand).Bytes(),
	})
}

func (s *Session) onKeepAlive(f protocol.Fields) error {
	id := f.Int64("keepAliveId")
	if !s.player.AnswerKeepAlive(id) {
		s.logger.Debug("stale keep-alive answer", zap.Int64("id", id))
	}
	return nil
}

func (s *Session) onFinishConfiguration(protocol.Fields) error {
	s.setState(protocol.Play)
	return s.enterPlay()
}
