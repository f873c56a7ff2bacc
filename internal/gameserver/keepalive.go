package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
	"github.com/cory-johannsen/cubeserver/internal/text"
)

// startKeepAlive sends a keep-alive every interval until teardown. A
// keep-alive left unanswered past the timeout closes the session.
func (s *Session) startKeepAlive() {
	ctx, cancel := context.WithCancel(s.ctx)
	s.stopKeepAlive = cancel

	interval := s.srv.cfg.Gameplay.KeepAliveInterval
	timeout := s.srv.cfg.Gameplay.KeepAliveTimeout
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}

			now := s.srv.now()
			if timeout > 0 && s.player.KeepAliveOverdue(now, timeout) {
				s.logger.Info("keep-alive timed out", zap.Duration("timeout", timeout))
				s.disconnect(text.Plain("Timed out"))
				return
			}
			id := s.player.NextKeepAlive(now)
			if err := s.send("KeepAlive", protocol.Fields{"keepAliveId": id}); err != nil {
				return
			}
		}
	}()
}
