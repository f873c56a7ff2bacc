package gameserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/game/entity"
	"github.com/cory-johannsen/cubeserver/internal/game/session"
	"github.com/cory-johannsen/cubeserver/internal/observability"
	"github.com/cory-johannsen/cubeserver/internal/protocol"
	"github.com/cory-johannsen/cubeserver/internal/text"
)

// Transport is a framed connection.
type Transport interface {
	ReadFrame() (protocol.Frame, error)
	Write(p []byte) (int, error)
	RemoteAddr() net.Addr
	Close() error
}

// Session is one connection: its protocol state and the player bound to it.
// Inbound frames are handled on a single goroutine in arrival order.
type Session struct {
	ctx    context.Context
	srv    *Server
	conn   Transport
	player *session.Player
	logger *zap.Logger

	state         atomic.Int32
	clientVersion int32

	// Set at Play entry, cancelled at teardown. Only the read goroutine
	// touches them.
	stopKeepAlive context.CancelFunc
	stopTick      func()
	spawned       bool
	peerClosed    bool

	teardownOnce sync.Once
}

func newSession(ctx context.Context, srv *Server, conn Transport) *Session {
	e := entity.New(srv.ids.Next(), entity.TypePlayer, srv.spawn())
	out := session.NewOutbox(srv.cfg.Server.OutboxSize, srv.cfg.Server.PendingLimit)
	s := &Session{
		ctx:    ctx,
		srv:    srv,
		conn:   conn,
		player: session.NewPlayer(e, out),
		logger: observability.SessionLogger(srv.logger, conn.RemoteAddr()),
	}
	s.setState(protocol.Handshaking)
	return s
}

// State returns the current protocol state.
func (s *Session) State() protocol.State { return protocol.State(s.state.Load()) }

func (s *Session) setState(st protocol.State) {
	prev := s.State()
	s.state.Store(int32(st))
	if prev != st {
		s.logger.Debug("state transition", zap.Stringer("from", prev), zap.Stringer("to", st))
	}
}

// readLoop handles frames until the transport fails or closes.
//
// Postcondition: Returns nil on a clean close, the *protocol.FramingError
// that ended the session, or the transport error.
func (s *Session) readLoop() error {
	for {
		f, err := s.conn.ReadFrame()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.logger.Debug("peer closed connection")
				s.peerClosed = true
				return nil
			case protocol.IsFatal(err):
				s.logger.Info("closing on framing error", zap.Error(err))
				return err
			default:
				select {
				case <-s.player.Outbox().Done():
					// closed by this side
					return nil
				default:
				}
				s.logger.Debug("transport error", zap.Error(err))
				return fmt.Errorf("transport: %w", err)
			}
		}
		s.handleFrame(f)
	}
}

// handleFrame decodes and dispatches one frame. Every failure is confined to
// the frame.
func (s *Session) handleFrame(f protocol.Frame) {
	state := s.State()
	s.srv.metrics.ObserveFrameIn(state.String())

	name, fields, err := protocol.Decode(state, f.ID, f.Body)
	if s.srv.cfg.Debug.Level > 1 {
		s.logger.Debug("frame received",
			zap.Stringer("state", state),
			zap.String("packet", name),
			zap.Int32("id", f.ID),
			zap.Int("length", len(f.Body)),
		)
	}
	if err != nil {
		var stateErr *protocol.ProtocolStateError
		var unimpl *protocol.UnimplementedPacketError
		switch {
		case errors.As(err, &stateErr):
			s.logger.Warn("dropping frame", zap.Error(err))
			s.srv.metrics.ObserveDrop(observability.DropUnknownOpcode)
		case errors.As(err, &unimpl):
			s.logger.Debug("dropping frame", zap.Error(err))
			s.srv.metrics.ObserveDrop(observability.DropUnimplemented)
		default:
			s.logger.Warn("dropping malformed frame", zap.String("packet", name), zap.Error(err))
			s.srv.metrics.ObserveDrop(observability.DropMalformed)
		}
		return
	}

	h, ok := handlers[handlerKey{state, f.ID}]
	if !ok {
		s.logger.Debug("no handler", zap.String("packet", name), zap.Stringer("state", state))
		s.srv.metrics.ObserveDrop(observability.DropUnimplemented)
		return
	}
	if err := s.invoke(state, name, h, fields); err != nil {
		s.logger.Error("handler failed", zap.String("packet", name), zap.Error(err))
		s.srv.metrics.ObserveDrop(observability.DropHandlerError)
	}
}

func (s *Session) invoke(state protocol.State, name string, h handlerFunc, f protocol.Fields) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{State: state, Packet: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if herr := h(s, f); herr != nil {
		return &HandlerError{State: state, Packet: name, Err: herr}
	}
	return nil
}

// send encodes a clientbound packet for the current state and queues it.
func (s *Session) send(name string, f protocol.Fields) error {
	frame, err := protocol.Encode(s.State(), name, f)
	if err != nil {
		return err
	}
	return s.sendFrame(frame)
}

func (s *Session) sendFrame(frame []byte) error {
	err := s.player.Outbox().Push(frame)
	if errors.Is(err, session.ErrOutboxFull) {
		s.srv.metrics.ObserveSlowPeer()
		s.logger.Warn("outbox full, closing session")
	}
	return err
}

// disconnect sends a Disconnect packet when the state has one and closes the
// session once queued frames are written.
func (s *Session) disconnect(reason text.Component) {
	var err error
	switch s.State() {
	case protocol.Login:
		var b []byte
		if b, err = reason.JSON(); err == nil {
			err = s.send("Disconnect", protocol.Fields{"reason": string(b)})
		}
	case protocol.Configuration, protocol.Play:
		err = s.send("Disconnect", protocol.Fields{"reason": reason})
	}
	if err != nil {
		s.logger.Debug("sending disconnect", zap.Error(err))
	}
	s.logger.Info("disconnecting", zap.String("reason", reason.String()))
	s.player.Outbox().Close()
}

// teardown runs once when the read loop ends.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		if s.stopKeepAlive != nil {
			s.stopKeepAlive()
		}
		if s.stopTick != nil {
			s.stopTick()
		}

		p := s.player
		if s.spawned {
			if err := s.srv.broadcastExcept(kindDespawn, p.ID(), "RemoveEntities", protocol.Fields{
				"entityIds": []int32{p.ID()},
			}); err != nil {
				s.logger.Error("despawn broadcast", zap.Error(err))
			}
		}
		s.srv.registry.Remove(p.ID())

		if !p.LoggedIn() {
			return
		}
		if err := s.srv.broadcast(kindPlayerInfo, "PlayerInfoRemove", protocol.Fields{
			"uuids": []uuid.UUID{p.UUID()},
		}); err != nil {
			s.logger.Error("player info removal", zap.Error(err))
		}
		if err := s.srv.broadcast(kindChat, "SystemChatMessage", protocol.Fields{
			"content": leaveLine(p.Username()),
			"overlay": false,
		}); err != nil {
			s.logger.Error("leave broadcast", zap.Error(err))
		}
		s.logger.Info("player left")
	})
}
