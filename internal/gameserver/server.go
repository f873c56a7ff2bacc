// Package gameserver implements the per-connection protocol state machine:
// dispatch of inbound frames by state and opcode, the handshake, status,
// login, configuration and play handlers, Play entry, and teardown.
package gameserver

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/config"
	"github.com/cory-johannsen/cubeserver/internal/frontend/tcp"
	"github.com/cory-johannsen/cubeserver/internal/game/entity"
	"github.com/cory-johannsen/cubeserver/internal/game/session"
	"github.com/cory-johannsen/cubeserver/internal/game/world"
	"github.com/cory-johannsen/cubeserver/internal/observability"
	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// Server owns the state shared by every session: the player registry, the
// world, the tick driver and the entity id allocator.
type Server struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *session.Registry
	world    *world.Store
	ticker   *session.Ticker
	metrics  *observability.Metrics
	probe    *observability.Probe
	replay   [][]byte
	ids      entity.Allocator
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[int32]*Session
}

// NewServer creates a Server.
//
// Precondition: registry, store, ticker, metrics, probe and logger must be
// non-nil. replay holds complete frames sent verbatim during configuration.
// Postcondition: Returns a Server ready to handle sessions.
func NewServer(
	cfg config.Config,
	registry *session.Registry,
	store *world.Store,
	ticker *session.Ticker,
	metrics *observability.Metrics,
	probe *observability.Probe,
	replay [][]byte,
	logger *zap.Logger,
) *Server {
	if cfg.Debug.Level > 0 {
		// registered ahead of every session, so each Step samples the heap
		// once before the overlays read it
		ticker.Register(func(int) { probe.SampleHeap() })
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		world:    store,
		ticker:   ticker,
		metrics:  metrics,
		probe:    probe,
		replay:   replay,
		now:      time.Now,
		sessions: make(map[int32]*Session),
	}
}

func (s *Server) spawn() protocol.Vec3 {
	g := s.cfg.Gameplay
	return protocol.Vec3{X: g.SpawnX, Y: g.SpawnY, Z: g.SpawnZ}
}

// LoadReplayFrames reads captured frame files. Each file holds one or more
// complete frames, kept byte for byte.
//
// Postcondition: Returns an error naming the first file that cannot be read
// or does not parse as whole frames.
func LoadReplayFrames(paths []string) ([][]byte, error) {
	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading replay frames %q: %w", p, err)
		}
		frames, err := protocol.ParseFrames(b)
		if err != nil {
			return nil, fmt.Errorf("replay frames %q: %w", p, err)
		}
		if len(frames) == 0 {
			return nil, fmt.Errorf("replay frames %q: file holds no frames", p)
		}
		out = append(out, b)
	}
	return out, nil
}

// HandleSession implements tcp.SessionHandler.
func (s *Server) HandleSession(ctx context.Context, conn *tcp.Conn) error {
	return s.Serve(ctx, conn)
}

// Serve runs one session on conn until the peer disconnects, the session is
// closed, or ctx is cancelled. conn is closed on return.
//
// Postcondition: The session's player has been removed from the registry and
// its timers cancelled.
func (s *Server) Serve(ctx context.Context, conn Transport) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := newSession(ctx, s, conn)
	if err := s.registry.Add(sess.player); err != nil {
		conn.Close()
		return fmt.Errorf("registering session: %w", err)
	}
	s.track(sess)
	s.metrics.SessionsActive.Inc()
	defer s.metrics.SessionsActive.Dec()

	writeDone := make(chan error, 1)
	go func() {
		err := sess.player.Outbox().Run(ctx, countingWriter{w: conn, m: s.metrics})
		// Closing the socket unblocks the reader.
		conn.Close()
		writeDone <- err
	}()

	readErr := sess.readLoop()
	sess.teardown()
	s.untrack(sess)

	sess.player.Outbox().Close()
	writeErr := <-writeDone

	if sess.player.Outbox().Aborted() {
		return fmt.Errorf("slow peer: %w", session.ErrOutboxFull)
	}
	if readErr != nil {
		return readErr
	}
	if sess.peerClosed {
		// Frames still queued for a departed peer cannot be delivered.
		return nil
	}
	return writeErr
}

type countingWriter struct {
	w io.Writer
	m *observability.Metrics
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err == nil {
		c.m.FramesOut.Inc()
	}
	return n, err
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.player.ID()] = sess
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.player.ID())
}

// SessionInfo is a point-in-time view of one session.
type SessionInfo struct {
	EntityID int32  `json:"entity_id"`
	Username string `json:"username"`
	State    string `json:"state"`
	Ready    bool   `json:"ready"`
}

// Sessions lists open sessions ordered by entity id.
func (s *Server) Sessions() []SessionInfo {
	s.mu.RLock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for id, sess := range s.sessions {
		out = append(out, SessionInfo{
			EntityID: id,
			Username: sess.player.Username(),
			State:    sess.State().String(),
			Ready:    sess.player.Ready(),
		})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// broadcast encodes a play packet once and fans it out to every ready
// player.
func (s *Server) broadcast(kind, name string, f protocol.Fields) error {
	frame, err := protocol.Encode(protocol.Play, name, f)
	if err != nil {
		return err
	}
	s.registry.Broadcast(kind, frame)
	return nil
}

// broadcastExcept is broadcast without the player with entity id.
func (s *Server) broadcastExcept(kind string, id int32, name string, f protocol.Fields) error {
	frame, err := protocol.Encode(protocol.Play, name, f)
	if err != nil {
		return err
	}
	s.registry.BroadcastExcept(kind, frame, id)
	return nil
}
