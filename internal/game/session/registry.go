package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Observer receives broadcast accounting. observability.Metrics implements
// it.
type Observer interface {
	ObserveBroadcast(kind string)
	ObserveSlowPeer()
}

type nopObserver struct{}

func (nopObserver) ObserveBroadcast(string) {}
func (nopObserver) ObserveSlowPeer()        {}

// Registry tracks every live player in insertion order. All methods are safe
// for concurrent use.
type Registry struct {
	logger   *zap.Logger
	observer Observer

	// parked holds the kinds kept for players that are not ready yet. Nil
	// parks every kind.
	parked map[string]bool

	mu      sync.RWMutex
	order   []*Player
	players map[int32]*Player
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithParkedKinds parks only the given broadcast kinds for players that are
// not ready. Frames of any other kind are discarded for those players, whose
// Play entry sends a snapshot of the same state.
func WithParkedKinds(kinds ...string) RegistryOption {
	return func(r *Registry) {
		r.parked = make(map[string]bool, len(kinds))
		for _, k := range kinds {
			r.parked[k] = true
		}
	}
}

// NewRegistry creates an empty Registry. A nil observer discards accounting.
// Without WithParkedKinds every broadcast kind is parked.
func NewRegistry(logger *zap.Logger, observer Observer, opts ...RegistryOption) *Registry {
	if observer == nil {
		observer = nopObserver{}
	}
	r := &Registry{
		logger:   logger,
		observer: observer,
		players:  make(map[int32]*Player),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Parks reports whether frames of kind are held for a player that is not
// ready yet.
func (r *Registry) Parks(kind string) bool {
	return r.parked == nil || r.parked[kind]
}

// Add registers p.
//
// Postcondition: Returns an error if a player with the same entity id is
// already registered.
func (r *Registry) Add(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.players[p.ID()]; exists {
		return fmt.Errorf("entity %d already registered", p.ID())
	}
	r.players[p.ID()] = p
	r.order = append(r.order, p)
	return nil
}

// Remove unregisters the player with entity id and reports whether it was
// present.
func (r *Registry) Remove(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	r.order = slices.DeleteFunc(r.order, func(p *Player) bool { return p.ID() == id })
	return true
}

// Get returns the player with entity id.
func (r *Registry) Get(id int32) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

// Players returns a snapshot of the registered players in insertion order.
func (r *Registry) Players() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Broadcast delivers frame to every registered player once that player is
// ready. Players that are not ready receive it only if kind is parked.
func (r *Registry) Broadcast(kind string, frame []byte) {
	r.broadcast(kind, frame, func(*Player) bool { return true })
}

// BroadcastExcept delivers frame to every player but the one with entity id.
func (r *Registry) BroadcastExcept(kind string, frame []byte, id int32) {
	r.broadcast(kind, frame, func(p *Player) bool { return p.ID() != id })
}

func (r *Registry) broadcast(kind string, frame []byte, include func(*Player) bool) {
	r.observer.ObserveBroadcast(kind)
	for _, p := range r.Players() {
		if !include(p) {
			continue
		}
		r.deliver(p, kind, frame)
	}
}

func (r *Registry) deliver(p *Player, kind string, frame []byte) {
	var err error
	if r.Parks(kind) {
		err = p.Outbox().PushReady(frame)
	} else {
		err = p.Outbox().PushIfReady(frame)
	}
	switch {
	case err == nil, errors.Is(err, ErrOutboxClosed):
	case errors.Is(err, ErrOutboxFull):
		r.observer.ObserveSlowPeer()
		r.logger.Warn("dropping slow peer",
			zap.Int32("entity_id", p.ID()),
			zap.String("username", p.Username()),
			zap.String("kind", kind),
		)
	default:
		r.logger.Error("broadcast failed", zap.Int32("entity_id", p.ID()), zap.Error(err))
	}
}
