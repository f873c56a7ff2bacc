package session

import (
	"sync"
	"time"

	"github.com/cory-johannsen/cubeserver/internal/game/entity"
)

// Player info actions carried by PlayerInfoUpdate.
const (
	InfoAddPlayer         byte = 0x01
	InfoInitializeChat    byte = 0x02
	InfoUpdateGameMode    byte = 0x04
	InfoUpdateListed      byte = 0x08
	InfoUpdateLatency     byte = 0x10
	InfoUpdateDisplayName byte = 0x20

	InfoAll = InfoAddPlayer | InfoInitializeChat | InfoUpdateGameMode |
		InfoUpdateListed | InfoUpdateLatency | InfoUpdateDisplayName
)

// GameModeCreative is the only game mode players are placed in.
const GameModeCreative = 1

// Player is a connected player: the entity it controls plus the per-player
// state that is not broadcast as entity data. Player embeds the entity so
// broadcast code can treat it as an entity.Tracked.
type Player struct {
	*entity.Entity
	out *Outbox

	mu          sync.RWMutex
	username    string
	loggedIn    bool
	heldSlot    int16
	slots       map[int16][]byte
	pendingInfo byte

	keepAliveID     int64
	keepAliveSentAt time.Time
	keepAliveOpen   bool
}

// NewPlayer creates a player for a freshly accepted connection.
//
// Precondition: e and out must be non-nil.
func NewPlayer(e *entity.Entity, out *Outbox) *Player {
	return &Player{Entity: e, out: out, slots: make(map[int16][]byte)}
}

// Outbox returns the player's outbound queue.
func (p *Player) Outbox() *Outbox { return p.out }

// Ready reports whether Play entry has completed.
func (p *Player) Ready() bool { return p.out.IsReady() }

func (p *Player) Username() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.username
}

// Login binds the username once login succeeds.
func (p *Player) Login(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.username = username
	p.loggedIn = true
}

// LoggedIn reports whether login completed.
func (p *Player) LoggedIn() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loggedIn
}

func (p *Player) HeldSlot() int16 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.heldSlot
}

// SetHeldSlot selects a hotbar slot.
//
// Postcondition: Returns false and leaves the slot unchanged if slot is not
// in 0..8.
func (p *Player) SetHeldSlot(slot int16) bool {
	if slot < 0 || slot > 8 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heldSlot = slot
	return true
}

// SetSlot records the raw item bytes the client put in an inventory slot.
// An empty item clears the slot.
func (p *Player) SetSlot(slot int16, item []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(item) == 0 {
		delete(p.slots, slot)
		return
	}
	p.slots[slot] = item
}

// Slot returns the raw item bytes recorded for slot.
func (p *Player) Slot(slot int16) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.slots[slot]
	return b, ok
}

// QueueInfo adds PlayerInfoUpdate actions to send for this player.
func (p *Player) QueueInfo(actions byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingInfo |= actions
}

// TakeInfo returns and clears the queued actions.
func (p *Player) TakeInfo() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.pendingInfo
	p.pendingInfo = 0
	return a
}

// NextKeepAlive records a keep-alive as sent and returns its id. While an
// earlier id is unanswered its send time is kept, so overdue checks measure
// from the oldest unanswered keep-alive.
func (p *Player) NextKeepAlive(now time.Time) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keepAliveID++
	if !p.keepAliveOpen {
		p.keepAliveSentAt = now
		p.keepAliveOpen = true
	}
	return p.keepAliveID
}

// AnswerKeepAlive clears the outstanding keep-alive if id is the latest one
// sent.
func (p *Player) AnswerKeepAlive(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.keepAliveOpen || id != p.keepAliveID {
		return false
	}
	p.keepAliveOpen = false
	return true
}

// KeepAliveOverdue reports whether the outstanding keep-alive has waited
// longer than timeout.
func (p *Player) KeepAliveOverdue(now time.Time, timeout time.Duration) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.keepAliveOpen && now.Sub(p.keepAliveSentAt) > timeout
}
