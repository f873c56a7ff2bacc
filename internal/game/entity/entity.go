// Package entity models server-side entities: identity, position, rotation
// and the metadata run broadcast to clients.
package entity

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// Type is the registry id of an entity type.
type Type int32

// TypePlayer is the player entity type in protocol 765.
const TypePlayer Type = 124

// Allocator hands out entity ids. Ids are unique and increase monotonically
// for the life of the Allocator. The zero value starts at 0.
type Allocator struct {
	next atomic.Int32
}

// Next returns a fresh id.
func (a *Allocator) Next() int32 {
	return a.next.Add(1) - 1
}

// Tracked is the view of an entity that broadcast code needs.
type Tracked interface {
	ID() int32
	UUID() uuid.UUID
	Position() protocol.Vec3
	Rotation() protocol.Rotation
	MetadataBytes() ([]byte, error)
}

// Entity is the authoritative state of one entity. All methods are safe for
// concurrent use.
type Entity struct {
	id  int32
	typ Type

	mu       sync.RWMutex
	uuid     uuid.UUID
	pos      protocol.Vec3
	rot      protocol.Rotation
	onGround bool
	meta     Metadata
}

// New creates an entity.
//
// Precondition: id must come from an Allocator.
func New(id int32, typ Type, pos protocol.Vec3) *Entity {
	return &Entity{id: id, typ: typ, pos: pos, onGround: true}
}

// ID returns the entity id. It never changes.
func (e *Entity) ID() int32 { return e.id }

// Type returns the entity type registry id.
func (e *Entity) Type() Type { return e.typ }

// UUID returns the bound UUID, or the zero UUID before SetUUID.
func (e *Entity) UUID() uuid.UUID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.uuid
}

// SetUUID binds the entity's UUID. Players receive theirs at login.
func (e *Entity) SetUUID(u uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uuid = u
}

// Position returns the current position in block units.
func (e *Entity) Position() protocol.Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

// SetPosition moves the entity and returns its previous position.
func (e *Entity) SetPosition(p protocol.Vec3) protocol.Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.pos
	e.pos = p
	return old
}

// Rotation returns the last stored rotation, normalized into [0, 360).
func (e *Entity) Rotation() protocol.Rotation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rot
}

// SetRotation stores r with yaw and pitch normalized into [0, 360) and
// returns the stored value.
func (e *Entity) SetRotation(r protocol.Rotation) protocol.Rotation {
	r = protocol.Rotation{Yaw: NormalizeDegrees(r.Yaw), Pitch: NormalizeDegrees(r.Pitch)}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rot = r
	return r
}

// OnGround reports the last on-ground flag the client sent. New entities
// start on the ground.
func (e *Entity) OnGround() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.onGround
}

// SetOnGround stores the client's on-ground flag.
func (e *Entity) SetOnGround(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onGround = v
}

// SetMetadata applies entries with last-write-wins per index and returns the
// full encoded run, which is what SetEntityMetadata carries.
func (e *Entity) SetMetadata(entries ...Entry) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meta.Set(entries...)
	return e.meta.Bytes()
}

// RemoveMetadata drops the entry at index and returns the encoded run. The
// bool reports whether an entry was present. Removing an index that was
// added after every other entry restores the run byte for byte.
func (e *Entity) RemoveMetadata(index byte) ([]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := e.meta.Remove(index)
	b, err := e.meta.Bytes()
	return b, removed, err
}

// MetadataBytes returns the current encoded run.
func (e *Entity) MetadataBytes() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.meta.Bytes()
}

// Flags returns the entity flag byte at index 0, or 0 if unset.
func (e *Entity) Flags() byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return flagsOf(&e.meta)
}

func flagsOf(m *Metadata) byte {
	if entry, ok := m.Get(IndexFlags); ok {
		if b, ok := entry.Value.(byte); ok {
			return b
		}
	}
	return 0
}
