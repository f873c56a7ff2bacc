package entity

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// MetaType is the wire tag of a metadata value.
type MetaType byte

const (
	MetaByte MetaType = iota
	MetaVarInt
	MetaVarLong
	MetaFloat
	MetaString
	MetaText
	MetaOptText
	MetaSlot
	MetaBool
	MetaRotations
	MetaPosition
	MetaOptPosition
	MetaDirection
	MetaOptUUID
	MetaBlockState
	MetaOptBlockState
	MetaNBT
	MetaParticle
	MetaVillagerData
	MetaOptVarInt
	MetaPose
	MetaCatVariant
	MetaFrogVariant
	MetaOptGlobalPos
	MetaPaintingVariant
	MetaSnifferState
	MetaVector3
	MetaQuaternion
)

// MetadataEnd terminates a metadata run.
const MetadataEnd = 0xff

// Pose values carried by MetaPose.
const (
	PoseStanding int32 = 0
	PoseSneaking int32 = 5
)

// Well-known player metadata indices and flag bits.
const (
	IndexFlags    = 0
	IndexPose     = 6
	FlagSneaking  = 0x02
	FlagSprinting = 0x08
)

// ErrUnsizedMetadata is returned when parsing reaches a value whose length
// cannot be determined from its tag alone.
var ErrUnsizedMetadata = errors.New("metadata value has no fixed layout")

// Entry is one metadata value. Value holds the Go form of the tag:
//
//	MetaByte                      byte
//	MetaVarInt, MetaDirection,
//	MetaBlockState, MetaPose,
//	MetaCatVariant, MetaFrogVariant,
//	MetaPaintingVariant,
//	MetaSnifferState              int32
//	MetaOptBlockState,
//	MetaOptVarInt                 int32 (0 means absent)
//	MetaVarLong                   int64
//	MetaFloat                     float32
//	MetaString                    string
//	MetaText                      protocol.TextComponent
//	MetaOptText                   protocol.TextComponent or nil
//	MetaBool                      bool
//	MetaRotations, MetaVector3    [3]float32
//	MetaQuaternion                [4]float32
//	MetaPosition                  protocol.Position
//	MetaOptPosition               *protocol.Position
//	MetaOptUUID                   *uuid.UUID
//	MetaVillagerData              [3]int32
//	MetaSlot, MetaNBT,
//	MetaParticle, MetaOptGlobalPos []byte, written verbatim
type Entry struct {
	Index byte
	Type  MetaType
	Value any
}

// Metadata is an ordered set of entries, at most one per index. Callers
// synchronise access; Entity guards its Metadata with its own lock.
type Metadata struct {
	entries []Entry
}

// Set stores entries in order. An entry replaces any earlier entry with the
// same index and moves to the end of the run.
func (m *Metadata) Set(entries ...Entry) {
	for _, e := range entries {
		m.Remove(e.Index)
		m.entries = append(m.entries, e)
	}
}

// Remove deletes the entry at index, keeping the order of the rest.
//
// Postcondition: Returns true if an entry was removed.
func (m *Metadata) Remove(index byte) bool {
	i := slices.IndexFunc(m.entries, func(e Entry) bool { return e.Index == index })
	if i < 0 {
		return false
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	return true
}

// Get returns the entry at index.
func (m *Metadata) Get(index byte) (Entry, bool) {
	for _, e := range m.entries {
		if e.Index == index {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the entries in wire order.
func (m *Metadata) Entries() []Entry {
	return slices.Clone(m.entries)
}

// Len returns the number of entries.
func (m *Metadata) Len() int { return len(m.entries) }

// Bytes encodes the run terminated by MetadataEnd.
//
// Postcondition: Returns an error if a value does not match its tag.
func (m *Metadata) Bytes() ([]byte, error) {
	w := protocol.NewWriter(16)
	for _, e := range m.entries {
		if err := writeEntry(w, e); err != nil {
			return nil, err
		}
	}
	w.Byte(MetadataEnd)
	return w.Bytes(), nil
}

func writeEntry(w *protocol.Writer, e Entry) error {
	if e.Index == MetadataEnd {
		return fmt.Errorf("metadata index %d is reserved", e.Index)
	}
	mismatch := fmt.Errorf("metadata index %d: type %d cannot hold %T", e.Index, e.Type, e.Value)

	w.Byte(e.Index)
	w.VarInt(int32(e.Type))

	switch e.Type {
	case MetaByte:
		v, ok := e.Value.(byte)
		if !ok {
			return mismatch
		}
		w.Byte(v)
	case MetaVarInt, MetaDirection, MetaBlockState, MetaPose, MetaCatVariant,
		MetaFrogVariant, MetaPaintingVariant, MetaSnifferState, MetaOptBlockState, MetaOptVarInt:
		v, ok := e.Value.(int32)
		if !ok {
			return mismatch
		}
		w.VarInt(v)
	case MetaVarLong:
		v, ok := e.Value.(int64)
		if !ok {
			return mismatch
		}
		w.VarLong(v)
	case MetaFloat:
		v, ok := e.Value.(float32)
		if !ok {
			return mismatch
		}
		w.Float(v)
	case MetaString:
		v, ok := e.Value.(string)
		if !ok {
			return mismatch
		}
		w.String(v)
	case MetaText, MetaOptText:
		if e.Type == MetaOptText {
			w.Bool(e.Value != nil)
			if e.Value == nil {
				return nil
			}
		}
		c, ok := e.Value.(protocol.TextComponent)
		if !ok {
			return mismatch
		}
		b, err := c.NetworkNBT()
		if err != nil {
			return fmt.Errorf("metadata index %d: %w", e.Index, err)
		}
		w.Raw(b)
	case MetaBool:
		v, ok := e.Value.(bool)
		if !ok {
			return mismatch
		}
		w.Bool(v)
	case MetaRotations, MetaVector3:
		v, ok := e.Value.([3]float32)
		if !ok {
			return mismatch
		}
		w.Float(v[0]).Float(v[1]).Float(v[2])
	case MetaQuaternion:
		v, ok := e.Value.([4]float32)
		if !ok {
			return mismatch
		}
		w.Float(v[0]).Float(v[1]).Float(v[2]).Float(v[3])
	case MetaPosition:
		v, ok := e.Value.(protocol.Position)
		if !ok {
			return mismatch
		}
		w.Position(v)
	case MetaOptPosition:
		v, ok := e.Value.(*protocol.Position)
		if !ok {
			return mismatch
		}
		w.Bool(v != nil)
		if v != nil {
			w.Position(*v)
		}
	case MetaOptUUID:
		v, ok := e.Value.(*uuid.UUID)
		if !ok {
			return mismatch
		}
		w.Bool(v != nil)
		if v != nil {
			w.UUID(*v)
		}
	case MetaVillagerData:
		v, ok := e.Value.([3]int32)
		if !ok {
			return mismatch
		}
		w.VarInt(v[0]).VarInt(v[1]).VarInt(v[2])
	case MetaSlot, MetaNBT, MetaParticle, MetaOptGlobalPos:
		v, ok := e.Value.([]byte)
		if !ok {
			return mismatch
		}
		w.Raw(v)
	default:
		return fmt.Errorf("metadata index %d: unknown type %d", e.Index, e.Type)
	}
	return nil
}

// ParseMetadata decodes a run produced by Bytes. Entries whose tag has no
// self-describing length (text, slot, NBT, particle, global position) cannot
// be parsed and yield ErrUnsizedMetadata.
func ParseMetadata(b []byte) ([]Entry, error) {
	r := protocol.NewReader(b)
	var out []Entry
	for {
		index, err := r.Byte()
		if err != nil {
			return out, fmt.Errorf("metadata: missing end marker: %w", err)
		}
		if index == MetadataEnd {
			return out, nil
		}
		tag, err := r.VarInt()
		if err != nil {
			return out, err
		}
		e := Entry{Index: index, Type: MetaType(tag)}
		if e.Value, err = readValue(r, e.Type); err != nil {
			return out, fmt.Errorf("metadata index %d: %w", index, err)
		}
		out = append(out, e)
	}
}

func readValue(r *protocol.Reader, t MetaType) (any, error) {
	switch t {
	case MetaByte:
		return r.Byte()
	case MetaVarInt, MetaDirection, MetaBlockState, MetaPose, MetaCatVariant,
		MetaFrogVariant, MetaPaintingVariant, MetaSnifferState, MetaOptBlockState, MetaOptVarInt:
		return r.VarInt()
	case MetaVarLong:
		return r.VarLong()
	case MetaFloat:
		return r.Float()
	case MetaString:
		return r.String()
	case MetaBool:
		return r.Bool()
	case MetaRotations, MetaVector3:
		var v [3]float32
		for i := range v {
			f, err := r.Float()
			if err != nil {
				return nil, err
			}
			v[i] = f
		}
		return v, nil
	case MetaQuaternion:
		var v [4]float32
		for i := range v {
			f, err := r.Float()
			if err != nil {
				return nil, err
			}
			v[i] = f
		}
		return v, nil
	case MetaPosition:
		return r.Position()
	case MetaOptPosition:
		present, err := r.Bool()
		if err != nil || !present {
			return (*protocol.Position)(nil), err
		}
		p, err := r.Position()
		return &p, err
	case MetaOptUUID:
		present, err := r.Bool()
		if err != nil || !present {
			return (*uuid.UUID)(nil), err
		}
		u, err := r.UUID()
		return &u, err
	case MetaVillagerData:
		var v [3]int32
		for i := range v {
			n, err := r.VarInt()
			if err != nil {
				return nil, err
			}
			v[i] = n
		}
		return v, nil
	default:
		return nil, ErrUnsizedMetadata
	}
}
