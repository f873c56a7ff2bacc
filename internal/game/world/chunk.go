package world

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// World column geometry.
const (
	SectionCount = 24
	MinY         = -64
	MaxY         = MinY + SectionCount*SectionSize
)

// emptyHeightmaps is an empty network compound tag.
var emptyHeightmaps = []byte{0x0a, 0x00}

// Chunk is one 16-wide column of SectionCount sections. A nil section is all
// air. Sections installed with SetSection may be shared with other chunks and
// are cloned before their first write. All methods are safe for concurrent
// use.
type Chunk struct {
	X, Z int32

	mu       sync.RWMutex
	sections [SectionCount]*Section
	owned    [SectionCount]bool
}

// NewChunk returns an all-air chunk.
func NewChunk(x, z int32) *Chunk {
	return &Chunk{X: x, Z: z}
}

// SetSection installs s at index i without taking ownership. s must not be
// mutated by the caller afterwards.
func (c *Chunk) SetSection(i int, s *Section) error {
	if i < 0 || i >= SectionCount {
		return fmt.Errorf("section %d: %w", i, ErrOutOfBounds)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections[i] = s
	c.owned[i] = false
	return nil
}

// SectionIndex maps a world y to its section index.
func SectionIndex(y int) (int, error) {
	if y < MinY || y >= MaxY {
		return 0, fmt.Errorf("y %d: %w", y, ErrOutOfBounds)
	}
	return (y - MinY) >> 4, nil
}

func localCheck(x, z int) error {
	if x < 0 || x >= SectionSize || z < 0 || z >= SectionSize {
		return fmt.Errorf("chunk column (%d,%d): %w", x, z, ErrOutOfBounds)
	}
	return nil
}

// Block returns the state at chunk-local x and z and world y.
func (c *Chunk) Block(x, y, z int) (BlockState, error) {
	if err := localCheck(x, z); err != nil {
		return Air, err
	}
	i, err := SectionIndex(y)
	if err != nil {
		return Air, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.sections[i]
	if s == nil {
		return Air, nil
	}
	return s.Block(x, (y-MinY)&15, z)
}

// SetBlock stores b at chunk-local x and z and world y and returns the
// previous state. A shared section is cloned first so no other chunk and no
// previously encoded view observes the write.
func (c *Chunk) SetBlock(x, y, z int, b BlockState) (BlockState, error) {
	if err := localCheck(x, z); err != nil {
		return Air, err
	}
	i, err := SectionIndex(y)
	if err != nil {
		return Air, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.sections[i] == nil:
		c.sections[i] = NewSection()
		c.owned[i] = true
	case !c.owned[i]:
		c.sections[i] = c.sections[i].Clone()
		c.owned[i] = true
	}
	return c.sections[i].SetBlock(x, (y-MinY)&15, z, b)
}

// NonAir returns the non-air count of section i.
func (c *Chunk) NonAir(i int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= SectionCount || c.sections[i] == nil {
		return 0
	}
	return c.sections[i].NonAir()
}

// Encode builds the ChunkDataAndUpdateLight frame for this chunk: position,
// empty heightmaps, section data, no block entities and empty light data.
func (c *Chunk) Encode() ([]byte, error) {
	data := protocol.NewWriter(SectionCount * (WordCount(SectionVolume, BitsPerEntry)*8 + 8))
	c.mu.RLock()
	for _, s := range c.sections {
		if s == nil {
			encodeAirSection(data)
			continue
		}
		if err := s.Encode(data); err != nil {
			c.mu.RUnlock()
			return nil, fmt.Errorf("chunk (%d,%d): %w", c.X, c.Z, err)
		}
	}
	c.mu.RUnlock()

	w := protocol.NewWriter(data.Len() + 32)
	w.Int(c.X).Int(c.Z).Raw(emptyHeightmaps).PrefixedBytes(data.Bytes())
	// block entities, then sky/block light masks, empty masks and arrays
	for i := 0; i < 7; i++ {
		w.VarInt(0)
	}
	id := protocol.Opcodes.MustID(protocol.Clientbound, protocol.Play, "ChunkDataAndUpdateLight")
	return protocol.EncodeFrame(id, w.Bytes()), nil
}

// ChunkCoords splits a world block x or z into chunk coordinate and local
// offset.
func ChunkCoords(v int32) (chunk int32, local int) {
	return v >> 4, int(v & 15)
}
