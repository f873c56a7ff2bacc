package world

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// Section geometry and encoding constants.
const (
	SectionSize   = 16
	SectionVolume = SectionSize * SectionSize * SectionSize
	BitsPerEntry  = 15

	// biomePlains is the registry id the fixed single-value biome section
	// carries.
	biomePlains = 39
)

// ErrOutOfBounds is returned for coordinates outside a section or the world
// column.
var ErrOutOfBounds = errors.New("coordinates out of bounds")

// Section is a 16x16x16 grid of block states. A Section is not safe for
// concurrent mutation; Chunk serialises writes and never mutates a section
// it does not own.
type Section struct {
	blocks [SectionVolume]BlockState
	nonAir int
}

// NewSection returns an all-air section.
func NewSection() *Section { return &Section{} }

func sectionIndex(x, y, z int) int { return y<<8 | z<<4 | x }

func inSection(x, y, z int) bool {
	return x >= 0 && x < SectionSize && y >= 0 && y < SectionSize && z >= 0 && z < SectionSize
}

// Block returns the state at local coordinates.
func (s *Section) Block(x, y, z int) (BlockState, error) {
	if !inSection(x, y, z) {
		return Air, fmt.Errorf("section block (%d,%d,%d): %w", x, y, z, ErrOutOfBounds)
	}
	return s.blocks[sectionIndex(x, y, z)], nil
}

// SetBlock stores b at local coordinates and returns the previous state.
//
// Postcondition: NonAir reflects the air/non-air transition exactly.
func (s *Section) SetBlock(x, y, z int, b BlockState) (BlockState, error) {
	if !inSection(x, y, z) {
		return Air, fmt.Errorf("section block (%d,%d,%d): %w", x, y, z, ErrOutOfBounds)
	}
	if b > MaxBlockState {
		return Air, fmt.Errorf("block state %d exceeds %d bits", b, BitsPerEntry)
	}
	i := sectionIndex(x, y, z)
	prev := s.blocks[i]
	switch {
	case prev == Air && b != Air:
		s.nonAir++
	case prev != Air && b == Air:
		s.nonAir--
	}
	s.blocks[i] = b
	return prev, nil
}

// FillLayer sets every block of local layer y to b.
func (s *Section) FillLayer(y int, b BlockState) error {
	for z := 0; z < SectionSize; z++ {
		for x := 0; x < SectionSize; x++ {
			if _, err := s.SetBlock(x, y, z, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// NonAir returns the number of non-air blocks.
func (s *Section) NonAir() int { return s.nonAir }

// Clone returns an independent copy.
func (s *Section) Clone() *Section {
	c := *s
	return &c
}

// Encode appends the direct-mode wire form: non-air count, bits per entry,
// word count, packed words, then the single-value biome section.
func (s *Section) Encode(w *protocol.Writer) error {
	words, err := Pack(s.blocks[:], BitsPerEntry)
	if err != nil {
		return err
	}
	w.Short(int16(s.nonAir)).Byte(BitsPerEntry).VarInt(int32(len(words)))
	for _, word := range words {
		w.ULong(word)
	}
	encodeBiomes(w)
	return nil
}

// encodeAirSection writes the form of an all-air section without building
// one.
func encodeAirSection(w *protocol.Writer) {
	n := WordCount(SectionVolume, BitsPerEntry)
	w.Short(0).Byte(BitsPerEntry).VarInt(int32(n))
	for i := 0; i < n; i++ {
		w.ULong(0)
	}
	encodeBiomes(w)
}

func encodeBiomes(w *protocol.Writer) {
	w.Byte(0).VarInt(biomePlains).VarInt(0)
}
