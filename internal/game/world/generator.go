package world

import (
	"fmt"
	"sync"
)

// Generator produces the initial contents of a chunk. Implementations must be
// safe for concurrent use; Store calls Generate at most once per coordinate.
type Generator interface {
	Generate(x, z int32) (*Chunk, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(x, z int32) (*Chunk, error)

func (f GeneratorFunc) Generate(x, z int32) (*Chunk, error) { return f(x, z) }

// Layer is a horizontal slab of Height blocks of Block.
type Layer struct {
	Block  BlockState
	Height int
}

// DefaultLayers is the flat world profile: bedrock, two dirt, one grass,
// surface at y=-61.
var DefaultLayers = []Layer{
	{Block: Bedrock, Height: 1},
	{Block: Dirt, Height: 2},
	{Block: GrassBlock, Height: 1},
}

// LayersHeight returns the total height of layers.
func LayersHeight(layers []Layer) int {
	h := 0
	for _, l := range layers {
		h += l.Height
	}
	return h
}

// FlatGenerator stacks layers upward from MinY. Every chunk it produces
// shares one set of template sections; chunks clone a section on first write.
type FlatGenerator struct {
	layers []Layer

	once      sync.Once
	templates []*Section
	err       error
}

// NewFlatGenerator returns a generator for layers, or DefaultLayers if none
// are given.
func NewFlatGenerator(layers ...Layer) *FlatGenerator {
	if len(layers) == 0 {
		layers = DefaultLayers
	}
	return &FlatGenerator{layers: layers}
}

// Generate implements Generator.
//
// Postcondition: Returns an error if the layers exceed the world height or
// name a block outside the direct palette.
func (g *FlatGenerator) Generate(x, z int32) (*Chunk, error) {
	g.once.Do(func() { g.templates, g.err = BuildLayerSections(g.layers) })
	if g.err != nil {
		return nil, g.err
	}
	c := NewChunk(x, z)
	for i, s := range g.templates {
		if s == nil {
			continue
		}
		if err := c.SetSection(i, s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BuildLayerSections renders layers into per-section templates indexed by
// section. Sections above the top layer stay nil.
func BuildLayerSections(layers []Layer) ([]*Section, error) {
	if h := LayersHeight(layers); h > MaxY-MinY {
		return nil, fmt.Errorf("layers are %d blocks high, world is %d", h, MaxY-MinY)
	}
	out := make([]*Section, SectionCount)
	y := MinY
	for _, l := range layers {
		if l.Height < 0 {
			return nil, fmt.Errorf("layer %s has negative height %d", l.Block, l.Height)
		}
		for n := 0; n < l.Height; n, y = n+1, y+1 {
			i, err := SectionIndex(y)
			if err != nil {
				return nil, err
			}
			if out[i] == nil {
				out[i] = NewSection()
			}
			if err := out[i].FillLayer((y-MinY)&15, l.Block); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
