// Package world holds the voxel world: block states, chunk sections with
// their direct bit-packed wire encoding, generators, and the shared chunk
// store.
package world

import (
	"fmt"
	"slices"
)

// BlockState is a 1.20.4 block-state id.
type BlockState uint16

// A handful of block-state ids used by generators and placement.
const (
	Air         BlockState = 0
	Stone       BlockState = 1
	GrassBlock  BlockState = 9
	Dirt        BlockState = 10
	Cobblestone BlockState = 14
	OakPlanks   BlockState = 15
	Bedrock     BlockState = 79
)

// MaxBlockState is the largest id a 15-bit direct section can carry.
const MaxBlockState BlockState = 1<<BitsPerEntry - 1

var blockNames = map[BlockState]string{
	Air:         "air",
	Stone:       "stone",
	GrassBlock:  "grass_block",
	Dirt:        "dirt",
	Cobblestone: "cobblestone",
	OakPlanks:   "oak_planks",
	Bedrock:     "bedrock",
}

func (b BlockState) String() string {
	if n, ok := blockNames[b]; ok {
		return n
	}
	return fmt.Sprintf("block(%d)", uint16(b))
}

// ParseBlock resolves a block name as used in configuration and scripts.
func ParseBlock(name string) (BlockState, error) {
	for b, n := range blockNames {
		if n == name {
			return b, nil
		}
	}
	return Air, fmt.Errorf("unknown block %q", name)
}

// BlockNames lists the names ParseBlock accepts, sorted.
func BlockNames() []string {
	names := make([]string, 0, len(blockNames))
	for _, n := range blockNames {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
