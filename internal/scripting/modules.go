package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/cubeserver/internal/game/world"
)

// RegisterModules defines the globals generator scripts can read:
//
//	block       block name -> state id, e.g. block.grass_block
//	world       min_y, max_y and section_size
//
// Precondition: L must be from NewSandboxedState.
func RegisterModules(L *lua.LState) {
	blocks := L.NewTable()
	for _, name := range world.BlockNames() {
		b, err := world.ParseBlock(name)
		if err != nil {
			continue
		}
		blocks.RawSetString(name, lua.LNumber(b))
	}
	L.SetGlobal("block", blocks)

	w := L.NewTable()
	w.RawSetString("min_y", lua.LNumber(world.MinY))
	w.RawSetString("max_y", lua.LNumber(world.MaxY))
	w.RawSetString("section_size", lua.LNumber(world.SectionSize))
	L.SetGlobal("world", w)
}
