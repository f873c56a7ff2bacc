package scripting

import (
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/game/world"
)

// Hook names a generator script may define.
const (
	HookColumn = "column"
	HookLayers = "layers"
)

// LuaGenerator generates terrain from a script. A script defining
// column(x, z) is called once per block column and returns the state ids of
// that column from the bottom of the world upward. A script defining only
// layers() is called once and its {block, height} pairs drive a flat
// generator.
//
// LuaGenerator is safe for concurrent use; calls into the VM are serialized.
type LuaGenerator struct {
	mu        sync.Mutex
	L         *lua.LState
	column    *lua.LFunction
	flat      *world.FlatGenerator
	instLimit int
	logger    *zap.Logger
}

// NewLuaGenerator loads the script at path.
//
// Precondition: logger must be non-nil; instLimit 0 uses
// DefaultInstructionLimit per call.
// Postcondition: Returns an error if the script cannot be read, fails to
// run, or defines neither hook.
func NewLuaGenerator(path string, instLimit int, logger *zap.Logger) (*LuaGenerator, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading generator %q: %w", path, err)
	}
	return NewLuaGeneratorFromSource(path, string(src), instLimit, logger)
}

// NewLuaGeneratorFromSource is NewLuaGenerator for an in-memory script. name
// is used in errors only.
func NewLuaGeneratorFromSource(name, src string, instLimit int, logger *zap.Logger) (*LuaGenerator, error) {
	L := NewSandboxedState()
	RegisterModules(L)

	g := &LuaGenerator{L: L, instLimit: instLimit, logger: logger}
	release := Limit(L, instLimit)
	err := L.DoString(src)
	release()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading generator %q: %w", name, err)
	}

	if fn, ok := L.GetGlobal(HookColumn).(*lua.LFunction); ok {
		g.column = fn
		logger.Info("lua generator loaded", zap.String("script", name), zap.String("mode", HookColumn))
		return g, nil
	}
	fn, ok := L.GetGlobal(HookLayers).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("scripting: generator %q defines neither %s nor %s", name, HookColumn, HookLayers)
	}
	layers, err := g.callLayers(fn)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: generator %q: %w", name, err)
	}
	if _, err := world.BuildLayerSections(layers); err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: generator %q: %w", name, err)
	}
	g.flat = world.NewFlatGenerator(layers...)
	logger.Info("lua generator loaded",
		zap.String("script", name),
		zap.String("mode", HookLayers),
		zap.Int("height", world.LayersHeight(layers)),
	)
	return g, nil
}

// Close releases the VM.
func (g *LuaGenerator) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.L.Close()
}

// Generate implements world.Generator.
func (g *LuaGenerator) Generate(x, z int32) (*world.Chunk, error) {
	if g.flat != nil {
		return g.flat.Generate(x, z)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := world.NewChunk(x, z)
	for lx := 0; lx < world.SectionSize; lx++ {
		for lz := 0; lz < world.SectionSize; lz++ {
			wx := x*world.SectionSize + int32(lx)
			wz := z*world.SectionSize + int32(lz)
			states, err := g.callColumn(wx, wz)
			if err != nil {
				return nil, fmt.Errorf("scripting: column (%d, %d): %w", wx, wz, err)
			}
			for i, b := range states {
				if b == world.Air {
					continue
				}
				if _, err := c.SetBlock(lx, world.MinY+i, lz, b); err != nil {
					return nil, fmt.Errorf("scripting: column (%d, %d): %w", wx, wz, err)
				}
			}
		}
	}
	return c, nil
}

func (g *LuaGenerator) call(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	release := Limit(g.L, g.instLimit)
	defer release()
	if err := g.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	ret := g.L.Get(-1)
	g.L.Pop(1)
	return ret, nil
}

func (g *LuaGenerator) callColumn(x, z int32) ([]world.BlockState, error) {
	ret, err := g.call(g.column, lua.LNumber(x), lua.LNumber(z))
	if err != nil {
		return nil, err
	}
	t, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s must return a table, got %s", HookColumn, ret.Type())
	}
	n := t.Len()
	if n > world.MaxY-world.MinY {
		return nil, fmt.Errorf("%s returned %d blocks, the world is %d tall", HookColumn, n, world.MaxY-world.MinY)
	}
	out := make([]world.BlockState, n)
	for i := 1; i <= n; i++ {
		b, err := toBlock(t.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out[i-1] = b
	}
	return out, nil
}

func (g *LuaGenerator) callLayers(fn *lua.LFunction) ([]world.Layer, error) {
	ret, err := g.call(fn)
	if err != nil {
		return nil, err
	}
	t, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s must return a table, got %s", HookLayers, ret.Type())
	}
	var layers []world.Layer
	for i := 1; i <= t.Len(); i++ {
		entry, ok := t.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("layer %d is not a table", i)
		}
		blockVal := entry.RawGetString("block")
		if blockVal == lua.LNil {
			blockVal = entry.RawGetInt(1)
		}
		heightVal := entry.RawGetString("height")
		if heightVal == lua.LNil {
			heightVal = entry.RawGetInt(2)
		}
		b, err := toBlock(blockVal)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		h, ok := heightVal.(lua.LNumber)
		if !ok || h < 1 {
			return nil, fmt.Errorf("layer %d: height must be a positive number", i)
		}
		layers = append(layers, world.Layer{Block: b, Height: int(h)})
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%s returned no layers", HookLayers)
	}
	return layers, nil
}

// toBlock accepts a state id or a block name.
func toBlock(v lua.LValue) (world.BlockState, error) {
	switch x := v.(type) {
	case lua.LNumber:
		if x < 0 || x > lua.LNumber(world.MaxBlockState) || x != lua.LNumber(int64(x)) {
			return world.Air, fmt.Errorf("invalid block state %v", x)
		}
		return world.BlockState(x), nil
	case lua.LString:
		return world.ParseBlock(string(x))
	case *lua.LNilType:
		return world.Air, nil
	default:
		return world.Air, fmt.Errorf("block must be a number or name, got %s", v.Type())
	}
}
