package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/cubeserver/internal/game/world"
	"github.com/cory-johannsen/cubeserver/internal/scripting"
)

func newGenerator(t *testing.T, src string) (*scripting.LuaGenerator, error) {
	t.Helper()
	g, err := scripting.NewLuaGeneratorFromSource("test.lua", src, 0, zap.NewNop())
	if g != nil {
		t.Cleanup(g.Close)
	}
	return g, err
}

func TestLuaGenerator_Layers(t *testing.T) {
	g, err := newGenerator(t, `
		function layers()
			return {
				{ block = "bedrock", height = 1 },
				{ block.stone, 3 },
			}
		end
	`)
	require.NoError(t, err)

	c, err := g.Generate(5, -2)
	require.NoError(t, err)
	b, err := c.Block(0, world.MinY, 0)
	require.NoError(t, err)
	assert.Equal(t, world.Bedrock, b)
	b, err = c.Block(15, world.MinY+3, 15)
	require.NoError(t, err)
	assert.Equal(t, world.Stone, b)
	b, err = c.Block(15, world.MinY+4, 15)
	require.NoError(t, err)
	assert.Equal(t, world.Air, b)
}

func TestLuaGenerator_Column(t *testing.T) {
	g, err := newGenerator(t, `
		function column(x, z)
			local h = 1 + (x + z) % 4
			local col = { block.bedrock }
			for i = 1, h do
				col[#col + 1] = block.dirt
			end
			return col
		end
	`)
	require.NoError(t, err)

	c, err := g.Generate(1, 0)
	require.NoError(t, err)

	// world x = 16 + lx, z = lz
	for _, tc := range []struct{ lx, lz, height int }{
		{0, 0, 1},
		{1, 0, 2},
		{3, 0, 4},
		{2, 2, 3},
	} {
		top, err := c.Block(tc.lx, world.MinY+tc.height, tc.lz)
		require.NoError(t, err)
		assert.Equal(t, world.Dirt, top, "column %d,%d", tc.lx, tc.lz)
		above, err := c.Block(tc.lx, world.MinY+tc.height+1, tc.lz)
		require.NoError(t, err)
		assert.Equal(t, world.Air, above, "column %d,%d", tc.lx, tc.lz)
	}
	// bedrock plus 1 + (lx+lz)%4 dirt in each of 256 columns
	assert.Equal(t, 896, c.NonAir(0))
	assert.Zero(t, c.NonAir(1))
}

func TestLuaGenerator_Errors(t *testing.T) {
	for name, src := range map[string]string{
		"no hooks":        `local x = 1`,
		"syntax":          `function column(`,
		"empty layers":    `function layers() return {} end`,
		"unknown block":   `function layers() return {{"lava", 1}} end`,
		"too tall":        `function layers() return {{1, 400}} end`,
		"layers not list": `function layers() return 3 end`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newGenerator(t, src)
			assert.Error(t, err)
		})
	}
}

func TestLuaGenerator_ColumnErrors(t *testing.T) {
	for name, src := range map[string]string{
		"not a table":   `function column(x, z) return 1 end`,
		"bad state":     `function column(x, z) return { 40000 } end`,
		"runtime error": `function column(x, z) error("nope") end`,
		"runaway":       `function column(x, z) while true do end end`,
	} {
		t.Run(name, func(t *testing.T) {
			g, err := newGenerator(t, src)
			require.NoError(t, err)
			_, err = g.Generate(0, 0)
			assert.Error(t, err)
		})
	}
}

func TestLuaGenerator_FromFile(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	path := filepath.Join(t.TempDir(), "flat.lua")
	require.NoError(t, os.WriteFile(path, []byte(`function layers() return {{"bedrock", 1}, {"grass_block", 1}} end`), 0o600))

	g, err := scripting.NewLuaGenerator(path, 0, zap.New(core))
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, 1, logs.FilterMessage("lua generator loaded").Len())

	store := world.NewStore(g, nil, zap.NewNop())
	c, err := store.Chunk(0, 0)
	require.NoError(t, err)
	b, err := c.Block(3, world.MinY+1, 3)
	require.NoError(t, err)
	assert.Equal(t, world.GrassBlock, b)

	_, err = scripting.NewLuaGenerator(filepath.Join(t.TempDir(), "missing.lua"), 0, zap.NewNop())
	assert.Error(t, err)
}
