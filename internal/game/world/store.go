package world

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

// WorldEventBlockBreak is the world event that plays block-break particles.
const WorldEventBlockBreak = 2001

// Broadcast kinds emitted by Store.
const (
	KindBlockUpdate = "block_update"
	KindWorldEvent  = "world_event"
)

// Broadcaster fans an encoded frame out to every ready session.
type Broadcaster interface {
	Broadcast(kind string, frame []byte)
}

// Counter is the subset of a metrics counter Store reports to.
type Counter interface {
	Inc()
}

type chunkKey struct{ x, z int32 }

// Store is the shared chunk grid. Chunks are generated on first access and
// cached for the life of the Store.
type Store struct {
	gen         Generator
	broadcaster Broadcaster
	logger      *zap.Logger
	generated   Counter

	mu     sync.RWMutex
	chunks map[chunkKey]*Chunk
	flight singleflight.Group

	// writeMu orders block writes with their broadcasts.
	writeMu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithGeneratedCounter reports each generated chunk to c.
func WithGeneratedCounter(c Counter) StoreOption {
	return func(s *Store) { s.generated = c }
}

// NewStore creates a Store.
//
// Precondition: gen, b and logger must be non-nil.
func NewStore(gen Generator, b Broadcaster, logger *zap.Logger, opts ...StoreOption) *Store {
	s := &Store{
		gen:         gen,
		broadcaster: b,
		logger:      logger,
		chunks:      make(map[chunkKey]*Chunk),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chunk returns the chunk at (x, z), generating it on first access.
//
// Postcondition: Every successful call for the same coordinate returns the
// same *Chunk. Concurrent first calls generate once.
func (s *Store) Chunk(x, z int32) (*Chunk, error) {
	key := chunkKey{x, z}
	s.mu.RLock()
	c, ok := s.chunks[key]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := s.flight.Do(strconv.Itoa(int(x))+","+strconv.Itoa(int(z)), func() (any, error) {
		s.mu.RLock()
		c, ok := s.chunks[key]
		s.mu.RUnlock()
		if ok {
			return c, nil
		}
		c, err := s.gen.Generate(x, z)
		if err != nil {
			return nil, fmt.Errorf("generating chunk (%d,%d): %w", x, z, err)
		}
		c.X, c.Z = x, z
		s.mu.Lock()
		s.chunks[key] = c
		s.mu.Unlock()
		if s.generated != nil {
			s.generated.Inc()
		}
		s.logger.Debug("chunk generated", zap.Int32("x", x), zap.Int32("z", z))
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Chunk), nil
}

// Loaded returns the number of cached chunks.
func (s *Store) Loaded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Block returns the state at world coordinates.
func (s *Store) Block(p protocol.Position) (BlockState, error) {
	cx, lx := ChunkCoords(p.X)
	cz, lz := ChunkCoords(p.Z)
	c, err := s.Chunk(cx, cz)
	if err != nil {
		return Air, err
	}
	return c.Block(lx, int(p.Y), lz)
}

// SetBlock writes b at world coordinates, then broadcasts a BlockUpdate and,
// when a non-air block becomes air, a block-break WorldEvent carrying the
// previous state.
func (s *Store) SetBlock(p protocol.Position, b BlockState) (BlockState, error) {
	if _, err := SectionIndex(int(p.Y)); err != nil {
		return Air, err
	}
	cx, lx := ChunkCoords(p.X)
	cz, lz := ChunkCoords(p.Z)
	c, err := s.Chunk(cx, cz)
	if err != nil {
		return Air, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	prev, err := c.SetBlock(lx, int(p.Y), lz, b)
	if err != nil {
		return Air, err
	}

	update, err := protocol.Encode(protocol.Play, "BlockUpdate", protocol.Fields{
		"location": p,
		"blockId":  int32(b),
	})
	if err != nil {
		return prev, err
	}
	s.broadcaster.Broadcast(KindBlockUpdate, update)

	if prev != Air && b == Air {
		event, err := protocol.Encode(protocol.Play, "WorldEvent", protocol.Fields{
			"event":                 int32(WorldEventBlockBreak),
			"location":              p,
			"data":                  int32(prev),
			"disableRelativeVolume": false,
		})
		if err != nil {
			return prev, err
		}
		s.broadcaster.Broadcast(KindWorldEvent, event)
	}
	return prev, nil
}

// Pregenerate generates every chunk within radius of the origin concurrently.
func (s *Store) Pregenerate(ctx context.Context, radius int32, limit int) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for x := -radius; x < radius; x++ {
		for z := -radius; z < radius; z++ {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				_, err := s.Chunk(x, z)
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("spawn area generated", zap.Int32("radius", radius), zap.Int("chunks", s.Loaded()))
	return nil
}
