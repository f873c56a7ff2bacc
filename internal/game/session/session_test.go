package session

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/cubeserver/internal/game/entity"
	"github.com/cory-johannsen/cubeserver/internal/protocol"
)

type countingObserver struct {
	mu        sync.Mutex
	kinds     map[string]int
	slowPeers int
}

func (o *countingObserver) ObserveBroadcast(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.kinds == nil {
		o.kinds = make(map[string]int)
	}
	o.kinds[kind]++
}

func (o *countingObserver) ObserveSlowPeer() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.slowPeers++
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func newPlayer(id int32) *Player {
	return NewPlayer(entity.New(id, entity.TypePlayer, protocol.Vec3{}), NewOutbox(8, 8))
}

func queued(o *Outbox) [][]byte {
	var out [][]byte
	for {
		select {
		case f := <-o.frames:
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestOutbox_PushAndRun(t *testing.T) {
	o := NewOutbox(4, 4)
	require.NoError(t, o.Push([]byte("a")))
	require.NoError(t, o.Push([]byte("b")))
	o.Close()

	var buf lockedBuffer
	require.NoError(t, o.Run(context.Background(), &buf))
	assert.Equal(t, []byte("ab"), buf.Bytes())
	assert.ErrorIs(t, o.Push([]byte("c")), ErrOutboxClosed)
}

func TestOutbox_ParksUntilReady(t *testing.T) {
	o := NewOutbox(8, 8)
	require.NoError(t, o.PushReady([]byte("x")))
	require.NoError(t, o.Push([]byte("own")))
	require.NoError(t, o.PushReady([]byte("y")))
	assert.Equal(t, 2, o.Pending())
	assert.False(t, o.IsReady())
	assert.Equal(t, [][]byte{[]byte("own")}, queued(o))

	select {
	case <-o.Ready():
		t.Fatal("ready before MarkReady")
	default:
	}

	require.NoError(t, o.MarkReady())
	require.NoError(t, o.PushReady([]byte("z")))
	assert.Equal(t, [][]byte{[]byte("x"), []byte("y"), []byte("z")}, queued(o))
	<-o.Ready()
	assert.True(t, o.IsReady())
	require.NoError(t, o.MarkReady())
}

func TestOutbox_FullAborts(t *testing.T) {
	o := NewOutbox(1, 4)
	require.NoError(t, o.Push([]byte("a")))
	assert.ErrorIs(t, o.Push([]byte("b")), ErrOutboxFull)
	assert.True(t, o.Aborted())

	assert.ErrorIs(t, o.Run(context.Background(), &lockedBuffer{}), ErrOutboxFull)
	<-o.Done()
}

func TestOutbox_PendingLimitAborts(t *testing.T) {
	o := NewOutbox(4, 1)
	require.NoError(t, o.PushReady([]byte("a")))
	assert.ErrorIs(t, o.PushReady([]byte("b")), ErrOutboxFull)
	assert.True(t, o.Aborted())
	assert.Equal(t, 0, o.Pending())
	assert.ErrorIs(t, o.MarkReady(), ErrOutboxClosed)
}

func TestOutbox_RunStopsOnContext(t *testing.T) {
	o := NewOutbox(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.Run(ctx, &lockedBuffer{}), context.Canceled)
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry(zap.NewNop(), nil)
	a, b, c := newPlayer(1), newPlayer(2), newPlayer(3)
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	require.NoError(t, r.Add(c))
	assert.Error(t, r.Add(newPlayer(2)))

	assert.True(t, r.Remove(2))
	assert.False(t, r.Remove(2))
	assert.Equal(t, []*Player{a, c}, r.Players())
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(3)
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestRegistry_BroadcastGatesOnReady(t *testing.T) {
	obs := &countingObserver{}
	r := NewRegistry(zap.NewNop(), obs)
	ready, notReady := newPlayer(1), newPlayer(2)
	require.NoError(t, ready.Outbox().MarkReady())
	require.NoError(t, r.Add(ready))
	require.NoError(t, r.Add(notReady))

	r.Broadcast("chat", []byte("hi"))
	assert.Equal(t, [][]byte{[]byte("hi")}, queued(ready.Outbox()))
	assert.Empty(t, queued(notReady.Outbox()))
	assert.Equal(t, 1, notReady.Outbox().Pending())
	assert.Equal(t, 1, obs.kinds["chat"])

	require.NoError(t, notReady.Outbox().MarkReady())
	assert.Equal(t, [][]byte{[]byte("hi")}, queued(notReady.Outbox()))
}

func TestRegistry_UnparkedKindsSkipJoiningPlayers(t *testing.T) {
	r := NewRegistry(zap.NewNop(), nil, WithParkedKinds("chat"))
	assert.True(t, r.Parks("chat"))
	assert.False(t, r.Parks("movement"))

	joining := NewPlayer(entity.New(1, entity.TypePlayer, protocol.Vec3{}), NewOutbox(8, 4))
	require.NoError(t, r.Add(joining))

	for i := 0; i < 100; i++ {
		r.Broadcast("movement", []byte("m"))
	}
	assert.False(t, joining.Outbox().Aborted())
	assert.Zero(t, joining.Outbox().Pending())

	r.Broadcast("chat", []byte("hi"))
	assert.Equal(t, 1, joining.Outbox().Pending())

	require.NoError(t, joining.Outbox().MarkReady())
	r.Broadcast("movement", []byte("m"))
	assert.Equal(t, [][]byte{[]byte("hi"), []byte("m")}, queued(joining.Outbox()))
}

func TestRegistry_DefaultParksEveryKind(t *testing.T) {
	r := NewRegistry(zap.NewNop(), nil)
	assert.True(t, r.Parks("movement"))
	assert.True(t, r.Parks("chat"))
}

func TestOutbox_PushIfReadyDiscardsUntilReady(t *testing.T) {
	o := NewOutbox(4, 1)
	for i := 0; i < 10; i++ {
		require.NoError(t, o.PushIfReady([]byte("x")))
	}
	assert.Zero(t, o.Pending())
	assert.False(t, o.Aborted())
	assert.Empty(t, queued(o))

	require.NoError(t, o.MarkReady())
	require.NoError(t, o.PushIfReady([]byte("y")))
	assert.Equal(t, [][]byte{[]byte("y")}, queued(o))

	o.Close()
	assert.ErrorIs(t, o.PushIfReady([]byte("z")), ErrOutboxClosed)
}

func TestRegistry_BroadcastExcept(t *testing.T) {
	r := NewRegistry(zap.NewNop(), nil)
	a, b := newPlayer(1), newPlayer(2)
	for _, p := range []*Player{a, b} {
		require.NoError(t, p.Outbox().MarkReady())
		require.NoError(t, r.Add(p))
	}
	r.BroadcastExcept("move", []byte("m"), 1)
	assert.Empty(t, queued(a.Outbox()))
	assert.Len(t, queued(b.Outbox()), 1)
}

func TestRegistry_SlowPeerDoesNotBlockOthers(t *testing.T) {
	obs := &countingObserver{}
	r := NewRegistry(zap.NewNop(), obs)
	slow := NewPlayer(entity.New(1, entity.TypePlayer, protocol.Vec3{}), NewOutbox(1, 1))
	fast := newPlayer(2)
	for _, p := range []*Player{slow, fast} {
		require.NoError(t, p.Outbox().MarkReady())
		require.NoError(t, r.Add(p))
	}

	r.Broadcast("chat", []byte("1"))
	r.Broadcast("chat", []byte("2"))
	r.Broadcast("chat", []byte("3"))

	assert.True(t, slow.Outbox().Aborted())
	assert.Equal(t, 1, obs.slowPeers)
	assert.Len(t, queued(fast.Outbox()), 3)
}

func TestPlayer_State(t *testing.T) {
	p := newPlayer(5)
	assert.False(t, p.LoggedIn())
	p.Login("alex")
	assert.True(t, p.LoggedIn())
	assert.Equal(t, "alex", p.Username())

	assert.True(t, p.SetHeldSlot(8))
	assert.False(t, p.SetHeldSlot(9))
	assert.Equal(t, int16(8), p.HeldSlot())

	p.SetSlot(36, []byte{1, 2})
	item, ok := p.Slot(36)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, item)
	p.SetSlot(36, nil)
	_, ok = p.Slot(36)
	assert.False(t, ok)

	p.QueueInfo(InfoAddPlayer)
	p.QueueInfo(InfoUpdateListed)
	assert.Equal(t, InfoAddPlayer|InfoUpdateListed, p.TakeInfo())
	assert.Zero(t, p.TakeInfo())
}

func TestPlayer_KeepAlive(t *testing.T) {
	p := newPlayer(1)
	start := time.Unix(1000, 0)
	assert.False(t, p.KeepAliveOverdue(start, time.Second))

	id := p.NextKeepAlive(start)
	assert.False(t, p.KeepAliveOverdue(start.Add(time.Second), 2*time.Second))

	second := p.NextKeepAlive(start.Add(5 * time.Second))
	assert.True(t, p.KeepAliveOverdue(start.Add(3*time.Second), 2*time.Second))

	assert.False(t, p.AnswerKeepAlive(id))
	assert.True(t, p.AnswerKeepAlive(second))
	assert.False(t, p.AnswerKeepAlive(second))
	assert.False(t, p.KeepAliveOverdue(start.Add(time.Hour), time.Second))
}

func TestTicker_StepRunsInRegistrationOrder(t *testing.T) {
	tk := NewTicker(time.Hour)
	var calls []string
	var ticks []int
	cancelA := tk.Register(func(n int) { calls = append(calls, "a"); ticks = append(ticks, n) })
	tk.Register(func(int) { calls = append(calls, "b") })

	tk.Step()
	cancelA()
	cancelA()
	tk.Step()

	assert.Equal(t, []string{"a", "b", "b"}, calls)
	assert.Equal(t, []int{1}, ticks)
	assert.Equal(t, 1, tk.Len())
}

func TestTicker_CounterWraps(t *testing.T) {
	tk := NewTicker(time.Hour)
	for i := 0; i < TicksPerCycle; i++ {
		tk.Step()
	}
	assert.Equal(t, 0, tk.Tick())
}

func TestTicker_RunFiresUntilCancelled(t *testing.T) {
	tk := NewTicker(time.Millisecond)
	fired := make(chan struct{}, 1)
	tk.Register(func(int) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tk.Run(ctx) }()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
	cancel()
	assert.NoError(t, <-done)
}

func TestNewTicker_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { NewTicker(0) })
}

// Property-based tests

func TestPropertyOutboxPreservesOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		readyAt := rapid.IntRange(0, n).Draw(t, "readyAt")
		o := NewOutbox(64, 64)
		var want [][]byte
		for i := 0; i < n; i++ {
			if i == readyAt {
				if err := o.MarkReady(); err != nil {
					t.Fatal(err)
				}
			}
			f := []byte{byte(i)}
			want = append(want, f)
			if err := o.PushReady(f); err != nil {
				t.Fatal(err)
			}
		}
		if err := o.MarkReady(); err != nil {
			t.Fatal(err)
		}
		got := queued(o)
		if len(got) != len(want) {
			t.Fatalf("got %d frames, want %d", len(got), len(want))
		}
		for i := range want {
			if !bytes.Equal(got[i], want[i]) {
				t.Fatalf("frame %d out of order", i)
			}
		}
	})
}
