package gameserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/cubeserver/internal/config"
	"github.com/cory-johannsen/cubeserver/internal/frontend/tcp"
	"github.com/cory-johannsen/cubeserver/internal/game/entity"
	"github.com/cory-johannsen/cubeserver/internal/game/session"
	"github.com/cory-johannsen/cubeserver/internal/game/world"
	"github.com/cory-johannsen/cubeserver/internal/observability"
	"github.com/cory-johannsen/cubeserver/internal/protocol"
	"github.com/cory-johannsen/cubeserver/internal/testutil"
	"github.com/cory-johannsen/cubeserver/internal/text"
)

const wait = 2 * time.Second

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Gameplay.ViewRadius = 1
	cfg.Gameplay.KeepAliveInterval = time.Hour
	cfg.Server.ReadTimeout = 0
	cfg.Server.WriteTimeout = 0
	if mutate != nil {
		mutate(&cfg)
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := session.NewRegistry(logger, metrics, session.WithParkedKinds(ParkedKinds...))
	store := world.NewStore(world.NewFlatGenerator(), registry, logger)
	ticker := session.NewTicker(cfg.Gameplay.TickInterval)
	return NewServer(cfg, registry, store, ticker, metrics, observability.NewProbe(), nil, logger)
}

// connect runs a session over an in-memory pipe.
func connect(t *testing.T, srv *Server) *testutil.Client {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, tcp.NewConn(serverSide, 0, 0)) }()
	t.Cleanup(func() {
		cancel()
		clientSide.Close()
		<-done
	})
	return testutil.NewClient(t, clientSide)
}

func login(t *testing.T, srv *Server, name string) *testutil.Client {
	t.Helper()
	c := connect(t, srv)
	c.Login(name, wait)
	expectChat(t, c, name)
	return c
}

// expectChat reads system chat messages until one contains every part.
func expectChat(t *testing.T, c *testutil.Client, parts ...string) protocol.Frame {
	t.Helper()
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		f := c.Expect("SystemChatMessage", time.Until(deadline))
		matched := true
		for _, p := range parts {
			matched = matched && bytes.Contains(f.Body, []byte(p))
		}
		if matched {
			return f
		}
	}
	t.Fatalf("no chat containing %q", parts)
	return protocol.Frame{}
}

func chatFrame(c *testutil.Client, msg string) []byte {
	return c.Frame("ChatMessage", protocol.NewWriter(32).String(msg).Long(0).Long(0).Bool(false))
}

func TestStatus_HandshakeChainedWithRequest(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Server.MOTD = "hello" })
	c := connect(t, srv)

	c.SetState(protocol.Status)
	chained := append(testutil.Handshake(765, 1), c.Frame("StatusRequest", nil)...)
	c.SendRaw(chained)

	f := c.Expect("StatusResponse", wait)
	raw, err := protocol.NewReader(f.Body).String()
	require.NoError(t, err)

	var resp statusResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Equal(t, VersionName, resp.Version.Name)
	assert.Equal(t, int32(765), resp.Version.Protocol)
	assert.Equal(t, srv.cfg.Server.MaxPlayers, resp.Players.Max)
	assert.Zero(t, resp.Players.Online)
	assert.Contains(t, resp.Description.String(), "hello")
	assert.Contains(t, resp.Description.String(), "CPU Info:")
	assert.Contains(t, resp.Description.String(), "GB Total")

	c.ExpectNone("StatusResponse", 100*time.Millisecond)
}

func TestStatus_Ping(t *testing.T) {
	c := connect(t, newTestServer(t, nil))
	c.SendRaw(testutil.Handshake(765, 1))
	c.SetState(protocol.Status)
	c.Send("PingRequest", protocol.NewWriter(8).Long(424242))

	f := c.Expect("PongResponse", wait)
	v, err := protocol.NewReader(f.Body).Long()
	require.NoError(t, err)
	assert.Equal(t, int64(424242), v)
}

func TestHandshake_UnknownNextStateStaysInHandshaking(t *testing.T) {
	srv := newTestServer(t, nil)
	c := connect(t, srv)
	c.SendRaw(testutil.Handshake(765, 7))
	c.SendRaw(testutil.Handshake(765, 1))
	c.SetState(protocol.Status)
	c.Send("StatusRequest", nil)
	c.Expect("StatusResponse", wait)
}

func TestLogin_OfflineUUID(t *testing.T) {
	c := connect(t, newTestServer(t, nil))
	c.SendRaw(testutil.Handshake(765, 2))
	c.SetState(protocol.Login)
	c.Send("LoginStart", protocol.NewWriter(32).String("Notch").UUID(protocol.OfflineUUID("x")))

	f := c.Expect("LoginSuccess", wait)
	r := protocol.NewReader(f.Body)
	id, err := r.UUID()
	require.NoError(t, err)
	name, err := r.String()
	require.NoError(t, err)
	props, err := r.VarInt()
	require.NoError(t, err)

	assert.Equal(t, protocol.OfflineUUID("Notch"), id)
	assert.Equal(t, "Notch", name)
	assert.Zero(t, props)
}

func TestLogin_RejectsOtherProtocolVersion(t *testing.T) {
	c := connect(t, newTestServer(t, nil))
	c.SendRaw(testutil.Handshake(764, 2))
	c.SetState(protocol.Login)
	c.Send("LoginStart", protocol.NewWriter(32).String("Notch").UUID(protocol.OfflineUUID("x")))

	f := c.Expect("Disconnect", wait)
	reason, err := protocol.NewReader(f.Body).String()
	require.NoError(t, err)
	assert.Contains(t, reason, VersionName)
	assert.True(t, c.Closed(wait))
}

func TestConfiguration_ReplaysFramesThenFinishes(t *testing.T) {
	replay := protocol.EncodeFrame(
		protocol.Opcodes.MustID(protocol.Clientbound, protocol.Configuration, "RegistryData"),
		[]byte{0x0a, 0x00},
	)
	srv := newTestServer(t, nil)
	srv.replay = [][]byte{replay}
	c := connect(t, srv)

	c.SendRaw(testutil.Handshake(765, 2))
	c.SetState(protocol.Login)
	c.Send("LoginStart", protocol.NewWriter(32).String("alice").UUID(protocol.OfflineUUID("x")))
	c.Expect("LoginSuccess", wait)
	c.Send("LoginAcknowledged", nil)
	c.SetState(protocol.Configuration)

	var names []string
	for len(names) < 3 {
		names = append(names, c.Name(c.ReadFrame(wait)))
	}
	assert.Equal(t, []string{"RegistryData", "FeatureFlags", "FinishConfiguration"}, names)

	c.Send("PluginMessage", protocol.NewWriter(32).String(brandChannel).String("vanilla"))
	f := c.Expect("PluginMessage", wait)
	r := protocol.NewReader(f.Body)
	channel, err := r.String()
	require.NoError(t, err)
	brand, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, brandChannel, channel)
	assert.Equal(t, serverBrand, brand)
}

func TestPlay_EntrySequence(t *testing.T) {
	srv := newTestServer(t, nil)
	c := connect(t, srv)
	c.SendRaw(testutil.Handshake(765, 2))
	c.SetState(protocol.Login)
	c.Send("LoginStart", protocol.NewWriter(32).String("alice").UUID(protocol.OfflineUUID("x")))
	c.Expect("LoginSuccess", wait)
	c.Send("LoginAcknowledged", nil)
	c.SetState(protocol.Configuration)
	c.Expect("FinishConfiguration", wait)
	c.Send("AcknowledgeFinishConfiguration", nil)
	c.SetState(protocol.Play)

	var names []string
	for {
		name := c.Name(c.ReadFrame(wait))
		names = append(names, name)
		if name == "EntityEffect" {
			break
		}
	}
	require.GreaterOrEqual(t, len(names), 5)
	assert.Equal(t, []string{"Login", "GameEvent", "SynchronizePlayerPosition", "PlayerInfoUpdate", "SetCenterChunk"}, names[:5])

	chunks := 0
	for _, n := range names {
		if n == "ChunkDataAndUpdateLight" {
			chunks++
		}
	}
	// radius 1 streams [-1, 1) on both axes
	assert.Equal(t, 4, chunks)

	expectChat(t, c, "alice")
	require.Eventually(t, func() bool {
		s := srv.Sessions()
		return len(s) == 1 && s[0].Ready && s[0].State == "play" && s[0].Username == "alice"
	}, wait, 10*time.Millisecond)
}

func TestChat_ReachesReadySessionsOnly(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")
	b := login(t, srv, "bob")

	pending := connect(t, srv)
	pending.SendRaw(testutil.Handshake(765, 2))
	pending.SetState(protocol.Login)
	pending.Send("LoginStart", protocol.NewWriter(32).String("carol").UUID(protocol.OfflineUUID("x")))
	pending.Expect("LoginSuccess", wait)

	a.SendRaw(chatFrame(a, "hello world"))

	expectChat(t, a, "hello world")
	expectChat(t, b, "hello world")
	b.ExpectNone("SystemChatMessage", 100*time.Millisecond)

	_, err := pending.TryReadFrame(200 * time.Millisecond)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

// playerNamed returns the registered player logged in as name.
func playerNamed(t *testing.T, srv *Server, name string) *session.Player {
	t.Helper()
	var found *session.Player
	require.Eventually(t, func() bool {
		for _, p := range srv.registry.Players() {
			if p.Username() == name {
				found = p
				return true
			}
		}
		return false
	}, wait, 10*time.Millisecond)
	return found
}

func TestChat_ParkedUntilJoinCompletesAndDeliveredOnce(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")

	carol := connect(t, srv)
	carol.Configure("carol", wait)
	parked := playerNamed(t, srv, "carol").Outbox()

	a.SendRaw(chatFrame(a, "hello carol"))
	expectChat(t, a, "hello carol")
	require.Eventually(t, func() bool { return parked.Pending() == 1 }, wait, 10*time.Millisecond)

	carol.Send("AcknowledgeFinishConfiguration", nil)
	carol.SetState(protocol.Play)

	for {
		f := carol.ReadFrame(wait)
		name := carol.Name(f)
		require.NotEqual(t, "SystemChatMessage", name, "chat delivered before the join sequence finished")
		if name == "EntityEffect" {
			break
		}
	}

	// the parked chat is flushed on ready, ahead of the join line
	seen := 0
	for {
		f := carol.Expect("SystemChatMessage", wait)
		if bytes.Contains(f.Body, []byte("hello carol")) {
			seen++
			continue
		}
		if bytes.Contains(f.Body, []byte("carol")) {
			break
		}
	}
	assert.Equal(t, 1, seen)
	carol.ExpectNone("SystemChatMessage", 200*time.Millisecond)
}

func TestPlay_JoiningPlayerSurvivesMovementPastPendingLimit(t *testing.T) {
	const limit = 8
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Server.PendingLimit = limit })
	a := login(t, srv, "alice")

	carol := connect(t, srv)
	carol.Configure("carol", wait)
	joining := playerNamed(t, srv, "carol").Outbox()

	spawn := srv.spawn()
	for i := 1; i <= 4*limit; i++ {
		step := protocol.Vec3{X: spawn.X + float64(i)*0.1, Y: spawn.Y, Z: spawn.Z}
		a.Send("SetPlayerPositionAndRotation", protocol.NewWriter(48).Vec3(step).Float(float32(i)).Float(0).Bool(true))
	}
	a.SendRaw(chatFrame(a, "still here"))
	expectChat(t, a, "still here")

	require.Eventually(t, func() bool { return joining.Pending() == 1 }, wait, 10*time.Millisecond)
	assert.False(t, joining.Aborted())

	carol.FinishConfiguration(wait)
	expectChat(t, carol, "still here")
	carol.Expect("SpawnEntity", wait)
	assert.False(t, joining.Aborted())

	carol.ExpectNone("UpdateEntityPositionAndRotation", 100*time.Millisecond)
	assert.False(t, carol.Closed(100*time.Millisecond))
}

func TestTick_SamplesHeapOncePerStep(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Debug.Level = 1 })
	a := login(t, srv, "alice")
	b := login(t, srv, "bob")
	require.Eventually(t, func() bool { return srv.ticker.Len() == 3 }, wait, 10*time.Millisecond)

	before := srv.probe.Samples()
	srv.ticker.Step()
	assert.Equal(t, before+1, srv.probe.Samples())

	for _, c := range []*testutil.Client{a, b} {
		expectChat(t, c, "Tick: 1")
	}
}

func TestPlay_MovementReachesOthers(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")
	b := login(t, srv, "bob")
	b.Expect("SpawnEntity", wait)

	spawn := srv.spawn()
	a.Send("SetPlayerPosition", protocol.NewWriter(32).Vec3(protocol.Vec3{X: spawn.X + 1, Y: spawn.Y, Z: spawn.Z}).Bool(true))

	f := b.Expect("UpdateEntityPosition", wait)
	r := protocol.NewReader(f.Body)
	id, err := r.VarInt()
	require.NoError(t, err)
	dx, err := r.Short()
	require.NoError(t, err)
	dy, err := r.Short()
	require.NoError(t, err)

	aliceID := srv.Sessions()[0].EntityID
	assert.Equal(t, aliceID, id)
	assert.Equal(t, int16(4096), dx)
	assert.Zero(t, dy)
}

func TestPlay_SneakBroadcastsMetadata(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")
	b := login(t, srv, "bob")
	b.Expect("SpawnEntity", wait)

	a.Send("PlayerCommand", protocol.NewWriter(8).VarInt(0).VarInt(int32(entity.ActionStartSneaking)).VarInt(0))

	// the first metadata seen may be the empty run sent with the spawn
	entries := metadataEntries(t, b)
	assert.Contains(t, entries, entity.Entry{Index: entity.IndexFlags, Type: entity.MetaByte, Value: byte(entity.FlagSneaking)})
	assert.Contains(t, entries, entity.Entry{Index: entity.IndexPose, Type: entity.MetaPose, Value: entity.PoseSneaking})
}

// metadataEntries reads SetEntityMetadata frames until one carries entries.
func metadataEntries(t *testing.T, c *testutil.Client) []entity.Entry {
	t.Helper()
	var entries []entity.Entry
	for len(entries) == 0 {
		f := c.Expect("SetEntityMetadata", wait)
		r := protocol.NewReader(f.Body)
		_, err := r.VarInt()
		require.NoError(t, err)
		entries, err = entity.ParseMetadata(r.Rest())
		require.NoError(t, err)
	}
	return entries
}

func TestPlay_StopSneakingDropsStoredPose(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")
	b := login(t, srv, "bob")
	b.Expect("SpawnEntity", wait)
	alice := playerNamed(t, srv, "alice")

	a.Send("PlayerCommand", protocol.NewWriter(8).VarInt(0).VarInt(int32(entity.ActionStartSneaking)).VarInt(0))
	sneaking := metadataEntries(t, b)
	assert.Contains(t, sneaking, entity.Entry{Index: entity.IndexPose, Type: entity.MetaPose, Value: entity.PoseSneaking})

	a.Send("PlayerCommand", protocol.NewWriter(8).VarInt(0).VarInt(int32(entity.ActionStopSneaking)).VarInt(0))
	standing := metadataEntries(t, b)
	assert.Contains(t, standing, entity.Entry{Index: entity.IndexFlags, Type: entity.MetaByte, Value: byte(0)})
	assert.Contains(t, standing, entity.Entry{Index: entity.IndexPose, Type: entity.MetaPose, Value: entity.PoseStanding})

	require.Eventually(t, func() bool {
		raw, err := alice.MetadataBytes()
		if err != nil {
			return false
		}
		stored, err := entity.ParseMetadata(raw)
		return err == nil && assert.ObjectsAreEqual(
			[]entity.Entry{{Index: entity.IndexFlags, Type: entity.MetaByte, Value: byte(0)}}, stored)
	}, wait, 10*time.Millisecond)
}

func TestPlay_PlaceAndBreakBlock(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")

	ground := protocol.Position{X: 0, Y: -61, Z: 0}
	above := protocol.Position{X: 0, Y: -60, Z: 0}
	a.Send("UseItemOn", protocol.NewWriter(32).
		VarInt(0).Position(ground).VarInt(1).
		Float(0.5).Float(1).Float(0.5).Bool(false).VarInt(7))

	f := a.Expect("BlockUpdate", wait)
	r := protocol.NewReader(f.Body)
	pos, err := r.Position()
	require.NoError(t, err)
	block, err := r.VarInt()
	require.NoError(t, err)
	assert.Equal(t, above, pos)
	assert.Equal(t, int32(world.Stone), block)

	ack := a.Expect("AcknowledgeBlockChange", wait)
	seq, err := protocol.NewReader(ack.Body).VarInt()
	require.NoError(t, err)
	assert.Equal(t, int32(7), seq)

	got, err := srv.world.Block(above)
	require.NoError(t, err)
	assert.Equal(t, world.Stone, got)

	a.Send("PlayerAction", protocol.NewWriter(32).VarInt(0).Position(above).Byte(1).VarInt(8))
	a.Expect("BlockUpdate", wait)
	ev := a.Expect("WorldEvent", wait)
	er := protocol.NewReader(ev.Body)
	code, err := er.Int()
	require.NoError(t, err)
	_, err = er.Position()
	require.NoError(t, err)
	data, err := er.Int()
	require.NoError(t, err)
	assert.Equal(t, int32(world.WorldEventBlockBreak), code)
	assert.Equal(t, int32(world.Stone), data)
}

func TestPlay_HeldCreativeItemIsPlaced(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")

	item := protocol.NewWriter(8).Bool(true).VarInt(28).Byte(1).Byte(0).Bytes()
	a.Send("SetCreativeModeSlot", protocol.NewWriter(16).Short(hotbarFirstSlot+2).Raw(item))
	a.Send("SetHeldItem", protocol.NewWriter(4).Short(2))
	a.Send("UseItemOn", protocol.NewWriter(32).
		VarInt(0).Position(protocol.Position{X: 3, Y: -61, Z: 3}).VarInt(1).
		Float(0.5).Float(1).Float(0.5).Bool(false).VarInt(1))
	a.Expect("AcknowledgeBlockChange", wait)

	got, err := srv.world.Block(protocol.Position{X: 3, Y: -60, Z: 3})
	require.NoError(t, err)
	assert.Equal(t, world.Dirt, got)
}

func TestPlay_BadFramesAreDropped(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")

	// unknown opcode
	a.SendRaw(protocol.EncodeFrame(0x7f, []byte{1, 2, 3}))
	// known packet without a handler
	a.Send("UseItem", protocol.NewWriter(4).VarInt(0))
	// handler error
	a.Send("SetHeldItem", protocol.NewWriter(4).Short(20))
	// truncated body
	a.Send("SetPlayerPosition", protocol.NewWriter(4).Byte(1))

	a.Send("PingRequest", protocol.NewWriter(8).Long(99))
	f := a.Expect("PingResponse", wait)
	v, err := protocol.NewReader(f.Body).Long()
	require.NoError(t, err)
	assert.Equal(t, int64(99), v)
}

func TestPlay_OutOfStateFrameIsDropped(t *testing.T) {
	srv := newTestServer(t, nil)
	c := connect(t, srv)
	c.SetState(protocol.Play)
	// Play ChatMessage id has no meaning in Handshaking
	c.SendRaw(chatFrame(c, "early"))
	c.SendRaw(testutil.Handshake(765, 1))
	c.SetState(protocol.Status)
	c.Send("StatusRequest", nil)
	c.Expect("StatusResponse", wait)
}

func TestInvoke_RecoversPanic(t *testing.T) {
	srv := newTestServer(t, nil)
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	sess := newSession(context.Background(), srv, tcp.NewConn(serverSide, 0, 0))

	err := sess.invoke(protocol.Play, "ChatMessage", func(*Session, protocol.Fields) error {
		panic("boom")
	}, nil)
	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "ChatMessage", herr.Packet)
	assert.Contains(t, herr.Error(), "boom")

	cause := errors.New("bad")
	err = sess.invoke(protocol.Play, "SwingArm", func(*Session, protocol.Fields) error { return cause }, nil)
	assert.ErrorIs(t, err, cause)
}

func TestKeepAlive_TimeoutClosesSession(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Gameplay.KeepAliveInterval = 20 * time.Millisecond
		cfg.Gameplay.KeepAliveTimeout = 50 * time.Millisecond
	})
	c := connect(t, srv)
	c.Login("alice", wait)

	c.Expect("Disconnect", wait)
	assert.True(t, c.Closed(wait))
}

func TestKeepAlive_AnsweredKeepsSessionOpen(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Gameplay.KeepAliveInterval = 20 * time.Millisecond
		cfg.Gameplay.KeepAliveTimeout = 200 * time.Millisecond
	})
	c := login(t, srv, "alice")

	for i := 0; i < 15; i++ {
		f := c.Expect("KeepAlive", wait)
		id, err := protocol.NewReader(f.Body).Long()
		require.NoError(t, err)
		c.Send("KeepAlive", protocol.NewWriter(8).Long(id))
	}
	c.ExpectNone("Disconnect", 50*time.Millisecond)
}

func TestTeardown_AnnouncesLeave(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")

	serverSide, clientSide := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), tcp.NewConn(serverSide, 0, 0)) }()
	b := testutil.NewClient(t, clientSide)
	b.Login("bob", wait)
	a.Expect("SpawnEntity", wait)

	clientSide.Close()
	require.NoError(t, <-done)

	a.Expect("RemoveEntities", wait)
	a.Expect("PlayerInfoRemove", wait)
	expectChat(t, a, "bob", text.Red)
	assert.Len(t, srv.Sessions(), 1)
	assert.Equal(t, 1, srv.registry.Len())
}

func TestTeardown_SilentBeforeLogin(t *testing.T) {
	srv := newTestServer(t, nil)
	a := login(t, srv, "alice")

	serverSide, clientSide := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), tcp.NewConn(serverSide, 0, 0)) }()
	clientSide.Close()
	require.NoError(t, <-done)

	a.ExpectNone("SystemChatMessage", 100*time.Millisecond)
}

func TestLoadReplayFrames(t *testing.T) {
	dir := t.TempDir()
	good := dir + "/good.bin"
	bad := dir + "/bad.bin"
	frame := protocol.EncodeFrame(5, []byte{1, 2, 3})
	require.NoError(t, os.WriteFile(good, append(frame, frame...), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte{0x05, 0x00}, 0o600))

	frames, err := LoadReplayFrames([]string{good})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, append(frame, frame...), frames[0])

	_, err = LoadReplayFrames([]string{bad})
	assert.Error(t, err)
	_, err = LoadReplayFrames([]string{dir + "/missing.bin"})
	assert.Error(t, err)
}

func TestNameColor(t *testing.T) {
	assert.Equal(t, text.White, NameColor("Notch"))
	assert.Equal(t, text.Red, NameColor("alice"))
	assert.Equal(t, text.Gold, NameColor("bob"))
	assert.Equal(t, text.Red, NameColor(""))
	// a hash landing on the tenth bucket falls back to white
	assert.Equal(t, text.White, NameColor("steveag"))
}

func TestOverlayLine(t *testing.T) {
	const mb = 1024 * 1024
	c := overlayLine(50*mb, 100*mb, protocol.Vec3{X: 1.5, Y: -60.4, Z: 2}, 7)
	assert.Equal(t, "50 MB / 100 MB (50%) | 2, -60, 2 | Tick: 7", c.String())
	require.Len(t, c.Extra, 9)
	assert.Equal(t, text.Green, c.Extra[0].Color)

	assert.Equal(t, text.Red, heapColor(10))
	assert.Equal(t, text.Green, heapColor(30))
	assert.Equal(t, text.Yellow, heapColor(60))
	assert.Equal(t, text.Red, heapColor(80))
	assert.Equal(t, "1.5 MB", megabytes(mb+mb/2))
}

func TestPlayerInfoUpdate_Layout(t *testing.T) {
	p := session.NewPlayer(entity.New(3, entity.TypePlayer, protocol.Vec3{}), session.NewOutbox(1, 1))
	p.SetUUID(protocol.OfflineUUID("alice"))
	p.Login("alice")

	frames, err := protocol.ParseFrames(playerInfoUpdate(p, session.InfoAll))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.Opcodes.MustID(protocol.Clientbound, protocol.Play, "PlayerInfoUpdate"), frames[0].ID)

	r := protocol.NewReader(frames[0].Body)
	actions, _ := r.Byte()
	count, _ := r.VarInt()
	id, _ := r.UUID()
	name, _ := r.String()
	props, _ := r.VarInt()
	assert.Equal(t, session.InfoAll, actions)
	assert.Equal(t, int32(1), count)
	assert.Equal(t, p.UUID(), id)
	assert.Equal(t, "alice", name)
	assert.Zero(t, props)
	// chat signature absent, creative, listed, latency 0, no display name
	assert.Equal(t, []byte{0, session.GameModeCreative, 1, 0, 0}, r.Rest())
}

func TestPropertyNameColorIsStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z0-9_]{1,16}`).Draw(t, "name")
		c := NameColor(name)
		if c != NameColor(name) {
			t.Fatalf("color for %q changed", name)
		}
		found := false
		for _, n := range nameColors {
			found = found || n == c
		}
		if !found {
			t.Fatalf("color %q not in palette", c)
		}
	})
}
