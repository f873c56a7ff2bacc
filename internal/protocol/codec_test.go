package protocol

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestUUIDRoundTrip(t *testing.T) {
	const canonical = "069a79f4-44e9-4726-a5be-fca90e38aaf5"
	u := uuid.MustParse(canonical)

	w := NewWriter(16)
	w.UUID(u)
	require.Len(t, w.Bytes(), 16)
	assert.Equal(t, []byte{0x06, 0x9a, 0x79, 0xf4, 0x44, 0xe9, 0x47, 0x26}, w.Bytes()[:8])

	got, err := NewReader(w.Bytes()).UUID()
	require.NoError(t, err)
	assert.Equal(t, canonical, got.String())
}

func TestOfflineUUID(t *testing.T) {
	u := OfflineUUID("Notch")
	assert.Equal(t, "b50ad385-829d-3141-a216-7e7d7539ba7f", u.String())
	assert.Equal(t, uuid.Version(3), u.Version())
	assert.Equal(t, uuid.RFC4122, u.Variant())
	assert.Equal(t, u, OfflineUUID("Notch"))
	assert.NotEqual(t, u, OfflineUUID("notch"))
}

func TestPackPosition_KnownVector(t *testing.T) {
	p := Position{X: 18357644, Y: 831, Z: -20882616}
	assert.Equal(t, uint64(0x4607632c15b4833f), PackPosition(p))
	assert.Equal(t, p, UnpackPosition(0x4607632c15b4833f))
}

func TestPositionOffset(t *testing.T) {
	p := Position{X: 1, Y: 2, Z: 3}
	assert.Equal(t, Position{1, 1, 3}, p.Offset(0))
	assert.Equal(t, Position{1, 3, 3}, p.Offset(1))
	assert.Equal(t, Position{1, 2, 2}, p.Offset(2))
	assert.Equal(t, Position{1, 2, 4}, p.Offset(3))
	assert.Equal(t, Position{0, 2, 3}, p.Offset(4))
	assert.Equal(t, Position{2, 2, 3}, p.Offset(5))
	assert.Equal(t, p, p.Offset(9))
}

func TestAngle(t *testing.T) {
	assert.Equal(t, byte(0), Angle(0))
	assert.Equal(t, byte(64), Angle(90))
	assert.Equal(t, byte(128), Angle(180))
	assert.Equal(t, byte(255), Angle(359.9))
	assert.Equal(t, byte(192), Angle(-90))
}

func TestWriterReaderPrimitives(t *testing.T) {
	w := NewWriter(0)
	w.Bool(true).Byte(0xfe).SignedByte(-1).Short(-2).UShort(25565).Int(-3).Long(-4).
		Float(1.5).Double(-2.25).String("héllo").PrefixedBytes([]byte{1, 2}).
		Vec3(Vec3{1, 2, 3}).Rotation(Rotation{Yaw: 90, Pitch: -45})

	r := NewReader(w.Bytes())
	b, err := r.Bool()
	require.NoError(t, err)
	assert.True(t, b)
	by, _ := r.Byte()
	assert.Equal(t, byte(0xfe), by)
	sb, _ := r.SignedByte()
	assert.Equal(t, int8(-1), sb)
	s, _ := r.Short()
	assert.Equal(t, int16(-2), s)
	us, _ := r.UShort()
	assert.Equal(t, uint16(25565), us)
	i, _ := r.Int()
	assert.Equal(t, int32(-3), i)
	l, _ := r.Long()
	assert.Equal(t, int64(-4), l)
	f, _ := r.Float()
	assert.Equal(t, float32(1.5), f)
	d, _ := r.Double()
	assert.Equal(t, -2.25, d)
	str, _ := r.String()
	assert.Equal(t, "héllo", str)
	pb, _ := r.PrefixedBytes()
	assert.Equal(t, []byte{1, 2}, pb)
	v, _ := r.Vec3()
	assert.Equal(t, Vec3{1, 2, 3}, v)
	rot, err := r.Rotation()
	require.NoError(t, err)
	assert.Equal(t, Rotation{Yaw: 90, Pitch: -45}, rot)
	assert.Equal(t, 0, r.Len())

	_, err = r.Byte()
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestReadFrame_ChainedFramesInOneBuffer(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeFrame(0x00, NewWriter(0).VarInt(765).String("localhost").UShort(25565).VarInt(1).Bytes()))
	buf.Write(EncodeFrame(0x00, nil))

	r := bufio.NewReader(&buf)
	first, err := ReadFrame(r, MaxFrameLength)
	require.NoError(t, err)
	assert.Equal(t, int32(0), first.ID)

	second, err := ReadFrame(r, MaxFrameLength)
	require.NoError(t, err)
	assert.Equal(t, int32(0), second.ID)
	assert.Empty(t, second.Body)

	_, err = ReadFrame(r, MaxFrameLength)
	assert.Equal(t, io.EOF, err)
}

func TestReadFrame_Oversized(t *testing.T) {
	frame := AppendVarInt(nil, 100)
	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(frame)), 10)
	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.True(t, IsFatal(err))
}

func TestReadFrame_MalformedLength(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01})), MaxFrameLength)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrVarIntTooBig)
}

func TestReadFrame_Truncated(t *testing.T) {
	frame := EncodeFrame(0x05, []byte{1, 2, 3})
	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(frame[:len(frame)-1])), MaxFrameLength)
	assert.True(t, IsFatal(err))
}

// Property-based tests

func TestPropertyPositionRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Position{
			X: rapid.Int32Range(-1<<25, 1<<25-1).Draw(t, "x"),
			Y: rapid.Int32Range(-1<<11, 1<<11-1).Draw(t, "y"),
			Z: rapid.Int32Range(-1<<25, 1<<25-1).Draw(t, "z"),
		}
		if got := UnpackPosition(PackPosition(p)); got != p {
			t.Fatalf("got %+v want %+v", got, p)
		}
	})
}

func TestPropertyFrameRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Int32Range(0, 0x7f).Draw(t, "id")
		body := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(t, "body")

		f, err := ReadFrame(bufio.NewReader(bytes.NewReader(EncodeFrame(id, body))), MaxFrameLength)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.ID != id || !bytes.Equal(f.Body, body) {
			t.Fatalf("frame mismatch")
		}
	})
}
