package protocol

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/google/uuid"
)

// Reader decodes primitive fields from a packet body in order.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{data: b}
}

// Remaining returns the unread bytes. The slice aliases the input.
func (r *Reader) Remaining() []byte { return r.data[r.off:] }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.data) - r.off }

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, ErrShortBuffer
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// VarInt reads a VarInt of at most 5 bytes. A truncated value returns
// ErrShortBuffer.
func (r *Reader) VarInt() (int32, error) {
	v, err := ReadVarInt(r)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return 0, ErrShortBuffer
	}
	return v, err
}

// VarLong reads a VarLong of at most 10 bytes. A truncated value returns
// ErrShortBuffer.
func (r *Reader) VarLong() (int64, error) {
	v, err := ReadVarLong(r)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return 0, ErrShortBuffer
	}
	return v, err
}

// Byte reads one unsigned byte.
func (r *Reader) Byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// SignedByte reads one two's complement byte.
func (r *Reader) SignedByte() (int8, error) {
	b, err := r.Byte()
	return int8(b), err
}

// Bool reads one byte. Only 1 is true.
func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	return b == 1, err
}

// Short reads a big-endian int16.
func (r *Reader) Short() (int16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

// UShort reads a big-endian uint16.
func (r *Reader) UShort() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Int reads a big-endian int32.
func (r *Reader) Int() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Long reads a big-endian int64.
func (r *Reader) Long() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// ULong reads a big-endian uint64.
func (r *Reader) ULong() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Float reads a big-endian IEEE 754 float32.
func (r *Reader) Float() (float32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

// Double reads a big-endian IEEE 754 float64.
func (r *Reader) Double() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// String reads a VarInt length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	n, err := r.VarInt()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UUID reads 16 bytes, most significant half first.
func (r *Reader) UUID() (uuid.UUID, error) {
	b, err := r.take(16)
	if err != nil {
		return uuid.Nil, err
	}
	var u uuid.UUID
	copy(u[:], b)
	return u, nil
}

// Position reads a block position packed into one 64-bit word.
func (r *Reader) Position() (Position, error) {
	v, err := r.ULong()
	if err != nil {
		return Position{}, err
	}
	return UnpackPosition(v), nil
}

// Angle reads a 1/256-turn step and returns it in degrees.
func (r *Reader) Angle() (float32, error) {
	b, err := r.Byte()
	return AngleDegrees(b), err
}

// Vec3 reads three doubles in x, y, z order.
func (r *Reader) Vec3() (Vec3, error) {
	var v Vec3
	var err error
	if v.X, err = r.Double(); err != nil {
		return v, err
	}
	if v.Y, err = r.Double(); err != nil {
		return v, err
	}
	v.Z, err = r.Double()
	return v, err
}

// Rotation reads yaw then pitch as floats.
func (r *Reader) Rotation() (Rotation, error) {
	var rot Rotation
	var err error
	if rot.Yaw, err = r.Float(); err != nil {
		return rot, err
	}
	rot.Pitch, err = r.Float()
	return rot, err
}

// PrefixedBytes reads a VarInt length followed by that many bytes.
func (r *Reader) PrefixedBytes() ([]byte, error) {
	n, err := r.VarInt()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// Rest consumes and returns every unread byte.
func (r *Reader) Rest() []byte {
	b := r.data[r.off:]
	r.off = len(r.data)
	return b
}
