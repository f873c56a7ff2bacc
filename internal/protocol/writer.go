package protocol

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Writer accumulates a packet body. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity for n bytes.
func NewWriter(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// Bytes returns the accumulated bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// VarInt appends v as a VarInt. Negative values take 5 bytes.
func (w *Writer) VarInt(v int32) *Writer {
	w.buf = AppendVarInt(w.buf, v)
	return w
}

// VarLong appends v as a VarLong. Negative values take 10 bytes.
func (w *Writer) VarLong(v int64) *Writer {
	w.buf = AppendVarLong(w.buf, v)
	return w
}

// Byte appends one byte.
func (w *Writer) Byte(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// SignedByte appends v as a two's complement byte.
func (w *Writer) SignedByte(v int8) *Writer {
	w.buf = append(w.buf, byte(v))
	return w
}

// Bool appends 1 for true and 0 for false.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Byte(1)
	}
	return w.Byte(0)
}

// Short appends a big-endian int16.
func (w *Writer) Short(v int16) *Writer {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
	return w
}

// UShort appends a big-endian uint16.
func (w *Writer) UShort(v uint16) *Writer {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

// Int appends a big-endian int32.
func (w *Writer) Int(v int32) *Writer {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
	return w
}

// Long appends a big-endian int64.
func (w *Writer) Long(v int64) *Writer {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
	return w
}

// ULong writes an unsigned 64-bit word, used for packed section data.
func (w *Writer) ULong(v uint64) *Writer {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
	return w
}

// Float appends a big-endian IEEE 754 float32.
func (w *Writer) Float(v float32) *Writer {
	w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

// Double appends a big-endian IEEE 754 float64.
func (w *Writer) Double(v float64) *Writer {
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
	return w
}

// String writes a VarInt byte length followed by the UTF-8 bytes.
func (w *Writer) String(s string) *Writer {
	w.buf = AppendVarInt(w.buf, int32(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// UUID writes the 16 bytes of u, most significant half first.
func (w *Writer) UUID(u uuid.UUID) *Writer {
	w.buf = append(w.buf, u[:]...)
	return w
}

// Position appends p packed as x:26, z:26, y:12 bits.
func (w *Writer) Position(p Position) *Writer {
	return w.ULong(PackPosition(p))
}

// Angle appends deg as a 1/256-turn step, wrapping outside [0, 360).
func (w *Writer) Angle(deg float32) *Writer {
	return w.Byte(Angle(deg))
}

// Vec3 writes three doubles.
func (w *Writer) Vec3(v Vec3) *Writer {
	return w.Double(v.X).Double(v.Y).Double(v.Z)
}

// Rotation writes yaw and pitch as floats.
func (w *Writer) Rotation(r Rotation) *Writer {
	return w.Float(r.Yaw).Float(r.Pitch)
}

// PrefixedBytes writes a VarInt length followed by b.
func (w *Writer) PrefixedBytes(b []byte) *Writer {
	w.buf = AppendVarInt(w.buf, int32(len(b)))
	w.buf = append(w.buf, b...)
	return w
}

// Raw appends b without a length prefix.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}
