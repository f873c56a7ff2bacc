package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// FieldType is the wire encoding of a declared packet field.
type FieldType int

const (
	FieldVarInt FieldType = iota
	FieldVarLong
	FieldByte
	FieldSignedByte
	FieldBool
	FieldShort
	FieldUShort
	FieldInt
	FieldLong
	FieldFloat
	FieldDouble
	FieldString
	FieldUUID
	FieldPosition
	FieldAngle
	FieldVec3
	FieldRotation
	FieldBytes
	FieldRaw
	FieldText
	FieldVarIntArray
	FieldStringArray
	FieldUUIDArray
)

var fieldTypeNames = [...]string{
	"varint", "varlong", "byte", "signed_byte", "bool", "short", "ushort", "int",
	"long", "float", "double", "string", "uuid", "position", "angle", "vec3",
	"rotation", "bytes", "raw", "text", "varint_array", "string_array", "uuid_array",
}

func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return fmt.Sprintf("field(%d)", int(t))
}

// Field is one declared field of a packet body.
type Field struct {
	Name string
	Type FieldType
}

// TextComponent is a value encodable as a network compound tag.
type TextComponent interface {
	NetworkNBT() ([]byte, error)
}

// Fields carries packet field values keyed by field name. Encoding walks the
// declared schema in order and skips names that are absent.
type Fields map[string]any

type schemaKey struct {
	dir   Direction
	state State
	name  string
}

var schemas = make(map[schemaKey][]Field)

func register(dir Direction, state State, name string, fields ...Field) {
	if _, ok := Opcodes.ID(dir, state, name); !ok {
		panic(fmt.Sprintf("protocol: schema for %s/%s/%s has no opcode", dir, state, name))
	}
	schemas[schemaKey{dir, state, name}] = fields
}

// Schema returns the declared fields of a packet.
func Schema(dir Direction, state State, name string) ([]Field, bool) {
	f, ok := schemas[schemaKey{dir, state, name}]
	return f, ok
}

// Encode builds the framed clientbound packet name in state from f.
//
// Postcondition: Returns *UnimplementedPacketError when no schema is declared,
// or an error naming the field whose value has the wrong Go type.
func Encode(state State, name string, f Fields) ([]byte, error) {
	fields, ok := Schema(Clientbound, state, name)
	if !ok {
		return nil, &UnimplementedPacketError{Direction: Clientbound, State: state, Name: name}
	}
	id := Opcodes.MustID(Clientbound, state, name)

	w := NewWriter(64)
	for _, field := range fields {
		v, present := f[field.Name]
		if !present || v == nil {
			continue
		}
		if err := writeField(w, field, v); err != nil {
			return nil, fmt.Errorf("encoding %s/%s: %w", state, name, err)
		}
	}
	return EncodeFrame(id, w.Bytes()), nil
}

// MustEncode is Encode for packets built by the server itself, where a
// failure is a programming error.
func MustEncode(state State, name string, f Fields) []byte {
	b, err := Encode(state, name, f)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode parses a serverbound body by the schema registered for id in state.
// Bytes after the last declared field are ignored.
//
// Postcondition: Returns *ProtocolStateError for an id unknown in state and
// *UnimplementedPacketError for a known packet without a schema.
func Decode(state State, id int32, body []byte) (string, Fields, error) {
	name, ok := Opcodes.Name(Serverbound, state, id)
	if !ok {
		return "", nil, &ProtocolStateError{State: state, ID: id}
	}
	fields, ok := Schema(Serverbound, state, name)
	if !ok {
		return name, nil, &UnimplementedPacketError{Direction: Serverbound, State: state, Name: name}
	}

	r := NewReader(body)
	out := make(Fields, len(fields))
	for _, field := range fields {
		v, err := readField(r, field)
		if err != nil {
			return name, out, fmt.Errorf("decoding %s field %s: %w", name, field.Name, err)
		}
		out[field.Name] = v
	}
	return name, out, nil
}

func writeField(w *Writer, field Field, v any) error {
	mismatch := func() error {
		return fmt.Errorf("field %s: %s cannot hold %T", field.Name, field.Type, v)
	}

	switch field.Type {
	case FieldVarInt, FieldVarLong, FieldByte, FieldSignedByte, FieldShort, FieldUShort, FieldInt, FieldLong:
		n, ok := asInt64(v)
		if !ok {
			return mismatch()
		}
		switch field.Type {
		case FieldVarInt:
			w.VarInt(int32(n))
		case FieldVarLong:
			w.VarLong(n)
		case FieldByte:
			w.Byte(byte(n))
		case FieldSignedByte:
			w.SignedByte(int8(n))
		case FieldShort:
			w.Short(int16(n))
		case FieldUShort:
			w.UShort(uint16(n))
		case FieldInt:
			w.Int(int32(n))
		case FieldLong:
			w.Long(n)
		}
	case FieldFloat, FieldDouble, FieldAngle:
		x, ok := asFloat64(v)
		if !ok {
			return mismatch()
		}
		switch field.Type {
		case FieldFloat:
			w.Float(float32(x))
		case FieldDouble:
			w.Double(x)
		case FieldAngle:
			w.Angle(float32(x))
		}
	case FieldBool:
		b, ok := v.(bool)
		if !ok {
			return mismatch()
		}
		w.Bool(b)
	case FieldString:
		s, ok := v.(string)
		if !ok {
			return mismatch()
		}
		w.String(s)
	case FieldUUID:
		u, ok := v.(uuid.UUID)
		if !ok {
			return mismatch()
		}
		w.UUID(u)
	case FieldPosition:
		p, ok := v.(Position)
		if !ok {
			return mismatch()
		}
		w.Position(p)
	case FieldVec3:
		p, ok := v.(Vec3)
		if !ok {
			return mismatch()
		}
		w.Vec3(p)
	case FieldRotation:
		r, ok := v.(Rotation)
		if !ok {
			return mismatch()
		}
		w.Rotation(r)
	case FieldBytes, FieldRaw:
		b, ok := v.([]byte)
		if !ok {
			return mismatch()
		}
		if field.Type == FieldBytes {
			w.PrefixedBytes(b)
		} else {
			w.Raw(b)
		}
	case FieldText:
		c, ok := v.(TextComponent)
		if !ok {
			return mismatch()
		}
		b, err := c.NetworkNBT()
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		w.Raw(b)
	case FieldVarIntArray:
		a, ok := v.([]int32)
		if !ok {
			return mismatch()
		}
		w.VarInt(int32(len(a)))
		for _, n := range a {
			w.VarInt(n)
		}
	case FieldStringArray:
		a, ok := v.([]string)
		if !ok {
			return mismatch()
		}
		w.VarInt(int32(len(a)))
		for _, s := range a {
			w.String(s)
		}
	case FieldUUIDArray:
		a, ok := v.([]uuid.UUID)
		if !ok {
			return mismatch()
		}
		w.VarInt(int32(len(a)))
		for _, u := range a {
			w.UUID(u)
		}
	default:
		return fmt.Errorf("field %s: unsupported type %s", field.Name, field.Type)
	}
	return nil
}

func readField(r *Reader, field Field) (any, error) {
	switch field.Type {
	case FieldVarInt:
		return r.VarInt()
	case FieldVarLong:
		return r.VarLong()
	case FieldByte:
		return r.Byte()
	case FieldSignedByte:
		return r.SignedByte()
	case FieldBool:
		return r.Bool()
	case FieldShort:
		return r.Short()
	case FieldUShort:
		return r.UShort()
	case FieldInt:
		return r.Int()
	case FieldLong:
		return r.Long()
	case FieldFloat:
		return r.Float()
	case FieldDouble:
		return r.Double()
	case FieldString:
		return r.String()
	case FieldUUID:
		return r.UUID()
	case FieldPosition:
		return r.Position()
	case FieldAngle:
		return r.Angle()
	case FieldVec3:
		return r.Vec3()
	case FieldRotation:
		return r.Rotation()
	case FieldBytes:
		return r.PrefixedBytes()
	case FieldRaw:
		return r.Rest(), nil
	case FieldVarIntArray:
		n, err := r.VarInt()
		if err != nil {
			return nil, err
		}
		if n < 0 || int(n) > r.Len() {
			return nil, ErrShortBuffer
		}
		out := make([]int32, 0, n)
		for i := int32(0); i < n; i++ {
			v, err := r.VarInt()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case FieldStringArray:
		n, err := r.VarInt()
		if err != nil {
			return nil, err
		}
		if n < 0 || int(n) > r.Len() {
			return nil, ErrShortBuffer
		}
		out := make([]string, 0, n)
		for i := int32(0); i < n; i++ {
			s, err := r.String()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", field.Type)
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		i, ok := asInt64(v)
		return float64(i), ok
	}
}

// Accessors return the zero value when a field is absent or has another type.

func (f Fields) Int32(name string) int32 {
	switch v := f[name].(type) {
	case int32:
		return v
	case int16:
		return int32(v)
	case uint16:
		return int32(v)
	case byte:
		return int32(v)
	case int8:
		return int32(v)
	}
	return 0
}

func (f Fields) Int64(name string) int64 {
	v, _ := asInt64(f[name])
	return v
}

func (f Fields) Float64(name string) float64 {
	v, _ := asFloat64(f[name])
	return v
}

func (f Fields) Bool(name string) bool {
	v, _ := f[name].(bool)
	return v
}

func (f Fields) String(name string) string {
	v, _ := f[name].(string)
	return v
}

func (f Fields) UUID(name string) uuid.UUID {
	v, _ := f[name].(uuid.UUID)
	return v
}

func (f Fields) Position(name string) Position {
	v, _ := f[name].(Position)
	return v
}

func (f Fields) Vec3(name string) Vec3 {
	v, _ := f[name].(Vec3)
	return v
}

func (f Fields) Rotation(name string) Rotation {
	v, _ := f[name].(Rotation)
	return v
}

func (f Fields) Bytes(name string) []byte {
	v, _ := f[name].([]byte)
	return v
}
