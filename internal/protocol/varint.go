package protocol

import "io"

const (
	segmentBits   = 0x7f
	continueBit   = 0x80
	maxVarIntLen  = 5
	maxVarLongLen = 10
)

// AppendVarInt appends the VarInt encoding of v to b. Negative values use
// their 32-bit two's-complement form and always take 5 bytes.
func AppendVarInt(b []byte, v int32) []byte {
	u := uint32(v)
	for u&^segmentBits != 0 {
		b = append(b, byte(u&segmentBits)|continueBit)
		u >>= 7
	}
	return append(b, byte(u))
}

// AppendVarLong appends the VarLong encoding of v to b.
func AppendVarLong(b []byte, v int64) []byte {
	u := uint64(v)
	for u&^segmentBits != 0 {
		b = append(b, byte(u&segmentBits)|continueBit)
		u >>= 7
	}
	return append(b, byte(u))
}

// VarIntSize returns the number of bytes AppendVarInt emits for v.
func VarIntSize(v int32) int {
	u := uint32(v)
	n := 1
	for u&^segmentBits != 0 {
		u >>= 7
		n++
	}
	return n
}

// VarLongSize returns the number of bytes AppendVarLong emits for v.
func VarLongSize(v int64) int {
	u := uint64(v)
	n := 1
	for u&^segmentBits != 0 {
		u >>= 7
		n++
	}
	return n
}

// ReadVarInt decodes a VarInt from r.
//
// Postcondition: Returns ErrVarIntTooBig if the continuation bit is still set
// on the fifth byte, or the reader's error (io.EOF before the first byte).
func ReadVarInt(r io.ByteReader) (int32, error) {
	var value uint32
	for i := 0; i < maxVarIntLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		value |= uint32(b&segmentBits) << (7 * i)
		if b&continueBit == 0 {
			return int32(value), nil
		}
	}
	return 0, ErrVarIntTooBig
}

// ReadVarLong decodes a VarLong from r.
func ReadVarLong(r io.ByteReader) (int64, error) {
	var value uint64
	for i := 0; i < maxVarLongLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		value |= uint64(b&segmentBits) << (7 * i)
		if b&continueBit == 0 {
			return int64(value), nil
		}
	}
	return 0, ErrVarLongTooBig
}
