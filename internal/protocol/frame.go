package protocol

import (
	"errors"
	"fmt"
	"io"
)

// MaxFrameLength bounds the declared length of an inbound frame (2^21 - 1,
// the largest length a 3-byte VarInt can carry).
const MaxFrameLength = 1<<21 - 1

// Frame is one decoded packet: its opcode and the undecoded body.
type Frame struct {
	ID   int32
	Body []byte
}

// ByteReader is the reader ReadFrame consumes. *bufio.Reader satisfies it.
type ByteReader interface {
	io.Reader
	io.ByteReader
}

// ReadFrame reads one length-prefixed frame from r. Bytes following the frame
// stay buffered in r, so frames that arrive in the same read are returned by
// successive calls in order.
//
// Postcondition: Returns io.EOF when the stream ends cleanly between frames
// and a *FramingError for every malformation. Transport errors from r are
// returned unwrapped.
func ReadFrame(r ByteReader, maxLength int) (Frame, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		switch {
		case errors.Is(err, ErrVarIntTooBig):
			return Frame{}, &FramingError{Reason: "length prefix", Err: err}
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Frame{}, &FramingError{Reason: "reading length", Err: err}
		}
		// io.EOF between frames, or a transport error
		return Frame{}, err
	}
	if length <= 0 {
		return Frame{}, &FramingError{Reason: fmt.Sprintf("invalid frame length %d", length)}
	}
	if int(length) > maxLength {
		return Frame{}, &FramingError{Reason: fmt.Sprintf("frame length %d exceeds %d", length, maxLength)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, &FramingError{Reason: "reading payload", Err: io.ErrUnexpectedEOF}
		}
		return Frame{}, err
	}

	pr := NewReader(payload)
	id, err := pr.VarInt()
	if err != nil {
		return Frame{}, &FramingError{Reason: "packet id", Err: err}
	}
	return Frame{ID: id, Body: pr.Rest()}, nil
}

// EncodeFrame returns the wire form (length)(id)(body).
func EncodeFrame(id int32, body []byte) []byte {
	n := VarIntSize(id) + len(body)
	out := make([]byte, 0, VarIntSize(int32(n))+n)
	out = AppendVarInt(out, int32(n))
	out = AppendVarInt(out, id)
	return append(out, body...)
}

// ParseFrames splits a buffer holding zero or more complete frames.
func ParseFrames(b []byte) ([]Frame, error) {
	r := NewReader(b)
	var frames []Frame
	for r.Len() > 0 {
		f, err := ReadFrame(r, MaxFrameLength)
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}
