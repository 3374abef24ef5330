package status

import (
	"encoding/binary"
	"unicode/utf8"
)

const (
	// MaxFrameSize bounds one encoded status, header included.
	MaxFrameSize = 1024
	// HeaderSize is the length of the big-endian code prefix.
	HeaderSize = 4
	// MaxMessageSize is the room left for the message after the header.
	MaxMessageSize = MaxFrameSize - HeaderSize
)

// Encode writes code and msg into buf and returns the frame length.
// The message is cut to the space remaining in buf, on a rune boundary.
// buf must hold at least HeaderSize bytes.
func Encode(buf []byte, code Code, msg string) int {
	if len(buf) > MaxFrameSize {
		buf = buf[:MaxFrameSize]
	}
	binary.BigEndian.PutUint32(buf[:HeaderSize], uint32(code))
	n := HeaderSize
	if msg != "" {
		n += copy(buf[HeaderSize:], Truncate(msg, len(buf)-HeaderSize))
	}
	return n
}

// Truncate shortens msg to at most limit bytes without splitting a rune.
func Truncate(msg string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

// Decode parses one frame. Only Error statuses keep their message; trailing
// bytes on other codes are ignored.
func Decode(frame []byte) (*Status, error) {
	if len(frame) < HeaderSize {
		return nil, ErrShortFrame
	}
	if len(frame) > MaxFrameSize {
		return nil, ErrFrameTooLong
	}
	code := Code(int32(binary.BigEndian.Uint32(frame[:HeaderSize])))
	if code == Error {
		return NewError(string(frame[HeaderSize:])), nil
	}
	return New(code), nil
}
