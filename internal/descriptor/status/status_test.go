package status

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		code    Code
		msg     string
		wantMsg string
	}{
		{name: "ok", code: OK},
		{name: "error with message", code: Error, msg: "disk full", wantMsg: "disk full"},
		{name: "error without message", code: Error},
		{name: "detached", code: Detached},
		{name: "leaked", code: Leaked},
		{name: "message dropped for non-error", code: OK, msg: "ignored"},
		{name: "unknown code", code: Code(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, MaxFrameSize)
			n := Encode(buf, tt.code, tt.msg)
			assert.Equal(t, HeaderSize+len(tt.msg), n)

			got, err := Decode(buf[:n])
			require.NoError(t, err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestEncodeBigEndianHeader(t *testing.T) {
	buf := make([]byte, MaxFrameSize)

	n := Encode(buf, Dead, "")
	require.Equal(t, HeaderSize, n)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xfe}, buf[:n])

	n = Encode(buf, Detached, "")
	assert.Equal(t, []byte{0, 0, 0, 2}, buf[:n])
}

func TestEncodeTruncatesLongMessage(t *testing.T) {
	buf := make([]byte, MaxFrameSize)
	msg := strings.Repeat("x", 4*MaxFrameSize)

	n := Encode(buf, Error, msg)
	assert.Equal(t, MaxFrameSize, n)

	got, err := Decode(buf[:n])
	require.NoError(t, err)
	assert.Len(t, got.Message, MaxMessageSize)
}

func TestEncodeClampsOversizedBuffer(t *testing.T) {
	buf := make([]byte, 2*MaxFrameSize)
	n := Encode(buf, Error, strings.Repeat("y", 2*MaxFrameSize))
	assert.Equal(t, MaxFrameSize, n)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("é", 10) // two bytes each

	got := Truncate(msg, 5)
	assert.Equal(t, 4, len(got))
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, msg, Truncate(msg, len(msg)))
	assert.Empty(t, Truncate(msg, 0))
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	_, err := Decode([]byte{0, 0})
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = Decode(make([]byte, MaxFrameSize+1))
	assert.ErrorIs(t, err, ErrFrameTooLong)
}

func TestStatusErr(t *testing.T) {
	assert.NoError(t, New(OK).Err())
	assert.ErrorIs(t, New(Dead).Err(), ErrRemoteDead)
	assert.ErrorIs(t, New(Detached).Err(), ErrDetached)
	assert.ErrorIs(t, New(Leaked).Err(), ErrRemoteLeaked)

	var remote *RemoteError
	require.True(t, errors.As(NewError("boom").Err(), &remote))
	assert.Equal(t, "boom", remote.Message)
	assert.Equal(t, "remote error: boom", remote.Error())

	var unknown *UnknownStatusError
	require.True(t, errors.As(New(Code(9)).Err(), &unknown))
	assert.Equal(t, "unknown status: 9", unknown.Error())
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "silence", Silence.String())
	assert.Equal(t, "code(7)", Code(7).String())
	assert.Equal(t, "{1: oops}", NewError("oops").String())
}
