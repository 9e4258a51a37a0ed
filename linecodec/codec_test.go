package linecodec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Options(t *testing.T) {
	c, err := New(WithDelimiter("\n"), WithMaxFrameSize(16))
	require.NoError(t, err)
	assert.Equal(t, "\n", c.Delimiter())
	assert.Equal(t, 16, c.MaxFrameSize())

	_, err = New(WithDelimiter(""))
	assert.Error(t, err)

	_, err = New(WithMaxFrameSize(0))
	assert.Error(t, err)

	c = Default()
	assert.Equal(t, DefaultDelimiter, c.Delimiter())
	assert.Equal(t, DefaultMaxFrameSize, c.MaxFrameSize())
}

func TestDecode_SingleLine(t *testing.T) {
	c := Default()
	buf := bytes.NewBufferString("OK\r\n")

	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "OK\r\n", line)
	assert.Zero(t, buf.Len())
}

func TestDecode_PartialFrame(t *testing.T) {
	c := Default()
	buf := bytes.NewBufferString("OK")

	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, line)
	assert.Equal(t, 2, buf.Len(), "partial frame must not be consumed")

	buf.WriteString("\r\n")
	line, ok, err = c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "OK\r\n", line)
	assert.Zero(t, buf.Len())
}

func TestDecode_SplitDelimiter(t *testing.T) {
	c := Default()
	buf := bytes.NewBufferString("QXMON,BG1101\r")

	_, ok, err := c.Decode(buf)
	require.NoError(t, err)
	assert.False(t, ok)

	buf.WriteString("\n")
	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "QXMON,BG1101\r\n", line)
}

func TestDecode_MultipleLines(t *testing.T) {
	c := Default()
	buf := bytes.NewBufferString("first\r\nsecond\r\nthird")

	var lines []string
	for {
		line, ok, err := c.Decode(buf)
		require.NoError(t, err)
		if !ok {
			break
		}
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"first\r\n", "second\r\n"}, lines)
	assert.Equal(t, "third", buf.String())
}

func TestDecode_BareLineFeedIgnoredWithCRLF(t *testing.T) {
	c := Default()
	buf := bytes.NewBufferString("no\ncarriage return")

	_, ok, err := c.Decode(buf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecode_LineFeedDelimiter(t *testing.T) {
	c, err := New(WithDelimiter("\n"))
	require.NoError(t, err)
	buf := bytes.NewBufferString("a\nb\n")

	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a\n", line)
	assert.Equal(t, "b\n", buf.String())
}

func TestDecode_InvalidEncoding(t *testing.T) {
	c := Default()
	buf := bytes.NewBuffer([]byte{0xff, 0xfe, '\r', '\n', 'O', 'K', '\r', '\n'})

	_, ok, err := c.Decode(buf)
	require.ErrorIs(t, err, ErrInvalidEncoding)
	assert.False(t, ok)

	// the malformed line is consumed, the next one decodes normally
	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "OK\r\n", line)
}

func TestDecode_FrameTooLong(t *testing.T) {
	c, err := New(WithMaxFrameSize(8))
	require.NoError(t, err)

	buf := bytes.NewBufferString("12345678")
	_, ok, err := c.Decode(buf)
	require.NoError(t, err, "exactly at the limit is still accepted")
	assert.False(t, ok)

	buf.WriteString("9")
	_, ok, err = c.Decode(buf)
	require.ErrorIs(t, err, ErrFrameTooLong)
	assert.False(t, ok)
	assert.Equal(t, "123456789", buf.String(), "buffer must not be truncated")
}

func TestDecode_FrameTooLongDefaultLimit(t *testing.T) {
	c := Default()
	buf := bytes.NewBufferString(strings.Repeat("x", DefaultMaxFrameSize+1))

	_, _, err := c.Decode(buf)
	assert.ErrorIs(t, err, ErrFrameTooLong)
	assert.Equal(t, DefaultMaxFrameSize+1, buf.Len())
}

func TestEncode(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "append delimiter", line: "$QXMON", want: "$QXMON\r\n"},
		{name: "already terminated", line: "$QXMON\r\n", want: "$QXMON\r\n"},
		{name: "only carriage return", line: "$QXMON\r", want: "$QXMON\r\r\n"},
		{name: "empty line", line: "", want: "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(c.Encode(nil, tt.line)))
		})
	}
}

func TestEncode_AppendsToExisting(t *testing.T) {
	c := Default()
	dst := c.Encode(nil, "a")
	dst = c.Encode(dst, "b\r\n")
	assert.Equal(t, "a\r\nb\r\n", string(dst))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	c := Default()

	for _, content := range []string{"$QXMONCSTM", "QXMON,BG1101,extra", "héllo"} {
		buf := bytes.NewBuffer(c.Encode(nil, content))
		line, ok, err := c.Decode(buf)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, content+"\r\n", line)
		assert.Zero(t, buf.Len())
	}
}
