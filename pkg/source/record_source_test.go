package source

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, contents []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "record-source-*.dump")
	require.NoError(t, err)
	_, err = f.Write(contents)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestReadLineStripsNewlinesAndCountsLines(t *testing.T) {
	path := writeTempFile(t, []byte("!data ip_src ip_dst\n1.2.3.4 5.6.7.8\r\n"))
	src, err := New(path, nil)
	require.NoError(t, err)
	defer src.Close()

	line, ok := src.ReadLine()
	assert.True(t, ok)
	assert.Equal(t, "!data ip_src ip_dst", line)

	line, ok = src.ReadLine()
	assert.True(t, ok)
	assert.Equal(t, "1.2.3.4 5.6.7.8", line)

	_, ok = src.ReadLine()
	assert.False(t, ok)
	assert.False(t, src.Initialized())
}

func TestPeekLineDoesNotConsume(t *testing.T) {
	path := writeTempFile(t, []byte("line one\nline two\n"))
	src, err := New(path, nil)
	require.NoError(t, err)
	defer src.Close()

	peeked, ok := src.PeekLine()
	require.True(t, ok)
	assert.Equal(t, "line one", peeked)

	read, ok := src.ReadLine()
	require.True(t, ok)
	assert.Equal(t, peeked, read)

	next, ok := src.ReadLine()
	require.True(t, ok)
	assert.Equal(t, "line two", next)
}

func TestLandmarkSwitchesTemplateOnBinary(t *testing.T) {
	path := writeTempFile(t, []byte("x\n"))
	src, err := New(path, nil)
	require.NoError(t, err)
	defer src.Close()

	src.ReadLine()
	assert.Regexp(t, `:1$`, src.Landmark())

	src.SetBinary(true)
	assert.Regexp(t, `:record 1$`, src.Landmark())
}

func TestReadBinaryFrameSplitsTextFlag(t *testing.T) {
	var buf []byte
	frame := func(payload []byte, text bool) []byte {
		length := uint32(len(payload) + 4)
		if text {
			length |= 0x80000000
		}
		header := make([]byte, 4)
		binary.BigEndian.PutUint32(header, length)
		return append(header, payload...)
	}
	buf = append(buf, frame([]byte("!data ip_src"), true)...)
	buf = append(buf, frame([]byte{1, 2, 3, 4}, false)...)

	path := writeTempFile(t, buf)
	src, err := New(path, nil)
	require.NoError(t, err)
	defer src.Close()
	src.SetBinary(true)

	payload, isText, ok := src.ReadBinaryFrame()
	require.True(t, ok)
	assert.True(t, isText)
	assert.Equal(t, "!data ip_src", string(payload))

	payload, isText, ok = src.ReadBinaryFrame()
	require.True(t, ok)
	assert.False(t, isText)
	assert.Equal(t, []byte{1, 2, 3, 4}, payload)

	_, _, ok = src.ReadBinaryFrame()
	assert.False(t, ok)
}

func TestReadBinaryFrameRejectsShortHeader(t *testing.T) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, 2) // below the 4-byte minimum
	path := writeTempFile(t, header)

	var gotError bool
	src, err := New(path, func(sev Severity, landmark, format string, args ...any) {
		if sev == SeverityError {
			gotError = true
		}
	})
	require.NoError(t, err)
	defer src.Close()
	src.SetBinary(true)

	_, _, ok := src.ReadBinaryFrame()
	assert.False(t, ok)
	assert.True(t, gotError)
}
