package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	require := require.New(t)

	require.Equal([]byte("hello"), Encode("hello"))
	require.Equal("hello", Decode([]byte("hello")))

	// Invalid UTF-8 decodes to replacement characters instead of
	// passing raw bytes through.
	require.Equal("�", Decode([]byte{0xff}))
	require.Equal("a�b", Decode([]byte{'a', 0xc3, 'b'}))
}

func TestStreamDecoderSplitRune(t *testing.T) {
	require := require.New(t)

	var dec StreamDecoder

	// "héllo" with the two-byte é (0xc3 0xa9) split across chunks.
	out := dec.Write([]byte{'h', 0xc3})
	require.Equal("h", out)

	out = dec.Write([]byte{0xa9, 'l', 'l', 'o'})
	require.Equal("éllo", out)

	require.Equal("", dec.Flush())
}

func TestStreamDecoderThreeWaySplit(t *testing.T) {
	require := require.New(t)

	var dec StreamDecoder

	// U+20AC (€) is 0xe2 0x82 0xac; feed it one byte at a time.
	require.Equal("", dec.Write([]byte{0xe2}))
	require.Equal("", dec.Write([]byte{0x82}))
	require.Equal("€", dec.Write([]byte{0xac}))
}

func TestStreamDecoderFlushIncomplete(t *testing.T) {
	require := require.New(t)

	var dec StreamDecoder

	require.Equal("ab", dec.Write([]byte{'a', 'b', 0xe2, 0x82}))

	// Stream ended mid-character: the dangling tail becomes replacement
	// characters on flush.
	require.Equal("��", dec.Flush())
	require.Equal("", dec.Flush())
}

func TestStreamDecoderReset(t *testing.T) {
	require := require.New(t)

	var dec StreamDecoder

	dec.Write([]byte{0xe2})
	dec.Reset()
	require.Equal("", dec.Flush())
	require.Equal("x", dec.Write([]byte{'x'}))
}

func TestStreamDecoderAscii(t *testing.T) {
	require := require.New(t)

	var dec StreamDecoder
	require.Equal("plain ascii", dec.Write([]byte("plain ascii")))
	require.Equal("", dec.Flush())
}
