package repl

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkScript replays a fixed chunk sequence and then reports io.EOF.
type chunkScript struct {
	chunks [][]byte
	next   int
}

func (s *chunkScript) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.next >= len(s.chunks) {
		return nil, io.EOF
	}

	chunk := s.chunks[s.next]
	s.next++

	return chunk, nil
}

func TestScanUntilTerminatorMidChunk(t *testing.T) {
	var scanner FrameScanner

	r := &chunkScript{chunks: [][]byte{
		[]byte("he"),
		[]byte("llo>OK world"),
	}}

	var seen []string
	got, err := scanner.ScanUntil(context.Background(), r, '>', func(text string) {
		seen = append(seen, text)
	})
	require.NoError(t, err)
	require.Equal(t, "hello", got)

	// the callback observes every decoded chunk before trimming
	require.Equal(t, []string{"he", "llo>OK world"}, seen)
}

func TestScanUntilNoTerminator(t *testing.T) {
	var scanner FrameScanner

	r := &chunkScript{chunks: [][]byte{
		[]byte("line one\r\n"),
		[]byte("line two\r\n"),
	}}

	got, err := scanner.ScanUntil(context.Background(), r, NoTerminator, nil)
	require.NoError(t, err)
	require.Equal(t, "line one\r\nline two\r\n", got)
}

func TestScanUntilSplitRune(t *testing.T) {
	var scanner FrameScanner

	// é split across two chunks
	r := &chunkScript{chunks: [][]byte{
		{'h', 0xC3},
		{0xA9, 'l', 'l', 'o'},
	}}

	got, err := scanner.ScanUntil(context.Background(), r, NoTerminator, nil)
	require.NoError(t, err)
	require.Equal(t, "héllo", got)
}

func TestScanUntilFlushesPartialTail(t *testing.T) {
	var scanner FrameScanner

	// stream ends inside a multi-byte rune
	r := &chunkScript{chunks: [][]byte{
		{'o', 'k', 0xE2, 0x82},
	}}

	got, err := scanner.ScanUntil(context.Background(), r, NoTerminator, nil)
	require.NoError(t, err)
	require.Equal(t, "ok��", got)
}

func TestScanUntilContextCanceled(t *testing.T) {
	var scanner FrameScanner

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &chunkScript{chunks: [][]byte{[]byte("never")}}

	_, err := scanner.ScanUntil(ctx, r, NoTerminator, nil)
	require.ErrorIs(t, err, context.Canceled)
}
