package repl

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/arloliu/go-replctl/codec"
	"github.com/arloliu/go-replctl/transport"
)

// NoTerminator makes ScanUntil relay until the reader ends or the
// context is canceled.
const NoTerminator rune = -1

// ChunkReader is the read side ScanUntil consumes. A transport
// ReaderLease satisfies it.
type ChunkReader interface {
	Read(ctx context.Context) ([]byte, error)
}

var _ ChunkReader = (transport.ReaderLease)(nil)

// FrameScanner accumulates decoded device output until a terminator
// rune shows up. Byte chunks from the transport may split multi-byte
// runes; the scanner decodes incrementally so callers only ever see
// whole runes.
type FrameScanner struct{}

// ScanUntil reads chunks from r, decodes them and accumulates the text
// until the first occurrence of terminator. It returns the accumulated
// text up to, and excluding, the terminator; anything at or after the
// terminator in the same chunk is dropped.
//
// onChunk, when non-nil, is invoked with every decoded chunk as it
// arrives, before any terminator trimming, so a terminal surface can
// display output live. Pass NoTerminator to relay until the reader is
// exhausted.
//
// An io.EOF from the reader ends the scan without error and returns
// whatever accumulated, including a flushed partial rune tail.
func (s *FrameScanner) ScanUntil(ctx context.Context, r ChunkReader, terminator rune, onChunk func(text string)) (string, error) {
	var (
		accum strings.Builder
		dec   codec.StreamDecoder
	)

	for {
		chunk, err := r.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if tail := dec.Flush(); tail != "" {
					if onChunk != nil {
						onChunk(tail)
					}
					accum.WriteString(tail)
				}

				return accum.String(), nil
			}

			return accum.String(), err
		}

		text := dec.Write(chunk)
		if text == "" {
			continue
		}

		if onChunk != nil {
			onChunk(text)
		}

		if terminator != NoTerminator {
			if idx := strings.IndexRune(text, terminator); idx >= 0 {
				accum.WriteString(text[:idx])
				return accum.String(), nil
			}
		}

		accum.WriteString(text)
	}
}
