package codec

import (
	"strings"
	"unicode/utf8"
)

// Encode converts text to its UTF-8 byte representation.
func Encode(text string) []byte {
	return []byte(text)
}

// Decode converts UTF-8 bytes to text, replacing invalid sequences with
// the Unicode replacement character.
func Decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	var sb strings.Builder
	sb.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		sb.WriteRune(r)
		data = data[size:]
	}

	return sb.String()
}

// StreamDecoder incrementally decodes UTF-8 byte chunks into text.
//
// A multi-byte character may be split across chunk boundaries; the
// decoder holds back the incomplete tail of each chunk and prepends it
// to the next one. Invalid sequences decode to the Unicode replacement
// character.
//
// The zero value is ready to use. A StreamDecoder is not safe for
// concurrent use.
type StreamDecoder struct {
	pending []byte
}

// Write decodes the next chunk and returns the decoded text.
//
// The returned text may be empty when the chunk ends inside a multi-byte
// character; the held-back bytes are emitted once the continuation
// arrives.
func (d *StreamDecoder) Write(chunk []byte) string {
	buf := chunk
	if len(d.pending) > 0 {
		buf = append(d.pending, chunk...)
		d.pending = nil
	}

	// Hold back a trailing incomplete rune, at most utf8.UTFMax-1 bytes.
	cut := len(buf)
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-utf8.UTFMax+1; i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				cut = i
			}
			break
		}
	}

	if cut < len(buf) {
		d.pending = append([]byte(nil), buf[cut:]...)
	}

	return Decode(buf[:cut])
}

// Flush returns the decoded form of any held-back bytes and resets the
// decoder. An incomplete trailing character decodes to the replacement
// character.
func (d *StreamDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	out := Decode(d.pending)
	d.pending = nil

	return out
}

// Reset discards any held-back bytes.
func (d *StreamDecoder) Reset() {
	d.pending = nil
}
