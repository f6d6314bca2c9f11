package codec

import (
	"strconv"
	"strings"
)

// BytesLiteral renders data as a parenthesized, bracketed decimal-array
// bytes literal, e.g. bytes([104,101,108,108,111]).
//
// The result is fed verbatim to the remote interpreter's write call, so
// the format must stay valid Python source.
func BytesLiteral(data []byte) string {
	var sb strings.Builder
	// "bytes([])" plus up to 4 characters per byte ("255,").
	sb.Grow(9 + len(data)*4)

	sb.WriteString("bytes([")
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(b)))
	}
	sb.WriteString("])")

	return sb.String()
}
