package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidByteString indicates that the input does not have the
// b'<hex>' shape produced by the remote interpreter's hexlify output.
var ErrInvalidByteString = errors.New("codec: invalid hex byte string")

// DecodeHexByteString decodes the remote interpreter's hex-escaped
// quoted-byte-string representation (b'68656c6c6f') into raw bytes.
//
// Two quirks of the remote print routine are compensated for here, and
// only here:
//
//   - An odd number of hex digits is padded with a trailing '0' nibble.
//     Well-formed output is always even-length; the pad keeps us
//     byte-compatible with the firmware instead of failing the transfer.
//   - A final decoded 0x00 byte is dropped. Some firmware code paths
//     append a trailing NUL artifact when printing the buffer.
//
// Both trims are compatibility shims with the observed remote output
// format, not general rules for hex decoding.
func DecodeHexByteString(s string) ([]byte, error) {
	if len(s) < 3 || !strings.HasPrefix(s, "b'") || !strings.HasSuffix(s, "'") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidByteString, s)
	}

	digits := s[2 : len(s)-1]
	if len(digits)%2 != 0 {
		digits += "0"
	}

	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidByteString, err)
	}

	if n := len(data); n > 0 && data[n-1] == 0x00 {
		data = data[:n-1]
	}

	return data, nil
}
