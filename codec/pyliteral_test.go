package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesLiteral(t *testing.T) {
	tests := []struct {
		description string
		input       []byte
		expected    string
	}{
		{
			description: "empty payload",
			input:       []byte{},
			expected:    "bytes([])",
		},
		{
			description: "single byte",
			input:       []byte{0},
			expected:    "bytes([0])",
		},
		{
			description: "text payload",
			input:       []byte("hi"),
			expected:    "bytes([104,105])",
		},
		{
			description: "full byte range endpoints",
			input:       []byte{0, 127, 255},
			expected:    "bytes([0,127,255])",
		},
	}

	require := require.New(t)

	for _, test := range tests {
		t.Logf("Test case: %s", test.description)
		require.Equal(test.expected, BytesLiteral(test.input))
	}
}
