// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64URLRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", []byte{}},
		{"one byte", []byte{0x00}},
		{"two bytes", []byte{0xff, 0xfe}},
		{"three bytes", []byte{0x01, 0x02, 0x03}},
		{"four bytes", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"url alphabet edge", []byte{0xfb, 0xff, 0xbf}},
		{"thirty two bytes", make([]byte, 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeBase64URL(tt.input)
			assert.NotContains(t, encoded, "=")
			decoded, err := DecodeBase64URL(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.input, decoded)
		})
	}
}

func TestDecodeBase64URLPaddingTolerance(t *testing.T) {
	// "fo" encodes to "Zm8" raw, "Zm8=" padded
	decoded, err := DecodeBase64URL("Zm8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("fo"), decoded)

	decoded, err = DecodeBase64URL("Zm8")
	require.NoError(t, err)
	assert.Equal(t, []byte("fo"), decoded)
}

func TestDecodeBase64URLInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"standard alphabet plus", "a+b"},
		{"standard alphabet slash", "a/b"},
		{"whitespace", "ab cd"},
		{"non ascii", "äbcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBase64URL(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEncoding)
		})
	}
}
