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

package protocol

import (
	"bytes"
	"crypto/rand"

	"github.com/jeremyhahn/go-passkey/pkg/encoding"
)

// URLEncodedBase64 is a byte string that marshals to JSON as unpadded
// Base64URL, the encoding the WebAuthn browser API uses for all binary
// fields.
type URLEncodedBase64 []byte

// UnmarshalJSON decodes a Base64URL JSON string, tolerating padding.
func (dest *URLEncodedBase64) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*dest = nil
		return nil
	}
	data = bytes.Trim(data, `"`)
	out, err := encoding.DecodeBase64URL(string(data))
	if err != nil {
		return err
	}
	*dest = out
	return nil
}

// MarshalJSON encodes the bytes as a Base64URL JSON string.
func (data URLEncodedBase64) MarshalJSON() ([]byte, error) {
	if data == nil {
		return []byte("null"), nil
	}
	return []byte(`"` + encoding.EncodeBase64URL(data) + `"`), nil
}

// String returns the unpadded Base64URL form.
func (data URLEncodedBase64) String() string {
	return encoding.EncodeBase64URL(data)
}

const (
	// MinChallengeLength is the smallest challenge accepted, per the
	// WebAuthn Level 2 requirement of at least 16 bytes of entropy.
	MinChallengeLength = 16

	// DefaultChallengeLength is the challenge size used when no length
	// is configured.
	DefaultChallengeLength = 32
)

// CreateChallenge returns cryptographically random challenge bytes.
func CreateChallenge(length int) (URLEncodedBase64, error) {
	if length < MinChallengeLength {
		length = DefaultChallengeLength
	}
	challenge := make([]byte, length)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}
