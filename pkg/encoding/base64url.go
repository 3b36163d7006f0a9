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

// Package encoding provides the byte-string codecs used on the WebAuthn
// wire: Base64URL without padding, as required for challenges, credential
// IDs, and user handles exchanged with the browser.
package encoding

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidEncoding is returned when input is not valid Base64URL.
var ErrInvalidEncoding = errors.New("encoding: invalid base64url input")

// EncodeBase64URL encodes b using the URL-safe alphabet without padding.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64URL decodes a Base64URL string. Padding is optional on
// input; authenticator clients are inconsistent about emitting it.
func DecodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	return b, nil
}
