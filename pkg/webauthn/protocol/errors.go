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

import "errors"

var (
	// ErrDataTooShort is returned when a binary structure is truncated.
	ErrDataTooShort = errors.New("protocol: data too short")

	// ErrMalformedCBOR is returned when CBOR input cannot be decoded.
	// All authenticator input is adversarial until proven otherwise, so
	// decoding failures are reported, never panicked on.
	ErrMalformedCBOR = errors.New("protocol: malformed cbor")

	// ErrClientDataMismatch is returned when collected client data fails
	// type, challenge, or origin validation.
	ErrClientDataMismatch = errors.New("protocol: client data mismatch")

	// ErrRPIDHashMismatch is returned when the rpIdHash in authenticator
	// data does not match the configured Relying Party ID.
	ErrRPIDHashMismatch = errors.New("protocol: rp id hash mismatch")

	// ErrNoAttestedCredential is returned when registration authenticator
	// data lacks the attested credential data block.
	ErrNoAttestedCredential = errors.New("protocol: no attested credential data")
)
