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
	"crypto/sha256"
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
)

// AuthenticatorFlags is the flags byte of authenticator data.
type AuthenticatorFlags byte

// Flag bit positions per the WebAuthn authenticator data layout.
const (
	FlagUserPresent        AuthenticatorFlags = 1 << 0
	FlagUserVerified       AuthenticatorFlags = 1 << 2
	FlagBackupEligible     AuthenticatorFlags = 1 << 3
	FlagBackupState        AuthenticatorFlags = 1 << 4
	FlagAttestedCredential AuthenticatorFlags = 1 << 6
	FlagExtensionData      AuthenticatorFlags = 1 << 7
)

// UserPresent reports the UP bit.
func (f AuthenticatorFlags) UserPresent() bool { return f&FlagUserPresent != 0 }

// UserVerified reports the UV bit.
func (f AuthenticatorFlags) UserVerified() bool { return f&FlagUserVerified != 0 }

// HasAttestedCredential reports the AT bit.
func (f AuthenticatorFlags) HasAttestedCredential() bool { return f&FlagAttestedCredential != 0 }

// HasExtensions reports the ED bit.
func (f AuthenticatorFlags) HasExtensions() bool { return f&FlagExtensionData != 0 }

// AttestedCredential is the attested credential data block present in
// registration authenticator data: AAGUID (16 bytes), a length-prefixed
// credential ID, and a COSE public key as a single CBOR item.
type AttestedCredential struct {
	AAGUID       []byte
	CredentialID []byte
	// PublicKeyCOSE is the raw CBOR encoding of the credential's public
	// key. It is stored verbatim and parsed again at assertion time.
	PublicKeyCOSE []byte
}

// AuthenticatorData is the parsed binary authenticator data structure.
type AuthenticatorData struct {
	RPIDHash           []byte
	Flags              AuthenticatorFlags
	SignCount          uint32
	AttestedCredential *AttestedCredential
}

// minAuthDataLength covers rpIdHash(32) + flags(1) + signCount(4).
const minAuthDataLength = 37

// maxCredentialIDLength bounds the length-prefixed credential ID; the
// CTAP2 spec caps it at 1023 bytes.
const maxCredentialIDLength = 1023

// ParseAuthenticatorData decodes raw authenticator data defensively.
func ParseAuthenticatorData(raw []byte) (*AuthenticatorData, error) {
	if len(raw) < minAuthDataLength {
		return nil, ErrDataTooShort
	}

	ad := &AuthenticatorData{
		RPIDHash:  raw[:32],
		Flags:     AuthenticatorFlags(raw[32]),
		SignCount: binary.BigEndian.Uint32(raw[33:37]),
	}
	rest := raw[37:]

	if ad.Flags.HasAttestedCredential() {
		if len(rest) < 18 {
			return nil, ErrDataTooShort
		}
		aaguid := rest[:16]
		idLen := int(binary.BigEndian.Uint16(rest[16:18]))
		rest = rest[18:]

		if idLen > maxCredentialIDLength {
			return nil, ErrMalformedCBOR
		}
		if len(rest) < idLen {
			return nil, ErrDataTooShort
		}
		credentialID := rest[:idLen]
		rest = rest[idLen:]

		// The COSE key is one CBOR item, possibly followed by an
		// extensions map; decode exactly one item and keep its bytes.
		dec := cbor.NewDecoder(bytes.NewReader(rest))
		var key cbor.RawMessage
		if err := dec.Decode(&key); err != nil {
			return nil, ErrMalformedCBOR
		}

		ad.AttestedCredential = &AttestedCredential{
			AAGUID:        aaguid,
			CredentialID:  credentialID,
			PublicKeyCOSE: key,
		}
	}

	return ad, nil
}

// VerifyRPIDHash checks that the embedded hash matches SHA-256(rpID).
func (ad *AuthenticatorData) VerifyRPIDHash(rpID string) error {
	expected := sha256.Sum256([]byte(rpID))
	if !bytes.Equal(ad.RPIDHash, expected[:]) {
		return ErrRPIDHashMismatch
	}
	return nil
}
