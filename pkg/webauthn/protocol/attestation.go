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
	"github.com/fxamacker/cbor/v2"
)

// AttestationObject is the CBOR attestation object returned by the
// authenticator during registration.
//
// The attestation statement is retained but its trust chain is not
// verified: "none" and self attestation are accepted, matching the
// permissive posture of consumer relying parties. Format-specific
// verifiers can be layered on top using Format and RawStatement.
type AttestationObject struct {
	Format       string          `cbor:"fmt"`
	RawStatement cbor.RawMessage `cbor:"attStmt"`
	RawAuthData  []byte          `cbor:"authData"`

	AuthData *AuthenticatorData `cbor:"-"`
}

// ParseAttestationObject decodes the CBOR attestation object and its
// embedded authenticator data.
func ParseAttestationObject(raw []byte) (*AttestationObject, error) {
	var att AttestationObject
	if err := cbor.Unmarshal(raw, &att); err != nil {
		return nil, ErrMalformedCBOR
	}

	authData, err := ParseAuthenticatorData(att.RawAuthData)
	if err != nil {
		return nil, err
	}
	att.AuthData = authData

	return &att, nil
}
