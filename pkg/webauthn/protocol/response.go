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
	"encoding/json"
	"fmt"
)

// CredentialCreationResponse is the browser's serialized
// PublicKeyCredential from a registration ceremony.
type CredentialCreationResponse struct {
	ID    string           `json:"id"`
	RawID URLEncodedBase64 `json:"rawId"`
	Type  string           `json:"type"`

	Response struct {
		ClientDataJSON    URLEncodedBase64 `json:"clientDataJSON"`
		AttestationObject URLEncodedBase64 `json:"attestationObject"`
		Transports        []string         `json:"transports,omitempty"`
	} `json:"response"`
}

// CredentialAssertionResponse is the browser's serialized
// PublicKeyCredential from an authentication ceremony.
type CredentialAssertionResponse struct {
	ID    string           `json:"id"`
	RawID URLEncodedBase64 `json:"rawId"`
	Type  string           `json:"type"`

	Response struct {
		ClientDataJSON    URLEncodedBase64 `json:"clientDataJSON"`
		AuthenticatorData URLEncodedBase64 `json:"authenticatorData"`
		Signature         URLEncodedBase64 `json:"signature"`
		UserHandle        URLEncodedBase64 `json:"userHandle,omitempty"`
	} `json:"response"`
}

// ParseCreationResponse decodes the registration payload posted by the
// client.
func ParseCreationResponse(raw []byte) (*CredentialCreationResponse, error) {
	var ccr CredentialCreationResponse
	if err := json.Unmarshal(raw, &ccr); err != nil {
		return nil, fmt.Errorf("protocol: invalid creation response: %w", err)
	}
	if ccr.Type != CredentialTypePublicKey {
		return nil, fmt.Errorf("protocol: unexpected credential type %q", ccr.Type)
	}
	if len(ccr.Response.ClientDataJSON) == 0 || len(ccr.Response.AttestationObject) == 0 {
		return nil, ErrDataTooShort
	}
	return &ccr, nil
}

// ParseAssertionResponse decodes the authentication payload posted by
// the client.
func ParseAssertionResponse(raw []byte) (*CredentialAssertionResponse, error) {
	var car CredentialAssertionResponse
	if err := json.Unmarshal(raw, &car); err != nil {
		return nil, fmt.Errorf("protocol: invalid assertion response: %w", err)
	}
	if car.Type != CredentialTypePublicKey {
		return nil, fmt.Errorf("protocol: unexpected credential type %q", car.Type)
	}
	if len(car.Response.ClientDataJSON) == 0 ||
		len(car.Response.AuthenticatorData) == 0 ||
		len(car.Response.Signature) == 0 {
		return nil, ErrDataTooShort
	}
	return &car, nil
}
