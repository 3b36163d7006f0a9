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
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/jeremyhahn/go-passkey/pkg/encoding"
)

// Ceremony type values carried in collected client data.
const (
	CeremonyCreate = "webauthn.create"
	CeremonyAssert = "webauthn.get"
)

// CollectedClientData is the decoded clientDataJSON produced by the
// browser during a ceremony.
type CollectedClientData struct {
	Type        string `json:"type"`
	Challenge   string `json:"challenge"`
	Origin      string `json:"origin"`
	CrossOrigin bool   `json:"crossOrigin,omitempty"`
}

// ParseClientData decodes the raw clientDataJSON bytes.
func ParseClientData(raw []byte) (*CollectedClientData, error) {
	var cd CollectedClientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientDataMismatch, err)
	}
	return &cd, nil
}

// Verify checks the ceremony type, the challenge echo, and origin
// membership. Origin policy belongs to the caller, so it arrives as a
// predicate. Any mismatch rejects the ceremony.
func (c *CollectedClientData) Verify(ceremony string, expectedChallenge []byte, originAllowed func(string) bool) error {
	if c.Type != ceremony {
		return fmt.Errorf("%w: ceremony type %q", ErrClientDataMismatch, c.Type)
	}

	got, err := encoding.DecodeBase64URL(c.Challenge)
	if err != nil {
		return fmt.Errorf("%w: undecodable challenge", ErrClientDataMismatch)
	}
	if subtle.ConstantTimeCompare(got, expectedChallenge) != 1 {
		return fmt.Errorf("%w: challenge", ErrClientDataMismatch)
	}

	if originAllowed == nil || !originAllowed(c.Origin) {
		return fmt.Errorf("%w: origin %q not allowed", ErrClientDataMismatch, c.Origin)
	}
	return nil
}
