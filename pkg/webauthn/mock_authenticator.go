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

package webauthn

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
	"github.com/jeremyhahn/go-passkey/pkg/cose"
	"github.com/jeremyhahn/go-passkey/pkg/webauthn/protocol"
)

// MockAuthenticator is a software ES256 authenticator that produces
// real wire-format ceremony responses for tests. Its knobs allow
// forging the pieces each verification step checks.
type MockAuthenticator struct {
	key          *ecdsa.PrivateKey
	aaguid       []byte
	credentialID []byte
	userHandle   []byte
	counter      uint32

	// Origin is the origin written into clientDataJSON.
	Origin string

	// UserPresent and UserVerified control the UP and UV flag bits.
	UserPresent  bool
	UserVerified bool

	// OverrideChallenge, when set, replaces the challenge echoed in
	// clientDataJSON.
	OverrideChallenge []byte

	// OverrideRPID, when set, replaces the RP ID hashed into
	// authenticator data.
	OverrideRPID string

	// OmitUserHandle drops the userHandle from assertion responses.
	OmitUserHandle bool

	// OverrideUserHandle, when set, replaces the userHandle asserted
	// in authentication responses.
	OverrideUserHandle []byte

	// CounterDisabled makes the authenticator always report a zero
	// signature counter, like authenticators without counters.
	CounterDisabled bool
}

// NewMockAuthenticator creates an authenticator bound to the given
// origin with a fresh key and credential ID.
func NewMockAuthenticator(origin string) (*MockAuthenticator, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	credentialID := make([]byte, 32)
	if _, err := rand.Read(credentialID); err != nil {
		return nil, err
	}
	return &MockAuthenticator{
		key:          key,
		aaguid:       make([]byte, 16),
		credentialID: credentialID,
		Origin:       origin,
		UserPresent:  true,
		UserVerified: true,
	}, nil
}

// CredentialID returns the authenticator's credential identifier.
func (a *MockAuthenticator) CredentialID() []byte { return a.credentialID }

// Counter returns the current signature counter.
func (a *MockAuthenticator) Counter() uint32 { return a.counter }

// SetCounter forces the signature counter, for clone scenarios.
func (a *MockAuthenticator) SetCounter(counter uint32) { a.counter = counter }

func (a *MockAuthenticator) clientData(ceremony string, challenge protocol.URLEncodedBase64) ([]byte, error) {
	if a.OverrideChallenge != nil {
		challenge = a.OverrideChallenge
	}
	return json.Marshal(protocol.CollectedClientData{
		Type:      ceremony,
		Challenge: challenge.String(),
		Origin:    a.Origin,
	})
}

func (a *MockAuthenticator) flags() byte {
	var flags byte
	if a.UserPresent {
		flags |= byte(protocol.FlagUserPresent)
	}
	if a.UserVerified {
		flags |= byte(protocol.FlagUserVerified)
	}
	return flags
}

func (a *MockAuthenticator) rpIDHash(rpID string) [32]byte {
	if a.OverrideRPID != "" {
		rpID = a.OverrideRPID
	}
	return sha256.Sum256([]byte(rpID))
}

func (a *MockAuthenticator) coseKey() ([]byte, error) {
	return cbor.Marshal(map[int]any{
		1:  int(cose.KeyTypeEC2),
		3:  int(cose.AlgES256),
		-1: int(cose.CurveP256),
		-2: a.key.X.FillBytes(make([]byte, 32)),
		-3: a.key.Y.FillBytes(make([]byte, 32)),
	})
}

// CreateRegistrationResponse answers creation options the way a browser
// relaying this authenticator would, with "none" attestation.
func (a *MockAuthenticator) CreateRegistrationResponse(opts *protocol.CredentialCreationOptions) ([]byte, error) {
	if a.userHandle == nil {
		a.userHandle = opts.User.ID
	}

	clientDataJSON, err := a.clientData(protocol.CeremonyCreate, opts.Challenge)
	if err != nil {
		return nil, err
	}

	coseKey, err := a.coseKey()
	if err != nil {
		return nil, err
	}

	rpIDHash := a.rpIDHash(opts.RP.ID)
	authData := make([]byte, 0, 37+16+2+len(a.credentialID)+len(coseKey))
	authData = append(authData, rpIDHash[:]...)
	authData = append(authData, a.flags()|byte(protocol.FlagAttestedCredential))
	authData = binary.BigEndian.AppendUint32(authData, a.signCount())
	authData = append(authData, a.aaguid...)
	authData = binary.BigEndian.AppendUint16(authData, uint16(len(a.credentialID)))
	authData = append(authData, a.credentialID...)
	authData = append(authData, coseKey...)

	attObj, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		return nil, err
	}

	resp := protocol.CredentialCreationResponse{
		ID:    protocol.URLEncodedBase64(a.credentialID).String(),
		RawID: a.credentialID,
		Type:  protocol.CredentialTypePublicKey,
	}
	resp.Response.ClientDataJSON = clientDataJSON
	resp.Response.AttestationObject = attObj
	return json.Marshal(&resp)
}

// CreateAuthenticationResponse answers request options with a signed
// assertion, advancing the signature counter first.
func (a *MockAuthenticator) CreateAuthenticationResponse(opts *protocol.CredentialRequestOptions) ([]byte, error) {
	if !a.CounterDisabled {
		a.counter++
	}

	clientDataJSON, err := a.clientData(protocol.CeremonyAssert, opts.Challenge)
	if err != nil {
		return nil, err
	}

	rpIDHash := a.rpIDHash(opts.RPID)
	authData := make([]byte, 0, 37)
	authData = append(authData, rpIDHash[:]...)
	authData = append(authData, a.flags())
	authData = binary.BigEndian.AppendUint32(authData, a.signCount())

	clientDataHash := sha256.Sum256(clientDataJSON)
	message := append(append([]byte{}, authData...), clientDataHash[:]...)
	digest := sha256.Sum256(message)

	signature, err := ecdsa.SignASN1(rand.Reader, a.key, digest[:])
	if err != nil {
		return nil, err
	}

	resp := protocol.CredentialAssertionResponse{
		ID:    protocol.URLEncodedBase64(a.credentialID).String(),
		RawID: a.credentialID,
		Type:  protocol.CredentialTypePublicKey,
	}
	resp.Response.ClientDataJSON = clientDataJSON
	resp.Response.AuthenticatorData = authData
	resp.Response.Signature = signature
	if !a.OmitUserHandle {
		resp.Response.UserHandle = a.userHandle
		if a.OverrideUserHandle != nil {
			resp.Response.UserHandle = a.OverrideUserHandle
		}
	}
	return json.Marshal(&resp)
}

func (a *MockAuthenticator) signCount() uint32 {
	if a.CounterDisabled {
		return 0
	}
	return a.counter
}
