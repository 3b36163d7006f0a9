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
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-passkey/pkg/encoding"
)

// buildAuthData assembles raw authenticator data bytes for tests.
func buildAuthData(t *testing.T, rpID string, flags AuthenticatorFlags, signCount uint32, credID []byte, coseKey []byte) []byte {
	t.Helper()

	rpIDHash := sha256.Sum256([]byte(rpID))
	out := append([]byte{}, rpIDHash[:]...)
	out = append(out, byte(flags))
	out = binary.BigEndian.AppendUint32(out, signCount)

	if flags.HasAttestedCredential() {
		aaguid := make([]byte, 16)
		out = append(out, aaguid...)
		out = binary.BigEndian.AppendUint16(out, uint16(len(credID)))
		out = append(out, credID...)
		out = append(out, coseKey...)
	}
	return out
}

func testCOSEKey(t *testing.T) []byte {
	t.Helper()
	raw, err := cbor.Marshal(map[int]any{1: 2, 3: -7, -1: 1, -2: make([]byte, 32), -3: make([]byte, 32)})
	require.NoError(t, err)
	return raw
}

func TestParseAuthenticatorData(t *testing.T) {
	credID := []byte("credential-id-0123456789")
	coseKey := testCOSEKey(t)
	flags := FlagUserPresent | FlagUserVerified | FlagAttestedCredential

	raw := buildAuthData(t, "example.com", flags, 7, credID, coseKey)

	ad, err := ParseAuthenticatorData(raw)
	require.NoError(t, err)

	assert.True(t, ad.Flags.UserPresent())
	assert.True(t, ad.Flags.UserVerified())
	assert.Equal(t, uint32(7), ad.SignCount)
	require.NotNil(t, ad.AttestedCredential)
	assert.Equal(t, credID, ad.AttestedCredential.CredentialID)
	assert.Equal(t, []byte(coseKey), ad.AttestedCredential.PublicKeyCOSE)

	require.NoError(t, ad.VerifyRPIDHash("example.com"))
	assert.ErrorIs(t, ad.VerifyRPIDHash("evil.com"), ErrRPIDHashMismatch)
}

func TestParseAuthenticatorDataWithoutAttestedCredential(t *testing.T) {
	raw := buildAuthData(t, "example.com", FlagUserPresent, 42, nil, nil)

	ad, err := ParseAuthenticatorData(raw)
	require.NoError(t, err)
	assert.Nil(t, ad.AttestedCredential)
	assert.Equal(t, uint32(42), ad.SignCount)
}

func TestParseAuthenticatorDataMalformed(t *testing.T) {
	coseKey := testCOSEKey(t)
	flags := FlagUserPresent | FlagAttestedCredential
	full := buildAuthData(t, "example.com", flags, 1, []byte("id"), coseKey)

	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{"empty", nil, ErrDataTooShort},
		{"below header size", make([]byte, 36), ErrDataTooShort},
		{"truncated attested data", full[:40], ErrDataTooShort},
		{"truncated cose key", full[:len(full)-3], ErrMalformedCBOR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAuthenticatorData(tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseAuthenticatorDataOversizedCredentialID(t *testing.T) {
	rpIDHash := sha256.Sum256([]byte("example.com"))
	raw := append([]byte{}, rpIDHash[:]...)
	raw = append(raw, byte(FlagAttestedCredential))
	raw = binary.BigEndian.AppendUint32(raw, 0)
	raw = append(raw, make([]byte, 16)...)
	raw = binary.BigEndian.AppendUint16(raw, 2048) // over the CTAP2 cap
	raw = append(raw, make([]byte, 2048)...)

	_, err := ParseAuthenticatorData(raw)
	assert.ErrorIs(t, err, ErrMalformedCBOR)
}

func TestParseAttestationObject(t *testing.T) {
	coseKey := testCOSEKey(t)
	authData := buildAuthData(t, "example.com",
		FlagUserPresent|FlagAttestedCredential, 0, []byte("cred"), coseKey)

	raw, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	require.NoError(t, err)

	att, err := ParseAttestationObject(raw)
	require.NoError(t, err)
	assert.Equal(t, "none", att.Format)
	require.NotNil(t, att.AuthData)
	require.NotNil(t, att.AuthData.AttestedCredential)
	assert.Equal(t, []byte("cred"), att.AuthData.AttestedCredential.CredentialID)
}

func TestParseAttestationObjectMalformed(t *testing.T) {
	_, err := ParseAttestationObject([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrMalformedCBOR)

	// Valid CBOR wrapper around truncated authenticator data.
	raw, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": []byte{1, 2, 3},
	})
	require.NoError(t, err)
	_, err = ParseAttestationObject(raw)
	assert.ErrorIs(t, err, ErrDataTooShort)
}

func TestClientDataVerify(t *testing.T) {
	challenge := []byte("sixteen-byte-chal-or-longer~~~~~")
	originAllowed := func(origin string) bool {
		return origin == "https://example.com" || origin == "https://www.example.com"
	}

	valid := CollectedClientData{
		Type:      CeremonyCreate,
		Challenge: encoding.EncodeBase64URL(challenge),
		Origin:    "https://example.com",
	}

	tests := []struct {
		name    string
		mutate  func(cd CollectedClientData) CollectedClientData
		wantErr bool
	}{
		{"valid", func(cd CollectedClientData) CollectedClientData { return cd }, false},
		{"secondary origin", func(cd CollectedClientData) CollectedClientData {
			cd.Origin = "https://www.example.com"
			return cd
		}, false},
		{"wrong ceremony type", func(cd CollectedClientData) CollectedClientData {
			cd.Type = CeremonyAssert
			return cd
		}, true},
		{"wrong challenge", func(cd CollectedClientData) CollectedClientData {
			cd.Challenge = encoding.EncodeBase64URL([]byte("some-other-challenge-bytes-here!"))
			return cd
		}, true},
		{"undecodable challenge", func(cd CollectedClientData) CollectedClientData {
			cd.Challenge = "not/base64url+at/all"
			return cd
		}, true},
		{"disallowed origin", func(cd CollectedClientData) CollectedClientData {
			cd.Origin = "https://evil.example.org"
			return cd
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cd := tt.mutate(valid)
			err := cd.Verify(CeremonyCreate, challenge, originAllowed)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrClientDataMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestURLEncodedBase64JSON(t *testing.T) {
	type payload struct {
		Data URLEncodedBase64 `json:"data"`
	}

	out, err := json.Marshal(payload{Data: []byte{0xde, 0xad}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":"3q0"}`, string(out))

	var in payload
	require.NoError(t, json.Unmarshal([]byte(`{"data":"3q0="}`), &in))
	assert.Equal(t, URLEncodedBase64{0xde, 0xad}, in.Data)

	require.NoError(t, json.Unmarshal([]byte(`{"data":null}`), &in))
	assert.Nil(t, in.Data)
}

func TestCreateChallenge(t *testing.T) {
	c1, err := CreateChallenge(32)
	require.NoError(t, err)
	assert.Len(t, c1, 32)

	c2, err := CreateChallenge(32)
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)

	// Below-minimum requests are bumped to the default.
	c3, err := CreateChallenge(8)
	require.NoError(t, err)
	assert.Len(t, c3, DefaultChallengeLength)
}

func TestParseResponses(t *testing.T) {
	creation := `{
		"id": "AQID",
		"rawId": "AQID",
		"type": "public-key",
		"response": {
			"clientDataJSON": "eyJ0eXBlIjoid2ViYXV0aG4uY3JlYXRlIn0",
			"attestationObject": "o2NmbXRkbm9uZQ"
		}
	}`
	ccr, err := ParseCreationResponse([]byte(creation))
	require.NoError(t, err)
	assert.Equal(t, URLEncodedBase64{1, 2, 3}, ccr.RawID)

	_, err = ParseCreationResponse([]byte(`{"type":"password"}`))
	require.Error(t, err)

	_, err = ParseCreationResponse([]byte(`not json`))
	require.Error(t, err)

	assertion := `{
		"id": "AQID",
		"rawId": "AQID",
		"type": "public-key",
		"response": {
			"clientDataJSON": "eyJ0eXBlIjoid2ViYXV0aG4uZ2V0In0",
			"authenticatorData": "AAAA",
			"signature": "AQImCg",
			"userHandle": "BQYH"
		}
	}`
	car, err := ParseAssertionResponse([]byte(assertion))
	require.NoError(t, err)
	assert.Equal(t, URLEncodedBase64{5, 6, 7}, car.Response.UserHandle)

	_, err = ParseAssertionResponse([]byte(`{"type":"public-key","response":{}}`))
	assert.ErrorIs(t, err, ErrDataTooShort)
}
