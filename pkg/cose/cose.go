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

// Package cose parses COSE-encoded public keys (RFC 8152) and verifies
// WebAuthn signatures with them. The supported algorithms are the ones
// emitted by practical authenticators: ES256, RS256, and EdDSA.
package cose

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// Alg is a COSE algorithm identifier from the IANA COSE registry.
type Alg int

const (
	// AlgES256 is ECDSA with P-256 and SHA-256.
	AlgES256 Alg = -7
	// AlgEdDSA is EdDSA with Ed25519.
	AlgEdDSA Alg = -8
	// AlgRS256 is RSASSA-PKCS1-v1_5 with SHA-256.
	AlgRS256 Alg = -257
)

// KeyType is a COSE key type (kty) value.
type KeyType int

const (
	// KeyTypeOKP is an Octet Key Pair (EdDSA keys).
	KeyTypeOKP KeyType = 1
	// KeyTypeEC2 is an elliptic curve key with x/y coordinates.
	KeyTypeEC2 KeyType = 2
	// KeyTypeRSA is an RSA key.
	KeyTypeRSA KeyType = 3
)

// Curve identifiers for EC2 and OKP keys.
const (
	CurveP256    = 1
	CurveEd25519 = 6
)

var (
	// ErrMalformedKey is returned when a COSE key cannot be decoded.
	ErrMalformedKey = errors.New("cose: malformed key")

	// ErrUnsupportedAlgorithm is returned for algorithms outside the
	// supported set. Verification is never silently skipped.
	ErrUnsupportedAlgorithm = errors.New("cose: unsupported algorithm")

	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("cose: invalid signature")

	// ErrInvalidKey is returned when key material is structurally valid
	// CBOR but cryptographically unusable.
	ErrInvalidKey = errors.New("cose: invalid key material")
)

// Key is a parsed COSE public key.
type Key struct {
	Type   KeyType
	Alg    Alg
	Public any // *ecdsa.PublicKey, *rsa.PublicKey, or ed25519.PublicKey
}

// The same negative labels mean different things per key type, so the
// raw bytes are decoded twice: once for kty, then into the shape that
// kty dictates.
type keyHeader struct {
	KTY int `cbor:"1,keyasint"`
	ALG int `cbor:"3,keyasint"`
}

type ec2Key struct {
	Curve int    `cbor:"-1,keyasint"`
	X     []byte `cbor:"-2,keyasint"`
	Y     []byte `cbor:"-3,keyasint"`
}

type rsaKey struct {
	N []byte `cbor:"-1,keyasint"`
	E []byte `cbor:"-2,keyasint"`
}

type okpKey struct {
	Curve int    `cbor:"-1,keyasint"`
	X     []byte `cbor:"-2,keyasint"`
}

// ParseKey decodes a CBOR-encoded COSE public key.
func ParseKey(raw []byte) (*Key, error) {
	var hdr keyHeader
	if err := cbor.Unmarshal(raw, &hdr); err != nil {
		return nil, ErrMalformedKey
	}

	key := &Key{Type: KeyType(hdr.KTY), Alg: Alg(hdr.ALG)}

	switch key.Type {
	case KeyTypeEC2:
		var ec ec2Key
		if err := cbor.Unmarshal(raw, &ec); err != nil {
			return nil, ErrMalformedKey
		}
		if key.Alg != AlgES256 || ec.Curve != CurveP256 {
			return nil, ErrUnsupportedAlgorithm
		}
		pub := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(ec.X),
			Y:     new(big.Int).SetBytes(ec.Y),
		}
		if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
			return nil, ErrInvalidKey
		}
		key.Public = pub

	case KeyTypeRSA:
		var rk rsaKey
		if err := cbor.Unmarshal(raw, &rk); err != nil {
			return nil, ErrMalformedKey
		}
		if key.Alg != AlgRS256 {
			return nil, ErrUnsupportedAlgorithm
		}
		if len(rk.N) == 0 || len(rk.E) == 0 {
			return nil, ErrInvalidKey
		}
		key.Public = &rsa.PublicKey{
			N: new(big.Int).SetBytes(rk.N),
			E: int(new(big.Int).SetBytes(rk.E).Int64()),
		}

	case KeyTypeOKP:
		var ok okpKey
		if err := cbor.Unmarshal(raw, &ok); err != nil {
			return nil, ErrMalformedKey
		}
		if key.Alg != AlgEdDSA || ok.Curve != CurveEd25519 {
			return nil, ErrUnsupportedAlgorithm
		}
		if len(ok.X) != ed25519.PublicKeySize {
			return nil, ErrInvalidKey
		}
		key.Public = ed25519.PublicKey(ok.X)

	default:
		return nil, ErrUnsupportedAlgorithm
	}

	return key, nil
}
