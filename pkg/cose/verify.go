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

package cose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
)

// Verify checks signature over message with the parsed key.
//
// ES256 signatures arrive ASN.1/DER encoded from the authenticator and
// are decoded to (r, s) by VerifyASN1. EdDSA signs the raw message;
// ES256 and RS256 sign its SHA-256 digest.
func (k *Key) Verify(message, signature []byte) error {
	switch k.Alg {
	case AlgES256:
		pub, ok := k.Public.(*ecdsa.PublicKey)
		if !ok {
			return ErrInvalidKey
		}
		digest := sha256.Sum256(message)
		if !ecdsa.VerifyASN1(pub, digest[:], signature) {
			return ErrInvalidSignature
		}
		return nil

	case AlgRS256:
		pub, ok := k.Public.(*rsa.PublicKey)
		if !ok {
			return ErrInvalidKey
		}
		digest := sha256.Sum256(message)
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err != nil {
			return ErrInvalidSignature
		}
		return nil

	case AlgEdDSA:
		pub, ok := k.Public.(ed25519.PublicKey)
		if !ok {
			return ErrInvalidKey
		}
		if !ed25519.Verify(pub, message, signature) {
			return ErrInvalidSignature
		}
		return nil

	default:
		return ErrUnsupportedAlgorithm
	}
}

// Verify parses a raw COSE key and checks signature over message.
func Verify(coseKey, message, signature []byte) error {
	key, err := ParseKey(coseKey)
	if err != nil {
		return err
	}
	return key.Verify(message, signature)
}
