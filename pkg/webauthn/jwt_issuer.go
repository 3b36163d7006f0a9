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
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTIssuer mints signed JWTs after a successful authentication
// ceremony. The signing method follows the key type.
type JWTIssuer struct {
	signer   crypto.Signer
	method   jwt.SigningMethod
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewJWTIssuer creates a token issuer for the given signing key.
// Supported key types are ECDSA P-256, RSA and Ed25519.
func NewJWTIssuer(signer crypto.Signer, issuer, audience string, ttl time.Duration) (*JWTIssuer, error) {
	var method jwt.SigningMethod
	switch signer.Public().(type) {
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case ed25519.PublicKey:
		method = jwt.SigningMethodEdDSA
	default:
		return nil, fmt.Errorf("jwt issuer: unsupported key type %T", signer.Public())
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTIssuer{
		signer:   signer,
		method:   method,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// IssueToken mints a signed token for the authenticated user.
func (i *JWTIssuer) IssueToken(_ context.Context, username string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    i.issuer,
		Subject:   username,
		Audience:  jwt.ClaimStrings{i.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	token := jwt.NewWithClaims(i.method, claims)
	signed, err := token.SignedString(i.signer)
	if err != nil {
		return "", fmt.Errorf("jwt issuer: %w", err)
	}
	return signed, nil
}
