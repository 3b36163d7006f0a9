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

// CredentialType is always "public-key" in WebAuthn level 1/2.
const CredentialTypePublicKey = "public-key"

// UserVerificationRequirement values.
const (
	VerificationRequired    = "required"
	VerificationPreferred   = "preferred"
	VerificationDiscouraged = "discouraged"
)

// ResidentKeyRequirement values.
const (
	ResidentKeyRequired    = "required"
	ResidentKeyPreferred   = "preferred"
	ResidentKeyDiscouraged = "discouraged"
)

// AuthenticatorAttachment values.
const (
	AttachmentPlatform      = "platform"
	AttachmentCrossPlatform = "cross-platform"
)

// RelyingPartyEntity identifies the RP in creation options.
type RelyingPartyEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserEntity identifies the account in creation options. ID is the
// opaque user handle, never the username.
type UserEntity struct {
	ID          URLEncodedBase64 `json:"id"`
	Name        string           `json:"name"`
	DisplayName string           `json:"displayName"`
}

// CredentialParameter advertises an acceptable public key algorithm.
type CredentialParameter struct {
	Type string `json:"type"`
	Alg  int    `json:"alg"`
}

// CredentialDescriptor references an existing credential, used in both
// excludeCredentials and allowCredentials.
type CredentialDescriptor struct {
	Type       string           `json:"type"`
	ID         URLEncodedBase64 `json:"id"`
	Transports []string         `json:"transports,omitempty"`
}

// AuthenticatorSelection constrains which authenticators may respond.
type AuthenticatorSelection struct {
	AuthenticatorAttachment string `json:"authenticatorAttachment,omitempty"`
	ResidentKey             string `json:"residentKey,omitempty"`
	RequireResidentKey      bool   `json:"requireResidentKey,omitempty"`
	UserVerification        string `json:"userVerification,omitempty"`
}

// CredentialCreationOptions is the PublicKeyCredentialCreationOptions
// dictionary sent to navigator.credentials.create().
type CredentialCreationOptions struct {
	RP                     RelyingPartyEntity     `json:"rp"`
	User                   UserEntity             `json:"user"`
	Challenge              URLEncodedBase64       `json:"challenge"`
	PubKeyCredParams       []CredentialParameter  `json:"pubKeyCredParams"`
	Timeout                int                    `json:"timeout,omitempty"`
	ExcludeCredentials     []CredentialDescriptor `json:"excludeCredentials,omitempty"`
	AuthenticatorSelection AuthenticatorSelection `json:"authenticatorSelection"`
	Attestation            string                 `json:"attestation,omitempty"`
}

// CredentialRequestOptions is the PublicKeyCredentialRequestOptions
// dictionary sent to navigator.credentials.get(). AllowCredentials is
// empty in the discoverable-credential flow.
type CredentialRequestOptions struct {
	Challenge        URLEncodedBase64       `json:"challenge"`
	Timeout          int                    `json:"timeout,omitempty"`
	RPID             string                 `json:"rpId,omitempty"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials,omitempty"`
	UserVerification string                 `json:"userVerification,omitempty"`
}
