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
	"crypto/rand"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/webauthn/protocol"
)

// UserHandleLength is the size of the opaque per-user identifier exposed
// to authenticators. All of a user's credentials share one handle; it is
// random, never derived from the username.
const UserHandleLength = 32

// NewUserHandle generates a fresh random user handle.
func NewUserHandle() ([]byte, error) {
	handle := make([]byte, UserHandleLength)
	if _, err := rand.Read(handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// UserAccount pairs an externally owned identity with its WebAuthn user
// handle. Accounts come into existence lazily on first registration; the
// username must already exist in the user directory.
type UserAccount struct {
	// Username is the stable external login identifier.
	Username string `json:"username"`

	// DisplayName is the human-readable name shown by authenticators.
	DisplayName string `json:"display_name"`

	// UserHandle is the opaque identifier shared by all of this user's
	// credentials.
	UserHandle []byte `json:"user_handle"`
}

// StoredCredential is a registered public key credential held by the
// Relying Party. PublicKeyCOSE is immutable after creation; only
// SignatureCount and LastUsedAt change, and only on successful
// authentication.
type StoredCredential struct {
	// ID is the credential identifier assigned by the authenticator.
	// Globally unique across the whole system.
	ID []byte `json:"id"`

	// Username is the owning account's login identifier.
	Username string `json:"username"`

	// UserHandle is the owning account's user handle.
	UserHandle []byte `json:"user_handle"`

	// PublicKeyCOSE is the COSE-encoded verification key.
	PublicKeyCOSE []byte `json:"public_key_cose"`

	// SignatureCount is the authenticator's monotonic counter. It may
	// legitimately stay at zero for authenticators without counters.
	SignatureCount uint32 `json:"signature_count"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an
	// authentication ceremony. Zero until first use.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// Descriptor converts the credential to a wire-format descriptor for
// excludeCredentials / allowCredentials lists.
func (c *StoredCredential) Descriptor() protocol.CredentialDescriptor {
	return protocol.CredentialDescriptor{
		Type: protocol.CredentialTypePublicKey,
		ID:   c.ID,
	}
}

// RegistrationPreferences are per-request overrides for a registration
// ceremony. A nil value means the directory display name and the
// configured resident-key policy apply.
type RegistrationPreferences struct {
	// DisplayName overrides the directory-provided display name.
	DisplayName string

	// ResidentKey forces the discoverable-credential requirement:
	// true for required, false for discouraged.
	ResidentKey *bool
}

// PendingRegistration is the in-flight state of a registration ceremony
// between start and finish. It lives only in the session cache, keyed by
// username, and is consumed exactly once or expires.
type PendingRegistration struct {
	Username  string                              `json:"username"`
	Account   UserAccount                         `json:"account"`
	Options   *protocol.CredentialCreationOptions `json:"options"`
	CreatedAt time.Time                           `json:"created_at"`
}

// PendingAssertion is the in-flight state of an authentication ceremony.
// Key is the username when known, otherwise the encoded challenge
// (discoverable-credential flow).
type PendingAssertion struct {
	Key       string                             `json:"key"`
	Username  string                             `json:"username,omitempty"`
	Options   *protocol.CredentialRequestOptions `json:"options"`
	CreatedAt time.Time                          `json:"created_at"`
}

// AuthenticationResult is returned by a successful FinishAuthentication.
type AuthenticationResult struct {
	Username       string `json:"username"`
	SignatureCount uint32 `json:"signature_count"`

	// Token is a post-authentication token when a TokenIssuer is
	// configured, empty otherwise.
	Token string `json:"token,omitempty"`
}
