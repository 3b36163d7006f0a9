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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-passkey/pkg/webauthn/protocol"
)

// Sentinel errors for WebAuthn ceremony and storage operations. Every
// verification failure aborts its ceremony with no store mutation.
var (
	// ErrUserNotFound is returned when a username has no backing
	// identity in the user directory. Identities are minted by the
	// external system of record, never by the ceremony engine.
	ErrUserNotFound = errors.New("user not found")

	// ErrChallengeExpired is returned when no pending ceremony exists
	// for the given key. It covers TTL expiry and replay of an
	// already-consumed finish call equally; callers cannot tell the
	// two apart.
	ErrChallengeExpired = errors.New("challenge expired or missing")

	// ErrClientDataMismatch is returned when clientDataJSON fails
	// ceremony-type, challenge, or origin validation.
	ErrClientDataMismatch = errors.New("client data mismatch")

	// ErrRPIDMismatch is returned when the authenticator data rpIdHash
	// does not match the configured Relying Party ID.
	ErrRPIDMismatch = errors.New("rp id mismatch")

	// ErrCredentialNotFound is returned when a credential cannot be found.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialOwnerMismatch is returned when a credential exists
	// but belongs to a different user handle than the one asserted.
	ErrCredentialOwnerMismatch = errors.New("credential owner mismatch")

	// ErrDuplicateCredential is returned when a credential ID already
	// exists anywhere in the store. The check is system-wide, not
	// per-user: credential IDs are globally unique.
	ErrDuplicateCredential = errors.New("credential already exists")

	// ErrClonedAuthenticator is returned when the assertion signature
	// counter did not advance past the stored counter. This is a
	// security event, distinguishable from ordinary signature failure.
	ErrClonedAuthenticator = errors.New("cloned authenticator detected")

	// ErrVerificationFailed is returned when signature verification
	// fails or the response is otherwise cryptographically invalid.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrNoCredentials is returned when a user has no registered
	// credentials for a username-bound authentication start.
	ErrNoCredentials = errors.New("user has no registered credentials")

	// ErrUserVerification is returned when the authenticator did not
	// report user presence/verification as required by policy.
	ErrUserVerification = errors.New("user verification requirement not met")

	// ErrStoreUnavailable is returned when the credential store or
	// session cache fails for infrastructure reasons. Retry policy
	// belongs to the caller, not the engine.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidRequest is returned when a request is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotConfigured is returned when the service is not properly
	// configured.
	ErrNotConfigured = errors.New("webauthn service not configured")
)

// WebAuthnError wraps an error with the operation that produced it.
type WebAuthnError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *WebAuthnError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *WebAuthnError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *WebAuthnError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new WebAuthnError with the given operation and error.
func NewError(op string, err error) error {
	return &WebAuthnError{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsChallengeExpired returns true if the error indicates the pending
// ceremony was expired, missing, or already consumed.
func IsChallengeExpired(err error) bool {
	return errors.Is(err, ErrChallengeExpired)
}

// IsCredentialNotFound returns true if the error indicates a credential
// was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}

// IsClonedAuthenticator returns true if the error indicates a possible
// cloned authenticator. Adapters should log and alert on this
// distinctly from routine verification failures.
func IsClonedAuthenticator(err error) bool {
	return errors.Is(err, ErrClonedAuthenticator)
}

// IsVerificationFailed returns true if the error indicates any
// verification-kind failure.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed) ||
		errors.Is(err, ErrClientDataMismatch) ||
		errors.Is(err, ErrRPIDMismatch) ||
		errors.Is(err, ErrClonedAuthenticator) ||
		errors.Is(err, protocol.ErrNoAttestedCredential)
}
