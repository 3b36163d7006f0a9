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
	"time"
)

// CredentialStore persists registered credentials and the username /
// user-handle association. Implementations must enforce system-wide
// uniqueness of credential IDs.
type CredentialStore interface {

	// Insert stores a new credential. Returns ErrDuplicateCredential
	// when a credential with the same ID already exists anywhere in the
	// system.
	Insert(ctx context.Context, cred *StoredCredential) error

	// Lookup retrieves a credential by ID scoped to a user handle.
	// Returns ErrCredentialNotFound when absent.
	Lookup(ctx context.Context, credentialID, userHandle []byte) (*StoredCredential, error)

	// LookupByID retrieves a credential by ID alone, across all users.
	// Returns ErrCredentialNotFound when absent.
	LookupByID(ctx context.Context, credentialID []byte) (*StoredCredential, error)

	// CredentialsForUser returns all credentials registered to a
	// username. An empty slice, not an error, when there are none.
	CredentialsForUser(ctx context.Context, username string) ([]*StoredCredential, error)

	// UserHandleForUsername returns the stored user handle for a
	// username, or ErrUserNotFound when the user has no credentials.
	UserHandleForUsername(ctx context.Context, username string) ([]byte, error)

	// UsernameForUserHandle resolves a user handle back to a username,
	// or ErrUserNotFound.
	UsernameForUserHandle(ctx context.Context, userHandle []byte) (string, error)

	// UpdateCounter records a new signature count and last-used
	// timestamp after a successful authentication. The write only
	// applies while the stored count still equals previousCount;
	// ErrClonedAuthenticator when another authentication advanced the
	// counter in between, ErrCredentialNotFound when the credential is
	// gone.
	UpdateCounter(ctx context.Context, credentialID []byte, previousCount, signCount uint32, usedAt time.Time) error

	// Delete removes a single credential owned by username. Reports
	// whether a credential was removed.
	Delete(ctx context.Context, username string, credentialID []byte) (bool, error)

	// DeleteAll removes every credential owned by username and returns
	// how many were removed.
	DeleteAll(ctx context.Context, username string) (int, error)
}

// SessionCache holds in-flight ceremony state between start and finish.
// Entries are consumed exactly once and expire after the configured TTL.
type SessionCache interface {

	// PutRegistration stores pending registration state keyed by
	// username, replacing any previous entry for the same key.
	PutRegistration(ctx context.Context, username string, pending *PendingRegistration) error

	// TakeRegistration atomically retrieves and removes pending
	// registration state. Returns ErrChallengeExpired when the entry is
	// absent or past its TTL.
	TakeRegistration(ctx context.Context, username string) (*PendingRegistration, error)

	// PutAssertion stores pending assertion state under the given key
	// (username, or encoded challenge for discoverable flows).
	PutAssertion(ctx context.Context, key string, pending *PendingAssertion) error

	// TakeAssertion atomically retrieves and removes pending assertion
	// state. Returns ErrChallengeExpired when absent or expired.
	TakeAssertion(ctx context.Context, key string) (*PendingAssertion, error)
}

// UserDirectory answers whether a login exists in the external account
// system. Registration is refused for logins the directory does not
// know.
type UserDirectory interface {

	// UserIDForLogin resolves a login name to the directory's internal
	// identifier, or ErrUserNotFound.
	UserIDForLogin(ctx context.Context, login string) (string, error)

	// DisplayNameForLogin returns the human-readable name for a login,
	// or ErrUserNotFound.
	DisplayNameForLogin(ctx context.Context, login string) (string, error)

	// LoginForUserID resolves an internal identifier back to its login
	// name, or ErrUserNotFound.
	LoginForUserID(ctx context.Context, id string) (string, error)
}

// TokenIssuer mints a post-authentication token for a user. Optional;
// when nil the service returns authentication results without tokens.
type TokenIssuer interface {
	IssueToken(ctx context.Context, username string) (string, error)
}
