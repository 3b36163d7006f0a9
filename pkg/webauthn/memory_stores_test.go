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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential(id byte, username string, handle []byte) *StoredCredential {
	return &StoredCredential{
		ID:            []byte{id, 0x01, 0x02},
		Username:      username,
		UserHandle:    handle,
		PublicKeyCOSE: []byte{0xa0},
		CreatedAt:     time.Now(),
	}
}

func TestMemoryCredentialStore(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()
	handle := []byte("alice-handle")

	cred := testCredential(0x01, "alice", handle)
	require.NoError(t, store.Insert(ctx, cred))

	// Duplicate IDs are refused system-wide.
	err := store.Insert(ctx, testCredential(0x01, "bob", []byte("bob-handle")))
	assert.ErrorIs(t, err, ErrDuplicateCredential)

	got, err := store.Lookup(ctx, cred.ID, handle)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	// Scoped lookup with the wrong handle misses.
	_, err = store.Lookup(ctx, cred.ID, []byte("other-handle"))
	assert.True(t, IsCredentialNotFound(err))

	got, err = store.LookupByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, handle, got.UserHandle)

	gotHandle, err := store.UserHandleForUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, handle, gotHandle)

	username, err := store.UsernameForUserHandle(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = store.UserHandleForUsername(ctx, "nobody")
	assert.True(t, IsUserNotFound(err))
}

func TestMemoryCredentialStoreUpdateCounter(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	cred := testCredential(0x01, "alice", []byte("handle"))
	require.NoError(t, store.Insert(ctx, cred))

	usedAt := time.Now()
	require.NoError(t, store.UpdateCounter(ctx, cred.ID, 0, 42, usedAt))

	got, err := store.LookupByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), got.SignatureCount)
	assert.Equal(t, usedAt, got.LastUsedAt)

	// A stale expected count means another authentication advanced the
	// counter in between; the write must not apply.
	err = store.UpdateCounter(ctx, cred.ID, 0, 43, usedAt)
	assert.True(t, IsClonedAuthenticator(err))
	got, err = store.LookupByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), got.SignatureCount)

	err = store.UpdateCounter(ctx, []byte("missing"), 0, 1, usedAt)
	assert.True(t, IsCredentialNotFound(err))
}

func TestMemoryCredentialStoreDelete(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()
	handle := []byte("handle")

	first := testCredential(0x01, "alice", handle)
	second := testCredential(0x02, "alice", handle)
	other := testCredential(0x03, "bob", []byte("bob-handle"))
	for _, cred := range []*StoredCredential{first, second, other} {
		require.NoError(t, store.Insert(ctx, cred))
	}

	// Ownership is enforced: bob cannot delete alice's credential.
	removed, err := store.Delete(ctx, "bob", first.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = store.Delete(ctx, "alice", first.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	deleted, err := store.DeleteAll(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	creds, err := store.CredentialsForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestMemoryCredentialStoreReturnsCopies(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	cred := testCredential(0x01, "alice", []byte("handle"))
	require.NoError(t, store.Insert(ctx, cred))

	got, err := store.LookupByID(ctx, cred.ID)
	require.NoError(t, err)
	got.SignatureCount = 99

	again, err := store.LookupByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), again.SignatureCount)
}

func TestMemorySessionCachePopOnce(t *testing.T) {
	cache := NewMemorySessionCache(time.Minute)
	ctx := context.Background()

	pending := &PendingRegistration{Username: "alice"}
	require.NoError(t, cache.PutRegistration(ctx, "alice", pending))

	got, err := cache.TakeRegistration(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = cache.TakeRegistration(ctx, "alice")
	assert.True(t, IsChallengeExpired(err))
}

func TestMemorySessionCacheExpiry(t *testing.T) {
	cache := NewMemorySessionCache(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.PutAssertion(ctx, "key", &PendingAssertion{Key: "key"}))
	time.Sleep(25 * time.Millisecond)

	_, err := cache.TakeAssertion(ctx, "key")
	assert.True(t, IsChallengeExpired(err))
}

func TestMemorySessionCacheCleanup(t *testing.T) {
	cache := NewMemorySessionCache(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.PutRegistration(ctx, "alice", &PendingRegistration{Username: "alice"}))
	require.NoError(t, cache.PutAssertion(ctx, "key", &PendingAssertion{Key: "key"}))
	time.Sleep(25 * time.Millisecond)

	assert.Equal(t, 2, cache.Cleanup())
	assert.Equal(t, 0, cache.Cleanup())
}

func TestMemorySessionCacheReplaces(t *testing.T) {
	cache := NewMemorySessionCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.PutAssertion(ctx, "alice", &PendingAssertion{Key: "alice", Username: "alice"}))
	replacement := &PendingAssertion{Key: "alice", Username: "alice", CreatedAt: time.Now()}
	require.NoError(t, cache.PutAssertion(ctx, "alice", replacement))

	got, err := cache.TakeAssertion(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, replacement.CreatedAt, got.CreatedAt)
}

func TestMemoryUserDirectory(t *testing.T) {
	directory := NewMemoryUserDirectory()
	directory.AddUser("alice", "1", "Alice Example")
	directory.AddUser("bob", "2", "")
	ctx := context.Background()

	id, err := directory.UserIDForLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	name, err := directory.DisplayNameForLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Example", name)

	// Display name falls back to the login.
	name, err = directory.DisplayNameForLogin(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	login, err := directory.LoginForUserID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "bob", login)

	_, err = directory.UserIDForLogin(ctx, "mallory")
	assert.True(t, IsUserNotFound(err))

	_, err = directory.LoginForUserID(ctx, "99")
	assert.True(t, IsUserNotFound(err))
}
