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
	"bytes"
	"context"
	"encoding/hex"
	"sync"
	"time"
)

// MemoryCredentialStore is an in-memory CredentialStore backed by maps,
// suitable for tests and single-node deployments.
type MemoryCredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]*StoredCredential // hex(credentialID) -> credential
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		credentials: make(map[string]*StoredCredential),
	}
}

func (s *MemoryCredentialStore) Insert(_ context.Context, cred *StoredCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(cred.ID)
	if _, exists := s.credentials[key]; exists {
		return NewError("credential_store.insert", ErrDuplicateCredential)
	}
	stored := *cred
	s.credentials[key] = &stored
	return nil
}

func (s *MemoryCredentialStore) Lookup(_ context.Context, credentialID, userHandle []byte) (*StoredCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.credentials[hex.EncodeToString(credentialID)]
	if !exists || !bytes.Equal(cred.UserHandle, userHandle) {
		return nil, NewError("credential_store.lookup", ErrCredentialNotFound)
	}
	copied := *cred
	return &copied, nil
}

func (s *MemoryCredentialStore) LookupByID(_ context.Context, credentialID []byte) (*StoredCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.credentials[hex.EncodeToString(credentialID)]
	if !exists {
		return nil, NewError("credential_store.lookup_by_id", ErrCredentialNotFound)
	}
	copied := *cred
	return &copied, nil
}

func (s *MemoryCredentialStore) CredentialsForUser(_ context.Context, username string) ([]*StoredCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := make([]*StoredCredential, 0)
	for _, cred := range s.credentials {
		if cred.Username == username {
			copied := *cred
			creds = append(creds, &copied)
		}
	}
	return creds, nil
}

func (s *MemoryCredentialStore) UserHandleForUsername(_ context.Context, username string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cred := range s.credentials {
		if cred.Username == username {
			handle := make([]byte, len(cred.UserHandle))
			copy(handle, cred.UserHandle)
			return handle, nil
		}
	}
	return nil, NewError("credential_store.user_handle", ErrUserNotFound)
}

func (s *MemoryCredentialStore) UsernameForUserHandle(_ context.Context, userHandle []byte) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cred := range s.credentials {
		if bytes.Equal(cred.UserHandle, userHandle) {
			return cred.Username, nil
		}
	}
	return "", NewError("credential_store.username", ErrUserNotFound)
}

func (s *MemoryCredentialStore) UpdateCounter(_ context.Context, credentialID []byte, previousCount, signCount uint32, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, exists := s.credentials[hex.EncodeToString(credentialID)]
	if !exists {
		return NewError("credential_store.update_counter", ErrCredentialNotFound)
	}
	// Compare-and-swap: a counter that moved since the caller read it
	// means a concurrent authentication already consumed this count.
	if cred.SignatureCount != previousCount {
		return NewError("credential_store.update_counter", ErrClonedAuthenticator)
	}
	cred.SignatureCount = signCount
	cred.LastUsedAt = usedAt
	return nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, username string, credentialID []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(credentialID)
	cred, exists := s.credentials[key]
	if !exists || cred.Username != username {
		return false, nil
	}
	delete(s.credentials, key)
	return true, nil
}

func (s *MemoryCredentialStore) DeleteAll(_ context.Context, username string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, cred := range s.credentials {
		if cred.Username == username {
			delete(s.credentials, key)
			deleted++
		}
	}
	return deleted, nil
}

type sessionEntry struct {
	registration *PendingRegistration
	assertion    *PendingAssertion
	expiresAt    time.Time
}

// MemorySessionCache is an in-memory SessionCache with TTL expiry and
// pop-once semantics. Call StartCleanup to reap expired entries in the
// background.
type MemorySessionCache struct {
	mu            sync.Mutex
	registrations map[string]*sessionEntry
	assertions    map[string]*sessionEntry
	ttl           time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewMemorySessionCache creates a session cache with the given TTL.
func NewMemorySessionCache(ttl time.Duration) *MemorySessionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemorySessionCache{
		registrations: make(map[string]*sessionEntry),
		assertions:    make(map[string]*sessionEntry),
		ttl:           ttl,
		stop:          make(chan struct{}),
	}
}

func (c *MemorySessionCache) PutRegistration(_ context.Context, username string, pending *PendingRegistration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registrations[username] = &sessionEntry{
		registration: pending,
		expiresAt:    time.Now().Add(c.ttl),
	}
	return nil
}

func (c *MemorySessionCache) TakeRegistration(_ context.Context, username string) (*PendingRegistration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.registrations[username]
	if !exists {
		return nil, NewError("session_cache.take_registration", ErrChallengeExpired)
	}
	delete(c.registrations, username)
	if time.Now().After(entry.expiresAt) {
		return nil, NewError("session_cache.take_registration", ErrChallengeExpired)
	}
	return entry.registration, nil
}

func (c *MemorySessionCache) PutAssertion(_ context.Context, key string, pending *PendingAssertion) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.assertions[key] = &sessionEntry{
		assertion: pending,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

func (c *MemorySessionCache) TakeAssertion(_ context.Context, key string) (*PendingAssertion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.assertions[key]
	if !exists {
		return nil, NewError("session_cache.take_assertion", ErrChallengeExpired)
	}
	delete(c.assertions, key)
	if time.Now().After(entry.expiresAt) {
		return nil, NewError("session_cache.take_assertion", ErrChallengeExpired)
	}
	return entry.assertion, nil
}

// Cleanup removes every expired entry and returns how many were reaped.
func (c *MemorySessionCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	reaped := 0
	for key, entry := range c.registrations {
		if now.After(entry.expiresAt) {
			delete(c.registrations, key)
			reaped++
		}
	}
	for key, entry := range c.assertions {
		if now.After(entry.expiresAt) {
			delete(c.assertions, key)
			reaped++
		}
	}
	return reaped
}

// StartCleanup reaps expired entries at the given interval until Stop is
// called.
func (c *MemorySessionCache) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Cleanup()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop terminates the background cleanup goroutine.
func (c *MemorySessionCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// MemoryUserDirectory is an in-memory UserDirectory seeded with known
// accounts, used for tests and demos in place of an external identity
// system.
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[string]memoryDirectoryEntry
}

type memoryDirectoryEntry struct {
	id          string
	displayName string
}

// NewMemoryUserDirectory creates an empty directory.
func NewMemoryUserDirectory() *MemoryUserDirectory {
	return &MemoryUserDirectory{
		users: make(map[string]memoryDirectoryEntry),
	}
}

// AddUser registers a login with the directory.
func (d *MemoryUserDirectory) AddUser(login, id, displayName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if displayName == "" {
		displayName = login
	}
	d.users[login] = memoryDirectoryEntry{id: id, displayName: displayName}
}

func (d *MemoryUserDirectory) UserIDForLogin(_ context.Context, login string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, exists := d.users[login]
	if !exists {
		return "", NewError("user_directory.user_id", ErrUserNotFound)
	}
	return entry.id, nil
}

func (d *MemoryUserDirectory) DisplayNameForLogin(_ context.Context, login string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, exists := d.users[login]
	if !exists {
		return "", NewError("user_directory.display_name", ErrUserNotFound)
	}
	return entry.displayName, nil
}

func (d *MemoryUserDirectory) LoginForUserID(_ context.Context, id string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for login, entry := range d.users {
		if entry.id == id {
			return login, nil
		}
	}
	return "", NewError("user_directory.login", ErrUserNotFound)
}
