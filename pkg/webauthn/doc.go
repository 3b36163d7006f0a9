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

// Package webauthn implements a WebAuthn Level 2 Relying Party:
// passkey registration and authentication ceremonies, credential
// storage, and device management.
//
// The Service is the ceremony engine. Each ceremony is a start/finish
// pair: Start issues browser API options carrying a random challenge
// and caches the pending state; Finish consumes that state exactly
// once, verifies the browser's response end to end (client data,
// RP ID hash, flags, signature, counter) and only then touches the
// credential store.
//
// Storage, session caching, the external user directory and token
// minting are interfaces. In-memory implementations in this package
// serve tests and single-node use; pkg/webauthn/store/postgres provides
// durable storage.
package webauthn
