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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeremyhahn/go-passkey/pkg/webauthn/protocol"
)

func TestWebAuthnError(t *testing.T) {
	err := NewError("webauthn.finish_registration", ErrChallengeExpired)

	assert.Equal(t, "webauthn.finish_registration: challenge expired or missing", err.Error())
	assert.ErrorIs(t, err, ErrChallengeExpired)
	assert.True(t, IsChallengeExpired(err))

	var werr *WebAuthnError
	assert.True(t, errors.As(err, &werr))
	assert.Equal(t, "webauthn.finish_registration", werr.Op)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError("op", nil))

	wrapped := WrapError("outer", NewError("inner", ErrCredentialNotFound))
	assert.True(t, IsCredentialNotFound(wrapped))
	assert.Equal(t, "outer: inner: credential not found", wrapped.Error())
}

func TestIsVerificationFailed(t *testing.T) {
	for _, sentinel := range []error{
		ErrVerificationFailed,
		ErrClientDataMismatch,
		ErrRPIDMismatch,
		ErrClonedAuthenticator,
		protocol.ErrNoAttestedCredential,
	} {
		assert.True(t, IsVerificationFailed(fmt.Errorf("wrapped: %w", sentinel)), sentinel.Error())
	}
	assert.False(t, IsVerificationFailed(ErrUserNotFound))
	assert.False(t, IsVerificationFailed(nil))
}
