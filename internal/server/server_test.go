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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/pkg/webauthn"
	"github.com/jeremyhahn/go-passkey/pkg/webauthn/protocol"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.WebAuthn.RPID = "example.com"
	cfg.WebAuthn.RPOrigins = []string{"https://example.com"}
	cfg.JWT.Enabled = true
	cfg.Users = []config.UserConfig{{Username: "alice", DisplayName: "Alice Example"}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Stop(context.Background()) })

	return srv
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	auth, err := webauthn.NewMockAuthenticator("https://example.com")
	require.NoError(t, err)

	// Registration ceremony through the full stack.
	rec := postJSON(t, srv, "/api/webauthn/register/options", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	var creationOpts protocol.CredentialCreationOptions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &creationOpts))

	credential, err := auth.CreateRegistrationResponse(&creationOpts)
	require.NoError(t, err)

	rec = postJSON(t, srv, "/api/webauthn/register/finish", map[string]any{
		"username":   "alice",
		"credential": json.RawMessage(credential),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Authentication ceremony; JWT minting is enabled.
	rec = postJSON(t, srv, "/api/webauthn/authenticate/options", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	var requestOpts protocol.CredentialRequestOptions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &requestOpts))

	assertion, err := auth.CreateAuthenticationResponse(&requestOpts)
	require.NoError(t, err)

	rec = postJSON(t, srv, "/api/webauthn/authenticate/finish", map[string]any{
		"username":   "alice",
		"credential": json.RawMessage(assertion),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	// Compact JWS: three dot-separated segments.
	assert.Len(t, strings.Split(result.Token, "."), 3)
}

func TestServerOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServerUnknownUser(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/api/webauthn/register/options", map[string]string{"username": "mallory"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
