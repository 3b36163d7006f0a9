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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "localhost", cfg.WebAuthn.RPID)
	assert.Equal(t, 5*time.Minute, cfg.WebAuthn.SessionTTL)
	assert.False(t, cfg.JWT.Enabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9443"
webauthn:
  rp_id: example.com
  rp_display_name: Example
  rp_origins:
    - https://example.com
store:
  driver: postgres
  dsn: postgres://localhost/passkey
users:
  - username: alice
    display_name: Alice Example
log_level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9443", cfg.Server.Address)
	assert.Equal(t, "example.com", cfg.WebAuthn.RPID)
	assert.Equal(t, []string{"https://example.com"}, cfg.WebAuthn.RPOrigins)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "alice", cfg.Users[0].Username)
	assert.Equal(t, "DEBUG", cfg.SlogLevel())
}

func TestLoadValidation(t *testing.T) {
	writeConfig := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	tests := []struct {
		name string
		body string
	}{
		{
			name: "postgres without dsn",
			body: "store:\n  driver: postgres\n",
		},
		{
			name: "unknown driver",
			body: "store:\n  driver: cassandra\n",
		},
		{
			name: "bad log level",
			body: "log_level: loud\n",
		},
		{
			name: "bad origin",
			body: "webauthn:\n  rp_origins:\n    - not-a-url\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
