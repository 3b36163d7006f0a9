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
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/webauthn/protocol"
)

// Config holds Relying Party configuration for the WebAuthn service.
type Config struct {
	// RPID is the Relying Party identifier, a registrable domain
	// suffix of the origins (e.g. "example.com").
	RPID string `yaml:"rp_id" json:"rp_id" mapstructure:"rp_id"`

	// RPDisplayName is the human-readable Relying Party name shown
	// during ceremonies.
	RPDisplayName string `yaml:"rp_display_name" json:"rp_display_name" mapstructure:"rp_display_name"`

	// RPOrigins is the allow-list of web origins permitted to complete
	// ceremonies (e.g. "https://example.com").
	RPOrigins []string `yaml:"rp_origins" json:"rp_origins" mapstructure:"rp_origins"`

	// ChallengeLength is the challenge size in bytes. Values below 16
	// are raised to the default of 32.
	ChallengeLength int `yaml:"challenge_length" json:"challenge_length" mapstructure:"challenge_length"`

	// Timeout is the ceremony timeout hint sent to clients.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// SessionTTL is how long pending ceremony state stays valid
	// between start and finish.
	SessionTTL time.Duration `yaml:"session_ttl" json:"session_ttl" mapstructure:"session_ttl"`

	// UserVerification is the verification requirement for
	// authentication ceremonies: "required", "preferred" or
	// "discouraged". Registration always requires verification.
	UserVerification string `yaml:"user_verification" json:"user_verification" mapstructure:"user_verification"`

	// AuthenticatorAttachment restricts the authenticator type during
	// registration: "platform", "cross-platform" or empty for no
	// restriction.
	AuthenticatorAttachment string `yaml:"authenticator_attachment" json:"authenticator_attachment" mapstructure:"authenticator_attachment"`

	// ResidentKey states the client-side discoverable credential
	// requirement for registration: "required", "preferred" or
	// "discouraged".
	ResidentKey string `yaml:"resident_key" json:"resident_key" mapstructure:"resident_key"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	cfg := &Config{
		RPID:          "localhost",
		RPDisplayName: "go-passkey",
		RPOrigins:     []string{"http://localhost:8080"},
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.ChallengeLength < protocol.MinChallengeLength {
		c.ChallengeLength = protocol.DefaultChallengeLength
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 5 * time.Minute
	}
	if c.UserVerification == "" {
		c.UserVerification = protocol.VerificationRequired
	}
	if c.AuthenticatorAttachment == "" {
		c.AuthenticatorAttachment = protocol.AttachmentPlatform
	}
	if c.ResidentKey == "" {
		c.ResidentKey = protocol.ResidentKeyPreferred
	}
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("webauthn config: rp_id is required")
	}
	if c.RPDisplayName == "" {
		return fmt.Errorf("webauthn config: rp_display_name is required")
	}
	if len(c.RPOrigins) == 0 {
		return fmt.Errorf("webauthn config: at least one rp_origin is required")
	}
	for _, origin := range c.RPOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("webauthn config: invalid origin %q", origin)
		}
	}
	switch c.UserVerification {
	case protocol.VerificationRequired,
		protocol.VerificationPreferred,
		protocol.VerificationDiscouraged:
	default:
		return fmt.Errorf("webauthn config: invalid user_verification %q", c.UserVerification)
	}
	switch c.AuthenticatorAttachment {
	case "", protocol.AttachmentPlatform, protocol.AttachmentCrossPlatform:
	default:
		return fmt.Errorf("webauthn config: invalid authenticator_attachment %q", c.AuthenticatorAttachment)
	}
	switch c.ResidentKey {
	case protocol.ResidentKeyRequired,
		protocol.ResidentKeyPreferred,
		protocol.ResidentKeyDiscouraged:
	default:
		return fmt.Errorf("webauthn config: invalid resident_key %q", c.ResidentKey)
	}
	return nil
}

// OriginAllowed reports whether the given origin is on the allow-list.
// Comparison is exact after trimming a trailing slash.
func (c *Config) OriginAllowed(origin string) bool {
	origin = strings.TrimSuffix(origin, "/")
	for _, allowed := range c.RPOrigins {
		if strings.TrimSuffix(allowed, "/") == origin {
			return true
		}
	}
	return false
}
