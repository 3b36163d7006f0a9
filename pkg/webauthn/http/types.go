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

package http

import "encoding/json"

// OptionsRequest asks to begin a ceremony. Username is required for
// registration and optional for authentication (empty selects the
// discoverable flow). DisplayName and ResidentKey apply to
// registration only.
type OptionsRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	ResidentKey *bool  `json:"residentKey,omitempty"`
}

// FinishRequest completes a ceremony with the browser's serialized
// PublicKeyCredential.
type FinishRequest struct {
	Username   string          `json:"username,omitempty"`
	Credential json.RawMessage `json:"credential"`
}

// RegistrationResponse reports a completed registration.
type RegistrationResponse struct {
	Success      bool   `json:"success"`
	CredentialID string `json:"credentialId"`
	Message      string `json:"message,omitempty"`
}

// AuthenticationResponse reports a completed authentication.
type AuthenticationResponse struct {
	Success        bool   `json:"success"`
	Username       string `json:"username"`
	SignatureCount uint32 `json:"signatureCount"`
	Token          string `json:"token,omitempty"`
}

// DeviceCheckResponse reports whether a user has registered devices.
type DeviceCheckResponse struct {
	HasCredentials bool   `json:"hasCredentials"`
	Count          int    `json:"count"`
	Message        string `json:"message,omitempty"`
}

// DeviceInfo describes one registered device.
type DeviceInfo struct {
	CredentialID   string `json:"credentialId"`
	SignatureCount uint32 `json:"signatureCount"`
	CreatedAt      string `json:"createdAt,omitempty"`
	LastUsedAt     string `json:"lastUsedAt,omitempty"`
}

// DeleteResponse reports a device deletion.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// DeleteAllResponse reports a bulk device deletion.
type DeleteAllResponse struct {
	Success      bool   `json:"success"`
	DeletedCount int    `json:"deletedCount"`
	Message      string `json:"message,omitempty"`
}

// Error codes returned to clients. Messages stay generic; the detailed
// failure kind is only logged server-side.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeUserNotFound       = "user_not_found"
	ErrorCodeNoCredentials      = "no_credentials"
	ErrorCodeChallengeExpired   = "challenge_expired"
	ErrorCodeVerificationFailed = "verification_failed"
	ErrorCodeDuplicateDevice    = "duplicate_device"
	ErrorCodeDeviceNotFound     = "device_not_found"
	ErrorCodeInternalError      = "internal_error"
)

// ErrorResponse carries a client-safe error code and message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
