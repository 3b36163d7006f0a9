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

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeremyhahn/go-passkey/pkg/encoding"
	"github.com/jeremyhahn/go-passkey/pkg/webauthn"
)

// Handler provides HTTP handlers for passkey ceremonies and device
// management. Handlers can be mounted on any HTTP router; route
// parameters use chi.
type Handler struct {
	service *webauthn.Service
	logger  *slog.Logger
}

// NewHandler creates a new WebAuthn HTTP handler.
func NewHandler(service *webauthn.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// RegistrationOptions handles POST /register/options
//
// Request body:
//
//	{"username": "user@example.com", "displayName": "...", "residentKey": true}
//
// displayName and residentKey are optional overrides.
//
// Response: WebAuthn PublicKeyCredentialCreationOptions
func (h *Handler) RegistrationOptions(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	var prefs *webauthn.RegistrationPreferences
	if req.DisplayName != "" || req.ResidentKey != nil {
		prefs = &webauthn.RegistrationPreferences{
			DisplayName: req.DisplayName,
			ResidentKey: req.ResidentKey,
		}
	}

	options, err := h.service.StartRegistration(r.Context(), req.Username, prefs)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, options)
}

// RegistrationFinish handles POST /register/finish
//
// Request body:
//
//	{"username": "user@example.com", "credential": { ... }}
//
// where credential is the serialized PublicKeyCredential produced by
// navigator.credentials.create().
func (h *Handler) RegistrationFinish(w http.ResponseWriter, r *http.Request) {
	var req FinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" || len(req.Credential) == 0 {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username and credential are required")
		return
	}

	cred, err := h.service.FinishRegistration(r.Context(), req.Username, req.Credential)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, RegistrationResponse{
		Success:      true,
		CredentialID: encoding.EncodeBase64URL(cred.ID),
		Message:      "device registered",
	})
}

// AuthenticationOptions handles POST /authenticate/options
//
// Request body:
//
//	{"username": "user@example.com"}
//
// An empty or absent username selects the discoverable-credential
// flow.
func (h *Handler) AuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	options, err := h.service.StartAuthentication(r.Context(), req.Username)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, options)
}

// AuthenticationFinish handles POST /authenticate/finish
//
// Request body:
//
//	{"username": "user@example.com", "credential": { ... }}
//
// where credential is the serialized PublicKeyCredential produced by
// navigator.credentials.get(). Username may be empty for the
// discoverable flow.
func (h *Handler) AuthenticationFinish(w http.ResponseWriter, r *http.Request) {
	var req FinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if len(req.Credential) == 0 {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "credential is required")
		return
	}

	result, err := h.service.FinishAuthentication(r.Context(), req.Username, req.Credential)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, AuthenticationResponse{
		Success:        true,
		Username:       result.Username,
		SignatureCount: result.SignatureCount,
		Token:          result.Token,
	})
}

// DeviceCheck handles GET /devices/check/{username}
func (h *Handler) DeviceCheck(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	has, count, err := h.service.HasCredentials(r.Context(), username)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := DeviceCheckResponse{HasCredentials: has, Count: count}
	if !has {
		resp.Message = "no registered devices"
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// DeviceList handles GET /devices/list/{username}
func (h *Handler) DeviceList(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	creds, err := h.service.Credentials(r.Context(), username)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	devices := make([]DeviceInfo, 0, len(creds))
	for _, cred := range creds {
		info := DeviceInfo{
			CredentialID:   encoding.EncodeBase64URL(cred.ID),
			SignatureCount: cred.SignatureCount,
			CreatedAt:      cred.CreatedAt.Format(time.RFC3339),
		}
		if !cred.LastUsedAt.IsZero() {
			info.LastUsedAt = cred.LastUsedAt.Format(time.RFC3339)
		}
		devices = append(devices, info)
	}
	h.writeJSON(w, http.StatusOK, devices)
}

// DeviceDelete handles DELETE /devices/{username}/{credentialId}
//
// The credentialId path segment is Base64URL encoded.
func (h *Handler) DeviceDelete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	credentialID, err := encoding.DecodeBase64URL(chi.URLParam(r, "credentialId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid credential id encoding")
		return
	}

	if err := h.service.DeleteCredential(r.Context(), username, credentialID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, DeleteResponse{
		Success: true,
		Message: "device deleted",
	})
}

// DeviceDeleteAll handles DELETE /devices/all/{username}
func (h *Handler) DeviceDeleteAll(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	deleted, err := h.service.DeleteAllCredentials(r.Context(), username)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, DeleteAllResponse{
		Success:      true,
		DeletedCount: deleted,
		Message:      "devices deleted",
	})
}

// handleServiceError maps service errors to HTTP responses. Responses
// stay generic for verification failures; the precise kind is logged.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, webauthn.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, ErrorCodeUserNotFound, "user not found")
	case errors.Is(err, webauthn.ErrNoCredentials):
		h.writeError(w, http.StatusNotFound, ErrorCodeNoCredentials, "user has no registered devices")
	case errors.Is(err, webauthn.ErrChallengeExpired):
		h.writeError(w, http.StatusBadRequest, ErrorCodeChallengeExpired, "ceremony expired, start again")
	case errors.Is(err, webauthn.ErrDuplicateCredential):
		h.writeError(w, http.StatusConflict, ErrorCodeDuplicateDevice, "device already registered")
	case errors.Is(err, webauthn.ErrCredentialNotFound),
		errors.Is(err, webauthn.ErrCredentialOwnerMismatch):
		h.writeError(w, http.StatusNotFound, ErrorCodeDeviceNotFound, "device not found")
	case webauthn.IsVerificationFailed(err):
		h.logger.Warn("ceremony verification failed",
			"path", r.URL.Path,
			"error", err)
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "verification failed")
	case errors.Is(err, webauthn.ErrUserVerification):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "verification failed")
	case errors.Is(err, webauthn.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request")
	default:
		h.logger.Error("webauthn service error",
			"path", r.URL.Path,
			"error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
