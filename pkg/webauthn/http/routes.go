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
	"github.com/go-chi/chi/v5"
)

// MountChi mounts passkey routes on a chi router.
//
// Example:
//
//	handler := passkeyhttp.NewHandler(svc)
//	r.Route("/api/webauthn", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
func MountChi(r chi.Router, h *Handler) {
	r.Post("/register/options", h.RegistrationOptions)
	r.Post("/register/finish", h.RegistrationFinish)
	r.Post("/authenticate/options", h.AuthenticationOptions)
	r.Post("/authenticate/finish", h.AuthenticationFinish)
	r.Get("/devices/check/{username}", h.DeviceCheck)
	r.Get("/devices/list/{username}", h.DeviceList)
	r.Delete("/devices/all/{username}", h.DeviceDeleteAll)
	r.Delete("/devices/{username}/{credentialId}", h.DeviceDelete)
}

// Routes returns a standalone router with all passkey routes mounted.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	MountChi(r, h)
	return r
}
