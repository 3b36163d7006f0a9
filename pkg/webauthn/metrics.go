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

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments ceremony outcomes. A nil *Metrics is a no-op so
// the service can record unconditionally.
type Metrics struct {
	registrations   *prometheus.CounterVec
	authentications *prometheus.CounterVec
	cloneDetections prometheus.Counter
}

// NewMetrics creates and registers ceremony metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passkey",
			Name:      "registrations_total",
			Help:      "Registration ceremony outcomes.",
		}, []string{"result"}),
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passkey",
			Name:      "authentications_total",
			Help:      "Authentication ceremony outcomes.",
		}, []string{"result"}),
		cloneDetections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "passkey",
			Name:      "clone_detections_total",
			Help:      "Assertions rejected because the signature counter did not advance.",
		}),
	}
	reg.MustRegister(m.registrations, m.authentications, m.cloneDetections)
	return m
}

// failureLabel buckets an error into a stable metric label.
func failureLabel(err error) string {
	switch {
	case errors.Is(err, ErrChallengeExpired):
		return "challenge_expired"
	case errors.Is(err, ErrClonedAuthenticator):
		return "cloned_authenticator"
	case errors.Is(err, ErrClientDataMismatch):
		return "client_data_mismatch"
	case errors.Is(err, ErrRPIDMismatch):
		return "rp_id_mismatch"
	case errors.Is(err, ErrDuplicateCredential):
		return "duplicate_credential"
	case errors.Is(err, ErrCredentialNotFound), errors.Is(err, ErrCredentialOwnerMismatch):
		return "unknown_credential"
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNoCredentials):
		return "unknown_user"
	case errors.Is(err, ErrUserVerification):
		return "user_verification"
	case errors.Is(err, ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}

// RegistrationCompleted records a successful registration.
func (m *Metrics) RegistrationCompleted() {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues("success").Inc()
}

// RegistrationFailed records a failed registration.
func (m *Metrics) RegistrationFailed(err error) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(failureLabel(err)).Inc()
}

// AuthenticationCompleted records a successful authentication.
func (m *Metrics) AuthenticationCompleted() {
	if m == nil {
		return
	}
	m.authentications.WithLabelValues("success").Inc()
}

// AuthenticationFailed records a failed authentication.
func (m *Metrics) AuthenticationFailed(err error) {
	if m == nil {
		return
	}
	m.authentications.WithLabelValues(failureLabel(err)).Inc()
}

// CloneDetected records a counter-regression rejection. Recorded in
// addition to the authentication failure itself.
func (m *Metrics) CloneDetected() {
	if m == nil {
		return
	}
	m.cloneDetections.Inc()
}
