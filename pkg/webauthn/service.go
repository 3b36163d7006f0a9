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
	"crypto/sha256"
	"log/slog"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/cose"
	"github.com/jeremyhahn/go-passkey/pkg/webauthn/protocol"
)

// Service implements the Relying Party side of the WebAuthn registration
// and authentication ceremonies. All verification happens server-side;
// clients only relay browser API payloads.
type Service struct {
	config      *Config
	credentials CredentialStore
	sessions    SessionCache
	directory   UserDirectory
	issuer      TokenIssuer
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTokenIssuer enables post-authentication token minting.
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithMetrics enables ceremony instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a WebAuthn service. The config is validated and
// defaulted; credentials, sessions and directory are required.
func NewService(
	config *Config,
	credentials CredentialStore,
	sessions SessionCache,
	directory UserDirectory,
	opts ...Option) (*Service, error) {

	if config == nil || credentials == nil || sessions == nil || directory == nil {
		return nil, NewError("webauthn.new", ErrNotConfigured)
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	svc := &Service{
		config:      config,
		credentials: credentials,
		sessions:    sessions,
		directory:   directory,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// supportedAlgorithms is the advertised pubKeyCredParams list, in
// preference order.
var supportedAlgorithms = []protocol.CredentialParameter{
	{Type: protocol.CredentialTypePublicKey, Alg: int(cose.AlgES256)},
	{Type: protocol.CredentialTypePublicKey, Alg: int(cose.AlgEdDSA)},
	{Type: protocol.CredentialTypePublicKey, Alg: int(cose.AlgRS256)},
}

// StartRegistration begins a registration ceremony for an existing
// directory user. Returns ErrUserNotFound, with no pending state
// created, when the login is unknown to the directory. A nil prefs
// uses the directory display name and the configured resident-key
// policy.
func (s *Service) StartRegistration(ctx context.Context, username string, prefs *RegistrationPreferences) (*protocol.CredentialCreationOptions, error) {
	const op = "webauthn.start_registration"

	if username == "" {
		return nil, NewError(op, ErrInvalidRequest)
	}
	if _, err := s.directory.UserIDForLogin(ctx, username); err != nil {
		return nil, WrapError(op, err)
	}
	displayName, err := s.directory.DisplayNameForLogin(ctx, username)
	if err != nil {
		return nil, WrapError(op, err)
	}

	residentKey := s.config.ResidentKey
	if prefs != nil {
		if prefs.DisplayName != "" {
			displayName = prefs.DisplayName
		}
		if prefs.ResidentKey != nil {
			residentKey = protocol.ResidentKeyDiscouraged
			if *prefs.ResidentKey {
				residentKey = protocol.ResidentKeyRequired
			}
		}
	}

	// Reuse the handle from a prior registration so all of the user's
	// credentials map to one authenticator-side account.
	userHandle, err := s.credentials.UserHandleForUsername(ctx, username)
	if err != nil {
		if !IsUserNotFound(err) {
			return nil, WrapError(op, err)
		}
		if userHandle, err = NewUserHandle(); err != nil {
			return nil, WrapError(op, err)
		}
	}

	existing, err := s.credentials.CredentialsForUser(ctx, username)
	if err != nil {
		return nil, WrapError(op, err)
	}
	exclude := make([]protocol.CredentialDescriptor, 0, len(existing))
	for _, cred := range existing {
		exclude = append(exclude, cred.Descriptor())
	}

	challenge, err := protocol.CreateChallenge(s.config.ChallengeLength)
	if err != nil {
		return nil, WrapError(op, err)
	}

	options := &protocol.CredentialCreationOptions{
		RP: protocol.RelyingPartyEntity{
			ID:   s.config.RPID,
			Name: s.config.RPDisplayName,
		},
		User: protocol.UserEntity{
			ID:          userHandle,
			Name:        username,
			DisplayName: displayName,
		},
		Challenge:          challenge,
		PubKeyCredParams:   supportedAlgorithms,
		Timeout:            int(s.config.Timeout.Milliseconds()),
		ExcludeCredentials: exclude,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: s.config.AuthenticatorAttachment,
			ResidentKey:             residentKey,
			RequireResidentKey:      residentKey == protocol.ResidentKeyRequired,
			// Registration always requires verification regardless of
			// the authentication-time policy.
			UserVerification: protocol.VerificationRequired,
		},
		Attestation: "none",
	}

	pending := &PendingRegistration{
		Username: username,
		Account: UserAccount{
			Username:    username,
			DisplayName: displayName,
			UserHandle:  userHandle,
		},
		Options:   options,
		CreatedAt: s.now(),
	}
	if err := s.sessions.PutRegistration(ctx, username, pending); err != nil {
		return nil, WrapError(op, err)
	}

	s.logger.Debug("registration started", "username", username)
	return options, nil
}

// FinishRegistration completes a registration ceremony. The pending
// state is consumed whether or not verification succeeds, so a failed
// finish requires a fresh start.
func (s *Service) FinishRegistration(ctx context.Context, username string, response []byte) (*StoredCredential, error) {
	const op = "webauthn.finish_registration"

	cred, err := s.finishRegistration(ctx, username, response)
	if err != nil {
		s.metrics.RegistrationFailed(err)
		return nil, WrapError(op, err)
	}
	s.metrics.RegistrationCompleted()
	s.logger.Info("credential registered",
		"username", username,
		"credential_id", protocol.URLEncodedBase64(cred.ID).String())
	return cred, nil
}

func (s *Service) finishRegistration(ctx context.Context, username string, response []byte) (*StoredCredential, error) {
	pending, err := s.sessions.TakeRegistration(ctx, username)
	if err != nil {
		return nil, err
	}

	ccr, err := protocol.ParseCreationResponse(response)
	if err != nil {
		return nil, NewError("parse", ErrInvalidRequest)
	}

	clientData, err := protocol.ParseClientData(ccr.Response.ClientDataJSON)
	if err != nil {
		return nil, ErrClientDataMismatch
	}
	if err := clientData.Verify(
		protocol.CeremonyCreate,
		pending.Options.Challenge,
		s.config.OriginAllowed); err != nil {
		return nil, ErrClientDataMismatch
	}

	att, err := protocol.ParseAttestationObject(ccr.Response.AttestationObject)
	if err != nil {
		return nil, ErrVerificationFailed
	}
	if err := att.AuthData.VerifyRPIDHash(s.config.RPID); err != nil {
		return nil, ErrRPIDMismatch
	}
	if !att.AuthData.Flags.UserPresent() {
		return nil, ErrUserVerification
	}
	if !att.AuthData.Flags.UserVerified() {
		return nil, ErrUserVerification
	}
	if att.AuthData.AttestedCredential == nil {
		return nil, protocol.ErrNoAttestedCredential
	}

	attested := att.AuthData.AttestedCredential

	// Reject keys the verifier cannot use before they reach the store.
	if _, err := cose.ParseKey(attested.PublicKeyCOSE); err != nil {
		return nil, ErrVerificationFailed
	}

	// Credential IDs are globally unique. A hit for any user, not just
	// this one, rejects the registration.
	if _, err := s.credentials.LookupByID(ctx, attested.CredentialID); err == nil {
		return nil, ErrDuplicateCredential
	} else if !IsCredentialNotFound(err) {
		return nil, err
	}

	cred := &StoredCredential{
		ID:             attested.CredentialID,
		Username:       pending.Username,
		UserHandle:     pending.Account.UserHandle,
		PublicKeyCOSE:  attested.PublicKeyCOSE,
		SignatureCount: att.AuthData.SignCount,
		CreatedAt:      s.now(),
	}
	if err := s.credentials.Insert(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// StartAuthentication begins an authentication ceremony. With a
// username the options carry an allowCredentials list; with an empty
// username the ceremony is discoverable and the pending state is keyed
// by the challenge instead.
func (s *Service) StartAuthentication(ctx context.Context, username string) (*protocol.CredentialRequestOptions, error) {
	const op = "webauthn.start_authentication"

	challenge, err := protocol.CreateChallenge(s.config.ChallengeLength)
	if err != nil {
		return nil, WrapError(op, err)
	}

	options := &protocol.CredentialRequestOptions{
		Challenge:        challenge,
		Timeout:          int(s.config.Timeout.Milliseconds()),
		RPID:             s.config.RPID,
		UserVerification: s.config.UserVerification,
	}

	key := username
	if username != "" {
		creds, err := s.credentials.CredentialsForUser(ctx, username)
		if err != nil {
			return nil, WrapError(op, err)
		}
		if len(creds) == 0 {
			return nil, NewError(op, ErrNoCredentials)
		}
		allow := make([]protocol.CredentialDescriptor, 0, len(creds))
		for _, cred := range creds {
			allow = append(allow, cred.Descriptor())
		}
		options.AllowCredentials = allow
	} else {
		// Discoverable flow: no username to key on, so the challenge
		// itself identifies the pending ceremony at finish time.
		key = challenge.String()
	}

	pending := &PendingAssertion{
		Key:       key,
		Username:  username,
		Options:   options,
		CreatedAt: s.now(),
	}
	if err := s.sessions.PutAssertion(ctx, key, pending); err != nil {
		return nil, WrapError(op, err)
	}

	s.logger.Debug("authentication started", "username", username, "discoverable", username == "")
	return options, nil
}

// FinishAuthentication completes an authentication ceremony. The
// username may be empty for the discoverable flow, in which case the
// pending ceremony is located through the challenge echoed in client
// data and the account is resolved from the asserted user handle.
func (s *Service) FinishAuthentication(ctx context.Context, username string, response []byte) (*AuthenticationResult, error) {
	const op = "webauthn.finish_authentication"

	result, err := s.finishAuthentication(ctx, username, response)
	if err != nil {
		if IsClonedAuthenticator(err) {
			s.metrics.CloneDetected()
			s.logger.Warn("possible cloned authenticator", "username", username)
		}
		s.metrics.AuthenticationFailed(err)
		return nil, WrapError(op, err)
	}
	s.metrics.AuthenticationCompleted()
	s.logger.Info("authentication succeeded", "username", result.Username)
	return result, nil
}

func (s *Service) finishAuthentication(ctx context.Context, username string, response []byte) (*AuthenticationResult, error) {
	car, err := protocol.ParseAssertionResponse(response)
	if err != nil {
		return nil, NewError("parse", ErrInvalidRequest)
	}

	clientData, err := protocol.ParseClientData(car.Response.ClientDataJSON)
	if err != nil {
		return nil, ErrClientDataMismatch
	}

	key := username
	if key == "" {
		key = clientData.Challenge
	}
	pending, err := s.sessions.TakeAssertion(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := clientData.Verify(
		protocol.CeremonyAssert,
		pending.Options.Challenge,
		s.config.OriginAllowed); err != nil {
		return nil, ErrClientDataMismatch
	}

	authData, err := protocol.ParseAuthenticatorData(car.Response.AuthenticatorData)
	if err != nil {
		return nil, ErrVerificationFailed
	}
	if err := authData.VerifyRPIDHash(s.config.RPID); err != nil {
		return nil, ErrRPIDMismatch
	}
	if !authData.Flags.UserPresent() {
		return nil, ErrUserVerification
	}
	if s.config.UserVerification == protocol.VerificationRequired && !authData.Flags.UserVerified() {
		return nil, ErrUserVerification
	}

	cred, err := s.resolveCredential(ctx, pending, car)
	if err != nil {
		return nil, err
	}

	// The signed message is authenticatorData || SHA-256(clientDataJSON).
	clientDataHash := sha256.Sum256(car.Response.ClientDataJSON)
	message := make([]byte, 0, len(car.Response.AuthenticatorData)+len(clientDataHash))
	message = append(message, car.Response.AuthenticatorData...)
	message = append(message, clientDataHash[:]...)

	if err := cose.Verify(cred.PublicKeyCOSE, message, car.Response.Signature); err != nil {
		return nil, ErrVerificationFailed
	}

	// A counter that fails to advance past the stored value indicates
	// a cloned authenticator. Authenticators without counters report
	// zero on both sides and are exempt.
	if cred.SignatureCount > 0 && authData.SignCount > 0 && authData.SignCount <= cred.SignatureCount {
		return nil, ErrClonedAuthenticator
	}

	// Conditional on the count this ceremony verified against, so two
	// concurrent assertions presenting the same cloned counter cannot
	// both succeed.
	if err := s.credentials.UpdateCounter(ctx, cred.ID, cred.SignatureCount, authData.SignCount, s.now()); err != nil {
		return nil, err
	}

	result := &AuthenticationResult{
		Username:       cred.Username,
		SignatureCount: authData.SignCount,
	}
	if s.issuer != nil {
		token, err := s.issuer.IssueToken(ctx, cred.Username)
		if err != nil {
			return nil, err
		}
		result.Token = token
	}
	return result, nil
}

// resolveCredential locates the stored credential an assertion claims,
// enforcing allow-list membership and ownership.
func (s *Service) resolveCredential(ctx context.Context, pending *PendingAssertion, car *protocol.CredentialAssertionResponse) (*StoredCredential, error) {
	credentialID := []byte(car.RawID)
	if len(credentialID) == 0 {
		return nil, ErrInvalidRequest
	}

	if allow := pending.Options.AllowCredentials; len(allow) > 0 {
		allowed := false
		for _, desc := range allow {
			if protocol.URLEncodedBase64(credentialID).String() == desc.ID.String() {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, ErrCredentialNotFound
		}
	}

	cred, err := s.credentials.LookupByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	// A credential that exists but belongs to someone else is an
	// ownership violation, not a missing credential.
	if userHandle := car.Response.UserHandle; len(userHandle) > 0 && !bytes.Equal(cred.UserHandle, userHandle) {
		return nil, ErrCredentialOwnerMismatch
	}
	if pending.Username != "" && cred.Username != pending.Username {
		return nil, ErrCredentialOwnerMismatch
	}
	return cred, nil
}

// HasCredentials reports whether a user has any registered credentials
// and how many.
func (s *Service) HasCredentials(ctx context.Context, username string) (bool, int, error) {
	creds, err := s.credentials.CredentialsForUser(ctx, username)
	if err != nil {
		return false, 0, WrapError("webauthn.has_credentials", err)
	}
	return len(creds) > 0, len(creds), nil
}

// Credentials lists a user's registered credentials.
func (s *Service) Credentials(ctx context.Context, username string) ([]*StoredCredential, error) {
	creds, err := s.credentials.CredentialsForUser(ctx, username)
	if err != nil {
		return nil, WrapError("webauthn.credentials", err)
	}
	return creds, nil
}

// DeleteCredential removes one credential owned by username. Returns
// ErrCredentialNotFound when the credential does not exist or belongs
// to someone else.
func (s *Service) DeleteCredential(ctx context.Context, username string, credentialID []byte) error {
	const op = "webauthn.delete_credential"

	removed, err := s.credentials.Delete(ctx, username, credentialID)
	if err != nil {
		return WrapError(op, err)
	}
	if !removed {
		return NewError(op, ErrCredentialNotFound)
	}
	s.logger.Info("credential deleted",
		"username", username,
		"credential_id", protocol.URLEncodedBase64(credentialID).String())
	return nil
}

// DeleteAllCredentials removes every credential owned by username and
// returns how many were removed.
func (s *Service) DeleteAllCredentials(ctx context.Context, username string) (int, error) {
	const op = "webauthn.delete_all_credentials"

	deleted, err := s.credentials.DeleteAll(ctx, username)
	if err != nil {
		return 0, WrapError(op, err)
	}
	s.logger.Info("credentials deleted", "username", username, "count", deleted)
	return deleted, nil
}
