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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jeremyhahn/go-passkey/pkg/webauthn"
)

// pgUniqueViolation is the SQLSTATE code for unique constraint errors.
const pgUniqueViolation = "23505"

// Store is a PostgreSQL-backed implementation of both
// webauthn.CredentialStore and webauthn.UserDirectory. Credentials live
// in webauthn_credentials; the account directory lives in accounts.
type Store struct {
	db *sql.DB
}

var (
	_ webauthn.CredentialStore = (*Store)(nil)
	_ webauthn.UserDirectory   = (*Store)(nil)
)

// Open connects to PostgreSQL, verifies the connection and applies
// pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, webauthn.WrapError("postgres.open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, webauthn.NewError("postgres.open", webauthn.ErrStoreUnavailable)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle without running
// migrations.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, cred *webauthn.StoredCredential) error {
	const op = "postgres.insert"

	var lastUsed *time.Time
	if !cred.LastUsedAt.IsZero() {
		lastUsed = &cred.LastUsedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webauthn_credentials
			(credential_id, username, user_handle, public_key_cose, signature_count, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cred.ID, cred.Username, cred.UserHandle, cred.PublicKeyCOSE,
		cred.SignatureCount, cred.CreatedAt, lastUsed)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return webauthn.NewError(op, webauthn.ErrDuplicateCredential)
		}
		return storeError(op, err)
	}
	return nil
}

const credentialColumns = `
	credential_id, username, user_handle, public_key_cose,
	signature_count, created_at, last_used_at`

func scanCredential(row interface{ Scan(...any) error }) (*webauthn.StoredCredential, error) {
	var cred webauthn.StoredCredential
	var lastUsed sql.NullTime
	err := row.Scan(
		&cred.ID, &cred.Username, &cred.UserHandle, &cred.PublicKeyCOSE,
		&cred.SignatureCount, &cred.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		cred.LastUsedAt = lastUsed.Time
	}
	return &cred, nil
}

func (s *Store) Lookup(ctx context.Context, credentialID, userHandle []byte) (*webauthn.StoredCredential, error) {
	const op = "postgres.lookup"

	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM webauthn_credentials
		WHERE credential_id = $1 AND user_handle = $2`,
		credentialID, userHandle)

	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, webauthn.NewError(op, webauthn.ErrCredentialNotFound)
	}
	if err != nil {
		return nil, storeError(op, err)
	}
	return cred, nil
}

func (s *Store) LookupByID(ctx context.Context, credentialID []byte) (*webauthn.StoredCredential, error) {
	const op = "postgres.lookup_by_id"

	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM webauthn_credentials
		WHERE credential_id = $1`,
		credentialID)

	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, webauthn.NewError(op, webauthn.ErrCredentialNotFound)
	}
	if err != nil {
		return nil, storeError(op, err)
	}
	return cred, nil
}

func (s *Store) CredentialsForUser(ctx context.Context, username string) ([]*webauthn.StoredCredential, error) {
	const op = "postgres.credentials_for_user"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+credentialColumns+`
		FROM webauthn_credentials
		WHERE username = $1
		ORDER BY created_at`,
		username)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	creds := make([]*webauthn.StoredCredential, 0)
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, storeError(op, err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return creds, nil
}

func (s *Store) UserHandleForUsername(ctx context.Context, username string) ([]byte, error) {
	const op = "postgres.user_handle_for_username"

	var handle []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT user_handle
		FROM webauthn_credentials
		WHERE username = $1
		LIMIT 1`,
		username).Scan(&handle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, webauthn.NewError(op, webauthn.ErrUserNotFound)
	}
	if err != nil {
		return nil, storeError(op, err)
	}
	return handle, nil
}

func (s *Store) UsernameForUserHandle(ctx context.Context, userHandle []byte) (string, error) {
	const op = "postgres.username_for_user_handle"

	var username string
	err := s.db.QueryRowContext(ctx, `
		SELECT username
		FROM webauthn_credentials
		WHERE user_handle = $1
		LIMIT 1`,
		userHandle).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", webauthn.NewError(op, webauthn.ErrUserNotFound)
	}
	if err != nil {
		return "", storeError(op, err)
	}
	return username, nil
}

func (s *Store) UpdateCounter(ctx context.Context, credentialID []byte, previousCount, signCount uint32, usedAt time.Time) error {
	const op = "postgres.update_counter"

	// The signature_count predicate makes the write a compare-and-swap:
	// concurrent authentications racing on the same credential cannot
	// both consume the same counter value.
	result, err := s.db.ExecContext(ctx, `
		UPDATE webauthn_credentials
		SET signature_count = $2, last_used_at = $3
		WHERE credential_id = $1 AND signature_count = $4`,
		credentialID, signCount, usedAt, previousCount)
	if err != nil {
		return storeError(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeError(op, err)
	}
	if affected == 0 {
		var exists bool
		err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM webauthn_credentials WHERE credential_id = $1
			)`, credentialID).Scan(&exists)
		if err != nil {
			return storeError(op, err)
		}
		if exists {
			return webauthn.NewError(op, webauthn.ErrClonedAuthenticator)
		}
		return webauthn.NewError(op, webauthn.ErrCredentialNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, username string, credentialID []byte) (bool, error) {
	const op = "postgres.delete"

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM webauthn_credentials
		WHERE username = $1 AND credential_id = $2`,
		username, credentialID)
	if err != nil {
		return false, storeError(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storeError(op, err)
	}
	return affected > 0, nil
}

func (s *Store) DeleteAll(ctx context.Context, username string) (int, error) {
	const op = "postgres.delete_all"

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM webauthn_credentials
		WHERE username = $1`,
		username)
	if err != nil {
		return 0, storeError(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storeError(op, err)
	}
	return int(affected), nil
}

// UserIDForLogin implements webauthn.UserDirectory against the accounts
// table.
func (s *Store) UserIDForLogin(ctx context.Context, login string) (string, error) {
	const op = "postgres.user_id_for_login"

	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id::text FROM accounts WHERE username = $1`,
		login).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", webauthn.NewError(op, webauthn.ErrUserNotFound)
	}
	if err != nil {
		return "", storeError(op, err)
	}
	return id, nil
}

// DisplayNameForLogin implements webauthn.UserDirectory against the
// accounts table, falling back to the login itself.
func (s *Store) DisplayNameForLogin(ctx context.Context, login string) (string, error) {
	const op = "postgres.display_name_for_login"

	var displayName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT display_name FROM accounts WHERE username = $1`,
		login).Scan(&displayName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", webauthn.NewError(op, webauthn.ErrUserNotFound)
	}
	if err != nil {
		return "", storeError(op, err)
	}
	if !displayName.Valid || displayName.String == "" {
		return login, nil
	}
	return displayName.String, nil
}

// LoginForUserID resolves an internal account id back to its login.
func (s *Store) LoginForUserID(ctx context.Context, id string) (string, error) {
	const op = "postgres.login_for_user_id"

	var login string
	err := s.db.QueryRowContext(ctx, `
		SELECT username FROM accounts WHERE id::text = $1`,
		id).Scan(&login)
	if errors.Is(err, sql.ErrNoRows) {
		return "", webauthn.NewError(op, webauthn.ErrUserNotFound)
	}
	if err != nil {
		return "", storeError(op, err)
	}
	return login, nil
}

// CreateAccount inserts a directory account, for provisioning and
// tests.
func (s *Store) CreateAccount(ctx context.Context, username, displayName string) error {
	const op = "postgres.create_account"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (username, display_name)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET display_name = EXCLUDED.display_name`,
		username, displayName)
	if err != nil {
		return storeError(op, err)
	}
	return nil
}

// storeError wraps driver failures as ErrStoreUnavailable so callers
// can distinguish infrastructure trouble from ceremony outcomes.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return webauthn.WrapError(op, err)
	}
	return webauthn.NewError(op, errors.Join(webauthn.ErrStoreUnavailable, err))
}
