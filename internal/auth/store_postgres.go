// Copyright (c) 2026 Essenzia. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/essenzia/essenzia/internal/platform/apperr"
)

// pgUniqueViolation is the SQLSTATE for unique constraint failures.
const pgUniqueViolation = "23505"

// PostgresIdentityRepository implements [IdentityRepository] using pgx.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
//
// # Nullable Identifiers
//
// Email and mobile are nullable columns carrying partial unique indexes.
// Inserts pass NULLIF($n, '') so an absent identifier never occupies a
// uniqueness slot; scans pass COALESCE(column, '') so the entity stays a
// plain string either way.
type PostgresIdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository creates a new PostgreSQL implementation of [IdentityRepository].
func NewIdentityRepository(pool *pgxpool.Pool) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{pool: pool}
}

const identityColumns = `
	id, name, COALESCE(email, ''), COALESCE(mobile, ''),
	COALESCE(passwordhash, ''), createdat, updatedat`

// scanIdentity reads one identity row in column order.
func scanIdentity(row pgx.Row) (*Identity, error) {
	identity := &Identity{}
	err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.Mobile,
		&identity.PasswordHash,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// Create persists a new account record into the users.identity table.
func (repository *PostgresIdentityRepository) Create(ctx context.Context, identity *Identity) error {
	const query = `
		INSERT INTO users.identity (
			id, name, email, mobile, passwordhash, createdat, updatedat
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)`

	now := time.Now()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	identity.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		identity.ID,
		identity.Name,
		identity.Email,
		identity.Mobile,
		identity.PasswordHash,
		identity.CreatedAt,
		identity.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.Conflict("An account with this email or mobile already exists")
		}
		return fmt.Errorf("postgres_identity_repo_create_failed: %w", err)
	}

	return nil
}

// FindByID retrieves an account record by its unique ID.
func (repository *PostgresIdentityRepository) FindByID(ctx context.Context, id string) (*Identity, error) {
	const query = `
		SELECT ` + identityColumns + `
		FROM users.identity
		WHERE id = $1`

	identity, err := scanIdentity(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_identity_repo_find_by_id_failed: %w", err)
	}

	return identity, nil
}

// FindByEmail retrieves an account record by its unique email address.
func (repository *PostgresIdentityRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	const query = `
		SELECT ` + identityColumns + `
		FROM users.identity
		WHERE email = $1`

	identity, err := scanIdentity(repository.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account with this email")
		}
		return nil, fmt.Errorf("postgres_identity_repo_find_by_email_failed: %w", err)
	}

	return identity, nil
}

// FindByMobile retrieves an account record by its unique mobile number.
func (repository *PostgresIdentityRepository) FindByMobile(ctx context.Context, mobile string) (*Identity, error) {
	const query = `
		SELECT ` + identityColumns + `
		FROM users.identity
		WHERE mobile = $1`

	identity, err := scanIdentity(repository.pool.QueryRow(ctx, query, mobile))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account with this mobile number")
		}
		return nil, fmt.Errorf("postgres_identity_repo_find_by_mobile_failed: %w", err)
	}

	return identity, nil
}

// FindByTarget retrieves the account whose email or mobile equals target.
// Both columns are uniquely indexed, so at most one row can match.
func (repository *PostgresIdentityRepository) FindByTarget(ctx context.Context, target string) (*Identity, error) {
	const query = `
		SELECT ` + identityColumns + `
		FROM users.identity
		WHERE email = $1 OR mobile = $1`

	identity, err := scanIdentity(repository.pool.QueryRow(ctx, query, target))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account for this target")
		}
		return nil, fmt.Errorf("postgres_identity_repo_find_by_target_failed: %w", err)
	}

	return identity, nil
}

// UpdatePassword updates only the password hash for a specific account.
func (repository *PostgresIdentityRepository) UpdatePassword(ctx context.Context, identityID, newHash string) error {
	const query = `
		UPDATE users.identity
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, identityID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_identity_repo_update_password_failed: %w", err)
	}

	return nil
}

// ── One-Time-Code Repository ─────────────────────────────────────────────────

// PostgresOneTimeCodeRepository implements [OneTimeCodeRepository] using pgx.
type PostgresOneTimeCodeRepository struct {
	pool *pgxpool.Pool
}

// NewOneTimeCodeRepository creates a new PostgreSQL implementation of [OneTimeCodeRepository].
func NewOneTimeCodeRepository(pool *pgxpool.Pool) *PostgresOneTimeCodeRepository {
	return &PostgresOneTimeCodeRepository{pool: pool}
}

// Create persists a new code record into the users.onetimecode table.
func (repository *PostgresOneTimeCodeRepository) Create(ctx context.Context, code *OneTimeCode) error {
	const query = `
		INSERT INTO users.onetimecode (
			id, target, code, purpose, expiresat, used, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(ctx, query,
		code.ID,
		code.Target,
		code.Code,
		code.Purpose,
		code.ExpiresAt,
		code.Used,
		code.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_code_repo_create_failed: %w", err)
	}

	return nil
}

// Claim consumes the newest matching valid code in one conditional update.
//
// # Concurrency
//
// The inner SELECT picks the candidate row and the outer WHERE re-checks
// used = FALSE. Under read committed, a second concurrent claim blocks on
// the row lock, re-evaluates the predicate against the updated row, and
// matches nothing. Exactly one caller wins.
func (repository *PostgresOneTimeCodeRepository) Claim(ctx context.Context, target, code string, purpose Purpose) (*OneTimeCode, error) {
	const query = `
		UPDATE users.onetimecode
		SET used = TRUE
		WHERE used = FALSE AND id = (
			SELECT id
			FROM users.onetimecode
			WHERE target = $1
			  AND code = $2
			  AND purpose = $3
			  AND used = FALSE
			  AND expiresat > NOW()
			ORDER BY createdat DESC
			LIMIT 1
		)
		RETURNING id, target, code, purpose, expiresat, used, createdat`

	record := &OneTimeCode{}
	err := repository.pool.QueryRow(ctx, query, target, code, purpose).Scan(
		&record.ID,
		&record.Target,
		&record.Code,
		&record.Purpose,
		&record.ExpiresAt,
		&record.Used,
		&record.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Wrong, expired and already-used codes share one answer.
			return nil, apperr.Unauthorized("Invalid or expired code")
		}
		return nil, fmt.Errorf("postgres_code_repo_claim_failed: %w", err)
	}

	return record, nil
}
