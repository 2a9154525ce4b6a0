// Copyright (c) 2026 Essenzia. All rights reserved.

package auth

import (
	"context"
)

// IdentityRepository defines the data access contract for customer accounts.
//
// # Review Process
//
// This interface is placed in a separate file from auth.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation for Essenzia is PostgreSQL (store_postgres.go).
type IdentityRepository interface {
	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id string) (*Identity, error)

	// FindByEmail returns the account with the given email.
	//
	// Returns [apperr.NotFound] if no account claims this email.
	FindByEmail(ctx context.Context, email string) (*Identity, error)

	// FindByMobile returns the account with the given mobile number.
	//
	// Returns [apperr.NotFound] if no account claims this number.
	FindByMobile(ctx context.Context, mobile string) (*Identity, error)

	// FindByTarget returns the account whose email or mobile equals target.
	//
	// Returns [apperr.NotFound] if neither identifier matches.
	FindByTarget(ctx context.Context, target string) (*Identity, error)

	// Create persists a brand-new account to the storage.
	//
	// Returns [apperr.Conflict] if a unique constraint (email/mobile) fails.
	Create(ctx context.Context, identity *Identity) error

	// UpdatePassword replaces only the account's password hash.
	// Kept separate from any profile update path so unrelated writes can
	// never clear or overwrite a credential by accident.
	UpdatePassword(ctx context.Context, identityID, newHash string) error
}

// OneTimeCodeRepository defines the data access contract for issued codes.
type OneTimeCodeRepository interface {
	// Create persists a freshly issued code record.
	Create(ctx context.Context, code *OneTimeCode) error

	// Claim atomically consumes the newest unused, unexpired code matching
	// (target, code, purpose). The used flag flips inside the same statement
	// that selects the row, so two concurrent claims of one code cannot both
	// succeed.
	//
	// Returns [apperr.Unauthorized] with a generic message when nothing
	// matches. Wrong code, expired code, and already-used code are
	// indistinguishable from the outside.
	Claim(ctx context.Context, target, code string, purpose Purpose) (*OneTimeCode, error)
}

// CartCreator is the storefront collaborator invoked when an account is born.
// Account creation and cart creation always travel together; the storefront
// assumes every identity owns exactly one cart.
type CartCreator interface {
	// CreateEmpty provisions an empty cart owned by the identity.
	CreateEmpty(ctx context.Context, ownerID string) error
}
