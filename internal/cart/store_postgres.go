// Copyright (c) 2026 Essenzia. All rights reserved.

package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/essenzia/essenzia/internal/platform/apperr"
	"github.com/essenzia/essenzia/pkg/uuid"
)

// PostgresStore implements [Store] using pgx. Items live in a JSONB column;
// the auth flow never inspects them, so a document shape beats a join table
// here.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL implementation of [Store].
func NewStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// CreateEmpty provisions a cart with an empty item list for the owner.
func (store *PostgresStore) CreateEmpty(ctx context.Context, ownerID string) error {
	const query = `
		INSERT INTO store.cart (id, ownerid, items, updatedat)
		VALUES ($1, $2, '[]'::jsonb, $3)`

	_, err := store.pool.Exec(ctx, query, uuid.New(), ownerID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_cart_store_create_failed: %w", err)
	}

	return nil
}

// FindByOwner returns the cart belonging to the identity.
func (store *PostgresStore) FindByOwner(ctx context.Context, ownerID string) (*Cart, error) {
	const query = `
		SELECT id, ownerid, items, updatedat
		FROM store.cart
		WHERE ownerid = $1`

	record := &Cart{}
	err := store.pool.QueryRow(ctx, query, ownerID).Scan(
		&record.ID,
		&record.OwnerID,
		&record.Items,
		&record.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Cart")
		}
		return nil, fmt.Errorf("postgres_cart_store_find_by_owner_failed: %w", err)
	}

	return record, nil
}
