// Copyright (c) 2026 Essenzia. All rights reserved.

// Package cart holds the storefront cart collaborator consumed by account
// creation. Line-item mutation lives with the storefront API, not here; the
// auth flow only ever provisions an empty cart and reads it back.
package cart

import (
	"context"
	"time"
)

// Item is a single product line inside a cart.
type Item struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Cart is a customer's shopping cart. Every identity owns exactly one,
// created in the same flow that creates the account.
type Cart struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the cart persistence contract used by the auth flow.
type Store interface {
	// CreateEmpty provisions a cart with no items for the owner.
	CreateEmpty(ctx context.Context, ownerID string) error

	// FindByOwner returns the owner's cart.
	//
	// Returns [apperr.NotFound] if the owner has no cart.
	FindByOwner(ctx context.Context, ownerID string) (*Cart, error)
}
