// Copyright (c) 2026 Essenzia. All rights reserved.

// Package auth implements the customer identity and one-time-code domain.
//
// # Architecture
//
// Entities in this package represent the "Truth" of the system.
// They have no dependencies on outer layers (like databases, APIs, or libraries).
// This makes the core logic highly testable and resilient to technology changes.
package auth

import (
	"time"
)

// Purpose scopes a one-time code to the flow it was issued for.
//
// # Rules
//
// A code issued for one purpose never validates in another flow. A login code
// cannot reset a password and a reset code cannot establish a session.
type Purpose string

const (
	PurposeLogin Purpose = "login" // Passwordless sign-in codes.
	PurposeReset Purpose = "reset" // Password recovery codes.
)

// Valid reports whether the purpose is one of the recognized flow tags.
func (p Purpose) Valid() bool {
	return p == PurposeLogin || p == PurposeReset
}

// CodeTTL is the fixed validity window of a one-time code.
const CodeTTL = 10 * time.Minute

// Identity represents a customer account of the Essenzia storefront.
//
// # Rules
//   - At least one of Email/Mobile is set at creation.
//   - Email and Mobile are each globally unique among records that set them.
//   - PasswordHash is generated via Bcrypt exclusively by the Service; it is
//     empty for accounts auto-provisioned through OTP verification until the
//     customer sets a password.
type Identity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Mobile       string    `json:"mobile,omitempty"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OneTimeCode represents a single issued OTP.
//
// # Lifecycle
//
// Created by issuance, flipped to used exactly once by a successful
// verification, and otherwise left untouched. Expiry is enforced at query
// time by comparing ExpiresAt against the clock; records are never evicted,
// the table is an append-only log bounded by the issuance rate ceiling.
type OneTimeCode struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"` // Email address or mobile number as submitted.
	Code      string    `json:"-"`      // Never serialized back to clients.
	Purpose   Purpose   `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code's validity window has elapsed at the given instant.
func (code *OneTimeCode) Expired(now time.Time) bool {
	return !code.ExpiresAt.After(now)
}
