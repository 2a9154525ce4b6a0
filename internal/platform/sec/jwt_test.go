// Copyright (c) 2026 Essenzia. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essenzia/essenzia/internal/platform/sec"
)

const testIssuer = "essenzia.shop"

/*
TestTokenService_RoundTrip verifies that a generated token carries the
identity claims back through verification.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service, err := sec.NewTokenService("super-secret-key", testIssuer, time.Hour)
	require.NoError(t, err)

	token, err := service.Generate("user-123", "user@example.com", "9998887777")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "9998887777", claims.Mobile)
	assert.Equal(t, testIssuer, claims.Issuer)
}

/*
TestTokenService_OmitsEmptyIdentifiers verifies mobile-only and email-only
accounts produce claims without the missing identifier.
*/
func TestTokenService_OmitsEmptyIdentifiers(t *testing.T) {
	service, err := sec.NewTokenService("super-secret-key", testIssuer, time.Hour)
	require.NoError(t, err)

	token, err := service.Generate("user-456", "", "9998887777")
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Email)
	assert.Equal(t, "9998887777", claims.Mobile)
}

/*
TestTokenService_RejectsExpiredToken verifies tokens past their TTL fail
verification.
*/
func TestTokenService_RejectsExpiredToken(t *testing.T) {
	service, err := sec.NewTokenService("super-secret-key", testIssuer, -time.Minute)
	require.NoError(t, err)

	token, err := service.Generate("user-123", "user@example.com", "")
	require.NoError(t, err)

	_, err = service.VerifyToken(token)
	assert.Error(t, err)
}

/*
TestTokenService_RejectsWrongSecret verifies a token signed with one secret
never verifies under another.
*/
func TestTokenService_RejectsWrongSecret(t *testing.T) {
	issuerService, err := sec.NewTokenService("secret-one", testIssuer, time.Hour)
	require.NoError(t, err)
	verifierService, err := sec.NewTokenService("secret-two", testIssuer, time.Hour)
	require.NoError(t, err)

	token, err := issuerService.Generate("user-123", "", "")
	require.NoError(t, err)

	_, err = verifierService.VerifyToken(token)
	assert.Error(t, err)
}

/*
TestTokenService_RejectsGarbage verifies malformed strings fail cleanly.
*/
func TestTokenService_RejectsGarbage(t *testing.T) {
	service, err := sec.NewTokenService("super-secret-key", testIssuer, time.Hour)
	require.NoError(t, err)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := service.VerifyToken(tokenString)
		assert.Error(t, err)
	}
}

/*
TestNewTokenService_RequiresSecret verifies the constructor refuses an empty
signing secret.
*/
func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := sec.NewTokenService("", testIssuer, time.Hour)
	assert.Error(t, err)
}
