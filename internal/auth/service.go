// Copyright (c) 2026 Essenzia. All rights reserved.

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/essenzia/essenzia/internal/notify"
	"github.com/essenzia/essenzia/internal/platform/apperr"
	"github.com/essenzia/essenzia/internal/platform/sec"
	"github.com/essenzia/essenzia/pkg/uuid"
)

// deliveryTimeout bounds the asynchronous gateway call so a stalled SMTP or
// SMS vendor cannot pin goroutines indefinitely.
const deliveryTimeout = 15 * time.Second

// autoProvisionName is the display name assigned to accounts created through
// OTP verification, before the customer has told us anything about themselves.
const autoProvisionName = "Customer"

// TokenProvider defines the contract for generating session tokens.
type TokenProvider interface {
	// Generate creates a signed token string carrying the account's
	// identifier claims.
	Generate(userID, email, mobile string) (string, error)
}

// Service implements the customer authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, code
// claiming, or login logic must be reviewed by the security team.
type Service struct {
	identityRepository IdentityRepository
	codeRepository     OneTimeCodeRepository
	cartCreator        CartCreator
	gateway            notify.Gateway
	tokenProvider      TokenProvider
	log                *slog.Logger
}

// NewService constructs a [Service] with its collaborators.
func NewService(
	identityRepo IdentityRepository,
	codeRepo OneTimeCodeRepository,
	cartCreator CartCreator,
	gateway notify.Gateway,
	tokenProv TokenProvider,
	log *slog.Logger,
) *Service {
	return &Service{
		identityRepository: identityRepo,
		codeRepository:     codeRepo,
		cartCreator:        cartCreator,
		gateway:            gateway,
		tokenProvider:      tokenProv,
		log:                log,
	}
}

// AuthSession bundles a freshly issued token with the account it speaks for.
type AuthSession struct {
	Token    string
	Identity *Identity
}

// RegisterInput holds the data required to enroll a new customer.
type RegisterInput struct {
	Name     string
	Email    string
	Mobile   string
	Password string
}

// Register validates, hashes, and persists a brand new customer account.
//
// # Returns
//   - A session token plus the new [*Identity].
//   - [apperr.Conflict] if the email or mobile is already claimed.
//
// # Business Rules
//   - At least one of email/mobile must be set (enforced at the boundary).
//   - Every new account gets an empty cart.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*AuthSession, error) {
	// ── 1. Uniqueness Checks ──────────────────────────────────────────────

	// Pre-check both identifiers for a client-safe Conflict message. The
	// unique indexes remain the real gate under concurrent registrations.
	if input.Email != "" {
		if _, err := service.identityRepository.FindByEmail(ctx, input.Email); err == nil {
			return nil, apperr.Conflict("Email is already registered")
		}
	}
	if input.Mobile != "" {
		if _, err := service.identityRepository.FindByMobile(ctx, input.Mobile); err == nil {
			return nil, apperr.Conflict("Mobile number is already registered")
		}
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Entity Construction ────────────────────────────────────────────

	identity := &Identity{
		ID:           uuid.New(), // Time-sortable ID to prevent PG index fragmentation.
		Name:         input.Name,
		Email:        input.Email,
		Mobile:       input.Mobile,
		PasswordHash: hashedPassword,
	}

	// ── 4. Persistence ────────────────────────────────────────────────────

	if err := service.identityRepository.Create(ctx, identity); err != nil {
		return nil, err
	}

	if err := service.cartCreator.CreateEmpty(ctx, identity.ID); err != nil {
		return nil, fmt.Errorf("auth_service_cart_creation_failed: %w", err)
	}

	// ── 5. Token Issuance ─────────────────────────────────────────────────

	return service.newSession(identity)
}

// LoginInput defines credentials for a password authentication attempt.
// Exactly one of Email/Mobile is expected to be set.
type LoginInput struct {
	Email    string
	Mobile   string
	Password string
}

// Login validates password credentials and issues a session token.
//
// # Returns
//   - A session token plus the account's [*Identity].
//   - [apperr.Unauthorized] if credentials do not match. The message never
//     distinguishes "no such account" from "wrong password" to prevent
//     identity enumeration.
func (service *Service) Login(ctx context.Context, input LoginInput) (*AuthSession, error) {
	var identity *Identity
	var err error

	// ── 1. Fetch Account ──────────────────────────────────────────────────

	if input.Email != "" {
		identity, err = service.identityRepository.FindByEmail(ctx, input.Email)
	} else {
		identity, err = service.identityRepository.FindByMobile(ctx, input.Mobile)
	}
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// ── 2. Security Verification ──────────────────────────────────────────

	// Accounts auto-provisioned via OTP carry no hash yet; bcrypt rejects
	// the empty hash, so they fall into the same generic failure.
	if !sec.CheckPasswordHash(input.Password, identity.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// ── 3. Token Issuance ─────────────────────────────────────────────────

	return service.newSession(identity)
}

// SendCode issues a one-time code for the target and dispatches delivery.
//
// # Contract
//
// The response is intentionally optimistic: once the code record is
// persisted the operation has succeeded. Delivery runs asynchronously with a
// bounded timeout and a failed send is logged as a warning, never surfaced.
func (service *Service) SendCode(ctx context.Context, target string, purpose Purpose) error {
	// ── 1. Classification ─────────────────────────────────────────────────

	kind := ClassifyTarget(target)
	if kind == TargetUnknown {
		return apperr.ValidationError("Target must be a valid email address or mobile number")
	}

	// ── 2. Code Generation ────────────────────────────────────────────────

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("auth_service_code_generation_failed: %w", err)
	}

	record := &OneTimeCode{
		ID:        uuid.New(),
		Target:    target,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(CodeTTL),
	}

	if err := service.codeRepository.Create(ctx, record); err != nil {
		return err
	}

	// ── 3. Asynchronous Delivery ──────────────────────────────────────────

	channel := notify.ChannelEmail
	if kind == TargetMobile {
		channel = notify.ChannelSMS
	}

	// Detached from the request context: issuance already succeeded and the
	// response must not wait on SMTP or the SMS vendor.
	go func() {
		deliveryCtx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if err := service.gateway.Deliver(deliveryCtx, channel, target, code); err != nil {
			service.log.Warn("otp_delivery_failed",
				slog.String("channel", string(channel)),
				slog.String("target", target),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

// VerifyCode consumes a one-time code and establishes a session.
//
// # Flow
//  1. Atomically claim the newest valid (target, code, purpose) record.
//  2. Resolve the account by target (email or mobile column).
//  3. Auto-provision a minimal passwordless account when none exists yet,
//     cart included. Proving control of the target is the enrollment.
//
// # Returns
//   - A session token plus the (possibly brand new) [*Identity].
//   - [apperr.Unauthorized] with one generic message for every claim miss.
func (service *Service) VerifyCode(ctx context.Context, target, code string, purpose Purpose) (*AuthSession, error) {
	// ── 1. Claim ──────────────────────────────────────────────────────────

	if _, err := service.codeRepository.Claim(ctx, target, code, purpose); err != nil {
		return nil, err
	}

	// ── 2. Resolve Account ────────────────────────────────────────────────

	identity, err := service.identityRepository.FindByTarget(ctx, target)
	if err != nil {
		if !apperr.IsAppError(err) {
			return nil, fmt.Errorf("auth_service_verify_lookup_failed: %w", err)
		}

		// ── 3. Auto-Provision ─────────────────────────────────────────────

		identity, err = service.provisionIdentity(ctx, target)
		if err != nil {
			return nil, err
		}
	}

	// ── 4. Token Issuance ─────────────────────────────────────────────────

	return service.newSession(identity)
}

// ResetPassword consumes a reset-purpose code and replaces the account password.
//
// # Returns
//   - [apperr.Unauthorized] for any claim miss, same message as verification.
//   - [apperr.NotFound] when no account exists for the target. Unlike
//     verification, reset never auto-provisions; there is nothing to reset.
func (service *Service) ResetPassword(ctx context.Context, target, code, newPassword string) error {
	// ── 1. Claim (reset scope) ────────────────────────────────────────────

	if _, err := service.codeRepository.Claim(ctx, target, code, PurposeReset); err != nil {
		return err
	}

	// ── 2. Resolve Account ────────────────────────────────────────────────

	identity, err := service.identityRepository.FindByTarget(ctx, target)
	if err != nil {
		if apperr.IsAppError(err) {
			return apperr.NotFound("Account")
		}
		return fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}

	// ── 3. Replace Credential ─────────────────────────────────────────────

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.identityRepository.UpdatePassword(ctx, identity.ID, hashedPassword); err != nil {
		return err
	}

	return nil
}

// Profile returns the public view of the account with the given ID.
func (service *Service) Profile(ctx context.Context, identityID string) (*Identity, error) {
	return service.identityRepository.FindByID(ctx, identityID)
}

// provisionIdentity creates a minimal passwordless account for a verified
// target, placing the target into whichever identifier column matched its
// classification.
func (service *Service) provisionIdentity(ctx context.Context, target string) (*Identity, error) {
	identity := &Identity{
		ID:   uuid.New(),
		Name: autoProvisionName,
	}

	if ClassifyTarget(target) == TargetEmail {
		identity.Email = target
	} else {
		identity.Mobile = target
	}

	if err := service.identityRepository.Create(ctx, identity); err != nil {
		return nil, err
	}

	if err := service.cartCreator.CreateEmpty(ctx, identity.ID); err != nil {
		return nil, fmt.Errorf("auth_service_cart_creation_failed: %w", err)
	}

	return identity, nil
}

// newSession signs a token for the identity and bundles both into a session.
func (service *Service) newSession(identity *Identity) (*AuthSession, error) {
	token, err := service.tokenProvider.Generate(identity.ID, identity.Email, identity.Mobile)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &AuthSession{Token: token, Identity: identity}, nil
}

// generateCode draws a 6-digit code uniformly from [100000, 999999].
func generateCode() (string, error) {
	offset, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", offset.Int64()+100000), nil
}
