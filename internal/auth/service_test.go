// Copyright (c) 2026 Essenzia. All rights reserved.

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essenzia/essenzia/internal/auth"
	"github.com/essenzia/essenzia/internal/notify"
	"github.com/essenzia/essenzia/internal/platform/apperr"
	"github.com/essenzia/essenzia/internal/platform/sec"
)

// ── In-Memory Fakes ──────────────────────────────────────────────────────────

type fakeIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]*auth.Identity
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{identities: make(map[string]*auth.Identity)}
}

func (repo *fakeIdentityRepo) FindByID(_ context.Context, id string) (*auth.Identity, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if identity, ok := repo.identities[id]; ok {
		return identity, nil
	}
	return nil, apperr.NotFound("Account")
}

func (repo *fakeIdentityRepo) FindByEmail(_ context.Context, email string) (*auth.Identity, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, identity := range repo.identities {
		if identity.Email != "" && identity.Email == email {
			return identity, nil
		}
	}
	return nil, apperr.NotFound("Account with this email")
}

func (repo *fakeIdentityRepo) FindByMobile(_ context.Context, mobile string) (*auth.Identity, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, identity := range repo.identities {
		if identity.Mobile != "" && identity.Mobile == mobile {
			return identity, nil
		}
	}
	return nil, apperr.NotFound("Account with this mobile number")
}

func (repo *fakeIdentityRepo) FindByTarget(_ context.Context, target string) (*auth.Identity, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, identity := range repo.identities {
		if (identity.Email != "" && identity.Email == target) ||
			(identity.Mobile != "" && identity.Mobile == target) {
			return identity, nil
		}
	}
	return nil, apperr.NotFound("Account for this target")
}

func (repo *fakeIdentityRepo) Create(_ context.Context, identity *auth.Identity) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.identities {
		if (identity.Email != "" && existing.Email == identity.Email) ||
			(identity.Mobile != "" && existing.Mobile == identity.Mobile) {
			return apperr.Conflict("An account with this email or mobile already exists")
		}
	}
	identity.CreatedAt = time.Now()
	identity.UpdatedAt = identity.CreatedAt
	repo.identities[identity.ID] = identity
	return nil
}

func (repo *fakeIdentityRepo) UpdatePassword(_ context.Context, identityID, newHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if identity, ok := repo.identities[identityID]; ok {
		identity.PasswordHash = newHash
	}
	return nil
}

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes []*auth.OneTimeCode
}

func (repo *fakeCodeRepo) Create(_ context.Context, code *auth.OneTimeCode) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	repo.codes = append(repo.codes, code)
	return nil
}

func (repo *fakeCodeRepo) Claim(_ context.Context, target, code string, purpose auth.Purpose) (*auth.OneTimeCode, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var newest *auth.OneTimeCode
	now := time.Now()
	for _, record := range repo.codes {
		if record.Target != target || record.Code != code || record.Purpose != purpose {
			continue
		}
		if record.Used || record.Expired(now) {
			continue
		}
		if newest == nil || record.CreatedAt.After(newest.CreatedAt) {
			newest = record
		}
	}

	if newest == nil {
		return nil, apperr.Unauthorized("Invalid or expired code")
	}

	newest.Used = true
	return newest, nil
}

// lastIssued returns the most recently created code for a target, so tests
// can read back what issuance generated.
func (repo *fakeCodeRepo) lastIssued(target string) *auth.OneTimeCode {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var newest *auth.OneTimeCode
	for _, record := range repo.codes {
		if record.Target != target {
			continue
		}
		if newest == nil || record.CreatedAt.After(newest.CreatedAt) {
			newest = record
		}
	}
	return newest
}

type fakeCartCreator struct {
	mu    sync.Mutex
	carts map[string]bool
}

func newFakeCartCreator() *fakeCartCreator {
	return &fakeCartCreator{carts: make(map[string]bool)}
}

func (creator *fakeCartCreator) CreateEmpty(_ context.Context, ownerID string) error {
	creator.mu.Lock()
	defer creator.mu.Unlock()
	creator.carts[ownerID] = true
	return nil
}

func (creator *fakeCartCreator) has(ownerID string) bool {
	creator.mu.Lock()
	defer creator.mu.Unlock()
	return creator.carts[ownerID]
}

// fakeGateway records deliveries and signals each one on a channel so tests
// can wait for the asynchronous send without sleeping.
type fakeGateway struct {
	delivered chan notify.Channel
	fail      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{delivered: make(chan notify.Channel, 8)}
}

func (gateway *fakeGateway) Deliver(_ context.Context, channel notify.Channel, _, _ string) error {
	gateway.delivered <- channel
	return gateway.fail
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type serviceFixture struct {
	service    *auth.Service
	identities *fakeIdentityRepo
	codes      *fakeCodeRepo
	carts      *fakeCartCreator
	gateway    *fakeGateway
	tokens     *sec.TokenService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	tokens, err := sec.NewTokenService("test-secret-0123456789", "essenzia.shop", 7*24*time.Hour)
	require.NoError(t, err)

	fixture := &serviceFixture{
		identities: newFakeIdentityRepo(),
		codes:      &fakeCodeRepo{},
		carts:      newFakeCartCreator(),
		gateway:    newFakeGateway(),
		tokens:     tokens,
	}
	fixture.service = auth.NewService(
		fixture.identities,
		fixture.codes,
		fixture.carts,
		fixture.gateway,
		tokens,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return fixture
}

// issueCode runs SendCode and reads back the generated 6-digit code.
func (fixture *serviceFixture) issueCode(t *testing.T, target string, purpose auth.Purpose) string {
	t.Helper()
	require.NoError(t, fixture.service.SendCode(context.Background(), target, purpose))
	record := fixture.codes.lastIssued(target)
	require.NotNil(t, record)
	require.Len(t, record.Code, 6)
	return record.Code
}

func (fixture *serviceFixture) awaitDelivery(t *testing.T) notify.Channel {
	t.Helper()
	select {
	case channel := <-fixture.gateway.delivered:
		return channel
	case <-time.After(2 * time.Second):
		t.Fatal("expected a gateway delivery")
		return ""
	}
}

// ── Registration ─────────────────────────────────────────────────────────────

/*
TestService_Register_CreatesCartAndToken asserts that every successful
registration leaves a cart behind and that the returned token decodes to the
new account's ID.
*/
func TestService_Register_CreatesCartAndToken(t *testing.T) {
	fixture := newServiceFixture(t)

	session, err := fixture.service.Register(context.Background(), auth.RegisterInput{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "pw123456",
	})
	require.NoError(t, err)
	require.NotNil(t, session.Identity)

	assert.True(t, fixture.carts.has(session.Identity.ID))
	assert.NotEqual(t, "pw123456", session.Identity.PasswordHash, "password must never be stored in plain text")

	claims, err := fixture.tokens.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

/*
TestService_Register_DuplicateEmail asserts that a second registration with
the same email conflicts regardless of differing mobile and password.
*/
func TestService_Register_DuplicateEmail(t *testing.T) {
	fixture := newServiceFixture(t)

	_, err := fixture.service.Register(context.Background(), auth.RegisterInput{
		Email:    "dup@example.com",
		Password: "first-pass",
	})
	require.NoError(t, err)

	_, err = fixture.service.Register(context.Background(), auth.RegisterInput{
		Email:    "dup@example.com",
		Mobile:   "9998887777",
		Password: "other-pass",
	})
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "CONFLICT", appError.Code)
}

// ── Password Login ───────────────────────────────────────────────────────────

/*
TestService_PasswordFlow_EndToEnd walks register, failed login, successful
login with the same credentials.
*/
func TestService_PasswordFlow_EndToEnd(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	session, err := fixture.service.Register(ctx, auth.RegisterInput{
		Email:    "a@x.com",
		Password: "pw123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", session.Identity.Email)

	_, err = fixture.service.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "wrong"})
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "UNAUTHORIZED", appError.Code)

	relogin, err := fixture.service.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.NotEmpty(t, relogin.Token)
	assert.Equal(t, session.Identity.ID, relogin.Identity.ID)
}

/*
TestService_Login_UnknownAndWrongPasswordLookAlike asserts the enumeration
guard: an unknown email and a wrong password produce the identical error.
*/
func TestService_Login_UnknownAndWrongPasswordLookAlike(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, auth.RegisterInput{
		Email:    "known@example.com",
		Password: "pw123456",
	})
	require.NoError(t, err)

	_, unknownErr := fixture.service.Login(ctx, auth.LoginInput{Email: "ghost@example.com", Password: "pw123456"})
	_, wrongErr := fixture.service.Login(ctx, auth.LoginInput{Email: "known@example.com", Password: "nope"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

// ── One-Time Codes ───────────────────────────────────────────────────────────

/*
TestService_SendCode_RoutesByClassification asserts that email targets go out
on the email channel and mobile targets on the SMS channel.
*/
func TestService_SendCode_RoutesByClassification(t *testing.T) {
	fixture := newServiceFixture(t)

	fixture.issueCode(t, "route@example.com", auth.PurposeLogin)
	assert.Equal(t, notify.ChannelEmail, fixture.awaitDelivery(t))

	fixture.issueCode(t, "9998887777", auth.PurposeLogin)
	assert.Equal(t, notify.ChannelSMS, fixture.awaitDelivery(t))
}

/*
TestService_SendCode_RejectsUnclassifiableTarget asserts the validation
failure for targets that are neither email nor mobile.
*/
func TestService_SendCode_RejectsUnclassifiableTarget(t *testing.T) {
	fixture := newServiceFixture(t)

	err := fixture.service.SendCode(context.Background(), "not-a-target", auth.PurposeLogin)
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "VALIDATION_ERROR", appError.Code)
}

/*
TestService_SendCode_DeliveryFailureIsSwallowed asserts the optimistic
contract: a broken gateway never fails issuance.
*/
func TestService_SendCode_DeliveryFailureIsSwallowed(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.gateway.fail = assert.AnError

	err := fixture.service.SendCode(context.Background(), "fail@example.com", auth.PurposeLogin)
	require.NoError(t, err)
	fixture.awaitDelivery(t)
}

/*
TestService_VerifyCode_PurposeScoping asserts codes never validate across
flows, in either direction.
*/
func TestService_VerifyCode_PurposeScoping(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	loginCode := fixture.issueCode(t, "scope@example.com", auth.PurposeLogin)
	_, err := fixture.service.VerifyCode(ctx, "scope@example.com", loginCode, auth.PurposeReset)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)

	resetCode := fixture.issueCode(t, "9991112222", auth.PurposeReset)
	_, err = fixture.service.VerifyCode(ctx, "9991112222", resetCode, auth.PurposeLogin)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}

/*
TestService_VerifyCode_SingleUse asserts a claimed code is rejected on every
later attempt with identical inputs.
*/
func TestService_VerifyCode_SingleUse(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	code := fixture.issueCode(t, "once@example.com", auth.PurposeLogin)

	_, err := fixture.service.VerifyCode(ctx, "once@example.com", code, auth.PurposeLogin)
	require.NoError(t, err)

	_, err = fixture.service.VerifyCode(ctx, "once@example.com", code, auth.PurposeLogin)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}

/*
TestService_VerifyCode_ExpiredLooksLikeWrongCode asserts expiry and a wrong
guess are indistinguishable from the response.
*/
func TestService_VerifyCode_ExpiredLooksLikeWrongCode(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	code := fixture.issueCode(t, "late@example.com", auth.PurposeLogin)
	fixture.codes.lastIssued("late@example.com").ExpiresAt = time.Now().Add(-time.Minute)

	_, expiredErr := fixture.service.VerifyCode(ctx, "late@example.com", code, auth.PurposeLogin)
	_, wrongErr := fixture.service.VerifyCode(ctx, "late@example.com", "000000", auth.PurposeLogin)

	require.Error(t, expiredErr)
	require.Error(t, wrongErr)
	assert.Equal(t, expiredErr.Error(), wrongErr.Error())
}

/*
TestService_VerifyCode_LatestCodeWins asserts the tie-break when several
unused codes coexist for one target: only the newest issuance is honored for
its own value, and each remains claimable by exact value.
*/
func TestService_VerifyCode_LatestCodeWins(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	first := fixture.issueCode(t, "many@example.com", auth.PurposeLogin)
	second := fixture.issueCode(t, "many@example.com", auth.PurposeLogin)

	_, err := fixture.service.VerifyCode(ctx, "many@example.com", second, auth.PurposeLogin)
	require.NoError(t, err)

	if first != second {
		_, err = fixture.service.VerifyCode(ctx, "many@example.com", first, auth.PurposeLogin)
		require.NoError(t, err, "older unused codes stay valid inside their window")
	}
}

/*
TestService_OTPFlow_EndToEnd walks issuance, a wrong guess, then a correct
verification that auto-provisions a mobile-keyed account with a cart.
*/
func TestService_OTPFlow_EndToEnd(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	code := fixture.issueCode(t, "9998887777", auth.PurposeLogin)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err := fixture.service.VerifyCode(ctx, "9998887777", wrong, auth.PurposeLogin)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)

	session, err := fixture.service.VerifyCode(ctx, "9998887777", code, auth.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, "9998887777", session.Identity.Mobile)
	assert.Empty(t, session.Identity.Email)
	assert.Equal(t, "Customer", session.Identity.Name)
	assert.True(t, fixture.carts.has(session.Identity.ID))

	claims, err := fixture.tokens.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, claims.UserID)
	assert.Equal(t, "9998887777", claims.Mobile)
}

/*
TestService_VerifyCode_ExistingIdentityIsReused asserts verification signs in
the existing account instead of provisioning a duplicate.
*/
func TestService_VerifyCode_ExistingIdentityIsReused(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	registered, err := fixture.service.Register(ctx, auth.RegisterInput{
		Email:    "back@example.com",
		Password: "pw123456",
	})
	require.NoError(t, err)

	code := fixture.issueCode(t, "back@example.com", auth.PurposeLogin)
	session, err := fixture.service.VerifyCode(ctx, "back@example.com", code, auth.PurposeLogin)
	require.NoError(t, err)

	assert.Equal(t, registered.Identity.ID, session.Identity.ID)
	assert.Len(t, fixture.identities.identities, 1)
}

// ── Password Reset ───────────────────────────────────────────────────────────

/*
TestService_ResetPassword_UnknownTargetIsNotFound asserts reset refuses to
auto-provision, while verification with equivalent inputs creates an account.
*/
func TestService_ResetPassword_UnknownTargetIsNotFound(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	resetCode := fixture.issueCode(t, "nobody@example.com", auth.PurposeReset)
	err := fixture.service.ResetPassword(ctx, "nobody@example.com", resetCode, "new-pass-123")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	loginCode := fixture.issueCode(t, "nobody@example.com", auth.PurposeLogin)
	session, err := fixture.service.VerifyCode(ctx, "nobody@example.com", loginCode, auth.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, "nobody@example.com", session.Identity.Email)
}

/*
TestService_ResetPassword_ReplacesCredential walks the full recovery flow:
reset with a valid code, old password dead, new password logs in.
*/
func TestService_ResetPassword_ReplacesCredential(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, auth.RegisterInput{
		Email:    "reset@example.com",
		Password: "old-pass-123",
	})
	require.NoError(t, err)

	code := fixture.issueCode(t, "reset@example.com", auth.PurposeReset)
	require.NoError(t, fixture.service.ResetPassword(ctx, "reset@example.com", code, "new-pass-456"))

	_, err = fixture.service.Login(ctx, auth.LoginInput{Email: "reset@example.com", Password: "old-pass-123"})
	require.Error(t, err)

	session, err := fixture.service.Login(ctx, auth.LoginInput{Email: "reset@example.com", Password: "new-pass-456"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

/*
TestService_ResetPassword_ConsumesCode asserts the reset code is single-use
even when the reset itself fails on identity lookup.
*/
func TestService_ResetPassword_ConsumesCode(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	code := fixture.issueCode(t, "ghost@example.com", auth.PurposeReset)

	err := fixture.service.ResetPassword(ctx, "ghost@example.com", code, "irrelevant-1")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	err = fixture.service.ResetPassword(ctx, "ghost@example.com", code, "irrelevant-2")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}
