// Copyright (c) 2026 Essenzia. All rights reserved.

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/essenzia/essenzia/internal/platform/apperr"
	"github.com/essenzia/essenzia/internal/platform/ctxutil"
	"github.com/essenzia/essenzia/internal/platform/middleware"
	"github.com/essenzia/essenzia/internal/platform/ratelimit"
	requestutil "github.com/essenzia/essenzia/internal/platform/request"
	"github.com/essenzia/essenzia/internal/platform/respond"
	"github.com/essenzia/essenzia/internal/platform/validate"
)

// sendOTPMessage is the optimistic acknowledgment for code issuance. The
// code record exists once we answer; delivery is settled asynchronously.
const sendOTPMessage = "OTP sent (if infrastructure configured)"

// Handler implements authentication-related HTTP endpoints.
//
// # Architecture
//
// Handlers act as the "gatekeepers" to the system. They are responsible for:
//   - JSON request parsing and strict input validation.
//   - Mapping HTTP contexts to service layer method calls.
//   - Standardizing JSON response formats via the [respond] package.
//
// They contain NO business logic or database queries.
type Handler struct {
	authService *Service
	otpLimiter  *ratelimit.Limiter
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, otpLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		authService: service,
		otpLimiter:  otpLimiter,
	}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register       : Creates a new account.
//   - POST /login          : Authenticates with a password, returns a JWT.
//   - POST /send-otp       : Issues a one-time code (rate limited).
//   - POST /verify-otp     : Consumes a code, returns a JWT.
//   - POST /reset-password : Consumes a reset code, replaces the password.
//   - GET  /me             : Returns the authenticated account's profile.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/send-otp", handler.sendOTP)
	router.Post("/verify-otp", handler.verifyOTP)
	router.Post("/reset-password", handler.resetPassword)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)
		protected.Get("/me", handler.me)
	})

	return router
}

// registerRequest represents the JSON payload expected for account creation.
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// register handles POST /api/v1/auth/register requests.
//
// # Returns
//   - Writes HTTP 201 Created on success with the token and identity view.
//   - Writes HTTP 400 Bad Request if validation rules fail.
//   - Writes HTTP 409 Conflict if email/mobile is taken.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := (&validate.Validator{}).
		Custom("email", input.Email == "" && input.Mobile == "", "at least one of email or mobile is required").
		MinLen("password", input.Password, 6).
		MaxLen("name", input.Name, 120)
	if input.Email != "" {
		validator.Email("email", input.Email)
	}
	if input.Mobile != "" {
		validator.Custom("mobile", ClassifyTarget(input.Mobile) != TargetMobile, "must be a valid mobile number")
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Name:     input.Name,
		Email:    input.Email,
		Mobile:   input.Mobile,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.Created(writer, map[string]any{
		"token": session.Token,
		"user":  session.Identity,
	})
}

// loginRequest represents the JSON payload expected for password login.
type loginRequest struct {
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// login handles POST /api/v1/auth/login requests.
//
// # Returns
//   - Writes HTTP 200 OK on success with the token and identity view.
//   - Writes HTTP 401 Unauthorized for bad credentials, one generic message
//     for every failure shape.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := (&validate.Validator{}).
		Custom("email", input.Email == "" && input.Mobile == "", "email or mobile is required").
		Required("password", input.Password).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Mobile:   input.Mobile,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"token": session.Token,
		"user":  session.Identity,
	})
}

// sendOTPRequest represents the JSON payload for code issuance.
type sendOTPRequest struct {
	Target  string `json:"target"`
	Purpose string `json:"purpose"`
}

// sendOTP handles POST /api/v1/auth/send-otp requests.
//
// # Rate Limiting
//
// Issuance carries a per-caller ceiling on top of the global middleware
// limit, keyed by client IP. The limiter fails open: a Redis outage logs a
// warning and lets the request through, trading strictness for issuance
// availability.
func (handler *Handler) sendOTP(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Rate Ceiling ───────────────────────────────────────────────────

	callerKey := middleware.RealIP(request) + ":send-otp"
	allowed, err := handler.otpLimiter.Allow(request.Context(), callerKey)
	if err != nil {
		ctxutil.GetLogger(request.Context()).Warn("otp_limiter_unavailable", "error", err.Error())
	} else if !allowed {
		respond.Error(writer, request, apperr.RateLimited(int(handler.otpLimiter.Window().Seconds())))
		return
	}

	// ── 2. Payload Extraction & Validation ────────────────────────────────

	var input sendOTPRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).
		Required("target", input.Target).
		OneOf("purpose", input.Purpose, string(PurposeLogin), string(PurposeReset)).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	if err := handler.authService.SendCode(request.Context(), input.Target, Purpose(input.Purpose)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"message": sendOTPMessage,
	})
}

// verifyOTPRequest represents the JSON payload for code verification.
type verifyOTPRequest struct {
	Target  string `json:"target"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}

// verifyOTP handles POST /api/v1/auth/verify-otp requests.
//
// # Returns
//   - Writes HTTP 200 OK with the token and identity view, auto-provisioning
//     an account on first verification of an unknown target.
//   - Writes HTTP 401 Unauthorized with one generic message for a wrong,
//     expired, or already-used code.
func (handler *Handler) verifyOTP(writer http.ResponseWriter, request *http.Request) {
	var input verifyOTPRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).
		Required("target", input.Target).
		Required("code", input.Code).
		OneOf("purpose", input.Purpose, string(PurposeLogin), string(PurposeReset)).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.VerifyCode(request.Context(), input.Target, input.Code, Purpose(input.Purpose))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"token": session.Token,
		"user":  session.Identity,
	})
}

// resetPasswordRequest represents the JSON payload for password recovery.
type resetPasswordRequest struct {
	Target      string `json:"target"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// resetPassword handles POST /api/v1/auth/reset-password requests.
//
// # Returns
//   - Writes HTTP 200 OK with a bare acknowledgment; the caller logs in
//     afterward with the new password.
//   - Writes HTTP 401 Unauthorized for a claim miss, HTTP 404 Not Found when
//     the target has no account.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).
		Required("target", input.Target).
		Required("code", input.Code).
		MinLen("newPassword", input.NewPassword, 6).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Target, input.Code, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"message": "Password updated successfully",
	})
}

// me handles GET /api/v1/auth/me requests for the authenticated account.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.authService.Profile(request.Context(), identityID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, identity)
}
