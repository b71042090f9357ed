package handler

import (
	"log/slog"
	"net/http"

	"github.com/rolecraft/rolecraft/internal/server/middleware"
	"github.com/rolecraft/rolecraft/internal/service"
)

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

// ---------------------------------------------------------------------------
// Request payloads
// ---------------------------------------------------------------------------

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordInitiateRequest struct {
	CurrentPassword string `json:"currentPassword"`
}

type changePasswordConfirmRequest struct {
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type emergencyResetRequest struct {
	MasterKey   string `json:"masterKey"`
	NewPassword string `json:"newPassword"`
	// Email picks the admin to reset when more than one exists.
	Email string `json:"email,omitempty"`
}

// decode reads the body into v and writes a 400 envelope on failure.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := readJSON(w, r, v); err != nil {
		writeError(w, r, h.logger, service.ErrInvalidInput)
		return false
	}
	return true
}

// principal returns the verified caller. Authenticate guarantees it on
// protected routes; a missing value is treated as an invalid token.
func (h *AuthHandler) principal(w http.ResponseWriter, r *http.Request) (*service.Principal, bool) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, r, h.logger, service.ErrInvalidToken)
		return nil, false
	}
	return p, true
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// Login authenticates an admin and returns a session token.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", session)
}

// Logout acknowledges a logout. Tokens are stateless, so the client is
// expected to discard its own copy.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Logged out", nil)
}

// Me returns the authenticated admin without its password hash.
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	admin, err := h.accounts.Me(r.Context(), p.AdminID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", admin)
}

// CreateAdmin creates the first admin account and signs it in. It is refused
// once any admin exists.
// POST /auth/create-admin
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.accounts.Bootstrap(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "First Admin created", session)
}

// ---------------------------------------------------------------------------
// Change password
// ---------------------------------------------------------------------------

// InitiatePasswordChange checks the current password and emails an OTP.
// POST /auth/change-password/initiate
func (h *AuthHandler) InitiatePasswordChange(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req changePasswordInitiateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.InitiatePasswordChange(r.Context(), p.AdminID, req.CurrentPassword); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "OTP sent to your email", nil)
}

// ConfirmPasswordChange applies the new password if the OTP is valid.
// PUT /auth/change-password/confirm
func (h *AuthHandler) ConfirmPasswordChange(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req changePasswordConfirmRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.ConfirmPasswordChange(r.Context(), p.AdminID, req.OTP, req.NewPassword); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password updated successfully", nil)
}

// ---------------------------------------------------------------------------
// Forgot password
// ---------------------------------------------------------------------------

// ForgotPassword emails a reset OTP if the address belongs to an admin. The
// response is the same either way.
// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, service.ResetRequestedMessage, nil)
}

// ResetPassword sets a new password using an emailed OTP.
// PUT /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password reset successful. You can now login.", nil)
}

// EmergencyReset force-sets an admin password with the server master key.
// POST /auth/emergency-reset
func (h *AuthHandler) EmergencyReset(w http.ResponseWriter, r *http.Request) {
	var req emergencyResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.EmergencyReset(r.Context(), req.MasterKey, req.Email, req.NewPassword); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Emergency password reset successful. You can now login.", nil)
}
