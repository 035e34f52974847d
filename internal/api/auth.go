package api

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/erazemk/totetrack/internal/tenancy"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Users *tenancy.Manager
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type recoveryRequest struct {
	Email string `json:"email"`
}

type recoveryConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// readLogin accepts both form-encoded (username, password) and JSON bodies.
func readLogin(r *http.Request) (loginRequest, error) {
	var req loginRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		return req, nil
	}
	err := decodeJSON(r, &req)
	return req, err
}

// Token handles POST /api/auth/token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	req, err := readLogin(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := req.Email
	if email == "" {
		email = req.Username
	}
	if email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.Users.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		slog.Warn("login failed", "remote", r.RemoteAddr)
		writeError(w, r, err)
		return
	}

	token, err := h.Users.Credentials.IssueAccessToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "account_id", user.AccountID)
	jsonResponse(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so the
// client simply discards its token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	message(w, "logged out")
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, CurrentUser(r.Context()))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	if err := h.Users.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user changed own password", "user_id", user.ID)
	message(w, "password updated")
}

// RequestRecovery handles POST /api/auth/recovery. The response is the
// same whether or not the email is registered.
func (h *AuthHandler) RequestRecovery(w http.ResponseWriter, r *http.Request) {
	var req recoveryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		jsonError(w, http.StatusBadRequest, "email required")
		return
	}

	if err := h.Users.RequestPasswordRecovery(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, "if the email is registered, a recovery link has been sent")
}

// ConfirmRecovery handles POST /api/auth/recovery/confirm.
func (h *AuthHandler) ConfirmRecovery(w http.ResponseWriter, r *http.Request) {
	var req recoveryConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "token and new password required")
		return
	}

	if _, err := h.Users.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, "password updated")
}
