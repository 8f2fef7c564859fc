package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/sso"
	"github.com/erazemk/auditit/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB     *sqlx.DB
	Signer *auth.Signer
	SSO    IdentityProvider
	Log    *zap.Logger
}

type loginRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user,omitempty"`
}

type dingTalkLoginRequest struct {
	Code string `json:"code" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// Login handles POST /api/auth/login for local accounts.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	user, err := store.GetUserByName(r.Context(), h.DB, req.Name)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if user == nil || user.PasswordHash == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		h.Log.Warn("login failed", zap.String("name", req.Name), zap.String("remote", r.RemoteAddr))
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.Signer.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.Log.Info("user logged in", zap.String("user", user.Name), zap.String("role", user.Role))
	jsonResponse(w, http.StatusOK, loginResponse{Token: token})
}

// DingTalkLogin handles POST /api/auth/dingtalk-login (in-app auth code).
func (h *AuthHandler) DingTalkLogin(w http.ResponseWriter, r *http.Request) {
	h.dingTalkLogin(w, r, "auth_code", func(ctx context.Context, code string) (*sso.Identity, error) {
		return h.SSO.UserByAuthCode(ctx, code)
	})
}

// DingTalkSSOLogin handles POST /api/auth/dingtalk-sso-login (browser SSO code).
func (h *AuthHandler) DingTalkSSOLogin(w http.ResponseWriter, r *http.Request) {
	h.dingTalkLogin(w, r, "sso", func(ctx context.Context, code string) (*sso.Identity, error) {
		return h.SSO.UserBySSOCode(ctx, code)
	})
}

func (h *AuthHandler) dingTalkLogin(w http.ResponseWriter, r *http.Request, flow string,
	resolve func(context.Context, string) (*sso.Identity, error)) {
	if h.SSO == nil {
		jsonError(w, http.StatusServiceUnavailable, "dingtalk login is not configured")
		return
	}

	var req dingTalkLoginRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ident, err := resolve(r.Context(), req.Code)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	name := ident.DisplayName
	if name == "" {
		name = ident.ExternalUserID
	}
	user, err := store.UpsertDingTalkUser(r.Context(), h.DB, ident.ExternalUserID, name, model.DingTalkRole(ident.IsAdmin))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	token, err := h.Signer.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.Log.Info("user logged in",
		zap.String("user", user.Name),
		zap.String("role", user.Role),
		zap.String("flow", flow),
	)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if claims.ID != "" && claims.ExpiresAt != nil {
		if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			writeError(w, h.Log, err)
			return
		}
	}

	h.Log.Info("user logged out", zap.String("user", claims.Name))
	jsonResponse(w, http.StatusOK, message("logged out"))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, userID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if user.PasswordHash == nil {
		jsonError(w, http.StatusBadRequest, "account signs in through dingtalk")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, userID, string(hash)); err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.Log.Info("user changed own password", zap.String("user", claims.Name))
	jsonResponse(w, http.StatusOK, message("password updated"))
}
