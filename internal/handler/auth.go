package handler

import (
	"net/http"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/middleware"
	"github.com/tolga/reserva/internal/service"
)

// AuthHandler serves registration, login, token refresh and password reset.
type AuthHandler struct {
	users *service.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Surname    string `json:"surname" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Department *uint  `json:"departmentId"`
}

// Register creates a self-service account with the USER role.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Name:       req.Name,
		Surname:    req.Surname,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
	}, false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         UserResponse `json:"user"`
}

// Login verifies credentials and returns a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	pair, user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		User:         toUserResponse(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Refresh rotates a refresh token into a fresh pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// Me returns the authenticated caller's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respondError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}
	user, err := h.users.Get(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset issues a reset token. The response never reveals
// whether the account exists.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	token, err := h.users.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// The token would be delivered out of band. It is returned here only
	// because no mail channel is wired.
	respondJSON(w, http.StatusAccepted, map[string]string{"resetToken": token})
}

type passwordResetConfirm struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirm
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.users.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// requireIdentity extracts the caller, shared by the resource handlers.
func requireIdentity(r *http.Request) (middleware.Identity, error) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return middleware.Identity{}, apperror.Unauthenticated("authentication required")
	}
	return identity, nil
}
