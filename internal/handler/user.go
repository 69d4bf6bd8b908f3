package handler

import (
	"net/http"

	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/service"
)

// UserHandler serves user administration. Admin-gated at the router.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Surname    string `json:"surname" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"required"`
	Department *uint  `json:"departmentId"`
}

// Create registers an account with an explicit role.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Name:       req.Name,
		Surname:    req.Surname,
		Email:      req.Email,
		Password:   req.Password,
		Role:       model.Role(req.Role),
		Department: req.Department,
	}, true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// Get returns one user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

// List returns users, newest first.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ChangeRole sets a user's role.
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req changeRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.users.ChangeRole(r.Context(), id, model.Role(req.Role))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}
