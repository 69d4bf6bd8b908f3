package handler

import (
	"net/http"

	"github.com/tolga/reserva/internal/service"
)

// DepartmentHandler serves department administration. All mutations are
// admin-gated at the router.
type DepartmentHandler struct {
	departments *service.DepartmentService
}

// NewDepartmentHandler creates a new DepartmentHandler.
func NewDepartmentHandler(departments *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departments: departments}
}

type createDepartmentRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Code      string `json:"code" validate:"required,max=20"`
	ManagerID *uint  `json:"managerId"`
}

// Create registers a department.
func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDepartmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	dept, err := h.departments.Create(r.Context(), req.Name, req.Code, req.ManagerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toDepartmentResponse(dept))
}

// Get returns one department.
func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	dept, err := h.departments.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDepartmentResponse(dept))
}

// List returns all departments.
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	depts, err := h.departments.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]DepartmentResponse, 0, len(depts))
	for i := range depts {
		out = append(out, toDepartmentResponse(&depts[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

type updateDepartmentRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	ManagerID *uint   `json:"managerId"`
}

// Update changes a department's name or manager.
func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req updateDepartmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	dept, err := h.departments.Update(r.Context(), id, req.Name, req.ManagerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDepartmentResponse(dept))
}

// Delete removes a department without rooms.
func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.departments.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
