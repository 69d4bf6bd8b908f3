package handler

import (
	"net/http"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
	"github.com/tolga/reserva/internal/service"
)

// RoomHandler serves room administration and availability.
type RoomHandler struct {
	rooms *service.RoomService
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type createRoomRequest struct {
	Code         string   `json:"code" validate:"required,max=20"`
	Name         string   `json:"name" validate:"required,max=100"`
	Capacity     int      `json:"capacity" validate:"required,min=1"`
	Building     string   `json:"building" validate:"max=100"`
	Floor        int      `json:"floor"`
	DepartmentID uint     `json:"departmentId" validate:"required"`
	Responsible  string   `json:"responsible" validate:"max=200"`
	Description  string   `json:"description" validate:"max=500"`
	Amenities    []string `json:"amenities"`
}

// Create registers a room. Admin-only.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	room, err := h.rooms.Create(r.Context(), service.CreateRoomInput{
		Code:         req.Code,
		Name:         req.Name,
		Capacity:     req.Capacity,
		Building:     req.Building,
		Floor:        req.Floor,
		DepartmentID: req.DepartmentID,
		Responsible:  req.Responsible,
		Description:  req.Description,
		Amenities:    req.Amenities,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRoomResponse(room))
}

// Get returns one room.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	room, err := h.rooms.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoomResponse(room))
}

// List returns rooms matching the query filters.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.RoomFilter{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.RoomStatus(raw)
		if !status.Valid() {
			respondError(w, r, invalidQuery("status"))
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("departmentId"); raw != "" {
		id, err := parseUintQuery(raw)
		if err != nil {
			respondError(w, r, invalidQuery("departmentId"))
			return
		}
		filter.DepartmentID = &id
	}
	if raw := r.URL.Query().Get("minCapacity"); raw != "" {
		n, err := parseUintQuery(raw)
		if err != nil {
			respondError(w, r, invalidQuery("minCapacity"))
			return
		}
		capacity := int(n)
		filter.MinCapacity = &capacity
	}

	rooms, err := h.rooms.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoomResponses(rooms))
}

type updateRoomRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=100"`
	Capacity    *int     `json:"capacity" validate:"omitempty,min=1"`
	Building    *string  `json:"building" validate:"omitempty,max=100"`
	Floor       *int     `json:"floor"`
	Status      *string  `json:"status"`
	Responsible *string  `json:"responsible" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Amenities   []string `json:"amenities"`
}

// Update applies a partial update to a room. Admin-only.
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req updateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	input := service.UpdateRoomInput{
		Name:        req.Name,
		Capacity:    req.Capacity,
		Building:    req.Building,
		Floor:       req.Floor,
		Responsible: req.Responsible,
		Description: req.Description,
		Amenities:   req.Amenities,
	}
	if req.Status != nil {
		status := model.RoomStatus(*req.Status)
		input.Status = &status
	}
	room, err := h.rooms.Update(r.Context(), id, input)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoomResponse(room))
}

// Delete removes a room without active reservations. Admin-only.
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.rooms.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Available lists rooms free for the whole requested interval.
func (h *RoomHandler) Available(w http.ResponseWriter, r *http.Request) {
	start, err := timeQuery(r, "start", true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	end, err := timeQuery(r, "end", true)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var departmentID *uint
	if raw := r.URL.Query().Get("departmentId"); raw != "" {
		id, err := parseUintQuery(raw)
		if err != nil {
			respondError(w, r, invalidQuery("departmentId"))
			return
		}
		departmentID = &id
	}
	var capacity *int
	if raw := r.URL.Query().Get("capacity"); raw != "" {
		n, err := parseUintQuery(raw)
		if err != nil {
			respondError(w, r, invalidQuery("capacity"))
			return
		}
		c := int(n)
		capacity = &c
	}

	rooms, err := h.rooms.Available(r.Context(), *start, *end, departmentID, capacity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoomResponses(rooms))
}

// Availability returns a room's busy intervals within a window. The window
// defaults to the next 7 days.
func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	start, err := timeQuery(r, "start", false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	end, err := timeQuery(r, "end", false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if start == nil {
		now := time.Now().UTC()
		start = &now
	}
	if end == nil {
		week := start.Add(7 * 24 * time.Hour)
		end = &week
	}

	busy, err := h.rooms.Availability(r.Context(), id, *start, *end)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"roomId": id,
		"start":  strfmt.DateTime(*start),
		"end":    strfmt.DateTime(*end),
		"busy":   toBusyIntervals(busy),
	})
}
