package handler

import (
	"net/http"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
	"github.com/tolga/reserva/internal/service"
)

// ReservationHandler serves the reservation endpoints.
type ReservationHandler struct {
	bookings *service.BookingService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(bookings *service.BookingService) *ReservationHandler {
	return &ReservationHandler{bookings: bookings}
}

type createReservationRequest struct {
	RoomID      uint            `json:"roomId" validate:"required"`
	Title       string          `json:"title" validate:"required,min=3,max=100"`
	Description string          `json:"description" validate:"max=500"`
	StartAt     strfmt.DateTime `json:"startAt" validate:"required"`
	EndAt       strfmt.DateTime `json:"endAt" validate:"required"`
}

// Create books a room for the authenticated caller.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req createReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.bookings.Create(r.Context(), service.CreateReservationInput{
		RoomID:      req.RoomID,
		UserID:      identity.UserID,
		Title:       req.Title,
		Description: req.Description,
		StartAt:     time.Time(req.StartAt),
		EndAt:       time.Time(req.EndAt),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toReservationResponse(res))
}

// Get returns one reservation.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}

// List returns reservations matching the query filters. Non-moderators only
// see their own.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	filter := repository.ReservationFilter{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.ReservationStatus(raw)
		if !status.Valid() {
			respondError(w, r, invalidQuery("status"))
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("roomId"); raw != "" {
		roomID, err := parseUintQuery(raw)
		if err != nil {
			respondError(w, r, invalidQuery("roomId"))
			return
		}
		filter.RoomID = &roomID
	}
	from, err := timeQuery(r, "start", false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter.From = from
	to, err := timeQuery(r, "end", false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter.To = to

	if identity.Role.CanModerate() {
		if raw := r.URL.Query().Get("userId"); raw != "" {
			userID, err := parseUintQuery(raw)
			if err != nil {
				respondError(w, r, invalidQuery("userId"))
				return
			}
			filter.UserID = &userID
		}
	} else {
		filter.UserID = &identity.UserID
	}

	items, total, err := h.bookings.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ReservationListResponse{
		Items: toReservationResponses(items),
		Total: total,
	})
}

type updateReservationRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=3,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	StartAt     *strfmt.DateTime `json:"startAt"`
	EndAt       *strfmt.DateTime `json:"endAt"`
}

// Update applies a partial update to a reservation.
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req updateReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	input := service.UpdateReservationInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.StartAt != nil {
		t := time.Time(*req.StartAt)
		input.StartAt = &t
	}
	if req.EndAt != nil {
		t := time.Time(*req.EndAt)
		input.EndAt = &t
	}

	res, err := h.bookings.Update(r.Context(), id, identity.UserID, input)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}

// Cancel cancels a reservation. The reason comes from the query string so
// DELETE needs no body.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	reason := r.URL.Query().Get("reason")
	if err := h.bookings.Cancel(r.Context(), id, identity.UserID, reason); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Approve confirms a pending reservation. Moderator-only.
func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.bookings.Approve(r.Context(), id, identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Reject cancels a pending reservation with a reason. Moderator-only.
func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.bookings.Reject(r.Context(), id, identity.UserID, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}
