package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
)

var validate = validator.New()

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// decodeJSON parses and validates a request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation("malformed request body")
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			field := ve[0]
			return apperror.Newf(apperror.KindValidation, "field %s failed validation %s", field.Field(), field.Tag())
		}
		return apperror.Validation("invalid request body")
	}
	return nil
}

// idParam parses a numeric path parameter.
func idParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Newf(apperror.KindValidation, "invalid %s", name)
	}
	return uint(id), nil
}

// timeQuery parses an RFC3339 query parameter, required or optional.
func timeQuery(r *http.Request, name string, required bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return nil, apperror.Newf(apperror.KindValidation, "query parameter %s is required", name)
		}
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperror.Newf(apperror.KindValidation, "query parameter %s must be RFC3339", name)
	}
	return &t, nil
}

// parseUintQuery parses a positive numeric query value.
func parseUintQuery(raw string) (uint, error) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, errors.New("not a positive integer")
	}
	return uint(n), nil
}

func invalidQuery(name string) error {
	return apperror.Newf(apperror.KindValidation, "invalid query parameter %s", name)
}

// pagination parses limit and offset query parameters with bounds.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 1 {
			return 0, 0, apperror.Validation("limit must be a positive integer")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 0 {
			return 0, 0, apperror.Validation("offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}

// ReservationResponse is the wire form of a reservation.
type ReservationResponse struct {
	ID                 uint             `json:"id"`
	RoomID             uint             `json:"roomId"`
	UserID             uint             `json:"userId"`
	Title              string           `json:"title"`
	Description        string           `json:"description,omitempty"`
	StartAt            strfmt.DateTime  `json:"startAt"`
	EndAt              strfmt.DateTime  `json:"endAt"`
	Status             string           `json:"status"`
	ApprovedBy         *uint            `json:"approvedBy,omitempty"`
	ApprovedAt         *strfmt.DateTime `json:"approvedAt,omitempty"`
	AutoApproved       bool             `json:"autoApproved"`
	CancellationReason string           `json:"cancellationReason,omitempty"`
	CreatedAt          strfmt.DateTime  `json:"createdAt"`
	UpdatedAt          strfmt.DateTime  `json:"updatedAt"`
}

func toReservationResponse(res *model.Reservation) ReservationResponse {
	out := ReservationResponse{
		ID:                 res.ID,
		RoomID:             res.RoomID,
		UserID:             res.UserID,
		Title:              res.Title,
		Description:        res.Description,
		StartAt:            strfmt.DateTime(res.StartAt),
		EndAt:              strfmt.DateTime(res.EndAt),
		Status:             string(res.Status),
		ApprovedBy:         res.ApprovedBy,
		AutoApproved:       res.ApprovedAt != nil && res.ApprovedBy == nil,
		CancellationReason: res.CancellationReason,
		CreatedAt:          strfmt.DateTime(res.CreatedAt),
		UpdatedAt:          strfmt.DateTime(res.UpdatedAt),
	}
	if res.ApprovedAt != nil {
		at := strfmt.DateTime(*res.ApprovedAt)
		out.ApprovedAt = &at
	}
	return out
}

func toReservationResponses(list []model.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(list))
	for i := range list {
		out = append(out, toReservationResponse(&list[i]))
	}
	return out
}

// ReservationListResponse is a page of reservations plus the unpaged total.
type ReservationListResponse struct {
	Items []ReservationResponse `json:"items"`
	Total int64                 `json:"total"`
}

// RoomResponse is the wire form of a room.
type RoomResponse struct {
	ID           uint            `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Capacity     int             `json:"capacity"`
	Building     string          `json:"building,omitempty"`
	Floor        int             `json:"floor"`
	DepartmentID uint            `json:"departmentId"`
	Status       string          `json:"status"`
	Responsible  string          `json:"responsible,omitempty"`
	Description  string          `json:"description,omitempty"`
	Amenities    []string        `json:"amenities"`
	CreatedAt    strfmt.DateTime `json:"createdAt"`
}

func toRoomResponse(room *model.Room) RoomResponse {
	amenities := []string{}
	if len(room.Amenities) > 0 {
		_ = json.Unmarshal(room.Amenities, &amenities)
	}
	return RoomResponse{
		ID:           room.ID,
		Code:         room.Code,
		Name:         room.Name,
		Capacity:     room.Capacity,
		Building:     room.Building,
		Floor:        room.Floor,
		DepartmentID: room.DepartmentID,
		Status:       string(room.Status),
		Responsible:  room.Responsible,
		Description:  room.Description,
		Amenities:    amenities,
		CreatedAt:    strfmt.DateTime(room.CreatedAt),
	}
}

func toRoomResponses(list []model.Room) []RoomResponse {
	out := make([]RoomResponse, 0, len(list))
	for i := range list {
		out = append(out, toRoomResponse(&list[i]))
	}
	return out
}

// UserResponse is the wire form of a user. The password hash never leaves
// the service.
type UserResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Surname      string          `json:"surname"`
	Email        string          `json:"email"`
	Role         string          `json:"role"`
	DepartmentID *uint           `json:"departmentId,omitempty"`
	CreatedAt    strfmt.DateTime `json:"createdAt"`
}

func toUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		Surname:      user.Surname,
		Email:        user.Email,
		Role:         string(user.Role),
		DepartmentID: user.DepartmentID,
		CreatedAt:    strfmt.DateTime(user.CreatedAt),
	}
}

// DepartmentResponse is the wire form of a department.
type DepartmentResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	ManagerID *uint           `json:"managerId,omitempty"`
	CreatedAt strfmt.DateTime `json:"createdAt"`
}

func toDepartmentResponse(dept *model.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:        dept.ID,
		Name:      dept.Name,
		Code:      dept.Code,
		ManagerID: dept.ManagerID,
		CreatedAt: strfmt.DateTime(dept.CreatedAt),
	}
}

// BusyInterval is one occupied slot in a room's availability.
type BusyInterval struct {
	ReservationID uint            `json:"reservationId"`
	StartAt       strfmt.DateTime `json:"startAt"`
	EndAt         strfmt.DateTime `json:"endAt"`
	Status        string          `json:"status"`
}

func toBusyIntervals(list []model.Reservation) []BusyInterval {
	out := make([]BusyInterval, 0, len(list))
	for _, r := range list {
		out = append(out, BusyInterval{
			ReservationID: r.ID,
			StartAt:       strfmt.DateTime(r.StartAt),
			EndAt:         strfmt.DateTime(r.EndAt),
			Status:        string(r.Status),
		})
	}
	return out
}
