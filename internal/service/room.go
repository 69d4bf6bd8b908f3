package service

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,19}$`)

// RoomService handles room administration and availability queries.
type RoomService struct {
	rooms        *repository.RoomRepository
	reservations *repository.ReservationRepository
	departments  *repository.DepartmentRepository
}

// NewRoomService creates a new RoomService.
func NewRoomService(
	rooms *repository.RoomRepository,
	reservations *repository.ReservationRepository,
	departments *repository.DepartmentRepository,
) *RoomService {
	return &RoomService{rooms: rooms, reservations: reservations, departments: departments}
}

// CreateRoomInput is the command to create a room.
type CreateRoomInput struct {
	Code         string
	Name         string
	Capacity     int
	Building     string
	Floor        int
	DepartmentID uint
	Responsible  string
	Description  string
	Amenities    []string
}

func amenitiesJSON(list []string) (datatypes.JSON, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "encode amenities", err)
	}
	return datatypes.JSON(raw), nil
}

// Create registers a new room, defaulting to ACTIVE.
func (s *RoomService) Create(ctx context.Context, input CreateRoomInput) (*model.Room, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if !roomCodePattern.MatchString(code) {
		return nil, apperror.Validation("room code must be 2-20 uppercase alphanumeric characters or hyphens")
	}
	if input.Capacity < 1 {
		return nil, apperror.Validation("capacity must be at least 1")
	}
	if _, err := s.departments.GetByID(ctx, input.DepartmentID); err != nil {
		return nil, err
	}
	amenities, err := amenitiesJSON(input.Amenities)
	if err != nil {
		return nil, err
	}

	room := &model.Room{
		Code:         code,
		Name:         input.Name,
		Capacity:     input.Capacity,
		Building:     input.Building,
		Floor:        input.Floor,
		DepartmentID: input.DepartmentID,
		Status:       model.RoomActive,
		Responsible:  input.Responsible,
		Description:  input.Description,
		Amenities:    amenities,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Get retrieves a room.
func (s *RoomService) Get(ctx context.Context, id uint) (*model.Room, error) {
	return s.rooms.GetByID(ctx, id)
}

// List returns rooms matching the filter.
func (s *RoomService) List(ctx context.Context, f repository.RoomFilter) ([]model.Room, error) {
	return s.rooms.List(ctx, f)
}

// UpdateRoomInput carries a partial room update. Nil fields are unchanged.
type UpdateRoomInput struct {
	Name        *string
	Capacity    *int
	Building    *string
	Floor       *int
	Status      *model.RoomStatus
	Responsible *string
	Description *string
	Amenities   []string
}

// Update applies a partial update. Status transitions are admin-only and
// gated at the API layer.
func (s *RoomService) Update(ctx context.Context, id uint, input UpdateRoomInput) (*model.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		room.Name = *input.Name
	}
	if input.Capacity != nil {
		if *input.Capacity < 1 {
			return nil, apperror.Validation("capacity must be at least 1")
		}
		room.Capacity = *input.Capacity
	}
	if input.Building != nil {
		room.Building = *input.Building
	}
	if input.Floor != nil {
		room.Floor = *input.Floor
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperror.Validation("invalid room status")
		}
		room.Status = *input.Status
	}
	if input.Responsible != nil {
		room.Responsible = *input.Responsible
	}
	if input.Description != nil {
		room.Description = *input.Description
	}
	if input.Amenities != nil {
		amenities, err := amenitiesJSON(input.Amenities)
		if err != nil {
			return nil, err
		}
		room.Amenities = amenities
	}
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Delete removes a room, refusing while active reservations depend on it.
func (s *RoomService) Delete(ctx context.Context, id uint) error {
	if _, err := s.rooms.GetByID(ctx, id); err != nil {
		return err
	}
	busy, err := s.reservations.HasActiveForRoom(ctx, id)
	if err != nil {
		return err
	}
	if busy {
		return apperror.New(apperror.KindConflict, "room has active reservations")
	}
	return s.rooms.Delete(ctx, id)
}

// Available returns rooms free for the whole interval.
func (s *RoomService) Available(ctx context.Context, start, end time.Time, departmentID *uint, capacity *int) ([]model.Room, error) {
	if !end.After(start) {
		return nil, apperror.Validation("end must be after start")
	}
	return s.rooms.Available(ctx, start, end, departmentID, capacity)
}

// Availability returns the busy intervals of one room within a window.
func (s *RoomService) Availability(ctx context.Context, roomID uint, start, end time.Time) ([]model.Reservation, error) {
	if !end.After(start) {
		return nil, apperror.Validation("end must be after start")
	}
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.reservations.Overlapping(ctx, roomID, start, end, nil)
}
