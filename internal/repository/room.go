package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
)

// RoomFilter narrows room listings.
type RoomFilter struct {
	Status       *model.RoomStatus
	DepartmentID *uint
	MinCapacity  *int
	Limit        int
	Offset       int
}

// RoomRepository handles room persistence.
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *RoomRepository) WithTx(tx *gorm.DB) *RoomRepository {
	return &RoomRepository{db: tx}
}

// Create persists a new room. Duplicate codes surface as CONFLICT.
func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.Newf(apperror.KindConflict, "room code %s already exists", room.Code)
		}
		return err
	}
	return nil
}

// GetByID retrieves a room.
func (r *RoomRepository) GetByID(ctx context.Context, id uint) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("room")
		}
		return nil, err
	}
	return &room, nil
}

// GetByCode retrieves a room by its unique code.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("room")
		}
		return nil, err
	}
	return &room, nil
}

// List returns rooms matching the filter.
func (r *RoomRepository) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
	q := r.db.WithContext(ctx).Model(&model.Room{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.DepartmentID != nil {
		q = q.Where("department_id = ?", *f.DepartmentID)
	}
	if f.MinCapacity != nil {
		q = q.Where("capacity >= ?", *f.MinCapacity)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var out []model.Room
	err := q.Order("code ASC").Limit(limit).Offset(f.Offset).Find(&out).Error
	return out, err
}

// Update saves all fields of the room.
func (r *RoomRepository) Update(ctx context.Context, room *model.Room) error {
	if err := r.db.WithContext(ctx).Save(room).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.Newf(apperror.KindConflict, "room code %s already exists", room.Code)
		}
		return err
	}
	return nil
}

// Delete removes a room.
func (r *RoomRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Room{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("room")
	}
	return nil
}

// Available returns ACTIVE rooms with no active reservation overlapping
// [start, end), optionally filtered by department and minimum capacity.
func (r *RoomRepository) Available(ctx context.Context, start, end time.Time, departmentID *uint, capacity *int) ([]model.Room, error) {
	q := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("status = ?", model.RoomActive).
		Where("NOT EXISTS (SELECT 1 FROM reservations WHERE reservations.room_id = rooms.id"+
			" AND reservations.archived_at IS NULL"+
			" AND reservations.start_at < ? AND reservations.end_at > ?"+
			" AND reservations.status IN ?)", end, start, model.ActiveStatuses)
	if departmentID != nil {
		q = q.Where("department_id = ?", *departmentID)
	}
	if capacity != nil {
		q = q.Where("capacity >= ?", *capacity)
	}
	var out []model.Room
	err := q.Order("code ASC").Find(&out).Error
	return out, err
}

// isUniqueViolation recognizes unique-constraint failures on both targets.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
