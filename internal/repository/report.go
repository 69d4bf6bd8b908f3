package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tolga/reserva/internal/model"
)

// RoomUsageRow aggregates reservation activity per room.
type RoomUsageRow struct {
	RoomID       uint
	RoomCode     string
	RoomName     string
	DepartmentID uint
	Reservations int64
	TotalMinutes int64
}

// DepartmentUsageRow aggregates reservation activity per department.
type DepartmentUsageRow struct {
	DepartmentID   uint
	DepartmentCode string
	DepartmentName string
	Reservations   int64
	TotalMinutes   int64
}

// UserActivityRow aggregates reservation activity per user.
type UserActivityRow struct {
	UserID       uint
	Email        string
	Reservations int64
	Cancelled    int64
	TotalMinutes int64
}

// StatusCountRow counts reservations per status.
type StatusCountRow struct {
	Status model.ReservationStatus
	Count  int64
}

// ReportRepository runs the read-only aggregation queries behind the report
// endpoints. Minute arithmetic is done in SQL; percentage math stays in the
// service layer.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// durationMinutes is the portable minute difference between end_at and
// start_at for the two supported targets.
func (r *ReportRepository) durationMinutes() string {
	if r.db.Dialector.Name() == "postgres" {
		return "EXTRACT(EPOCH FROM (reservations.end_at - reservations.start_at)) / 60"
	}
	// sqlite stores julian day fractions
	return "(julianday(reservations.end_at) - julianday(reservations.start_at)) * 1440"
}

// usageStatuses are the states counted as room usage.
var usageStatuses = []model.ReservationStatus{
	model.StatusConfirmed, model.StatusInProgress, model.StatusFinished,
}

// RoomUsage aggregates per-room usage over [from, to].
func (r *ReportRepository) RoomUsage(ctx context.Context, from, to time.Time) ([]RoomUsageRow, error) {
	var rows []RoomUsageRow
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Select("reservations.room_id AS room_id, rooms.code AS room_code, rooms.name AS room_name,"+
			" rooms.department_id AS department_id, COUNT(*) AS reservations,"+
			" COALESCE(SUM("+r.durationMinutes()+"), 0) AS total_minutes").
		Joins("JOIN rooms ON rooms.id = reservations.room_id").
		Where("reservations.start_at >= ? AND reservations.start_at < ?", from, to).
		Where("reservations.status IN ?", usageStatuses).
		Group("reservations.room_id, rooms.code, rooms.name, rooms.department_id").
		Order("rooms.code ASC").
		Scan(&rows).Error
	return rows, err
}

// DepartmentUsage aggregates usage per department over [from, to].
func (r *ReportRepository) DepartmentUsage(ctx context.Context, from, to time.Time) ([]DepartmentUsageRow, error) {
	var rows []DepartmentUsageRow
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Select("rooms.department_id AS department_id, departments.code AS department_code,"+
			" departments.name AS department_name, COUNT(*) AS reservations,"+
			" COALESCE(SUM("+r.durationMinutes()+"), 0) AS total_minutes").
		Joins("JOIN rooms ON rooms.id = reservations.room_id").
		Joins("JOIN departments ON departments.id = rooms.department_id").
		Where("reservations.start_at >= ? AND reservations.start_at < ?", from, to).
		Where("reservations.status IN ?", usageStatuses).
		Group("rooms.department_id, departments.code, departments.name").
		Order("departments.code ASC").
		Scan(&rows).Error
	return rows, err
}

// UserActivity aggregates per-user activity over [from, to].
func (r *ReportRepository) UserActivity(ctx context.Context, from, to time.Time) ([]UserActivityRow, error) {
	var rows []UserActivityRow
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Select("reservations.user_id AS user_id, users.email AS email, COUNT(*) AS reservations,"+
			" SUM(CASE WHEN reservations.status = ? THEN 1 ELSE 0 END) AS cancelled,"+
			" COALESCE(SUM(CASE WHEN reservations.status IN ? THEN "+r.durationMinutes()+" ELSE 0 END), 0) AS total_minutes",
			model.StatusCancelled, usageStatuses).
		Joins("JOIN users ON users.id = reservations.user_id").
		Where("reservations.start_at >= ? AND reservations.start_at < ?", from, to).
		Group("reservations.user_id, users.email").
		Order("reservations DESC").
		Scan(&rows).Error
	return rows, err
}

// StatusCounts counts reservations per status over [from, to].
func (r *ReportRepository) StatusCounts(ctx context.Context, from, to time.Time) ([]StatusCountRow, error) {
	var rows []StatusCountRow
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Select("status, COUNT(*) AS count").
		Where("start_at >= ? AND start_at < ?", from, to).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// AutoApprovedCount counts reservations confirmed by the auto-approval job
// (approved_at set with no approver) over [from, to].
func (r *ReportRepository) AutoApprovedCount(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("start_at >= ? AND start_at < ?", from, to).
		Where("approved_at IS NOT NULL AND approved_by IS NULL").
		Count(&count).Error
	return count, err
}
