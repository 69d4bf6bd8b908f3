package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
)

var sixty = decimal.NewFromInt(60)

// RoomUsage is one row of the usage report.
type RoomUsage struct {
	RoomID       uint            `json:"roomId"`
	RoomCode     string          `json:"roomCode"`
	RoomName     string          `json:"roomName"`
	DepartmentID uint            `json:"departmentId"`
	Reservations int64           `json:"reservations"`
	Hours        decimal.Decimal `json:"hours"`
}

// RoomOccupancy is one row of the occupancy report: booked hours against
// the business-hour capacity of the period.
type RoomOccupancy struct {
	RoomID           uint            `json:"roomId"`
	RoomCode         string          `json:"roomCode"`
	BookedHours      decimal.Decimal `json:"bookedHours"`
	CapacityHours    decimal.Decimal `json:"capacityHours"`
	OccupancyPercent decimal.Decimal `json:"occupancyPercent"`
}

// DepartmentUsage is one row of the department usage report.
type DepartmentUsage struct {
	DepartmentID   uint            `json:"departmentId"`
	DepartmentCode string          `json:"departmentCode"`
	DepartmentName string          `json:"departmentName"`
	Reservations   int64           `json:"reservations"`
	Hours          decimal.Decimal `json:"hours"`
}

// UserActivity is one row of the user activity report.
type UserActivity struct {
	UserID       uint            `json:"userId"`
	Email        string          `json:"email"`
	Reservations int64           `json:"reservations"`
	Cancelled    int64           `json:"cancelled"`
	Hours        decimal.Decimal `json:"hours"`
}

// Statistics is the aggregate summary report.
type Statistics struct {
	Total               int64                             `json:"total"`
	ByStatus            map[model.ReservationStatus]int64 `json:"byStatus"`
	CancellationPercent decimal.Decimal                   `json:"cancellationPercent"`
	AutoApprovedPercent decimal.Decimal                   `json:"autoApprovedPercent"`
}

// ReportService computes the management reports over a date range.
type ReportService struct {
	reports  *repository.ReportRepository
	calendar *clock.Calendar
}

// NewReportService creates a new ReportService.
func NewReportService(reports *repository.ReportRepository, calendar *clock.Calendar) *ReportService {
	return &ReportService{reports: reports, calendar: calendar}
}

func minutesToHours(minutes int64) decimal.Decimal {
	return decimal.NewFromInt(minutes).Div(sixty).Round(2)
}

// Usage reports reservation counts and hours per room.
func (s *ReportService) Usage(ctx context.Context, from, to time.Time) ([]RoomUsage, error) {
	rows, err := s.reports.RoomUsage(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]RoomUsage, 0, len(rows))
	for _, r := range rows {
		out = append(out, RoomUsage{
			RoomID:       r.RoomID,
			RoomCode:     r.RoomCode,
			RoomName:     r.RoomName,
			DepartmentID: r.DepartmentID,
			Reservations: r.Reservations,
			Hours:        minutesToHours(r.TotalMinutes),
		})
	}
	return out, nil
}

// Occupancy reports booked hours against business-hour capacity per room.
func (s *ReportService) Occupancy(ctx context.Context, from, to time.Time) ([]RoomOccupancy, error) {
	rows, err := s.reports.RoomUsage(ctx, from, to)
	if err != nil {
		return nil, err
	}
	capacityMinutes := s.calendar.BusinessMinutesBetween(from, to)
	capacity := minutesToHours(int64(capacityMinutes))

	out := make([]RoomOccupancy, 0, len(rows))
	for _, r := range rows {
		booked := minutesToHours(r.TotalMinutes)
		percent := decimal.Zero
		if capacityMinutes > 0 {
			percent = decimal.NewFromInt(r.TotalMinutes).
				Div(decimal.NewFromInt(int64(capacityMinutes))).
				Mul(decimal.NewFromInt(100)).
				Round(1)
		}
		out = append(out, RoomOccupancy{
			RoomID:           r.RoomID,
			RoomCode:         r.RoomCode,
			BookedHours:      booked,
			CapacityHours:    capacity,
			OccupancyPercent: percent,
		})
	}
	return out, nil
}

// DepartmentUsage reports reservation counts and hours per department.
func (s *ReportService) DepartmentUsage(ctx context.Context, from, to time.Time) ([]DepartmentUsage, error) {
	rows, err := s.reports.DepartmentUsage(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]DepartmentUsage, 0, len(rows))
	for _, r := range rows {
		out = append(out, DepartmentUsage{
			DepartmentID:   r.DepartmentID,
			DepartmentCode: r.DepartmentCode,
			DepartmentName: r.DepartmentName,
			Reservations:   r.Reservations,
			Hours:          minutesToHours(r.TotalMinutes),
		})
	}
	return out, nil
}

// UserActivity reports per-user reservation activity.
func (s *ReportService) UserActivity(ctx context.Context, from, to time.Time) ([]UserActivity, error) {
	rows, err := s.reports.UserActivity(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]UserActivity, 0, len(rows))
	for _, r := range rows {
		out = append(out, UserActivity{
			UserID:       r.UserID,
			Email:        r.Email,
			Reservations: r.Reservations,
			Cancelled:    r.Cancelled,
			Hours:        minutesToHours(r.TotalMinutes),
		})
	}
	return out, nil
}

// Statistics reports totals by status plus cancellation and auto-approval
// rates for the period.
func (s *ReportService) Statistics(ctx context.Context, from, to time.Time) (*Statistics, error) {
	rows, err := s.reports.StatusCounts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	autoApproved, err := s.reports.AutoApprovedCount(ctx, from, to)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{ByStatus: make(map[model.ReservationStatus]int64, len(rows))}
	var cancelled int64
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
		if r.Status == model.StatusCancelled {
			cancelled = r.Count
		}
	}
	stats.CancellationPercent = percentOf(cancelled, stats.Total)
	stats.AutoApprovedPercent = percentOf(autoApproved, stats.Total)
	return stats, nil
}

func percentOf(part, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).
		Div(decimal.NewFromInt(total)).
		Mul(decimal.NewFromInt(100)).
		Round(1)
}
