package handler

import (
	"net/http"
	"time"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/service"
)

// ReportHandler serves the management reports. Moderator-gated at the
// router.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// reportRange parses the mandatory startDate/endDate query parameters.
func reportRange(r *http.Request) (from, to time.Time, err error) {
	f, err := timeQuery(r, "startDate", true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	t, err := timeQuery(r, "endDate", true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !t.After(*f) {
		return time.Time{}, time.Time{}, apperror.Validation("endDate must be after startDate")
	}
	return *f, *t, nil
}

// Usage reports reservation counts and hours per room.
func (h *ReportHandler) Usage(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportRange(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rows, err := h.reports.Usage(r.Context(), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Occupancy reports booked hours against business-hour capacity per room.
func (h *ReportHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportRange(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rows, err := h.reports.Occupancy(r.Context(), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Departments reports usage per department.
func (h *ReportHandler) Departments(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportRange(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rows, err := h.reports.DepartmentUsage(r.Context(), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Users reports per-user reservation activity.
func (h *ReportHandler) Users(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportRange(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rows, err := h.reports.UserActivity(r.Context(), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Statistics reports totals by status plus cancellation and auto-approval
// rates.
func (h *ReportHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportRange(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	stats, err := h.reports.Statistics(r.Context(), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
