package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tolga/reserva/internal/model"
)

// JobRunRepository is the durable job store for the lifecycle scheduler.
type JobRunRepository struct {
	db *gorm.DB
}

// NewJobRunRepository creates a new JobRunRepository.
func NewJobRunRepository(db *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// Begin records the start of a job tick.
func (r *JobRunRepository) Begin(ctx context.Context, name string, at time.Time) (*model.JobRun, error) {
	run := &model.JobRun{
		Name:      name,
		Status:    model.JobRunRunning,
		StartedAt: at,
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Finish closes a job run with its outcome and optional detail payload.
func (r *JobRunRepository) Finish(ctx context.Context, run *model.JobRun, status model.JobRunStatus, detail map[string]any, at time.Time) error {
	run.Status = status
	run.FinishedAt = &at
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err == nil {
			run.Detail = raw
		}
	}
	return r.db.WithContext(ctx).Save(run).Error
}

// LastCompleted returns the most recent successful run of the named job,
// nil when the job never completed.
func (r *JobRunRepository) LastCompleted(ctx context.Context, name string) (*model.JobRun, error) {
	var run model.JobRun
	err := r.db.WithContext(ctx).
		Where("name = ? AND status = ?", name, model.JobRunSuccess).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// PruneOlderThan removes job-run records older than the cutoff.
func (r *JobRunRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&model.JobRun{})
	return res.RowsAffected, res.Error
}

// ReminderRepository records which reservations were already reminded.
type ReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository creates a new ReminderRepository.
func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Mark records that a reminder was sent. Returns false when a marker already
// existed, making reminder emission idempotent.
func (r *ReminderRepository) Mark(ctx context.Context, reservationID uint, at time.Time) (bool, error) {
	marker := model.ReminderMarker{ReservationID: reservationID, SentAt: at}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&marker)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Exists reports whether a reminder was already sent for the reservation.
func (r *ReminderRepository) Exists(ctx context.Context, reservationID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ReminderMarker{}).
		Where("reservation_id = ?", reservationID).
		Count(&count).Error
	return count > 0, err
}
