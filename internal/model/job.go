package model

import (
	"time"

	"gorm.io/datatypes"
)

// JobRunStatus is the outcome of a scheduler tick.
type JobRunStatus string

// Job run outcomes.
const (
	JobRunRunning JobRunStatus = "RUNNING"
	JobRunSuccess JobRunStatus = "SUCCESS"
	JobRunFailure JobRunStatus = "FAILURE"
)

// JobRun records one execution of a named scheduler job. The table doubles
// as the durable job store: on restart the scheduler can tell when each job
// last completed.
type JobRun struct {
	ID         uint           `gorm:"primaryKey"`
	Name       string         `gorm:"size:50;not null;index:idx_job_runs_name_started,priority:1"`
	Status     JobRunStatus   `gorm:"size:20;not null"`
	StartedAt  time.Time      `gorm:"not null;index:idx_job_runs_name_started,priority:2"`
	FinishedAt *time.Time     `gorm:""`
	Detail     datatypes.JSON `gorm:"type:json"`
}

// ReminderMarker records that a reminder was emitted for a reservation.
// The unique index makes reminder delivery idempotent across ticks.
type ReminderMarker struct {
	ID            uint      `gorm:"primaryKey"`
	ReservationID uint      `gorm:"not null;uniqueIndex"`
	SentAt        time.Time `gorm:"not null"`
}
