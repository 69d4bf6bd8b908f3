package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

// Reservation statuses. PENDING, CONFIRMED and IN_PROGRESS are the active
// states relevant to conflict detection; FINISHED and CANCELLED are terminal.
const (
	StatusPending    ReservationStatus = "PENDING"
	StatusConfirmed  ReservationStatus = "CONFIRMED"
	StatusInProgress ReservationStatus = "IN_PROGRESS"
	StatusFinished   ReservationStatus = "FINISHED"
	StatusCancelled  ReservationStatus = "CANCELLED"
)

// ActiveStatuses is the set of states that occupy a room's timeline.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusInProgress}

// Valid reports whether s is a known reservation status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the status occupies the room's timeline.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusInProgress
}

// Terminal reports whether no further transitions are allowed.
func (s ReservationStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// Reservation is an exclusive, time-bounded claim on a room.
//
// ApprovedBy is nil with ApprovedAt set when the reservation was confirmed by
// the auto-approval job rather than an explicit approver.
type Reservation struct {
	ID     uint `gorm:"primaryKey"`
	RoomID uint `gorm:"not null;index:idx_reservations_room_window,priority:1"`
	UserID uint `gorm:"not null;index:idx_reservations_user_status,priority:1"`

	Title       string `gorm:"size:100;not null"`
	Description string `gorm:"size:500"`

	StartAt time.Time `gorm:"not null;index:idx_reservations_room_window,priority:2;index:idx_reservations_start"`
	EndAt   time.Time `gorm:"not null;index:idx_reservations_room_window,priority:3;index:idx_reservations_end"`

	Status ReservationStatus `gorm:"size:20;not null;index:idx_reservations_room_window,priority:4;index:idx_reservations_user_status,priority:2"`

	ApprovedBy         *uint
	ApprovedAt         *time.Time
	CancellationReason string `gorm:"size:500"`

	// ArchivedAt is the tombstone set by the weekly archive job. Archived
	// rows are excluded from every read path.
	ArchivedAt *time.Time `gorm:"index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Duration returns the reserved interval length.
func (r *Reservation) Duration() time.Duration {
	return r.EndAt.Sub(r.StartAt)
}

// Overlaps reports whether the reservation's interval intersects [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartAt.Before(end) && start.Before(r.EndAt)
}
